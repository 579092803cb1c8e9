package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/pavankumar-vh/VisionID/internal/shared/apperror"
)

const defaultInferenceURL = "http://localhost:8000"

// Client talks to the RetinaFace/ArcFace inference sidecar over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultInferenceURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Close releases pooled connections to the sidecar.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}

type detectResponse struct {
	Faces []Face `json:"faces"`
}

type embedResponse struct {
	Dim       int       `json:"dim"`
	Embedding []float64 `json:"embedding"`
}

func (c *Client) Detect(ctx context.Context, image []byte) ([]Face, error) {
	body, err := c.postMultipart(ctx, "/detect", image, nil)
	if err != nil {
		return nil, err
	}

	var res detectResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode detect response: %w", err)
	}
	return res.Faces, nil
}

func (c *Client) Embed(ctx context.Context, image []byte, face Face) ([]float64, error) {
	faceJSON, err := json.Marshal(face)
	if err != nil {
		return nil, err
	}

	body, err := c.postMultipart(ctx, "/embed", image, map[string]string{"face": string(faceJSON)})
	if err != nil {
		return nil, err
	}

	var res embedResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(res.Embedding) == 0 {
		return nil, fmt.Errorf("embed response has no embedding")
	}
	return res.Embedding, nil
}

// postMultipart sends the image as a form file plus any extra fields and
// returns the raw response body. 4xx from the sidecar means the image was
// rejected and maps to INVALID_INPUT.
func (c *Client) postMultipart(ctx context.Context, endpoint string, image []byte, fields map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("write image data: %w", err)
	}

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeServiceUnavailable, "Inference service unavailable", http.StatusServiceUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, apperror.Wrap(
			fmt.Errorf("inference %s: status %d: %s", endpoint, resp.StatusCode, body),
			apperror.CodeInvalidInput,
			"The image could not be processed",
			http.StatusBadRequest,
		)
	default:
		return nil, fmt.Errorf("inference %s: status %d: %s", endpoint, resp.StatusCode, body)
	}
}
