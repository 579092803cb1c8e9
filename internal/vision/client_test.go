package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pavankumar-vh/VisionID/internal/shared/apperror"

	"github.com/stretchr/testify/assert"
)

func TestClient_Detect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/detect", r.URL.Path)

		file, header, err := r.FormFile("file")
		assert.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "image.jpg", header.Filename)

		json.NewEncoder(w).Encode(detectResponse{Faces: []Face{
			{Box: Box{X: 10, Y: 20, Width: 100, Height: 120}, Confidence: 0.98},
			{Box: Box{X: 200, Y: 40, Width: 90, Height: 110}, Confidence: 0.91},
		}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	defer client.Close()

	faces, err := client.Detect(context.Background(), []byte("jpeg-bytes"))
	assert.NoError(t, err)
	assert.Len(t, faces, 2)
	assert.Equal(t, 10, faces[0].Box.X)
	assert.InDelta(t, 0.98, faces[0].Confidence, 1e-9)
}

func TestClient_Detect_NoFaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(detectResponse{Faces: []Face{}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	faces, err := client.Detect(context.Background(), []byte("jpeg-bytes"))
	assert.NoError(t, err)
	assert.Empty(t, faces)
}

func TestClient_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)

		var face Face
		assert.NoError(t, json.Unmarshal([]byte(r.FormValue("face")), &face))
		assert.Equal(t, 42, face.Box.X)

		json.NewEncoder(w).Encode(embedResponse{Dim: 3, Embedding: []float64{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	vec, err := client.Embed(context.Background(), []byte("jpeg-bytes"), Face{Box: Box{X: 42}})
	assert.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
}

func TestClient_Embed_EmptyEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Embed(context.Background(), []byte("jpeg-bytes"), Face{})
	assert.Error(t, err)
}

func TestClient_RejectedImageMapsToInvalidInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not an image", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Detect(context.Background(), []byte("not-a-jpeg"))
	assert.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidInput, appErr.Code)
	assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
}

func TestClient_SidecarDownMapsToUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := NewClient(srv.URL)
	_, err := client.Detect(context.Background(), []byte("jpeg-bytes"))
	assert.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, apperror.CodeServiceUnavailable, appErr.Code)
}

func TestNewClient_DefaultURL(t *testing.T) {
	client := NewClient("")
	assert.Equal(t, defaultInferenceURL, client.baseURL)

	client = NewClient("http://models:9000/")
	assert.Equal(t, "http://models:9000", client.baseURL)
}
