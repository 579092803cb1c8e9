package recognition_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pavankumar-vh/VisionID/internal/recognition"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeService struct {
	recognizeFn     func(ctx context.Context, image []byte, ref string) (recognition.RecognizeResponse, error)
	recognizeBulkFn func(ctx context.Context, images []recognition.BulkImage) (recognition.BulkResponse, error)
	historyFn       func(ctx context.Context, limit int) ([]recognition.HistoryEntry, error)
}

func (f *fakeService) Recognize(ctx context.Context, image []byte, ref string) (recognition.RecognizeResponse, error) {
	return f.recognizeFn(ctx, image, ref)
}
func (f *fakeService) RecognizeBulk(ctx context.Context, images []recognition.BulkImage) (recognition.BulkResponse, error) {
	return f.recognizeBulkFn(ctx, images)
}
func (f *fakeService) History(ctx context.Context, limit int) ([]recognition.HistoryEntry, error) {
	return f.historyFn(ctx, limit)
}

func imageRequest(t *testing.T, target, fileField string, files map[string][]byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, data := range files {
		part, err := writer.CreateFormFile(fileField, name)
		assert.NoError(t, err)
		_, err = part.Write(data)
		assert.NoError(t, err)
	}
	assert.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHandler_Recognize(t *testing.T) {
	gin.SetMode(gin.TestMode)

	id := uuid.New().String()
	name := "alice"
	svc := &fakeService{recognizeFn: func(ctx context.Context, image []byte, ref string) (recognition.RecognizeResponse, error) {
		assert.Equal(t, []byte("jpeg-bytes"), image)
		assert.Equal(t, "frame.jpg", ref)
		return recognition.RecognizeResponse{
			DetectedFaces: 1,
			Results: []recognition.FaceResult{
				{Recognized: true, IdentityID: &id, Name: &name, Confidence: 0.91},
			},
		}, nil
	}}
	h := recognition.NewHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = imageRequest(t, "/recognize", "file", map[string][]byte{"frame.jpg": []byte("jpeg-bytes")})

	h.Recognize(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")
	assert.Contains(t, w.Body.String(), "\"detected_faces\":1")
}

func TestHandler_Recognize_MissingFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := recognition.NewHandler(&fakeService{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = imageRequest(t, "/recognize", "file", nil)

	h.Recognize(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_RecognizeBulk(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := &fakeService{recognizeBulkFn: func(ctx context.Context, images []recognition.BulkImage) (recognition.BulkResponse, error) {
		assert.Len(t, images, 2)
		refs := []string{images[0].Ref, images[1].Ref}
		assert.ElementsMatch(t, []string{"a.jpg", "b.jpg"}, refs)
		return recognition.BulkResponse{TotalImages: 2, Images: make([]recognition.BulkImageResult, 2)}, nil
	}}
	h := recognition.NewHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = imageRequest(t, "/recognize/bulk", "files", map[string][]byte{
		"a.jpg": []byte("img-a"),
		"b.jpg": []byte("img-b"),
	})

	h.RecognizeBulk(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "\"total_images\":2")
}

func TestHandler_RecognizeBulk_NoFiles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := recognition.NewHandler(&fakeService{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = imageRequest(t, "/recognize/bulk", "files", nil)

	h.RecognizeBulk(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_History(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := &fakeService{historyFn: func(ctx context.Context, limit int) ([]recognition.HistoryEntry, error) {
		assert.Equal(t, 5, limit)
		return []recognition.HistoryEntry{{ID: 1, Recognized: true, Confidence: 0.8}}, nil
	}}
	h := recognition.NewHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/recognize/history?limit=5", nil)

	h.History(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "\"recognized\":true")
}
