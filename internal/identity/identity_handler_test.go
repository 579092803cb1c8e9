package identity_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pavankumar-vh/VisionID/internal/identity"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeService struct {
	enrollFn func(ctx context.Context, params identity.EnrollParams) (identity.IdentityResponse, error)
	updateFn func(ctx context.Context, id string, params identity.UpdateParams) (identity.IdentityResponse, error)
	deleteFn func(ctx context.Context, id string) error
	listFn   func(ctx context.Context, offset, limit int) ([]identity.IdentityResponse, int64, error)
}

func (f *fakeService) Enroll(ctx context.Context, params identity.EnrollParams) (identity.IdentityResponse, error) {
	return f.enrollFn(ctx, params)
}
func (f *fakeService) Update(ctx context.Context, id string, params identity.UpdateParams) (identity.IdentityResponse, error) {
	return f.updateFn(ctx, id, params)
}
func (f *fakeService) Delete(ctx context.Context, id string) error { return f.deleteFn(ctx, id) }
func (f *fakeService) List(ctx context.Context, offset, limit int) ([]identity.IdentityResponse, int64, error) {
	return f.listFn(ctx, offset, limit)
}

func multipartRequest(t *testing.T, target string, fields map[string]string, fileField string, fileData []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		assert.NoError(t, writer.WriteField(k, v))
	}
	if fileField != "" {
		part, err := writer.CreateFormFile(fileField, "photo.jpg")
		assert.NoError(t, err)
		_, err = part.Write(fileData)
		assert.NoError(t, err)
	}
	assert.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHandler_Enroll(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := &fakeService{enrollFn: func(ctx context.Context, params identity.EnrollParams) (identity.IdentityResponse, error) {
		assert.Equal(t, "alice", params.Name)
		assert.Equal(t, []byte("jpeg-bytes"), params.Image)
		assert.Equal(t, "photo.jpg", params.ImageRef)
		assert.JSONEq(t, `{"team":"platform"}`, string(params.Metadata))
		return identity.IdentityResponse{ID: uuid.New().String(), Name: "alice"}, nil
	}}
	h := identity.NewHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartRequest(t, "/register",
		map[string]string{"name": "alice", "metadata": `{"team":"platform"}`},
		"file", []byte("jpeg-bytes"))

	h.Enroll(c)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "alice")
}

func TestHandler_Enroll_MissingName(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := identity.NewHandler(&fakeService{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartRequest(t, "/register", nil, "file", []byte("jpeg-bytes"))

	h.Enroll(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Enroll_MissingFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := identity.NewHandler(&fakeService{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartRequest(t, "/register", map[string]string{"name": "alice"}, "", nil)

	h.Enroll(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_List(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := &fakeService{listFn: func(ctx context.Context, offset, limit int) ([]identity.IdentityResponse, int64, error) {
		assert.Equal(t, 20, offset)
		assert.Equal(t, 10, limit)
		return []identity.IdentityResponse{{ID: uuid.New().String(), Name: "alice"}}, 21, nil
	}}
	h := identity.NewHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/register/users?offset=20&limit=10", nil)

	h.List(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "\"meta\"")
}

func TestHandler_Delete(t *testing.T) {
	gin.SetMode(gin.TestMode)

	id := uuid.New().String()
	svc := &fakeService{deleteFn: func(ctx context.Context, got string) error {
		assert.Equal(t, id, got)
		return nil
	}}
	h := identity.NewHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodDelete, "/register/user/"+id, nil)
	c.Params = gin.Params{{Key: "id", Value: id}}

	h.Delete(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "\"deleted\":true")
}

func TestHandler_Update_NameOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)

	id := uuid.New().String()
	svc := &fakeService{updateFn: func(ctx context.Context, got string, params identity.UpdateParams) (identity.IdentityResponse, error) {
		assert.Equal(t, id, got)
		assert.NotNil(t, params.Name)
		assert.Equal(t, "renamed", *params.Name)
		assert.Empty(t, params.Image)
		return identity.IdentityResponse{ID: id, Name: "renamed"}, nil
	}}
	h := identity.NewHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = multipartRequest(t, "/register/user/"+id, map[string]string{"name": "renamed"}, "", nil)
	c.Params = gin.Params{{Key: "id", Value: id}}

	h.Update(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "renamed")
}
