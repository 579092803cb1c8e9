package identity

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/pavankumar-vh/VisionID/internal/shared/apperror"
	"github.com/pavankumar-vh/VisionID/internal/shared/response"

	"github.com/gin-gonic/gin"
)

// uploads larger than this are rejected before touching the inference service
const maxImageBytes = 10 << 20

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

// readImageFile pulls the uploaded image out of the multipart form.
func readImageFile(c *gin.Context, field string) ([]byte, string, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	if fileHeader.Size > maxImageBytes {
		return nil, "", apperror.New(apperror.CodeInvalidInput, "Image is too large", http.StatusBadRequest)
	}

	f, err := fileHeader.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}
	return data, fileHeader.Filename, nil
}

type enrollForm struct {
	Name     string `form:"name" json:"name" binding:"required"`
	Metadata string `form:"metadata" json:"metadata"`
}

func (h *Handler) Enroll(c *gin.Context) {
	var form enrollForm
	if err := c.ShouldBind(&form); err != nil {
		writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	image, filename, err := readImageFile(c, "file")
	if err != nil {
		writeServiceError(c, apperror.Wrap(err, apperror.CodeInvalidInput, "A face image file is required", http.StatusBadRequest))
		return
	}

	params := EnrollParams{
		Name:     form.Name,
		Image:    image,
		ImageRef: filename,
	}
	if form.Metadata != "" {
		params.Metadata = json.RawMessage(form.Metadata)
	}

	resp, err := h.service.Enroll(c.Request.Context(), params)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) List(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	resp, total, err := h.service.List(c.Request.Context(), offset, limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	page := 1
	if limit > 0 {
		page = offset/limit + 1
	}
	meta := response.NewPaginationMeta(total, page, limit)
	response.Success(c, http.StatusOK, resp, &meta)
}

func (h *Handler) Update(c *gin.Context) {
	id := c.Param("id")

	var params UpdateParams
	if name := c.PostForm("name"); name != "" {
		params.Name = &name
	}
	if raw := c.PostForm("metadata"); raw != "" {
		params.Metadata = json.RawMessage(raw)
	}
	if image, filename, err := readImageFile(c, "file"); err == nil {
		params.Image = image
		params.ImageRef = filename
	}

	resp, err := h.service.Update(c.Request.Context(), id, params)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Delete(c *gin.Context) {
	id := c.Param("id")

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id, "deleted": true}, nil)
}
