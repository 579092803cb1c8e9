package recognition

import (
	"io"
	"net/http"
	"strconv"

	"github.com/pavankumar-vh/VisionID/internal/shared/apperror"
	"github.com/pavankumar-vh/VisionID/internal/shared/response"

	"github.com/gin-gonic/gin"
)

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

func (h *Handler) Recognize(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "An image file is required", nil)
		return
	}
	if fileHeader.Size > maxImageBytes {
		response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "Image is too large", nil)
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		writeServiceError(c, err)
		return
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		writeServiceError(c, err)
		return
	}

	resp, err := h.service.Recognize(c.Request.Context(), data, fileHeader.Filename)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) RecognizeBulk(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "A multipart form with image files is required", nil)
		return
	}

	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "At least one image file is required", nil)
		return
	}

	images := make([]BulkImage, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		img := BulkImage{Ref: fh.Filename}
		// Oversized or unreadable uploads become per-image failures so the
		// rest of the batch still runs.
		if fh.Size <= maxImageBytes {
			if f, err := fh.Open(); err == nil {
				img.Data, _ = io.ReadAll(f)
				f.Close()
			}
		}
		images = append(images, img)
	}

	resp, err := h.service.RecognizeBulk(c.Request.Context(), images)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	entries, err := h.service.History(c.Request.Context(), limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, entries, nil)
}
