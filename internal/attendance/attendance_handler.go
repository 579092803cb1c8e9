package attendance

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pavankumar-vh/VisionID/internal/shared/apperror"
	"github.com/pavankumar-vh/VisionID/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const maxImageBytes = 10 << 20

type Handler struct {
	service Service
	rdb     *redis.Client
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// NewHandlerWithRedis enables idempotency response caching on Mark.
func NewHandlerWithRedis(service Service, rdb *redis.Client) *Handler {
	return &Handler{service: service, rdb: rdb}
}

func writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) Mark(c *gin.Context) {
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

	resp, err := h.service.Mark(c.Request.Context(), data, fileHeader.Filename)
	if err != nil {
		h.releaseIdempotencyLock(c)
		writeServiceError(c, err)
		return
	}

	h.cacheIdempotentResponse(c, resp)
	response.Success(c, http.StatusOK, resp, nil)
}

// cacheIdempotentResponse stores the successful response under the key the
// idempotency middleware reserved, then releases the in-flight lock.
func (h *Handler) cacheIdempotentResponse(c *gin.Context, resp MarkResponse) {
	if h.rdb == nil {
		return
	}
	cacheKey := c.GetString("idempotency_cache_key")
	if cacheKey == "" {
		return
	}

	if payload, err := json.Marshal(resp); err == nil {
		h.rdb.Set(c.Request.Context(), cacheKey, payload, 24*time.Hour)
	}
	h.releaseIdempotencyLock(c)
}

func (h *Handler) releaseIdempotencyLock(c *gin.Context) {
	if h.rdb == nil {
		return
	}
	if lockKey := c.GetString("idempotency_lock_key"); lockKey != "" {
		h.rdb.Del(c.Request.Context(), lockKey)
	}
}

func (h *Handler) Today(c *gin.Context) {
	resp, err := h.service.Today(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Report(c *gin.Context) {
	start, err := time.Parse(dateLayout, c.Query("start_date"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "start_date must be YYYY-MM-DD", nil)
		return
	}
	end, err := time.Parse(dateLayout, c.Query("end_date"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "end_date must be YYYY-MM-DD", nil)
		return
	}
	identityID := c.Query("identity_id")

	resp, err := h.service.Report(c.Request.Context(), start, end, identityID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) UserHistory(c *gin.Context) {
	identityID := c.Param("id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))

	resp, err := h.service.UserHistory(c.Request.Context(), identityID, limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"identity_id": identityID, "records": resp}, nil)
}

func (h *Handler) Statistics(c *gin.Context) {
	resp, err := h.service.Statistics(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}
