package recognition

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler, limiters ...gin.HandlerFunc) {
	recognize := r.Group("/recognize")
	recognize.Use(limiters...)
	{
		recognize.POST("", h.Recognize)
		recognize.POST("/bulk", h.RecognizeBulk)
		recognize.GET("/history", h.History)
	}
}
