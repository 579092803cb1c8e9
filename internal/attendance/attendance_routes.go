package attendance

import (
	"github.com/pavankumar-vh/VisionID/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler, rdb *redis.Client) {
	attendances := r.Group("/attendance")
	{
		attendances.POST("/mark", middleware.Idempotency(rdb), h.Mark)
		attendances.GET("/today", h.Today)
		attendances.GET("/report", h.Report)
		attendances.GET("/user/:id", h.UserHistory)
		attendances.GET("/statistics", h.Statistics)
	}
}
