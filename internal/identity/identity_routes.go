package identity

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	register := r.Group("/register")
	{
		register.POST("", h.Enroll)
		register.GET("/users", h.List)
		register.PUT("/user/:id", h.Update)
		register.DELETE("/user/:id", h.Delete)
	}
}
