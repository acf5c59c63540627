package api

import (
	"github.com/gin-gonic/gin"

	"github.com/voicedeck/voicedeck/internal/handlers"
	"github.com/voicedeck/voicedeck/internal/middleware"
	"github.com/voicedeck/voicedeck/internal/services"
)

func registerKeyRoutes(r *gin.Engine, svc *services.APIKeyService) {
	handler := handlers.NewKeyHandler(svc)

	keys := r.Group("/api/keys")
	keys.Use(middleware.RequireAuth())
	{
		keys.GET("", handler.List)
		keys.POST("", handler.Create)
		keys.PATCH("/:id", handler.Patch)
		keys.DELETE("/:id", handler.Delete)
	}
}
