package api

import (
	"github.com/gin-gonic/gin"

	"github.com/voicedeck/voicedeck/internal/directory"
	"github.com/voicedeck/voicedeck/internal/handlers"
	"github.com/voicedeck/voicedeck/internal/middleware"
	"github.com/voicedeck/voicedeck/internal/services"
)

func registerAdminRoutes(r *gin.Engine, dir *directory.Directory, voices *services.VoiceService, audit *services.AuditService) {
	userHandler := handlers.NewUserHandler(dir)
	voiceHandler := handlers.NewVoiceHandler(voices)
	auditHandler := handlers.NewAuditHandler(audit)

	admin := r.Group("/api/admin")
	admin.Use(middleware.RequireAdmin())
	{
		admin.GET("/users", userHandler.ListUsers)
		admin.PATCH("/users/:id", userHandler.PatchUser)

		admin.GET("/voices", voiceHandler.List)
		admin.PATCH("/voices/:id", voiceHandler.Patch)

		admin.GET("/audit", auditHandler.List)
	}
}
