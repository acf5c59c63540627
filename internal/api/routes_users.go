package api

import (
	"github.com/gin-gonic/gin"

	"github.com/voicedeck/voicedeck/internal/directory"
	"github.com/voicedeck/voicedeck/internal/handlers"
	"github.com/voicedeck/voicedeck/internal/middleware"
)

func registerUserRoutes(r *gin.Engine, dir *directory.Directory) {
	handler := handlers.NewUserHandler(dir)

	user := r.Group("/api/user")
	user.Use(middleware.RequireAuth())
	{
		user.GET("/me", handler.Me)
	}
}
