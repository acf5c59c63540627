package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voicedeck/voicedeck/internal/middleware"
	"github.com/voicedeck/voicedeck/internal/services"
	"github.com/voicedeck/voicedeck/pkg/errors"
	"github.com/voicedeck/voicedeck/pkg/response"
)

// VoiceHandler exposes admin-gated voice catalogue operations.
type VoiceHandler struct {
	service *services.VoiceService
}

// NewVoiceHandler constructs a VoiceHandler around the voice service.
func NewVoiceHandler(service *services.VoiceService) *VoiceHandler {
	return &VoiceHandler{service: service}
}

// GET /api/admin/voices
func (h *VoiceHandler) List(c *gin.Context) {
	voices, err := h.service.List(requestContext(c), refreshRequested(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, voices)
}

type patchVoiceRequest struct {
	DisplayName *string        `json:"displayName" validate:"omitempty,max=128"`
	IsPublic    *bool          `json:"isPublic"`
	Metadata    map[string]any `json:"metadata"`
}

// PATCH /api/admin/voices/:id
func (h *VoiceHandler) Patch(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body patchVoiceRequest
	if !bindAndValidate(c, &body) {
		return
	}

	voice, err := h.service.Patch(requestContext(c), identity.ID, c.Param("id"), services.PatchVoiceInput{
		DisplayName: body.DisplayName,
		IsPublic:    body.IsPublic,
		Metadata:    body.Metadata,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, voice)
}
