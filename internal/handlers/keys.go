package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voicedeck/voicedeck/internal/middleware"
	"github.com/voicedeck/voicedeck/internal/models"
	"github.com/voicedeck/voicedeck/internal/services"
	"github.com/voicedeck/voicedeck/pkg/errors"
	"github.com/voicedeck/voicedeck/pkg/response"
)

// KeyHandler exposes the owner-scoped API key endpoints.
type KeyHandler struct {
	service *services.APIKeyService
}

type createKeyRequest struct {
	Label string `json:"label" validate:"required,max=128"`
}

type patchKeyRequest struct {
	IsActive  *bool    `json:"isActive"`
	Credits   *float64 `json:"credits" validate:"omitempty,gte=0"`
	RateLimit *int     `json:"rateLimit" validate:"omitempty,gte=0"`
}

type createdKeyResponse struct {
	models.APIKey
	// Key is the raw secret, returned exactly once at creation.
	Key string `json:"key"`
}

// NewKeyHandler constructs a KeyHandler around the key service.
func NewKeyHandler(service *services.APIKeyService) *KeyHandler {
	return &KeyHandler{service: service}
}

// GET /api/keys
func (h *KeyHandler) List(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	keys, err := h.service.List(requestContext(c), identity.ID, refreshRequested(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, keys)
}

// POST /api/keys
func (h *KeyHandler) Create(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body createKeyRequest
	if !bindAndValidate(c, &body) {
		return
	}

	row, secret, err := h.service.Create(requestContext(c), identity.ID, body.Label)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusCreated, createdKeyResponse{APIKey: *row, Key: secret})
}

// PATCH /api/keys/:id
func (h *KeyHandler) Patch(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body patchKeyRequest
	if !bindAndValidate(c, &body) {
		return
	}

	row, err := h.service.Patch(requestContext(c), identity.ID, c.Param("id"), services.PatchKeyInput{
		IsActive:  body.IsActive,
		Credits:   body.Credits,
		RateLimit: body.RateLimit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, row)
}

// DELETE /api/keys/:id
func (h *KeyHandler) Delete(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(requestContext(c), identity.ID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"success": true})
}
