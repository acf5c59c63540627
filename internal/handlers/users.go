package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voicedeck/voicedeck/internal/directory"
	"github.com/voicedeck/voicedeck/internal/middleware"
	"github.com/voicedeck/voicedeck/internal/models"
	"github.com/voicedeck/voicedeck/pkg/errors"
	"github.com/voicedeck/voicedeck/pkg/response"
)

// UserHandler exposes the current-identity endpoint and the admin-gated
// user directory operations.
type UserHandler struct {
	dir *directory.Directory
}

// NewUserHandler constructs a UserHandler around the identity directory.
func NewUserHandler(dir *directory.Directory) *UserHandler {
	return &UserHandler{dir: dir}
}

// GET /api/user/me
func (h *UserHandler) Me(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, identity)
}

// GET /api/admin/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.dir.ListAll(requestContext(c), refreshRequested(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users)
}

type patchUserRequest struct {
	PermissionGranted *bool `json:"permissionGranted"`
	IsAdmin           *bool `json:"isAdmin"`
}

// PATCH /api/admin/users/:id
//
// The body must carry exactly one of permissionGranted or isAdmin; unknown
// fields are rejected so a typoed flag name cannot silently no-op.
func (h *UserHandler) PatchUser(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body patchUserRequest
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		response.Error(c, errors.NewBadRequest("invalid JSON payload"))
		return
	}
	if (body.PermissionGranted == nil) == (body.IsAdmin == nil) {
		response.Error(c, errors.NewBadRequest("exactly one of permissionGranted or isAdmin is required"))
		return
	}

	var (
		user *models.User
		err  error
	)
	if body.IsAdmin != nil {
		user, err = h.dir.SetAdmin(requestContext(c), identity.ID, c.Param("id"), *body.IsAdmin)
	} else {
		user, err = h.dir.SetPermission(requestContext(c), identity.ID, c.Param("id"), *body.PermissionGranted)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user)
}
