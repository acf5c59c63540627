package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/voicedeck/voicedeck/internal/services"
	"github.com/voicedeck/voicedeck/pkg/response"
)

// AuditHandler exposes the admin audit trail.
type AuditHandler struct {
	service *services.AuditService
}

// NewAuditHandler constructs an AuditHandler around the audit service.
func NewAuditHandler(service *services.AuditService) *AuditHandler {
	return &AuditHandler{service: service}
}

// GET /api/admin/audit
func (h *AuditHandler) List(c *gin.Context) {
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	entries, err := h.service.List(requestContext(c), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries)
}
