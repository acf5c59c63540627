package middleware

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/voicedeck/voicedeck/pkg/errors"
	"github.com/voicedeck/voicedeck/pkg/response"
)

// RequireAuth rejects requests that carry no resolved identity.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := IdentityFromContext(c); !ok {
			response.AbortError(c, apperrors.ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects anonymous callers with 401 and authenticated
// non-admins with 403. Ownership and ACL checks always run before any
// mutating store call, which is why this sits in front of the handler.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		record, ok := IdentityFromContext(c)
		if !ok {
			response.AbortError(c, apperrors.ErrUnauthorized)
			return
		}
		if !record.IsAdmin {
			response.AbortError(c, apperrors.ErrForbidden)
			return
		}
		c.Next()
	}
}
