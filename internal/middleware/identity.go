package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/voicedeck/voicedeck/internal/auth"
	"github.com/voicedeck/voicedeck/internal/directory"
	apperrors "github.com/voicedeck/voicedeck/pkg/errors"
	"github.com/voicedeck/voicedeck/pkg/logger"
	"github.com/voicedeck/voicedeck/pkg/metrics"
	"github.com/voicedeck/voicedeck/pkg/response"
)

// CtxIdentityKey is the gin context key carrying the resolved identity.
const CtxIdentityKey = "authIdentity"

// Directory error policies for the credential resolver.
const (
	// OnDirectoryErrorAnonymous degrades to an anonymous request when the
	// directory cannot be read (fail-open, the default).
	OnDirectoryErrorAnonymous = "anonymous"
	// OnDirectoryErrorFail rejects the request with a 500 instead.
	OnDirectoryErrorFail = "fail"
)

// IdentityConfig carries the resolver's explicit policy knobs.
type IdentityConfig struct {
	OnDirectoryError string
}

// Identity resolves caller credentials on every request, in strict precedence
// order: session cookie pair first, bearer token second, anonymous otherwise.
// Provider rejections always degrade to anonymous; directory outages follow
// the configured policy. The middleware never aborts except under the "fail"
// policy, so route handlers decide what anonymity means for them.
func Identity(provider auth.IdentityProvider, dir *directory.Directory, cfg IdentityConfig) gin.HandlerFunc {
	log := logger.WithModule("identity")

	return func(c *gin.Context) {
		subject, outcome := resolveSubject(c, provider, log)
		if subject == nil {
			metrics.IdentityResolutions.WithLabelValues("anonymous").Inc()
			c.Next()
			return
		}

		record, err := dir.Resolve(c.Request.Context(), subject.ID)
		switch {
		case err == nil:
			c.Set(CtxIdentityKey, record)
			metrics.IdentityResolutions.WithLabelValues(outcome).Inc()

		case errors.Is(err, apperrors.ErrNotFound):
			// No directory row yet: the provider's profile claims serve as
			// display-only fallback with no privileges. Nothing is cached, so
			// the bootstrap row is picked up on the next request.
			c.Set(CtxIdentityKey, &directory.AuthorizationRecord{
				ID:        subject.ID,
				Email:     subject.Email,
				FullName:  subject.FullName,
				AvatarURL: subject.AvatarURL,
			})
			metrics.IdentityResolutions.WithLabelValues("fallback").Inc()

		default:
			if cfg.OnDirectoryError == OnDirectoryErrorFail {
				log.Error("directory unavailable, rejecting request",
					zap.String("path", c.Request.URL.Path),
					zap.Error(err),
				)
				response.AbortError(c, apperrors.ErrInternalServer)
				return
			}

			log.Warn("directory unavailable, continuing as anonymous",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			metrics.IdentityResolutions.WithLabelValues("fallback").Inc()
		}

		c.Next()
	}
}

// resolveSubject validates credentials with the provider. It returns a nil
// subject for anonymous requests, including every provider rejection.
func resolveSubject(c *gin.Context, provider auth.IdentityProvider, log *zap.Logger) (*auth.Subject, string) {
	accessToken, accessErr := c.Cookie(auth.AccessTokenCookie)
	refreshToken, refreshErr := c.Cookie(auth.RefreshTokenCookie)

	if accessErr == nil && refreshErr == nil && accessToken != "" && refreshToken != "" {
		subject, err := provider.EstablishSession(c.Request.Context(), accessToken, refreshToken)
		if err != nil {
			log.Debug("session cookie rejected", zap.Error(err))
			return nil, ""
		}
		return subject, "session"
	}

	authz := c.GetHeader("Authorization")
	if len(authz) >= 8 && strings.EqualFold(authz[:7], "Bearer ") {
		token := strings.TrimSpace(authz[7:])
		subject, err := provider.ResolveToken(c.Request.Context(), token)
		if err != nil {
			log.Debug("bearer token rejected", zap.Error(err))
			return nil, ""
		}
		return subject, "bearer"
	}

	return nil, ""
}

// IdentityFromContext returns the resolved identity attached by Identity.
func IdentityFromContext(c *gin.Context) (*directory.AuthorizationRecord, bool) {
	value, ok := c.Get(CtxIdentityKey)
	if !ok {
		return nil, false
	}
	record, ok := value.(*directory.AuthorizationRecord)
	return record, ok
}
