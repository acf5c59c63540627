package auth

import (
	"context"
	"errors"
)

// Session cookie names used by the hosted identity provider.
const (
	AccessTokenCookie  = "sb-access-token"
	RefreshTokenCookie = "sb-refresh-token"
)

// ErrInvalidCredentials is returned when the provider rejects the supplied
// tokens. Callers treat it as "anonymous", never as a hard failure.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Subject is the provider's view of an authenticated caller. Profile fields
// are advisory display values; authorization always comes from the directory.
type Subject struct {
	ID        string
	Email     string
	FullName  string
	AvatarURL string
}

// IdentityProvider validates caller credentials against the external identity
// service. Implementations must be safe for concurrent use. Token rotation
// and cookie issuance are the provider/browser contract, not ours.
type IdentityProvider interface {
	// EstablishSession validates a session cookie pair and returns the
	// authenticated subject.
	EstablishSession(ctx context.Context, accessToken, refreshToken string) (*Subject, error)
	// ResolveToken validates a bare bearer token and returns the subject.
	ResolveToken(ctx context.Context, token string) (*Subject, error)
}
