package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OIDCConfig configures the OIDC-backed identity provider.
type OIDCConfig struct {
	Issuer     string
	ClientID   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// OIDCProvider resolves bearer tokens through a standards-compliant OIDC
// issuer: JWT access tokens are verified against the issuer's JWKS, opaque
// tokens fall back to the UserInfo endpoint.
type OIDCProvider struct {
	issuer   *oidc.Provider
	verifier *oidc.IDTokenVerifier
	timeout  time.Duration
}

// NewOIDCProvider performs issuer discovery and constructs the provider.
func NewOIDCProvider(ctx context.Context, cfg OIDCConfig) (*OIDCProvider, error) {
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, errors.New("auth: oidc issuer is required")
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("auth: oidc client id is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	if cfg.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, cfg.HTTPClient)
	}

	discoverCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	issuer, err := oidc.NewProvider(discoverCtx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("auth: oidc discovery failed: %w", err)
	}

	return &OIDCProvider{
		issuer:   issuer,
		verifier: issuer.Verifier(&oidc.Config{ClientID: cfg.ClientID, SkipClientIDCheck: cfg.ClientID == ""}),
		timeout:  timeout,
	}, nil
}

// EstablishSession validates a session cookie pair through the issuer.
func (p *OIDCProvider) EstablishSession(ctx context.Context, accessToken, refreshToken string) (*Subject, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, ErrInvalidCredentials
	}
	return p.ResolveToken(ctx, accessToken)
}

// ResolveToken validates a bearer token, preferring local JWKS verification
// and falling back to the UserInfo endpoint for opaque tokens.
func (p *OIDCProvider) ResolveToken(ctx context.Context, token string) (*Subject, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidCredentials
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if idToken, err := p.verifier.Verify(ctx, token); err == nil {
		return subjectFromClaims(idToken)
	}

	info, err := p.issuer.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	var claims struct {
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	_ = info.Claims(&claims)

	if info.Subject == "" {
		return nil, ErrInvalidCredentials
	}

	return &Subject{
		ID:        info.Subject,
		Email:     info.Email,
		FullName:  claims.Name,
		AvatarURL: claims.Picture,
	}, nil
}

func subjectFromClaims(idToken *oidc.IDToken) (*Subject, error) {
	var claims struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, ErrInvalidCredentials
	}
	if idToken.Subject == "" {
		return nil, ErrInvalidCredentials
	}

	return &Subject{
		ID:        idToken.Subject,
		Email:     claims.Email,
		FullName:  claims.Name,
		AvatarURL: claims.Picture,
	}, nil
}
