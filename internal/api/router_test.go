package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/voicedeck/voicedeck/internal/app"
	iauth "github.com/voicedeck/voicedeck/internal/auth"
	"github.com/voicedeck/voicedeck/internal/cache"
	"github.com/voicedeck/voicedeck/internal/database/testutil"
	"github.com/voicedeck/voicedeck/internal/directory"
	"github.com/voicedeck/voicedeck/internal/models"
	"github.com/voicedeck/voicedeck/pkg/crypto"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type tokenProvider struct {
	subjects map[string]*iauth.Subject
}

func (p *tokenProvider) EstablishSession(_ context.Context, accessToken, refreshToken string) (*iauth.Subject, error) {
	if refreshToken == "" {
		return nil, iauth.ErrInvalidCredentials
	}
	return p.ResolveToken(context.Background(), accessToken)
}

func (p *tokenProvider) ResolveToken(_ context.Context, token string) (*iauth.Subject, error) {
	subject, ok := p.subjects[token]
	if !ok {
		return nil, iauth.ErrInvalidCredentials
	}
	return subject, nil
}

type routerFixture struct {
	engine   *gin.Engine
	db       *gorm.DB
	provider *tokenProvider
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate(), testutil.WithSeedData())
	store := cache.NewMemoryStore(cache.NoExpiration, 0)
	t.Cleanup(store.Close)

	dir, err := directory.New(db, store, nil, directory.Config{InvalidateOnUpdate: true})
	require.NoError(t, err)

	provider := &tokenProvider{subjects: map[string]*iauth.Subject{}}

	cfg := &app.Config{}
	cfg.Server.RateLimit = app.RateLimitConfig{Enabled: true, MaxRequests: 1000, Window: time.Minute}
	cfg.Auth.OnDirectoryError = "anonymous"
	cfg.Monitoring.Health.Enabled = true
	cfg.Monitoring.Prometheus.Enabled = true
	cfg.Monitoring.Prometheus.Endpoint = "/metrics"

	engine, err := NewRouter(db, store, provider, dir, cfg)
	require.NoError(t, err)

	return &routerFixture{engine: engine, db: db, provider: provider}
}

func (f *routerFixture) addUser(t *testing.T, token, email string, admin bool) string {
	t.Helper()

	user := models.User{Email: email, IsAdmin: admin, PermissionGranted: true}
	require.NoError(t, f.db.Create(&user).Error)
	f.provider.subjects[token] = &iauth.Subject{ID: user.ID, Email: email}
	return user.ID
}

func (f *routerFixture) do(method, path, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func TestPageGuardRedirects(t *testing.T) {
	f := newRouterFixture(t)
	f.addUser(t, "tok-user", "user@example.com", false)

	rec := f.do(http.MethodGet, "/dashboard", "", "")
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))

	rec = f.do(http.MethodGet, "/login", "tok-user", "")
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/dashboard", rec.Header().Get("Location"))

	rec = f.do(http.MethodGet, "/", "tok-user", "")
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestAPIRequiresAuthentication(t *testing.T) {
	f := newRouterFixture(t)

	for _, path := range []string{"/api/keys", "/api/user/me"} {
		rec := f.do(http.MethodGet, path, "", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
		require.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
	}
}

func TestAdminRoutesRejectNonAdmins(t *testing.T) {
	f := newRouterFixture(t)
	f.addUser(t, "tok-user", "user@example.com", false)

	rec := f.do(http.MethodGet, "/api/admin/users", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodGet, "/api/admin/users", "tok-user", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.JSONEq(t, `{"error":"Forbidden"}`, rec.Body.String())
}

func TestKeyLifecycleOverHTTP(t *testing.T) {
	f := newRouterFixture(t)
	f.addUser(t, "tok-owner", "owner@example.com", false)

	rec := f.do(http.MethodPost, "/api/keys", "tok-owner", `{"label":"Production"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID         string `json:"id"`
		Label      string `json:"label"`
		Key        string `json:"key"`
		KeyPreview string `json:"keyPreview"`
		IsActive   bool   `json:"isActive"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	require.True(t, strings.HasPrefix(created.Key, crypto.KeySecretPrefix))
	require.Equal(t, crypto.Preview(created.Key), created.KeyPreview)
	require.True(t, created.IsActive)

	rec = f.do(http.MethodGet, "/api/keys", "tok-owner", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	require.Equal(t, created.ID, listed[0]["id"])
	require.NotContains(t, listed[0], "key", "raw secret must only appear at creation")

	rec = f.do(http.MethodPatch, "/api/keys/"+created.ID, "tok-owner", `{"isActive":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"isActive":false`)

	rec = f.do(http.MethodPatch, "/api/keys/"+created.ID, "tok-owner", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodDelete, "/api/keys/"+created.ID, "tok-owner", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = f.do(http.MethodGet, "/api/keys", "tok-owner", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())
}

func TestKeyCreationRejectsBlankLabels(t *testing.T) {
	f := newRouterFixture(t)
	f.addUser(t, "tok-owner", "owner@example.com", false)

	for _, body := range []string{`{}`, `{"label":""}`, `{"label":"   "}`} {
		rec := f.do(http.MethodPost, "/api/keys", "tok-owner", body)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestKeysAreTenantScoped(t *testing.T) {
	f := newRouterFixture(t)
	f.addUser(t, "tok-a", "a@example.com", false)
	f.addUser(t, "tok-b", "b@example.com", false)

	rec := f.do(http.MethodPost, "/api/keys", "tok-a", `{"label":"Owned by A"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = f.do(http.MethodDelete, "/api/keys/"+created.ID, "tok-b", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"Not found"}`, rec.Body.String())

	rec = f.do(http.MethodPatch, "/api/keys/"+created.ID, "tok-b", `{"isActive":false}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserMeReturnsResolvedIdentity(t *testing.T) {
	f := newRouterFixture(t)
	id := f.addUser(t, "tok-user", "user@example.com", false)

	rec := f.do(http.MethodGet, "/api/user/me", "tok-user", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"id":"`+id+`"`)
	require.Contains(t, rec.Body.String(), `"email":"user@example.com"`)
}

func TestAdminUserPatchPropagatesToIdentity(t *testing.T) {
	f := newRouterFixture(t)
	f.addUser(t, "tok-admin", "admin@example.com", true)
	targetID := f.addUser(t, "tok-target", "target@example.com", false)

	// Warm the target's identity cache entry.
	rec := f.do(http.MethodGet, "/api/user/me", "tok-target", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"permissionGranted":true`)

	rec = f.do(http.MethodPatch, "/api/admin/users/"+targetID, "tok-admin", `{"permissionGranted":false}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/user/me", "tok-target", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"permissionGranted":false`)
}

func TestAdminUserPatchValidatesBody(t *testing.T) {
	f := newRouterFixture(t)
	f.addUser(t, "tok-admin", "admin@example.com", true)
	targetID := f.addUser(t, "tok-target", "target@example.com", false)

	rec := f.do(http.MethodPatch, "/api/admin/users/"+targetID, "tok-admin", `{"displayName":"nope"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPatch, "/api/admin/users/"+targetID, "tok-admin", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPatch, "/api/admin/users/"+targetID, "tok-admin", `{"isAdmin":true,"permissionGranted":true}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminVoiceCatalogue(t *testing.T) {
	f := newRouterFixture(t)
	f.addUser(t, "tok-admin", "admin@example.com", true)

	rec := f.do(http.MethodGet, "/api/admin/voices", "tok-admin", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var voices []models.Voice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &voices))
	require.NotEmpty(t, voices)

	rec = f.do(http.MethodPatch, "/api/admin/voices/"+voices[0].ID, "tok-admin", `{"isPublic":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"isPublic":true`)
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = f.do(http.MethodGet, "/api/nope", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"Not found"}`, rec.Body.String())
}
