package directory

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/voicedeck/voicedeck/internal/cache"
	"github.com/voicedeck/voicedeck/internal/models"
	apperrors "github.com/voicedeck/voicedeck/pkg/errors"
	"github.com/voicedeck/voicedeck/pkg/metrics"
)

// Cache keys. Per-user entries and the admin snapshot are kept under one
// namespace so the whole directory can be dropped with a single pattern.
const (
	userKeyPrefix = "directory:user:"
	allUsersKey   = "directory:users:all"
)

// AuthorizationRecord is the per-request identity attached by the credential
// resolver. Flags come from the directory row, never from provider claims.
type AuthorizationRecord struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	FullName          string `json:"fullName"`
	AvatarURL         string `json:"avatarUrl"`
	IsAdmin           bool   `json:"isAdmin"`
	PermissionGranted bool   `json:"permissionGranted"`
}

// AuditRecorder receives admin mutation events. Satisfied by
// services.AuditService; nil disables auditing.
type AuditRecorder interface {
	Record(ctx context.Context, actorID *string, action, resource, result string, metadata map[string]any)
}

// Config carries the directory's explicit policy knobs.
type Config struct {
	// InvalidateOnUpdate controls whether admin flag mutations also evict the
	// per-user cache entry consulted by the credential resolver. When false,
	// a demoted or promoted user keeps their previous privileges until the
	// entry is otherwise evicted.
	InvalidateOnUpdate bool
}

// Directory is the cache-aside wrapper over the authoritative users table.
// Per-user entries and the all-users snapshot use infinite TTLs: staleness is
// bounded by mutations routed through this type, not by wall-clock expiry.
type Directory struct {
	db    *gorm.DB
	store cache.Store
	locks *cache.KeyedMutex
	audit AuditRecorder
	cfg   Config
}

// New constructs a Directory.
func New(db *gorm.DB, store cache.Store, audit AuditRecorder, cfg Config) (*Directory, error) {
	if db == nil {
		return nil, errors.New("directory: db is required")
	}
	if store == nil {
		return nil, errors.New("directory: cache store is required")
	}

	return &Directory{
		db:    db,
		store: store,
		locks: cache.NewKeyedMutex(),
		audit: audit,
		cfg:   cfg,
	}, nil
}

// UserCacheKey returns the cache key holding a user's AuthorizationRecord.
func UserCacheKey(userID string) string {
	return userKeyPrefix + userID
}

// Resolve returns the AuthorizationRecord for userID, reading the store at
// most once on a cache miss. Store failures surface as ErrDirectoryUnavailable
// and cache nothing; absent rows return ErrNotFound and cache nothing, so a
// just-created row is visible on the next call.
func (d *Directory) Resolve(ctx context.Context, userID string) (*AuthorizationRecord, error) {
	key := UserCacheKey(userID)

	if cached, ok := d.store.Get(key); ok {
		if record, valid := cached.(*AuthorizationRecord); valid {
			metrics.DirectoryReads.WithLabelValues("hit").Inc()
			return record, nil
		}
		// Foreign payload under our key; drop it and fall through to the store.
		d.store.Delete(key)
	}

	var user models.User
	err := d.db.WithContext(ctx).Take(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.DirectoryReads.WithLabelValues("miss").Inc()
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		metrics.DirectoryReads.WithLabelValues("error").Inc()
		return nil, apperrors.ErrDirectoryUnavailable.WithInternal(err)
	}

	record := recordFromUser(&user)
	d.store.Set(key, record, cache.NoExpiration)
	metrics.DirectoryReads.WithLabelValues("miss").Inc()
	return record, nil
}

// ListAll returns every directory row, serving the admin snapshot from cache
// unless forceRefresh evicts it first.
func (d *Directory) ListAll(ctx context.Context, forceRefresh bool) ([]models.User, error) {
	unlock := d.locks.Lock(allUsersKey)
	defer unlock()

	if forceRefresh {
		d.store.Delete(allUsersKey)
	} else if cached, ok := d.store.Get(allUsersKey); ok {
		if users, valid := cached.([]models.User); valid {
			return users, nil
		}
	}

	var users []models.User
	if err := d.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, apperrors.ErrDirectoryUnavailable.WithInternal(err)
	}

	d.store.Set(allUsersKey, users, cache.NoExpiration)
	return users, nil
}

// SetAdmin flips a user's admin flag.
func (d *Directory) SetAdmin(ctx context.Context, actorID, userID string, isAdmin bool) (*models.User, error) {
	return d.updateFlag(ctx, actorID, userID, "is_admin", isAdmin, "user.set_admin")
}

// SetPermission flips a user's permission-granted flag.
func (d *Directory) SetPermission(ctx context.Context, actorID, userID string, granted bool) (*models.User, error) {
	return d.updateFlag(ctx, actorID, userID, "permission_granted", granted, "user.set_permission")
}

func (d *Directory) updateFlag(ctx context.Context, actorID, userID, column string, value bool, action string) (*models.User, error) {
	unlock := d.locks.Lock(allUsersKey)
	defer unlock()

	result := d.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update(column, value)
	if result.Error != nil {
		d.recordAudit(ctx, actorID, action, userID, "error", map[string]any{column: value})
		return nil, fmt.Errorf("directory: update %s: %w", column, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ErrNotFound
	}

	// Cache mutation strictly follows the confirmed store write. The admin
	// snapshot always refreshes on the next listing; the per-user entry only
	// does so when the policy flag says to propagate.
	d.store.Delete(allUsersKey)
	if d.cfg.InvalidateOnUpdate {
		d.store.Delete(UserCacheKey(userID))
	}

	d.recordAudit(ctx, actorID, action, userID, "success", map[string]any{column: value})

	var user models.User
	if err := d.db.WithContext(ctx).Take(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("directory: reload user: %w", err)
	}
	return &user, nil
}

func (d *Directory) recordAudit(ctx context.Context, actorID, action, resource, result string, metadata map[string]any) {
	if d.audit == nil {
		return
	}

	var actor *string
	if actorID != "" {
		actor = &actorID
	}
	d.audit.Record(ctx, actor, action, resource, result, metadata)
}

func recordFromUser(user *models.User) *AuthorizationRecord {
	return &AuthorizationRecord{
		ID:                user.ID,
		Email:             user.Email,
		FullName:          user.FullName,
		AvatarURL:         user.AvatarURL,
		IsAdmin:           user.IsAdmin,
		PermissionGranted: user.PermissionGranted,
	}
}
