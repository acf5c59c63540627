package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/voicedeck/voicedeck/internal/cache"
	"github.com/voicedeck/voicedeck/internal/models"
	"github.com/voicedeck/voicedeck/pkg/crypto"
	apperrors "github.com/voicedeck/voicedeck/pkg/errors"
)

const keyCacheKeyPrefix = "apikeys:owner:"

// OwnerCacheKey returns the cache key holding an owner's key list.
func OwnerCacheKey(ownerID string) string {
	return keyCacheKeyPrefix + ownerID
}

// PatchKeyInput enumerates the closed set of patchable key fields. Unknown
// fields are rejected at the handler boundary; a patch carrying none of
// these is invalid.
type PatchKeyInput struct {
	IsActive  *bool
	Credits   *float64
	RateLimit *int
}

func (p PatchKeyInput) empty() bool {
	return p.IsActive == nil && p.Credits == nil && p.RateLimit == nil
}

// APIKeyService owns the API key lifecycle. Every operation is scoped by the
// owning user id; the per-owner cache entry holds the owner's full key list
// under an infinite TTL and is patched in place after each confirmed store
// write. A per-owner lock serialises the store-then-cache sequence so
// concurrent mutations cannot lose updates.
type APIKeyService struct {
	db    *gorm.DB
	store cache.Store
	locks *cache.KeyedMutex
	now   func() time.Time
}

// APIKeyOption customises an APIKeyService.
type APIKeyOption func(*APIKeyService)

// WithNow overrides the clock, primarily for tests.
func WithNow(now func() time.Time) APIKeyOption {
	return func(s *APIKeyService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewAPIKeyService constructs an APIKeyService instance.
func NewAPIKeyService(db *gorm.DB, store cache.Store, opts ...APIKeyOption) (*APIKeyService, error) {
	if db == nil {
		return nil, errors.New("apikey service: db is required")
	}
	if store == nil {
		return nil, errors.New("apikey service: cache store is required")
	}

	svc := &APIKeyService{
		db:    db,
		store: store,
		locks: cache.NewKeyedMutex(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create mints a new API key for ownerID. The returned secret exists only in
// this response; afterwards only the hash remains. The row carries the
// secret-derived preview so a warm cache shows the same suffix the caller
// just saw.
func (s *APIKeyService) Create(ctx context.Context, ownerID, label string) (*models.APIKey, string, error) {
	ctx = ensureContext(ctx)

	label = strings.TrimSpace(label)
	if label == "" {
		return nil, "", apperrors.NewBadRequest("label is required")
	}

	generated, err := crypto.GenerateKeySecret()
	if err != nil {
		return nil, "", fmt.Errorf("apikey service: %w", err)
	}

	key := &models.APIKey{
		Label:      label,
		KeyHash:    generated.Hash,
		UserID:     ownerID,
		IsActive:   true,
		RateLimit:  models.DefaultKeyRateLimit,
		Credits:    0,
		KeyPreview: generated.Preview,
	}

	cacheKey := OwnerCacheKey(ownerID)
	unlock := s.locks.Lock(cacheKey)
	defer unlock()

	if err := s.db.WithContext(ctx).Create(key).Error; err != nil {
		return nil, "", fmt.Errorf("apikey service: create key: %w", err)
	}

	// Warm cache: prepend the new row. Cold cache stays cold; the next List
	// repopulates from the store.
	if cached, ok := s.cachedList(cacheKey); ok {
		updated := make([]models.APIKey, 0, len(cached)+1)
		updated = append(updated, *key)
		updated = append(updated, cached...)
		s.store.Set(cacheKey, updated, cache.NoExpiration)
	}

	return key, generated.Secret, nil
}

// List returns the owner's keys newest-first, serving from cache when warm.
// On a cold cache the preview is derived from the stored hash's suffix: the
// raw secret is gone, so listings show a different suffix than the one-time
// creation response did.
func (s *APIKeyService) List(ctx context.Context, ownerID string, forceRefresh bool) ([]models.APIKey, error) {
	ctx = ensureContext(ctx)

	cacheKey := OwnerCacheKey(ownerID)
	unlock := s.locks.Lock(cacheKey)
	defer unlock()

	if forceRefresh {
		s.store.Delete(cacheKey)
	} else if cached, ok := s.cachedList(cacheKey); ok {
		return cached, nil
	}

	var keys []models.APIKey
	err := s.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Find(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("apikey service: list keys: %w", err)
	}

	if keys == nil {
		keys = []models.APIKey{}
	}
	for i := range keys {
		keys[i].KeyPreview = crypto.Preview(keys[i].KeyHash)
	}

	s.store.Set(cacheKey, keys, cache.NoExpiration)
	return keys, nil
}

// Patch updates the recognised mutable fields of a key owned by ownerID.
func (s *APIKeyService) Patch(ctx context.Context, ownerID, keyID string, input PatchKeyInput) (*models.APIKey, error) {
	ctx = ensureContext(ctx)

	if input.empty() {
		return nil, apperrors.NewBadRequest("no valid fields to update")
	}

	updates := map[string]any{}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if input.Credits != nil {
		updates["credits"] = *input.Credits
	}
	if input.RateLimit != nil {
		updates["rate_limit"] = *input.RateLimit
	}

	cacheKey := OwnerCacheKey(ownerID)
	unlock := s.locks.Lock(cacheKey)
	defer unlock()

	result := s.db.WithContext(ctx).Model(&models.APIKey{}).
		Where("id = ? AND user_id = ?", keyID, ownerID).
		Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("apikey service: patch key: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ErrNotFound
	}

	var key models.APIKey
	if err := s.db.WithContext(ctx).Take(&key, "id = ? AND user_id = ?", keyID, ownerID).Error; err != nil {
		return nil, fmt.Errorf("apikey service: reload key: %w", err)
	}

	// Patch the cached list in place, replacing only the matching element
	// and keeping its existing preview. Cold cache: no-op.
	if cached, ok := s.cachedList(cacheKey); ok {
		updatedList := make([]models.APIKey, len(cached))
		copy(updatedList, cached)
		for i := range updatedList {
			if updatedList[i].ID == key.ID {
				preview := updatedList[i].KeyPreview
				updatedList[i] = key
				updatedList[i].KeyPreview = preview
				key.KeyPreview = preview
				break
			}
		}
		s.store.Set(cacheKey, updatedList, cache.NoExpiration)
	} else {
		key.KeyPreview = crypto.Preview(key.KeyHash)
	}

	return &key, nil
}

// Delete removes a key owned by ownerID. Deletion is a hard delete.
func (s *APIKeyService) Delete(ctx context.Context, ownerID, keyID string) error {
	ctx = ensureContext(ctx)

	cacheKey := OwnerCacheKey(ownerID)
	unlock := s.locks.Lock(cacheKey)
	defer unlock()

	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", keyID, ownerID).
		Delete(&models.APIKey{})
	if result.Error != nil {
		return fmt.Errorf("apikey service: delete key: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}

	if cached, ok := s.cachedList(cacheKey); ok {
		updated := make([]models.APIKey, 0, len(cached))
		for _, item := range cached {
			if item.ID != keyID {
				updated = append(updated, item)
			}
		}
		s.store.Set(cacheKey, updated, cache.NoExpiration)
	}

	return nil
}

// DeactivateExpired flips is_active off for every key whose expiry has
// passed, evicting affected owners' cache entries. Used by the maintenance
// scheduler.
func (s *APIKeyService) DeactivateExpired(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	now := s.now()

	var expired []models.APIKey
	err := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ? AND is_active = ?", now, true).
		Find(&expired).Error
	if err != nil {
		return 0, fmt.Errorf("apikey service: find expired keys: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	owners := make(map[string]struct{}, len(expired))
	ids := make([]string, 0, len(expired))
	for _, key := range expired {
		owners[key.UserID] = struct{}{}
		ids = append(ids, key.ID)
	}

	result := s.db.WithContext(ctx).Model(&models.APIKey{}).
		Where("id IN ?", ids).
		Update("is_active", false)
	if result.Error != nil {
		return 0, fmt.Errorf("apikey service: deactivate expired keys: %w", result.Error)
	}

	for ownerID := range owners {
		cacheKey := OwnerCacheKey(ownerID)
		unlock := s.locks.Lock(cacheKey)
		s.store.Delete(cacheKey)
		unlock()
	}

	return result.RowsAffected, nil
}

func (s *APIKeyService) cachedList(cacheKey string) ([]models.APIKey, bool) {
	cached, ok := s.store.Get(cacheKey)
	if !ok {
		return nil, false
	}
	list, valid := cached.([]models.APIKey)
	if !valid {
		s.store.Delete(cacheKey)
		return nil, false
	}
	return list, true
}
