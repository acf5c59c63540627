package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/voicedeck/voicedeck/internal/cache"
	"github.com/voicedeck/voicedeck/internal/models"
	apperrors "github.com/voicedeck/voicedeck/pkg/errors"
)

const voicesCacheKey = "voices:all"

// PatchVoiceInput enumerates the patchable voice asset fields.
type PatchVoiceInput struct {
	DisplayName *string
	IsPublic    *bool
	Metadata    map[string]any
}

func (p PatchVoiceInput) empty() bool {
	return p.DisplayName == nil && p.IsPublic == nil && p.Metadata == nil
}

// VoiceService manages the admin-curated voice asset catalogue with the same
// forced-refresh cache pattern as the user directory snapshot.
type VoiceService struct {
	db    *gorm.DB
	store cache.Store
	locks *cache.KeyedMutex
	audit *AuditService
}

// NewVoiceService constructs a VoiceService instance.
func NewVoiceService(db *gorm.DB, store cache.Store, audit *AuditService) (*VoiceService, error) {
	if db == nil {
		return nil, errors.New("voice service: db is required")
	}
	if store == nil {
		return nil, errors.New("voice service: cache store is required")
	}

	return &VoiceService{
		db:    db,
		store: store,
		locks: cache.NewKeyedMutex(),
		audit: audit,
	}, nil
}

// List returns the full voice catalogue, cache-aside under an infinite TTL.
func (s *VoiceService) List(ctx context.Context, forceRefresh bool) ([]models.Voice, error) {
	ctx = ensureContext(ctx)

	unlock := s.locks.Lock(voicesCacheKey)
	defer unlock()

	if forceRefresh {
		s.store.Delete(voicesCacheKey)
	} else if cached, ok := s.store.Get(voicesCacheKey); ok {
		if voices, valid := cached.([]models.Voice); valid {
			return voices, nil
		}
	}

	var voices []models.Voice
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&voices).Error; err != nil {
		return nil, fmt.Errorf("voice service: list voices: %w", err)
	}

	s.store.Set(voicesCacheKey, voices, cache.NoExpiration)
	return voices, nil
}

// Patch updates a voice asset and invalidates the catalogue snapshot.
func (s *VoiceService) Patch(ctx context.Context, actorID, voiceID string, input PatchVoiceInput) (*models.Voice, error) {
	ctx = ensureContext(ctx)

	if input.empty() {
		return nil, apperrors.NewBadRequest("no valid fields to update")
	}

	updates := map[string]any{}
	if input.DisplayName != nil {
		updates["display_name"] = *input.DisplayName
	}
	if input.IsPublic != nil {
		updates["is_public"] = *input.IsPublic
	}
	if input.Metadata != nil {
		payload, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, apperrors.NewBadRequest("metadata must be a JSON object")
		}
		updates["metadata"] = payload
	}

	unlock := s.locks.Lock(voicesCacheKey)
	defer unlock()

	result := s.db.WithContext(ctx).Model(&models.Voice{}).
		Where("id = ?", voiceID).
		Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("voice service: patch voice: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ErrNotFound
	}

	s.store.Delete(voicesCacheKey)

	if s.audit != nil {
		actor := actorID
		var actorPtr *string
		if actor != "" {
			actorPtr = &actor
		}
		s.audit.Record(ctx, actorPtr, "voice.patch", voiceID, "success", updates)
	}

	var voice models.Voice
	if err := s.db.WithContext(ctx).Take(&voice, "id = ?", voiceID).Error; err != nil {
		return nil, fmt.Errorf("voice service: reload voice: %w", err)
	}
	return &voice, nil
}
