package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/voicedeck/voicedeck/internal/models"
	"github.com/voicedeck/voicedeck/pkg/logger"
)

// AuditService persists admin mutation events. Recording is best-effort: a
// failed audit write is logged but never fails the mutation it describes.
type AuditService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewAuditService constructs an AuditService instance.
func NewAuditService(db *gorm.DB) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &AuditService{
		db:  db,
		log: logger.WithModule("audit"),
	}, nil
}

// Record appends an audit entry.
func (s *AuditService) Record(ctx context.Context, actorID *string, action, resource, result string, metadata map[string]any) {
	ctx = ensureContext(ctx)

	entry := models.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Resource: resource,
		Result:   result,
	}

	if len(metadata) > 0 {
		if payload, err := json.Marshal(metadata); err == nil {
			entry.Metadata = datatypes.JSON(payload)
		}
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		s.log.Warn("audit write failed",
			zap.String("action", action),
			zap.String("resource", resource),
			zap.Error(err),
		)
	}
}

// CleanupOlderThan removes audit entries older than the retention window.
func (s *AuditService) CleanupOlderThan(ctx context.Context, days int) (int64, error) {
	ctx = ensureContext(ctx)

	if days <= 0 {
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// List returns the most recent audit entries, newest first.
func (s *AuditService) List(ctx context.Context, limit int) ([]models.AuditLog, error) {
	ctx = ensureContext(ctx)

	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var entries []models.AuditLog
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
