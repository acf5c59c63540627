package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/voicedeck/voicedeck/internal/cache"
	"github.com/voicedeck/voicedeck/internal/database/testutil"
	"github.com/voicedeck/voicedeck/internal/models"
	"github.com/voicedeck/voicedeck/internal/services"
)

func newCleanerFixture(t *testing.T) (*Cleaner, *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := cache.NewMemoryStore(cache.NoExpiration, 0)
	t.Cleanup(store.Close)

	keys, err := services.NewAPIKeyService(db, store)
	require.NoError(t, err)
	audit, err := services.NewAuditService(db)
	require.NoError(t, err)

	cleaner := NewCleaner(keys, audit, store, WithAuditRetentionDays(30))
	return cleaner, db
}

func TestRunOnceDeactivatesExpiredKeys(t *testing.T) {
	cleaner, db := newCleanerFixture(t)

	owner := models.User{Email: "owner@example.com"}
	require.NoError(t, db.Create(&owner).Error)

	expired := time.Now().Add(-time.Hour)
	live := time.Now().Add(time.Hour)
	keys := []models.APIKey{
		{Label: "stale", KeyHash: "hash-stale", UserID: owner.ID, IsActive: true, ExpiresAt: &expired},
		{Label: "current", KeyHash: "hash-current", UserID: owner.ID, IsActive: true, ExpiresAt: &live},
		{Label: "forever", KeyHash: "hash-forever", UserID: owner.ID, IsActive: true},
	}
	for i := range keys {
		require.NoError(t, db.Create(&keys[i]).Error)
	}

	require.NoError(t, cleaner.RunOnce(context.Background()))

	var rows []models.APIKey
	require.NoError(t, db.Order("label").Find(&rows).Error)
	require.Len(t, rows, 3)
	for _, row := range rows {
		if row.Label == "stale" {
			require.False(t, row.IsActive)
		} else {
			require.True(t, row.IsActive)
		}
	}
}

func TestRunOncePrunesOldAuditEntries(t *testing.T) {
	cleaner, db := newCleanerFixture(t)

	old := models.AuditLog{Action: "user.update", Resource: "user/1", Result: "success"}
	recent := models.AuditLog{Action: "user.update", Resource: "user/2", Result: "success"}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Create(&recent).Error)
	require.NoError(t, db.Model(&models.AuditLog{}).
		Where("id = ?", old.ID).
		Update("created_at", time.Now().AddDate(0, 0, -60)).Error)

	require.NoError(t, cleaner.RunOnce(context.Background()))

	var remaining []models.AuditLog
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, recent.ID, remaining[0].ID)
}

func TestStartRegistersJobs(t *testing.T) {
	cleaner, _ := newCleanerFixture(t)

	require.NoError(t, cleaner.Start())
	<-cleaner.Stop().Done()
}
