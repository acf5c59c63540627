package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/voicedeck/voicedeck/internal/cache"
	"github.com/voicedeck/voicedeck/internal/database/testutil"
	"github.com/voicedeck/voicedeck/internal/models"
	apperrors "github.com/voicedeck/voicedeck/pkg/errors"
)

func newTestDirectory(t *testing.T, cfg Config) (*Directory, *gorm.DB, *cache.MemoryStore) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := cache.NewMemoryStore(cache.NoExpiration, 0)

	dir, err := New(db, store, nil, cfg)
	require.NoError(t, err)
	return dir, db, store
}

func countSelects(t *testing.T, db *gorm.DB) *int {
	t.Helper()

	count := 0
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:count_selects", func(*gorm.DB) {
		count++
	}))
	t.Cleanup(func() {
		_ = db.Callback().Query().Remove("test:count_selects")
	})
	return &count
}

func TestResolveCachesRecord(t *testing.T) {
	dir, db, _ := newTestDirectory(t, Config{})
	ctx := context.Background()

	user := models.User{Email: "alice@example.com", FullName: "Alice Chen", IsAdmin: true}
	require.NoError(t, db.Create(&user).Error)

	reads := countSelects(t, db)

	record, err := dir.Resolve(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, user.ID, record.ID)
	require.True(t, record.IsAdmin)
	require.Equal(t, 1, *reads)

	// Second resolve must be served from cache without touching the store.
	again, err := dir.Resolve(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, record, again)
	require.Equal(t, 1, *reads)
}

func TestResolveDoesNotCacheNegativeResults(t *testing.T) {
	dir, db, store := newTestDirectory(t, Config{})
	ctx := context.Background()

	_, err := dir.Resolve(ctx, "no-such-user")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.Equal(t, 0, store.Stats().Size, "negative results must not be cached")

	// A row created after the failed resolve is visible immediately.
	user := models.User{ID: "no-such-user", Email: "late@example.com"}
	require.NoError(t, db.Create(&user).Error)

	record, err := dir.Resolve(ctx, "no-such-user")
	require.NoError(t, err)
	require.Equal(t, "late@example.com", record.Email)
}

func TestResolveStoreFailure(t *testing.T) {
	dir, db, store := newTestDirectory(t, Config{})
	ctx := context.Background()

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = dir.Resolve(ctx, "any")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperrors.ErrDirectoryUnavailable.Code, appErr.Code)
	require.Equal(t, 0, store.Stats().Size, "failures must not be cached")
}

func TestListAllForceRefresh(t *testing.T) {
	dir, db, _ := newTestDirectory(t, Config{})
	ctx := context.Background()

	require.NoError(t, db.Create(&models.User{Email: "a@example.com"}).Error)

	users, err := dir.ListAll(ctx, false)
	require.NoError(t, err)
	require.Len(t, users, 1)

	// A row created behind the cache is invisible until forced refresh.
	require.NoError(t, db.Create(&models.User{Email: "b@example.com"}).Error)

	users, err = dir.ListAll(ctx, false)
	require.NoError(t, err)
	require.Len(t, users, 1)

	users, err = dir.ListAll(ctx, true)
	require.NoError(t, err)
	require.Len(t, users, 2)
}

func TestSetAdminInvalidatesSnapshot(t *testing.T) {
	dir, db, _ := newTestDirectory(t, Config{})
	ctx := context.Background()

	user := models.User{Email: "c@example.com"}
	require.NoError(t, db.Create(&user).Error)

	_, err := dir.ListAll(ctx, false)
	require.NoError(t, err)

	updated, err := dir.SetAdmin(ctx, "admin-1", user.ID, true)
	require.NoError(t, err)
	require.True(t, updated.IsAdmin)

	// Snapshot was invalidated: the next listing reflects the new flag
	// without a forced refresh.
	users, err := dir.ListAll(ctx, false)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.True(t, users[0].IsAdmin)
}

func TestSetPermissionUnknownUser(t *testing.T) {
	dir, _, _ := newTestDirectory(t, Config{})

	_, err := dir.SetPermission(context.Background(), "admin-1", "ghost", true)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdatePropagationPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("propagates when enabled", func(t *testing.T) {
		dir, db, _ := newTestDirectory(t, Config{InvalidateOnUpdate: true})

		user := models.User{Email: "d@example.com"}
		require.NoError(t, db.Create(&user).Error)

		_, err := dir.Resolve(ctx, user.ID)
		require.NoError(t, err)

		_, err = dir.SetAdmin(ctx, "admin-1", user.ID, true)
		require.NoError(t, err)

		record, err := dir.Resolve(ctx, user.ID)
		require.NoError(t, err)
		require.True(t, record.IsAdmin, "per-user entry must refresh after admin mutation")
	})

	t.Run("stale window when disabled", func(t *testing.T) {
		dir, db, _ := newTestDirectory(t, Config{InvalidateOnUpdate: false})

		user := models.User{Email: "e@example.com"}
		require.NoError(t, db.Create(&user).Error)

		_, err := dir.Resolve(ctx, user.ID)
		require.NoError(t, err)

		_, err = dir.SetAdmin(ctx, "admin-1", user.ID, true)
		require.NoError(t, err)

		record, err := dir.Resolve(ctx, user.ID)
		require.NoError(t, err)
		require.False(t, record.IsAdmin, "resolver keeps serving the cached flags by policy")
	})
}
