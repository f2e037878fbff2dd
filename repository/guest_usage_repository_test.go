package repository

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ouerghi0x/cv-maker-sub000/models"
)

// newTestDB opens a private in-memory SQLite database with the guest usage
// schema migrated. cache=shared keeps the database alive across the pooled
// connections concurrent tests use.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.GuestUsage{}))
	return db
}

func newUsage(ip string, now time.Time) *models.GuestUsage {
	return &models.GuestUsage{
		IP:        ip,
		CreatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
}

func TestGuestUsageRepository_CreateIfAbsent(t *testing.T) {
	now := time.Now()

	t.Run("Concurrent first-time creates converge on a single record", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewGuestUsageRepository(db)

		const callers = 8
		var wg sync.WaitGroup
		errs := make(chan error, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				usage, err := repo.CreateIfAbsent(newUsage("198.51.100.9", now))
				if err == nil && usage.IP != "198.51.100.9" {
					err = fmt.Errorf("unexpected record for ip %s", usage.IP)
				}
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		// No caller may surface a duplicate-key error.
		for err := range errs {
			assert.NoError(t, err)
		}

		var count int64
		require.NoError(t, db.Model(&models.GuestUsage{}).Where("ip = ?", "198.51.100.9").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Second create returns the surviving record unchanged", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewGuestUsageRepository(db)

		first, err := repo.CreateIfAbsent(newUsage("198.51.100.10", now))
		require.NoError(t, err)
		require.NoError(t, repo.MarkCVCreated("198.51.100.10"))

		later := newUsage("198.51.100.10", now.Add(time.Hour))
		second, err := repo.CreateIfAbsent(later)

		assert.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.True(t, second.HasCreatedCV, "losing insert must not reset the consumed flag")
		assert.WithinDuration(t, first.ExpiresAt, second.ExpiresAt, time.Second, "losing insert must not extend the window")
	})

	t.Run("Empty IP is rejected", func(t *testing.T) {
		repo := NewGuestUsageRepository(newTestDB(t))

		_, err := repo.CreateIfAbsent(&models.GuestUsage{})
		assert.Error(t, err)
	})
}

func TestGuestUsageRepository_FindByIP(t *testing.T) {
	now := time.Now()

	t.Run("Missing record is nil without an error", func(t *testing.T) {
		repo := NewGuestUsageRepository(newTestDB(t))

		usage, err := repo.FindByIP("203.0.113.1")
		assert.NoError(t, err)
		assert.Nil(t, usage)
	})

	t.Run("Existing record is returned", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewGuestUsageRepository(db)

		_, err := repo.CreateIfAbsent(newUsage("203.0.113.2", now))
		require.NoError(t, err)

		usage, err := repo.FindByIP("203.0.113.2")
		assert.NoError(t, err)
		require.NotNil(t, usage)
		assert.Equal(t, "203.0.113.2", usage.IP)
		assert.False(t, usage.HasCreatedCV)
	})
}

func TestGuestUsageRepository_MarkCVCreated(t *testing.T) {
	now := time.Now()

	t.Run("Flips the flag exactly once and stays set", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewGuestUsageRepository(db)

		_, err := repo.CreateIfAbsent(newUsage("203.0.113.3", now))
		require.NoError(t, err)

		assert.NoError(t, repo.MarkCVCreated("203.0.113.3"))
		assert.NoError(t, repo.MarkCVCreated("203.0.113.3"), "re-marking is not an error")

		usage, err := repo.FindByIP("203.0.113.3")
		require.NoError(t, err)
		assert.True(t, usage.HasCreatedCV)
	})

	t.Run("Missing record is a silent no-op", func(t *testing.T) {
		repo := NewGuestUsageRepository(newTestDB(t))

		assert.NoError(t, repo.MarkCVCreated("203.0.113.4"))
	})
}

func TestGuestUsageRepository_DeleteExpired(t *testing.T) {
	now := time.Now()

	t.Run("Removes only records at or past their expiry", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewGuestUsageRepository(db)

		expired := newUsage("203.0.113.5", now.Add(-25*time.Hour))
		boundary := newUsage("203.0.113.6", now.Add(-24*time.Hour)) // expires exactly now
		live := newUsage("203.0.113.7", now)
		for _, u := range []*models.GuestUsage{expired, boundary, live} {
			_, err := repo.CreateIfAbsent(u)
			require.NoError(t, err)
		}

		removed, err := repo.DeleteExpired(now)
		assert.NoError(t, err)
		assert.Equal(t, int64(2), removed)

		survivor, err := repo.FindByIP("203.0.113.7")
		require.NoError(t, err)
		assert.NotNil(t, survivor)

		// Idempotent: nothing further to reclaim.
		removed, err = repo.DeleteExpired(now)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), removed)
	})
}
