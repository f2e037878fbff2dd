package repository

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ouerghi0x/cv-maker-sub000/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GuestUsageRepository defines the persistence operations backing the
// guest quota ledger. All uniqueness guarantees come from the unique index
// on guest_usages.ip, not from application-level locking.
type GuestUsageRepository interface {
	FindByIP(ip string) (*models.GuestUsage, error)
	CreateIfAbsent(usage *models.GuestUsage) (*models.GuestUsage, error)
	MarkCVCreated(ip string) error
	SetLocation(ip string, location string) error
	DeleteByIP(ip string) error
	DeleteExpired(now time.Time) (int64, error)
}

type guestUsageRepository struct {
	db *gorm.DB
}

// NewGuestUsageRepository creates a new instance of GuestUsageRepository.
func NewGuestUsageRepository(db *gorm.DB) GuestUsageRepository {
	return &guestUsageRepository{db: db}
}

// FindByIP retrieves the usage record for an IP. A missing record is not
// an error; it returns (nil, nil) so callers can distinguish "no record"
// from a store failure.
func (r *guestUsageRepository) FindByIP(ip string) (*models.GuestUsage, error) {
	if ip == "" {
		log.Printf("ERROR: [GuestUsageRepository] FindByIP: ip cannot be empty.")
		return nil, errors.New("ip cannot be empty")
	}
	var usage models.GuestUsage
	err := r.db.First(&usage, "ip = ?", ip).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		log.Printf("ERROR: [GuestUsageRepository] Failed to fetch usage for ip %s: %v", ip, err)
		return nil, fmt.Errorf("failed to fetch guest usage for ip %s: %w", ip, err)
	}
	return &usage, nil
}

// CreateIfAbsent inserts the record unless one already exists for the same
// IP. On conflict the insert is a no-op and the existing record is
// re-fetched, so two concurrent first-time callers both get the single
// surviving record instead of a duplicate-key error.
func (r *guestUsageRepository) CreateIfAbsent(usage *models.GuestUsage) (*models.GuestUsage, error) {
	if usage == nil || usage.IP == "" {
		log.Printf("ERROR: [GuestUsageRepository] CreateIfAbsent: usage with a non-empty IP is required.")
		return nil, errors.New("guest usage with a non-empty IP is required")
	}

	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ip"}},
		DoNothing: true,
	}).Create(usage).Error
	if err != nil {
		log.Printf("ERROR: [GuestUsageRepository] Failed to create usage record for ip %s: %v", usage.IP, err)
		return nil, fmt.Errorf("failed to create guest usage for ip %s: %w", usage.IP, err)
	}

	// On conflict the struct is not populated with the winner's row, so
	// re-fetch to return the record that actually exists.
	current, err := r.FindByIP(usage.IP)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch guest usage for ip %s after create: %w", usage.IP, err)
	}
	if current == nil {
		// A concurrent sweep deleted the row between insert and fetch.
		return nil, fmt.Errorf("guest usage for ip %s disappeared after create", usage.IP)
	}
	return current, nil
}

// MarkCVCreated flips has_created_cv to true for the matching record.
// Updating a missing or already-marked record affects zero rows and is
// deliberately not an error.
func (r *guestUsageRepository) MarkCVCreated(ip string) error {
	if ip == "" {
		return errors.New("ip cannot be empty")
	}
	result := r.db.Model(&models.GuestUsage{}).Where("ip = ?", ip).Update("has_created_cv", true)
	if result.Error != nil {
		log.Printf("ERROR: [GuestUsageRepository] Failed to mark CV created for ip %s: %v", ip, result.Error)
		return fmt.Errorf("failed to mark CV created for ip %s: %w", ip, result.Error)
	}
	if result.RowsAffected == 0 {
		log.Printf("INFO: [GuestUsageRepository] MarkCVCreated for ip %s matched no rows (already marked or record expired).", ip)
	}
	return nil
}

// SetLocation caches the best-effort geo string for display. Only records
// without a location are updated, so the value is written at most once.
func (r *guestUsageRepository) SetLocation(ip string, location string) error {
	if ip == "" {
		return errors.New("ip cannot be empty")
	}
	result := r.db.Model(&models.GuestUsage{}).
		Where("ip = ? AND (location IS NULL OR location = '')", ip).
		Update("location", location)
	if result.Error != nil {
		log.Printf("ERROR: [GuestUsageRepository] Failed to set location for ip %s: %v", ip, result.Error)
		return fmt.Errorf("failed to set location for ip %s: %w", ip, result.Error)
	}
	return nil
}

// DeleteByIP removes a single record, used when a stale record is found on
// the read path before a fresh one is created.
func (r *guestUsageRepository) DeleteByIP(ip string) error {
	if ip == "" {
		return errors.New("ip cannot be empty")
	}
	if err := r.db.Where("ip = ?", ip).Delete(&models.GuestUsage{}).Error; err != nil {
		log.Printf("ERROR: [GuestUsageRepository] Failed to delete usage record for ip %s: %v", ip, err)
		return fmt.Errorf("failed to delete guest usage for ip %s: %w", ip, err)
	}
	return nil
}

// DeleteExpired removes every record whose window has closed. The delete
// is set-based (single WHERE), so concurrent sweeps and quota checks
// cannot disagree about which rows were reclaimed.
func (r *guestUsageRepository) DeleteExpired(now time.Time) (int64, error) {
	result := r.db.Where("expires_at <= ?", now).Delete(&models.GuestUsage{})
	if result.Error != nil {
		log.Printf("ERROR: [GuestUsageRepository] Failed to delete expired usage records: %v", result.Error)
		return 0, fmt.Errorf("failed to delete expired guest usage records: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		log.Printf("INFO: [GuestUsageRepository] Deleted %d expired guest usage records.", result.RowsAffected)
	}
	return result.RowsAffected, nil
}
