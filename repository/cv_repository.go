package repository

import (
	"errors"
	"fmt"
	"log"

	"github.com/ouerghi0x/cv-maker-sub000/models"

	"gorm.io/gorm"
)

// CVRepository defines the interface for persisting generated CVs.
type CVRepository interface {
	SaveCV(cv *models.CV) error
	GetCVsByUserID(userID uint) ([]*models.CV, error)
}

type cvRepository struct {
	db *gorm.DB
}

// NewCVRepository creates a new instance of CVRepository.
func NewCVRepository(db *gorm.DB) CVRepository {
	return &cvRepository{db: db}
}

// SaveCV stores a generated CV's form payload for an authenticated user.
func (r *cvRepository) SaveCV(cv *models.CV) error {
	if cv == nil {
		return errors.New("cv cannot be nil")
	}
	if cv.UserID == 0 {
		return errors.New("cv must belong to a user")
	}
	if err := r.db.Create(cv).Error; err != nil {
		log.Printf("ERROR: [CVRepository] Failed to save CV for user ID %d: %v", cv.UserID, err)
		return fmt.Errorf("failed to save CV for user ID %d: %w", cv.UserID, err)
	}
	log.Printf("INFO: [CVRepository] Saved CV ID %d for user ID %d.", cv.ID, cv.UserID)
	return nil
}

// GetCVsByUserID retrieves every CV saved by a user, newest first.
func (r *cvRepository) GetCVsByUserID(userID uint) ([]*models.CV, error) {
	var cvs []*models.CV
	err := r.db.Where("user_id = ?", userID).Order("created_at desc").Find(&cvs).Error
	if err != nil {
		log.Printf("ERROR: [CVRepository] Failed to retrieve CVs for user ID %d: %v", userID, err)
		return nil, fmt.Errorf("failed to retrieve CVs for user ID %d: %w", userID, err)
	}
	return cvs, nil
}
