package repository

import (
	"errors"
	"fmt"
	"log"

	"github.com/ouerghi0x/cv-maker-sub000/models"

	"gorm.io/gorm"
)

// UserRepository defines the interface for interacting with user accounts,
// their subscriptions and the free-trial credit counter.
type UserRepository interface {
	CreateUser(user *models.User) error
	FindByEmail(email string) (*models.User, error)
	FindByID(userID uint) (*models.User, error)
	CreateSubscription(sub *models.Subscription) error
	HasActiveSubscription(userID uint) (bool, error)
	IncrementFreeTrialUsed(userID uint) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// CreateUser inserts a new account record.
func (r *userRepository) CreateUser(user *models.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	if err := r.db.Create(user).Error; err != nil {
		log.Printf("ERROR: [UserRepository] Failed to create user '%s': %v", user.Email, err)
		return fmt.Errorf("failed to create user '%s': %w", user.Email, err)
	}
	log.Printf("INFO: [UserRepository] Created user ID %d ('%s').", user.ID, user.Email)
	return nil
}

// FindByEmail retrieves a user by email. A missing user returns (nil, nil).
func (r *userRepository) FindByEmail(email string) (*models.User, error) {
	if email == "" {
		return nil, errors.New("email cannot be empty")
	}
	var user models.User
	err := r.db.First(&user, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		log.Printf("ERROR: [UserRepository] Failed to fetch user by email '%s': %v", email, err)
		return nil, fmt.Errorf("failed to fetch user by email '%s': %w", email, err)
	}
	return &user, nil
}

// FindByID retrieves a user by primary key. A missing user returns (nil, nil).
func (r *userRepository) FindByID(userID uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		log.Printf("ERROR: [UserRepository] Failed to fetch user ID %d: %v", userID, err)
		return nil, fmt.Errorf("failed to fetch user ID %d: %w", userID, err)
	}
	return &user, nil
}

// CreateSubscription inserts a subscription row for a user.
func (r *userRepository) CreateSubscription(sub *models.Subscription) error {
	if sub == nil {
		return errors.New("subscription cannot be nil")
	}
	if err := r.db.Create(sub).Error; err != nil {
		log.Printf("ERROR: [UserRepository] Failed to create subscription for user ID %d: %v", sub.UserID, err)
		return fmt.Errorf("failed to create subscription for user ID %d: %w", sub.UserID, err)
	}
	return nil
}

// HasActiveSubscription reports whether the user holds an active paid plan.
// The signup "free" plan does not count as a paid entitlement.
func (r *userRepository) HasActiveSubscription(userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Subscription{}).
		Where("user_id = ? AND status = ? AND plan <> ?", userID, models.SubscriptionStatusActive, "free").
		Count(&count).Error
	if err != nil {
		log.Printf("ERROR: [UserRepository] Failed to check subscription for user ID %d: %v", userID, err)
		return false, fmt.Errorf("failed to check subscription for user ID %d: %w", userID, err)
	}
	return count > 0, nil
}

// IncrementFreeTrialUsed adds one consumed free-trial credit to the user.
// The increment happens inside the database so concurrent generations
// cannot lose an update.
func (r *userRepository) IncrementFreeTrialUsed(userID uint) error {
	result := r.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("free_trial_used", gorm.Expr("free_trial_used + 1"))
	if result.Error != nil {
		log.Printf("ERROR: [UserRepository] Failed to increment free trial counter for user ID %d: %v", userID, result.Error)
		return fmt.Errorf("failed to increment free trial counter for user ID %d: %w", userID, result.Error)
	}
	if result.RowsAffected == 0 {
		log.Printf("WARN: [UserRepository] IncrementFreeTrialUsed matched no rows for user ID %d.", userID)
	}
	return nil
}
