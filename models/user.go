package models

import "time"

// User represents a registered account. Password holds the bcrypt hash,
// never the plaintext. FreeTrialUsed counts consumed free CV generations
// for non-subscribed users.
type User struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	Email         string    `gorm:"uniqueIndex;not null" json:"email"`
	Password      string    `gorm:"not null" json:"-"`
	FreeTrialUsed int       `gorm:"default:0;not null" json:"freeTrialUsed"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users"
}

// SubscriptionStatus defines the possible statuses for a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
)

// Subscription records a user's plan. Every signup gets a "free" plan row;
// paid entitlement means an active row with a non-free plan.
type Subscription struct {
	ID           uint               `gorm:"primarykey" json:"id"`
	UserID       uint               `gorm:"index;not null" json:"userId"`
	Plan         string             `gorm:"type:varchar(50);default:'free';not null" json:"plan"`
	Status       SubscriptionStatus `gorm:"type:varchar(50);default:'active';not null" json:"status"`
	StartDate    time.Time          `json:"startDate"`
	TrialEndDate time.Time          `json:"trialEndDate"`
	CreatedAt    time.Time          `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time          `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for the Subscription model.
func (Subscription) TableName() string {
	return "subscriptions"
}
