package models

import "time"

// GuestUsage tracks the one-free-CV allowance for an anonymous visitor.
// The IP is the uniqueness key; the fingerprint is advisory only and is
// surfaced for diagnostics, never used for lookups.
type GuestUsage struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	IP           string    `gorm:"uniqueIndex;not null" json:"ip"`
	Fingerprint  *string   `json:"fingerprint,omitempty"`
	Location     *string   `json:"location,omitempty"`
	HasCreatedCV bool      `gorm:"default:false;not null" json:"hasCreatedCV"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	ExpiresAt    time.Time `gorm:"index;not null" json:"expiresAt"`
}

// TableName specifies the table name for the GuestUsage model.
func (GuestUsage) TableName() string {
	return "guest_usages"
}
