package models

import (
	"time"

	"github.com/google/uuid"
)

// Referral status values
const (
	ReferralStatusPending   = "pending"
	ReferralStatusCompleted = "completed"
	ReferralStatusExpired   = "expired"
)

// Referral represents a referral record. Completed referrals are what earn
// lottery tickets for the referrer.
type Referral struct {
	Base
	ReferrerID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"referrer_id"`
	Referrer       User       `gorm:"foreignKey:ReferrerID" json:"-"`
	ReferredUserID uuid.UUID  `gorm:"type:uuid;not null" json:"referred_user_id"`
	ReferredUser   User       `gorm:"foreignKey:ReferredUserID" json:"-"`
	ReferralCode   string     `gorm:"type:varchar(50);not null" json:"referral_code"`
	Status         string     `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}
