package models

import (
	"time"
)

// User represents a platform member. Only the fields touched by the lottery
// and email-webhook flows live here; profile data is owned by other services.
// The referral code unique index is partial: users without a code share the
// empty string without colliding.
type User struct {
	Base
	Email             string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	DisplayName       string     `gorm:"type:varchar(100)" json:"display_name"`
	ReferralCode      string     `gorm:"type:varchar(50);uniqueIndex:idx_users_referral_code,where:referral_code <> ''" json:"referral_code"`
	IsAdmin           bool       `gorm:"default:false" json:"is_admin"`
	EmailVerified     bool       `gorm:"default:false" json:"email_verified"`
	EmailBounceReason string     `gorm:"type:varchar(255)" json:"-"`
	EmailBouncedAt    *time.Time `json:"-"`
	EmailDropReason   string     `gorm:"type:varchar(255)" json:"-"`
	EmailDroppedAt    *time.Time `json:"-"`
	SpamReportedAt    *time.Time `json:"-"`
}
