package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification types
const (
	NotificationTypeLotteryWinner  = "lottery_winner"
	NotificationTypeTaskNeedsInput = "task_needs_input"
)

// Badge keys
const (
	BadgeKeyLotteryWinner = "lottery_winner"
)

// Notification is an in-app notification row consumed by the client.
type Notification struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Type      string     `gorm:"type:varchar(50);not null" json:"type"`
	Message   string     `gorm:"type:text;not null" json:"message"`
	Data      JSON       `gorm:"type:jsonb" json:"data,omitempty"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

// BeforeCreate assigns the UUID primary key
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// Badge marks an achievement earned by a user. The unique index on
// (user_id, badge_key) makes repeat awards a conflict-ignored no-op.
type Badge struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_badges_user_key" json:"user_id"`
	BadgeKey string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_badges_user_key" json:"badge_key"`
	EarnedAt time.Time `gorm:"not null" json:"earned_at"`
}

// BeforeCreate assigns the UUID primary key
func (b *Badge) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
