package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CampaignStatus describes the lifecycle state of a lottery campaign
type CampaignStatus string

const (
	CampaignStatusActive       CampaignStatus = "active"
	CampaignStatusWinnersDrawn CampaignStatus = "winners_drawn"
)

// Campaign is a time-boxed lottery round with its own prize list and entries.
// Campaigns are never deleted; drawn campaigns remain as historical record.
type Campaign struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	Name                string         `gorm:"type:varchar(255);not null" json:"name"`
	Slug                string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"slug"`
	Description         string         `gorm:"type:text" json:"description"`
	EndDate             time.Time      `gorm:"not null" json:"end_date"`
	TotalPrizePoolUSD   float64        `gorm:"type:decimal(20,2);not null" json:"total_prize_pool_usd"`
	MinReferralsToEnter int            `gorm:"not null;default:1" json:"min_referrals_to_enter"`
	Status              CampaignStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	EntriesCount        int64          `gorm:"default:0" json:"entries_count"`
	WinnersCount        int            `gorm:"default:0" json:"winners_count"`
	Prizes              []Prize        `gorm:"foreignKey:CampaignID" json:"prizes,omitempty"`
	CreatedAt           time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// BeforeCreate assigns the UUID primary key
func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Prize is one prize tier within a campaign. Quantity > 1 means several
// identical awards at this rank, each drawn independently.
type Prize struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	CampaignID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"campaign_id"`
	Rank             int        `gorm:"not null" json:"rank"`
	PrizeName        string     `gorm:"type:varchar(255);not null" json:"prize_name"`
	PrizeDescription string     `gorm:"type:text" json:"prize_description"`
	PrizeValueUSD    float64    `gorm:"type:decimal(20,2);not null" json:"prize_value_usd"`
	Quantity         int        `gorm:"not null;default:1" json:"quantity"`
	WinnerUserID     *uuid.UUID `gorm:"type:uuid" json:"winner_user_id,omitempty"`
	AwardedAt        *time.Time `json:"awarded_at,omitempty"`
	CreatedAt        time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// BeforeCreate assigns the UUID primary key
func (p *Prize) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Entry is one user's participation record in one campaign. The unique index
// on (campaign_id, user_id) guarantees re-entering updates rather than
// duplicates.
type Entry struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	CampaignID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_entries_campaign_user" json:"campaign_id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_entries_campaign_user" json:"user_id"`
	ReferralsCount int       `gorm:"not null;default:0" json:"referrals_count"`
	TicketsEarned  int       `gorm:"not null;default:0" json:"tickets_earned"`
	IsWinner       bool      `gorm:"not null;default:false" json:"is_winner"`
	EntryDate      time.Time `gorm:"not null" json:"entry_date"`
	CreatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// BeforeCreate assigns the UUID primary key
func (e *Entry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Winner is the draw result for one award unit, returned to the caller of
// DrawWinners and used for the notification job payload.
type Winner struct {
	UserID        uuid.UUID `json:"user_id"`
	PrizeName     string    `json:"prize_name"`
	PrizeValueUSD float64   `json:"prize_value_usd"`
	Rank          int       `json:"rank"`
}
