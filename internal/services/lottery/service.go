package lottery

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/heartlink/backend/internal/models"
	"github.com/heartlink/backend/internal/queue"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Typed failures surfaced to the HTTP layer
var (
	ErrCampaignNotActive     = errors.New("campaign not active or ended")
	ErrCampaignAlreadyDrawn  = errors.New("campaign not found or already drawn")
	ErrInsufficientReferrals = errors.New("not enough completed referrals to enter")
)

// Service runs the referral lottery: campaign lifecycle, ticket allocation
// and weighted winner drawing.
type Service struct {
	db   *gorm.DB
	jobs queue.Enqueuer
	rng  Rand
}

// NewService creates a new lottery service. A nil rng gets the shared
// math/rand source; tests pass a deterministic one.
func NewService(db *gorm.DB, jobs queue.Enqueuer, rng Rand) *Service {
	if rng == nil {
		rng = systemRand{}
	}
	return &Service{db: db, jobs: jobs, rng: rng}
}

// CampaignInput describes a campaign to create together with its prizes
type CampaignInput struct {
	Name                string       `json:"name" binding:"required"`
	Description         string       `json:"description"`
	EndDate             time.Time    `json:"end_date" binding:"required"`
	TotalPrizePoolUSD   float64      `json:"total_prize_pool_usd" binding:"required"`
	MinReferralsToEnter int          `json:"min_referrals_to_enter"`
	Prizes              []PrizeInput `json:"prizes" binding:"required,min=1"`
}

// PrizeInput describes one prize tier of a new campaign
type PrizeInput struct {
	Rank             int     `json:"rank" binding:"required"`
	PrizeName        string  `json:"prize_name" binding:"required"`
	PrizeDescription string  `json:"prize_description"`
	PrizeValueUSD    float64 `json:"prize_value_usd"`
	Quantity         int     `json:"quantity"`
}

// CreateCampaign inserts a campaign and its prizes as one atomic unit and
// returns the generated campaign ID
func (s *Service) CreateCampaign(input CampaignInput) (uuid.UUID, error) {
	campaign := models.Campaign{
		Name:                input.Name,
		Slug:                slug.Make(input.Name),
		Description:         input.Description,
		EndDate:             input.EndDate,
		TotalPrizePoolUSD:   input.TotalPrizePoolUSD,
		MinReferralsToEnter: input.MinReferralsToEnter,
		Status:              models.CampaignStatusActive,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&campaign).Error; err != nil {
			return fmt.Errorf("failed to create campaign: %w", err)
		}

		for _, p := range input.Prizes {
			quantity := p.Quantity
			if quantity < 1 {
				quantity = 1
			}
			prize := models.Prize{
				CampaignID:       campaign.ID,
				Rank:             p.Rank,
				PrizeName:        p.PrizeName,
				PrizeDescription: p.PrizeDescription,
				PrizeValueUSD:    p.PrizeValueUSD,
				Quantity:         quantity,
			}
			if err := tx.Create(&prize).Error; err != nil {
				return fmt.Errorf("failed to create prize: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	log.Printf("Lottery campaign created: %s - prize pool $%.2f", campaign.ID, campaign.TotalPrizePoolUSD)

	return campaign.ID, nil
}

// TicketsForReferrals computes tickets earned from a completed-referral
// count. The bonus is progressive, not proportional: 10+ referrals earn 25
// tickets, 5-9 earn 10, fewer earn one ticket per referral.
func TicketsForReferrals(referralCount int) int {
	switch {
	case referralCount >= 10:
		return 25
	case referralCount >= 5:
		return 10
	default:
		return referralCount
	}
}

// EnterLottery enters (or re-enters) a user into an active campaign based on
// their completed referrals and returns the tickets earned. Re-entering
// refreshes the existing entry rather than creating a second row.
func (s *Service) EnterLottery(userID, campaignID uuid.UUID) (int, error) {
	var ticketsEarned int

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var campaign models.Campaign
		err := tx.Where("id = ? AND status = ? AND end_date > ?",
			campaignID, models.CampaignStatusActive, time.Now()).
			First(&campaign).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCampaignNotActive
			}
			return fmt.Errorf("failed to load campaign: %w", err)
		}

		var referralCount int64
		if err := tx.Model(&models.Referral{}).
			Where("referrer_id = ? AND status = ?", userID, models.ReferralStatusCompleted).
			Count(&referralCount).Error; err != nil {
			return fmt.Errorf("failed to count referrals: %w", err)
		}

		if int(referralCount) < campaign.MinReferralsToEnter {
			return ErrInsufficientReferrals
		}

		ticketsEarned = TicketsForReferrals(int(referralCount))

		entry := models.Entry{
			CampaignID:     campaignID,
			UserID:         userID,
			ReferralsCount: int(referralCount),
			TicketsEarned:  ticketsEarned,
			EntryDate:      time.Now(),
		}

		// Upsert keyed by (campaign_id, user_id): re-entry refreshes counts
		// and the entry timestamp but never resets is_winner.
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "campaign_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"referrals_count": entry.ReferralsCount,
				"tickets_earned":  entry.TicketsEarned,
				"entry_date":      entry.EntryDate,
				"updated_at":      time.Now(),
			}),
		}).Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to upsert entry: %w", err)
		}

		var entriesCount int64
		if err := tx.Model(&models.Entry{}).
			Where("campaign_id = ?", campaignID).
			Count(&entriesCount).Error; err != nil {
			return fmt.Errorf("failed to count entries: %w", err)
		}

		if err := tx.Model(&models.Campaign{}).
			Where("id = ?", campaignID).
			Update("entries_count", entriesCount).Error; err != nil {
			return fmt.Errorf("failed to update campaign entry count: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Printf("Lottery entry: user %s - %d tickets", userID, ticketsEarned)

	return ticketsEarned, nil
}

// DrawWinners draws winners for every prize of an active campaign inside a
// single transaction. Each award unit is an independent weighted draw over
// the remaining non-winning entries, so a user wins at most once per
// campaign. Winner notification is enqueued after the transaction commits.
func (s *Service) DrawWinners(campaignID uuid.UUID) ([]models.Winner, error) {
	var winners []models.Winner

	err := s.db.Transaction(func(tx *gorm.DB) error {
		query := tx.Where("id = ? AND status = ?", campaignID, models.CampaignStatusActive)
		// Row lock keeps two concurrent draws from both passing the status
		// check; sqlite (tests) has no FOR UPDATE.
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var campaign models.Campaign
		if err := query.First(&campaign).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCampaignAlreadyDrawn
			}
			return fmt.Errorf("failed to load campaign: %w", err)
		}

		var prizes []models.Prize
		if err := tx.Where("campaign_id = ?", campaignID).
			Order("rank asc").
			Find(&prizes).Error; err != nil {
			return fmt.Errorf("failed to load prizes: %w", err)
		}

		for _, prize := range prizes {
			for i := 0; i < prize.Quantity; i++ {
				// Reload eligible entries each award so freshly marked
				// winners are excluded from subsequent draws.
				var entries []models.Entry
				if err := tx.Where("campaign_id = ? AND is_winner = ?", campaignID, false).
					Order("created_at asc").
					Find(&entries).Error; err != nil {
					return fmt.Errorf("failed to load entries: %w", err)
				}

				winnerID, ok := pickWeighted(entries, s.rng)
				if !ok {
					// Eligible entries exhausted; leave this award unassigned.
					continue
				}

				if err := tx.Model(&models.Entry{}).
					Where("campaign_id = ? AND user_id = ?", campaignID, winnerID).
					Update("is_winner", true).Error; err != nil {
					return fmt.Errorf("failed to mark winner: %w", err)
				}

				now := time.Now()
				if err := tx.Model(&models.Prize{}).
					Where("id = ?", prize.ID).
					Updates(map[string]interface{}{
						"winner_user_id": winnerID,
						"awarded_at":     now,
					}).Error; err != nil {
					return fmt.Errorf("failed to assign prize: %w", err)
				}

				winners = append(winners, models.Winner{
					UserID:        winnerID,
					PrizeName:     prize.PrizeName,
					PrizeValueUSD: prize.PrizeValueUSD,
					Rank:          prize.Rank,
				})
			}
		}

		if err := tx.Model(&models.Campaign{}).
			Where("id = ?", campaignID).
			Updates(map[string]interface{}{
				"status":        models.CampaignStatusWinnersDrawn,
				"winners_count": len(winners),
			}).Error; err != nil {
			return fmt.Errorf("failed to update campaign status: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Notification is deliberately outside the draw transaction: a
	// notification-store hiccup must not roll back a valid draw. The queue
	// retries failures independently.
	for _, w := range winners {
		if _, err := s.jobs.EnqueueJob(queue.JobTypeNotifyLotteryWinner, w); err != nil {
			log.Printf("Failed to queue winner notification for user %s: %v", w.UserID, err)
		}
	}

	log.Printf("Lottery winners drawn: %s - %d winners", campaignID, len(winners))

	return winners, nil
}

// GetActiveCampaigns returns campaigns that are open for entry, newest
// first, with their prize lists
func (s *Service) GetActiveCampaigns() ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := s.db.Preload("Prizes", func(db *gorm.DB) *gorm.DB {
		return db.Order("prizes.rank asc")
	}).
		Where("status = ? AND end_date > ?", models.CampaignStatusActive, time.Now()).
		Order("created_at desc").
		Find(&campaigns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load active campaigns: %w", err)
	}
	return campaigns, nil
}

// UserEntry is one of a user's entries decorated with campaign context and
// an estimated win probability
type UserEntry struct {
	models.Entry
	CampaignName      string                `json:"campaign_name"`
	TotalPrizePoolUSD float64               `json:"total_prize_pool_usd"`
	EndDate           time.Time             `json:"end_date"`
	CampaignStatus    models.CampaignStatus `json:"campaign_status"`
	// WinProbability is tickets / current campaign ticket total. It is an
	// approximation: the denominator shifts as winners are removed during a
	// draw, so this is a snapshot, not a live invariant.
	WinProbability float64 `json:"win_probability"`
}

// GetUserEntries returns a user's entries across campaigns, newest first
func (s *Service) GetUserEntries(userID uuid.UUID) ([]UserEntry, error) {
	var results []UserEntry
	err := s.db.Model(&models.Entry{}).
		Select(`entries.*,
			campaigns.name AS campaign_name,
			campaigns.total_prize_pool_usd,
			campaigns.end_date,
			campaigns.status AS campaign_status,
			CASE WHEN totals.total_tickets > 0
				THEN CAST(entries.tickets_earned AS FLOAT) / totals.total_tickets * 100
				ELSE 0 END AS win_probability`).
		Joins("JOIN campaigns ON campaigns.id = entries.campaign_id").
		Joins(`JOIN (SELECT campaign_id, SUM(tickets_earned) AS total_tickets
			FROM entries GROUP BY campaign_id) totals
			ON totals.campaign_id = entries.campaign_id`).
		Where("entries.user_id = ?", userID).
		Order("entries.entry_date desc").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load user entries: %w", err)
	}
	return results, nil
}

// Analytics summarizes participation in a campaign
type Analytics struct {
	CampaignID           uuid.UUID             `json:"campaign_id"`
	Name                 string                `json:"name"`
	Status               models.CampaignStatus `json:"status"`
	UniqueEntrants       int64                 `json:"unique_entrants"`
	TotalTickets         int64                 `json:"total_tickets"`
	AvgReferralsPerEntry float64               `json:"avg_referrals_per_entry"`
	WinnersCount         int64                 `json:"winners_count"`
}

// GetAnalytics aggregates entry statistics for one campaign
func (s *Service) GetAnalytics(campaignID uuid.UUID) (*Analytics, error) {
	var campaign models.Campaign
	if err := s.db.First(&campaign, "id = ?", campaignID).Error; err != nil {
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}

	analytics := Analytics{
		CampaignID: campaign.ID,
		Name:       campaign.Name,
		Status:     campaign.Status,
	}

	row := s.db.Model(&models.Entry{}).
		Select(`COUNT(DISTINCT user_id) AS unique_entrants,
			COALESCE(SUM(tickets_earned), 0) AS total_tickets,
			COALESCE(AVG(referrals_count), 0) AS avg_referrals_per_entry,
			COALESCE(SUM(CASE WHEN is_winner THEN 1 ELSE 0 END), 0) AS winners_count`).
		Where("campaign_id = ?", campaignID).
		Row()
	if err := row.Scan(&analytics.UniqueEntrants, &analytics.TotalTickets,
		&analytics.AvgReferralsPerEntry, &analytics.WinnersCount); err != nil {
		return nil, fmt.Errorf("failed to aggregate analytics: %w", err)
	}

	return &analytics, nil
}
