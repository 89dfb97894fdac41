package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/heartlink/backend/internal/models"
	"github.com/heartlink/backend/internal/queue"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WinnerNotificationJob delivers lottery win notifications. It runs outside
// the draw transaction so a notification-store failure never rolls back a
// valid draw; the queue's retry handler re-runs failures.
type WinnerNotificationJob struct {
	db *gorm.DB
}

// NewWinnerNotificationJob creates a winner notification job handler
func NewWinnerNotificationJob(db *gorm.DB) *WinnerNotificationJob {
	return &WinnerNotificationJob{db: db}
}

// Notify writes the in-app notification and awards the winner badge
func (j *WinnerNotificationJob) Notify(ctx context.Context, job *queue.Job) error {
	var winner models.Winner
	if err := json.Unmarshal(job.Payload, &winner); err != nil {
		return fmt.Errorf("failed to unmarshal winner payload: %w", err)
	}

	notification := models.Notification{
		UserID:  winner.UserID,
		Type:    models.NotificationTypeLotteryWinner,
		Message: fmt.Sprintf("Congratulations! You won %s ($%.2f)!", winner.PrizeName, winner.PrizeValueUSD),
		Data: models.JSON{
			"prize_name":      winner.PrizeName,
			"prize_value_usd": winner.PrizeValueUSD,
			"rank":            winner.Rank,
		},
	}
	if err := j.db.Create(&notification).Error; err != nil {
		return fmt.Errorf("failed to create winner notification: %w", err)
	}

	// Repeat winners across campaigns keep their original badge.
	badge := models.Badge{
		UserID:   winner.UserID,
		BadgeKey: models.BadgeKeyLotteryWinner,
		EarnedAt: time.Now(),
	}
	if err := j.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_key"}},
		DoNothing: true,
	}).Create(&badge).Error; err != nil {
		return fmt.Errorf("failed to award winner badge: %w", err)
	}

	log.Printf("Winner notified: user %s won %s", winner.UserID, winner.PrizeName)

	return nil
}
