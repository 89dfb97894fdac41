package jobs

import (
	"errors"
	"log"
	"time"

	"github.com/heartlink/backend/internal/models"
	"github.com/heartlink/backend/internal/services/lottery"
	"gorm.io/gorm"
)

// AutoDrawJob draws winners for campaigns whose end date has passed while
// they are still active. Scheduled periodically; a campaign drawn manually
// in between is skipped cleanly by the already-drawn check.
type AutoDrawJob struct {
	db      *gorm.DB
	lottery *lottery.Service
}

// NewAutoDrawJob creates an auto-draw job
func NewAutoDrawJob(db *gorm.DB, lotterySvc *lottery.Service) *AutoDrawJob {
	return &AutoDrawJob{db: db, lottery: lotterySvc}
}

// Run draws every ended campaign that is still active
func (j *AutoDrawJob) Run() {
	var campaigns []models.Campaign
	if err := j.db.Where("status = ? AND end_date <= ?", models.CampaignStatusActive, time.Now()).
		Find(&campaigns).Error; err != nil {
		log.Printf("Auto-draw: failed to load ended campaigns: %v", err)
		return
	}

	for _, campaign := range campaigns {
		winners, err := j.lottery.DrawWinners(campaign.ID)
		if err != nil {
			if errors.Is(err, lottery.ErrCampaignAlreadyDrawn) {
				continue
			}
			log.Printf("Auto-draw failed for campaign %s: %v", campaign.ID, err)
			continue
		}
		log.Printf("Auto-draw completed for campaign %s: %d winners", campaign.ID, len(winners))
	}
}
