package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/heartlink/backend/internal/models"
	"github.com/heartlink/backend/internal/queue"
	"github.com/heartlink/backend/internal/services/webhook"
	"gorm.io/gorm"
)

// AdminAlertJob notifies every admin user when an automation task stops
// waiting for operator input
type AdminAlertJob struct {
	db *gorm.DB
}

// NewAdminAlertJob creates an admin alert job handler
func NewAdminAlertJob(db *gorm.DB) *AdminAlertJob {
	return &AdminAlertJob{db: db}
}

// Alert fans the task-needs-input notification out to all admins
func (j *AdminAlertJob) Alert(ctx context.Context, job *queue.Job) error {
	var payload webhook.TaskInputNeededPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task alert payload: %w", err)
	}

	var admins []models.User
	if err := j.db.Where("is_admin = ?", true).Find(&admins).Error; err != nil {
		return fmt.Errorf("failed to load admin users: %w", err)
	}

	for _, admin := range admins {
		notification := models.Notification{
			UserID:  admin.ID,
			Type:    models.NotificationTypeTaskNeedsInput,
			Message: fmt.Sprintf("Automation task %s needs input: %s", payload.TaskID, payload.Message),
			Data: models.JSON{
				"task_id": payload.TaskID,
			},
		}
		if err := j.db.Create(&notification).Error; err != nil {
			return fmt.Errorf("failed to create admin notification: %w", err)
		}
	}

	log.Printf("Admin alert sent for task %s to %d admins", payload.TaskID, len(admins))

	return nil
}
