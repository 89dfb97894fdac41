package webhook

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/heartlink/backend/internal/models"
	"github.com/heartlink/backend/internal/queue"
	"gorm.io/gorm"
)

// Manus event types
const (
	ManusEventTaskCreated = "task_created"
	ManusEventTaskStopped = "task_stopped"
)

// ManusAttachment is a file produced by a finished automation task
type ManusAttachment struct {
	FileName  string `json:"file_name"`
	URL       string `json:"url"`
	SizeBytes int64  `json:"size_bytes"`
}

// ManusTaskDetail carries the task fields of a Manus webhook event
type ManusTaskDetail struct {
	TaskID      string            `json:"task_id"`
	TaskTitle   string            `json:"task_title,omitempty"`
	TaskURL     string            `json:"task_url,omitempty"`
	Message     string            `json:"message,omitempty"`
	StopReason  string            `json:"stop_reason,omitempty"`
	Attachments []ManusAttachment `json:"attachments,omitempty"`
}

// ManusEvent is one webhook delivery from the task-automation provider
type ManusEvent struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	TaskDetail ManusTaskDetail `json:"task_detail"`
}

// ManusProcessor maintains automation task state from provider webhooks
type ManusProcessor struct {
	db     *gorm.DB
	ledger *Ledger
	jobs   queue.Enqueuer
}

// NewManusProcessor creates a Manus webhook processor
func NewManusProcessor(db *gorm.DB, ledger *Ledger, jobs queue.Enqueuer) *ManusProcessor {
	return &ManusProcessor{db: db, ledger: ledger, jobs: jobs}
}

// TaskInputNeededPayload is the job payload enqueued when a task stops
// waiting for operator input
type TaskInputNeededPayload struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

// Process records and dispatches one Manus event
func (p *ManusProcessor) Process(event ManusEvent, signature string, verified bool) error {
	payload := models.JSON{
		"event_type":  event.EventType,
		"task_id":     event.TaskDetail.TaskID,
		"task_title":  event.TaskDetail.TaskTitle,
		"stop_reason": event.TaskDetail.StopReason,
	}

	record, created, err := p.ledger.RecordEvent(
		models.WebhookProviderManus, event.EventType, event.EventID, payload, signature, verified)
	if err != nil {
		return err
	}
	if !created {
		log.Printf("Duplicate Manus event ignored: %s (%s)", event.EventID, event.EventType)
		return nil
	}

	var handleErr error
	switch event.EventType {
	case ManusEventTaskCreated:
		handleErr = p.handleTaskCreated(record.ID, event.TaskDetail)
	case ManusEventTaskStopped:
		handleErr = p.handleTaskStopped(record.ID, event.TaskDetail)
	default:
		log.Printf("Unhandled Manus event type: %s", event.EventType)
		p.ledger.LogAction(record.ID, "unhandled_event", models.WebhookLogStatusSuccess,
			models.JSON{"event_type": event.EventType}, "")
	}

	if handleErr != nil {
		log.Printf("Manus event processing error: %s (%s): %v", event.EventID, event.EventType, handleErr)
		if ferr := p.ledger.RecordFailure(record.ID, handleErr.Error()); ferr != nil {
			log.Printf("Failed to record failure for event %s: %v", record.ID, ferr)
		}
		return handleErr
	}

	if err := p.ledger.MarkProcessed(record.ID); err != nil {
		log.Printf("Failed to mark event %s processed: %v", record.ID, err)
	}
	return nil
}

// handleTaskCreated inserts the tracked task row
func (p *ManusProcessor) handleTaskCreated(eventID uuid.UUID, detail ManusTaskDetail) error {
	task := models.AutomationTask{
		TaskID: detail.TaskID,
		Title:  detail.TaskTitle,
		URL:    detail.TaskURL,
		Status: models.TaskStatusRunning,
	}
	if err := p.db.Create(&task).Error; err != nil {
		p.ledger.LogAction(eventID, "handle_task_created", models.WebhookLogStatusFailed, nil, err.Error())
		return fmt.Errorf("failed to create automation task: %w", err)
	}

	log.Printf("Automation task created: %s", detail.TaskID)

	p.ledger.LogAction(eventID, "handle_task_created", models.WebhookLogStatusSuccess,
		models.JSON{"task_id": detail.TaskID}, "")
	return nil
}

// handleTaskStopped updates task state, stores attachments and alerts
// operators when the task is waiting for input
func (p *ManusProcessor) handleTaskStopped(eventID uuid.UUID, detail ManusTaskDetail) error {
	status := models.TaskStatusWaitingInput
	if detail.StopReason == "finish" {
		status = models.TaskStatusCompleted
	}

	now := time.Now()
	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.AutomationTask{}).
			Where("task_id = ?", detail.TaskID).
			Updates(map[string]interface{}{
				"status":       status,
				"message":      detail.Message,
				"stop_reason":  detail.StopReason,
				"completed_at": now,
				"updated_at":   now,
			}).Error; err != nil {
			return fmt.Errorf("failed to update automation task: %w", err)
		}

		for _, file := range detail.Attachments {
			attachment := models.TaskAttachment{
				TaskID:    detail.TaskID,
				FileName:  file.FileName,
				URL:       file.URL,
				SizeBytes: file.SizeBytes,
			}
			if err := tx.Create(&attachment).Error; err != nil {
				return fmt.Errorf("failed to store task attachment: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		p.ledger.LogAction(eventID, "handle_task_stopped", models.WebhookLogStatusFailed, nil, err.Error())
		return err
	}

	if detail.StopReason == "ask" {
		log.Printf("Automation task %s requires operator input: %s", detail.TaskID, detail.Message)
		if _, err := p.jobs.EnqueueJob(queue.JobTypeNotifyAdminTaskInput, TaskInputNeededPayload{
			TaskID:  detail.TaskID,
			Message: detail.Message,
		}); err != nil {
			log.Printf("Failed to queue admin alert for task %s: %v", detail.TaskID, err)
		}
	} else {
		log.Printf("Automation task %s stopped: %s", detail.TaskID, status)
	}

	p.ledger.LogAction(eventID, "handle_task_stopped", models.WebhookLogStatusSuccess, models.JSON{
		"task_id":     detail.TaskID,
		"status":      status,
		"attachments": len(detail.Attachments),
	}, "")
	return nil
}
