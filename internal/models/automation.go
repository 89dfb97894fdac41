package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Automation task statuses
const (
	TaskStatusRunning      = "running"
	TaskStatusCompleted    = "completed"
	TaskStatusWaitingInput = "waiting_input"
)

// AutomationTask tracks a task run by the external task-automation provider,
// maintained from its webhook events.
type AutomationTask struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	TaskID      string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"task_id"`
	Title       string     `gorm:"type:varchar(512)" json:"title"`
	URL         string     `gorm:"type:text" json:"url"`
	Status      string     `gorm:"type:varchar(20);not null;default:'running'" json:"status"`
	Message     string     `gorm:"type:text" json:"message,omitempty"`
	StopReason  string     `gorm:"type:varchar(50)" json:"stop_reason,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// BeforeCreate assigns the UUID primary key
func (t *AutomationTask) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TaskAttachment is a file produced by an automation task run.
type TaskAttachment struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	TaskID    string    `gorm:"type:varchar(255);not null;index" json:"task_id"`
	FileName  string    `gorm:"type:varchar(512);not null" json:"file_name"`
	URL       string    `gorm:"type:text;not null" json:"url"`
	SizeBytes int64     `gorm:"default:0" json:"size_bytes"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

// BeforeCreate assigns the UUID primary key
func (a *TaskAttachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
