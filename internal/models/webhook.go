package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Webhook providers
const (
	WebhookProviderSendGrid = "sendgrid"
	WebhookProviderManus    = "manus"
)

// Webhook log statuses
const (
	WebhookLogStatusSuccess  = "success"
	WebhookLogStatusFailed   = "failed"
	WebhookLogStatusRetrying = "retrying"
)

// WebhookEvent is the deduplicated record of one externally delivered
// notification. The unique index on event_id makes re-delivery a no-op
// insert: callers must skip processing when no new row was created.
type WebhookEvent struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	Provider     string     `gorm:"type:varchar(50);not null;index" json:"provider"`
	EventType    string     `gorm:"type:varchar(100);not null" json:"event_type"`
	EventID      string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"event_id"`
	Payload      JSON       `gorm:"type:jsonb" json:"payload"`
	Signature    string     `gorm:"type:text" json:"-"`
	Verified     bool       `gorm:"default:false" json:"verified"`
	Processed    bool       `gorm:"default:false" json:"processed"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
	RetryCount   int        `gorm:"default:0" json:"retry_count"`
	ErrorMessage string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// BeforeCreate assigns the UUID primary key
func (w *WebhookEvent) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// WebhookLog is an append-only audit row for one handler invocation against
// a webhook event.
type WebhookLog struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	WebhookEventID uuid.UUID `gorm:"type:uuid;not null;index" json:"webhook_event_id"`
	Action         string    `gorm:"type:varchar(100);not null" json:"action"`
	Status         string    `gorm:"type:varchar(20);not null" json:"status"`
	Details        JSON      `gorm:"type:jsonb" json:"details,omitempty"`
	ErrorMessage   string    `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

// BeforeCreate assigns the UUID primary key
func (w *WebhookLog) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// EmailSuppression is the unsubscribe/suppression list. Inserts are
// conflict-ignored on email so repeated suppressions keep the first reason.
type EmailSuppression struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Email          string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Reason         string    `gorm:"type:varchar(100);not null" json:"reason"`
	UnsubscribedAt time.Time `gorm:"not null" json:"unsubscribed_at"`
	CreatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

// BeforeCreate assigns the UUID primary key
func (e *EmailSuppression) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// EmailTrackingEvent is an analytics row for open/click engagement tracking.
// Loss of these rows is non-critical.
type EmailTrackingEvent struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Email      string    `gorm:"type:varchar(255);not null;index" json:"email"`
	EventType  string    `gorm:"type:varchar(20);not null" json:"event_type"`
	MessageID  string    `gorm:"type:varchar(255)" json:"message_id"`
	URL        string    `gorm:"type:text" json:"url,omitempty"`
	UserAgent  string    `gorm:"type:varchar(512)" json:"useragent,omitempty"`
	IPAddress  string    `gorm:"type:varchar(45)" json:"ip_address,omitempty"`
	OccurredAt time.Time `gorm:"not null" json:"occurred_at"`
	CreatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

// BeforeCreate assigns the UUID primary key
func (e *EmailTrackingEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
