package webhook

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/heartlink/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Deduper is a read-then-mark duplicate cache in front of the webhook ledger.
// *DedupeCache satisfies it; tests substitute an in-memory implementation.
type Deduper interface {
	Seen(provider, eventID string) bool
	MarkSeen(provider, eventID string)
}

// Ledger records every inbound webhook event keyed by the provider-supplied
// event ID and keeps the per-event processing bookkeeping (processed flag,
// retry count, audit log rows).
type Ledger struct {
	db    *gorm.DB
	cache Deduper
}

// NewLedger creates a webhook ledger. cache may be nil; the event_id unique
// constraint remains the source of truth either way.
func NewLedger(db *gorm.DB, cache Deduper) *Ledger {
	return &Ledger{db: db, cache: cache}
}

// RecordEvent inserts the event row, conflict-ignored on event_id. The
// second return value is false when the event was already recorded: the
// caller must skip processing entirely in that case.
//
// The cache is only told about an event once its ledger row is confirmed to
// exist. A failed insert stays unmarked so the provider's re-delivery gets
// another chance at the database.
func (l *Ledger) RecordEvent(provider, eventType, eventID string, payload models.JSON, signature string, verified bool) (*models.WebhookEvent, bool, error) {
	// Fast-path duplicate check; a cache miss or cache outage falls through
	// to the database constraint.
	if l.cache != nil && l.cache.Seen(provider, eventID) {
		return nil, false, nil
	}

	event := models.WebhookEvent{
		Provider:  provider,
		EventType: eventType,
		EventID:   eventID,
		Payload:   payload,
		Signature: signature,
		Verified:  verified,
	}

	result := l.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&event)
	if result.Error != nil {
		return nil, false, fmt.Errorf("failed to record webhook event: %w", result.Error)
	}

	if l.cache != nil {
		l.cache.MarkSeen(provider, eventID)
	}

	if result.RowsAffected == 0 {
		// Duplicate delivery lost the insert race; no side effects may run.
		return nil, false, nil
	}

	return &event, true, nil
}

// LogAction appends an audit row for one handler invocation against an event
func (l *Ledger) LogAction(webhookEventID uuid.UUID, action, status string, details models.JSON, errorMessage string) {
	logRow := models.WebhookLog{
		WebhookEventID: webhookEventID,
		Action:         action,
		Status:         status,
		Details:        details,
		ErrorMessage:   errorMessage,
	}
	if err := l.db.Create(&logRow).Error; err != nil {
		log.Printf("Failed to write webhook log for event %s: %v", webhookEventID, err)
	}
}

// MarkProcessed flags the event as fully handled
func (l *Ledger) MarkProcessed(webhookEventID uuid.UUID) error {
	now := time.Now()
	return l.db.Model(&models.WebhookEvent{}).
		Where("id = ?", webhookEventID).
		Updates(map[string]interface{}{
			"processed":    true,
			"processed_at": now,
			"updated_at":   now,
		}).Error
}

// RecordFailure bumps the retry count and stores the latest handler error.
// The event stays unprocessed so operators can see and replay it.
func (l *Ledger) RecordFailure(webhookEventID uuid.UUID, errorMessage string) error {
	return l.db.Model(&models.WebhookEvent{}).
		Where("id = ?", webhookEventID).
		Updates(map[string]interface{}{
			"retry_count":   gorm.Expr("retry_count + 1"),
			"error_message": errorMessage,
			"updated_at":    time.Now(),
		}).Error
}
