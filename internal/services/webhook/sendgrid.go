package webhook

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/heartlink/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SendGridEvent is one event from the email provider's webhook batch
type SendGridEvent struct {
	Email       string `json:"email"`
	Timestamp   int64  `json:"timestamp"`
	Event       string `json:"event"`
	SGEventID   string `json:"sg_event_id"`
	SGMessageID string `json:"sg_message_id,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Status      string `json:"status,omitempty"`
	Response    string `json:"response,omitempty"`
	URL         string `json:"url,omitempty"`
	UserAgent   string `json:"useragent,omitempty"`
	IP          string `json:"ip,omitempty"`
}

// SendGridProcessor dispatches email provider webhook events to per-type
// handlers, tracking every outcome in the ledger
type SendGridProcessor struct {
	db     *gorm.DB
	ledger *Ledger
}

// NewSendGridProcessor creates a SendGrid webhook processor
func NewSendGridProcessor(db *gorm.DB, ledger *Ledger) *SendGridProcessor {
	return &SendGridProcessor{db: db, ledger: ledger}
}

// ProcessBatch records and dispatches a verified batch of events. One
// event's handler failure never blocks the rest of the batch: the failure
// is logged to the ledger with a bumped retry count and the loop continues.
func (p *SendGridProcessor) ProcessBatch(events []SendGridEvent, signature string) {
	log.Printf("Processing SendGrid webhook batch: %d events", len(events))

	for _, event := range events {
		payload := models.JSON{
			"email":         event.Email,
			"timestamp":     event.Timestamp,
			"event":         event.Event,
			"sg_event_id":   event.SGEventID,
			"sg_message_id": event.SGMessageID,
			"reason":        event.Reason,
			"status":        event.Status,
			"url":           event.URL,
		}

		record, created, err := p.ledger.RecordEvent(
			models.WebhookProviderSendGrid, event.Event, event.SGEventID, payload, signature, true)
		if err != nil {
			log.Printf("Failed to record SendGrid event %s: %v", event.SGEventID, err)
			continue
		}
		if !created {
			log.Printf("Duplicate SendGrid event ignored: %s (%s)", event.SGEventID, event.Event)
			continue
		}

		if err := p.dispatch(record.ID, event); err != nil {
			log.Printf("SendGrid event processing error: %s (%s): %v", event.SGEventID, event.Event, err)
			if ferr := p.ledger.RecordFailure(record.ID, err.Error()); ferr != nil {
				log.Printf("Failed to record failure for event %s: %v", record.ID, ferr)
			}
			continue
		}

		if err := p.ledger.MarkProcessed(record.ID); err != nil {
			log.Printf("Failed to mark event %s processed: %v", record.ID, err)
		}
	}
}

// dispatch routes one event to its type-specific handler. Unknown event
// types are recorded as handled no-ops, never errors.
func (p *SendGridProcessor) dispatch(eventID uuid.UUID, event SendGridEvent) error {
	switch event.Event {
	case "bounce":
		return p.handleBounce(eventID, event)
	case "dropped":
		return p.handleDropped(eventID, event)
	case "spamreport":
		return p.handleSpamReport(eventID, event)
	case "unsubscribe":
		return p.handleUnsubscribe(eventID, event)
	case "open":
		return p.handleOpen(eventID, event)
	case "click":
		return p.handleClick(eventID, event)
	case "delivered":
		return p.handleDelivered(eventID, event)
	default:
		log.Printf("Unhandled SendGrid event type: %s", event.Event)
		p.ledger.LogAction(eventID, "unhandled_event", models.WebhookLogStatusSuccess,
			models.JSON{"event_type": event.Event}, "")
		return nil
	}
}

// handleBounce processes a bounce. Hard bounces (5.x.x status or an
// "invalid" reason) mark the address unverified and suppress it; soft
// bounces only record the reason.
func (p *SendGridProcessor) handleBounce(eventID uuid.UUID, event SendGridEvent) error {
	hardBounce := strings.HasPrefix(event.Status, "5.") ||
		strings.Contains(strings.ToLower(event.Reason), "invalid")

	now := time.Now()
	reason := event.Reason
	if reason == "" {
		if hardBounce {
			reason = "Hard bounce"
		} else {
			reason = "Soft bounce"
		}
	}

	updates := map[string]interface{}{
		"email_bounce_reason": reason,
		"email_bounced_at":    now,
		"updated_at":          now,
	}
	if hardBounce {
		updates["email_verified"] = false
	}

	if err := p.db.Model(&models.User{}).
		Where("email = ?", event.Email).
		Updates(updates).Error; err != nil {
		p.ledger.LogAction(eventID, "handle_bounce", models.WebhookLogStatusFailed, nil, err.Error())
		return fmt.Errorf("failed to update bounced user: %w", err)
	}

	if hardBounce {
		if err := p.suppress(event.Email, "hard_bounce"); err != nil {
			p.ledger.LogAction(eventID, "handle_bounce", models.WebhookLogStatusFailed, nil, err.Error())
			return err
		}
		log.Printf("Email hard bounce - address suppressed: %s (%s)", event.Email, reason)
	} else {
		log.Printf("Email soft bounce logged: %s (%s)", event.Email, reason)
	}

	p.ledger.LogAction(eventID, "handle_bounce", models.WebhookLogStatusSuccess, models.JSON{
		"email":  event.Email,
		"reason": reason,
		"status": event.Status,
	}, "")
	return nil
}

// handleDropped records that the provider refused to send the message
func (p *SendGridProcessor) handleDropped(eventID uuid.UUID, event SendGridEvent) error {
	reason := event.Reason
	if reason == "" {
		reason = "Dropped by provider"
	}

	log.Printf("Email dropped by provider: %s (%s)", event.Email, reason)

	now := time.Now()
	if err := p.db.Model(&models.User{}).
		Where("email = ?", event.Email).
		Updates(map[string]interface{}{
			"email_drop_reason": reason,
			"email_dropped_at":  now,
			"updated_at":        now,
		}).Error; err != nil {
		p.ledger.LogAction(eventID, "handle_dropped", models.WebhookLogStatusFailed, nil, err.Error())
		return fmt.Errorf("failed to update dropped user: %w", err)
	}

	p.ledger.LogAction(eventID, "handle_dropped", models.WebhookLogStatusSuccess, models.JSON{
		"email":  event.Email,
		"reason": reason,
	}, "")
	return nil
}

// handleSpamReport suppresses the address immediately
func (p *SendGridProcessor) handleSpamReport(eventID uuid.UUID, event SendGridEvent) error {
	if err := p.suppress(event.Email, "spam_report"); err != nil {
		p.ledger.LogAction(eventID, "handle_spam_report", models.WebhookLogStatusFailed, nil, err.Error())
		return err
	}

	now := time.Now()
	if err := p.db.Model(&models.User{}).
		Where("email = ?", event.Email).
		Updates(map[string]interface{}{
			"email_verified":   false,
			"spam_reported_at": now,
			"updated_at":       now,
		}).Error; err != nil {
		p.ledger.LogAction(eventID, "handle_spam_report", models.WebhookLogStatusFailed, nil, err.Error())
		return fmt.Errorf("failed to update spam-reporting user: %w", err)
	}

	log.Printf("User reported email as spam: %s", event.Email)

	p.ledger.LogAction(eventID, "handle_spam_report", models.WebhookLogStatusSuccess,
		models.JSON{"email": event.Email}, "")
	return nil
}

// handleUnsubscribe adds the address to the suppression list
func (p *SendGridProcessor) handleUnsubscribe(eventID uuid.UUID, event SendGridEvent) error {
	if err := p.suppress(event.Email, "user_unsubscribe"); err != nil {
		p.ledger.LogAction(eventID, "handle_unsubscribe", models.WebhookLogStatusFailed, nil, err.Error())
		return err
	}

	log.Printf("User unsubscribed from emails: %s", event.Email)

	p.ledger.LogAction(eventID, "handle_unsubscribe", models.WebhookLogStatusSuccess,
		models.JSON{"email": event.Email}, "")
	return nil
}

// handleOpen tracks an email open. Tracking loss is non-critical: errors are
// swallowed and never bump the event's retry count.
func (p *SendGridProcessor) handleOpen(eventID uuid.UUID, event SendGridEvent) error {
	if err := p.track(event, "open"); err != nil {
		log.Printf("Email open tracking error (ignored): %v", err)
		return nil
	}

	p.ledger.LogAction(eventID, "track_open", models.WebhookLogStatusSuccess, models.JSON{
		"email":         event.Email,
		"sg_message_id": event.SGMessageID,
	}, "")
	return nil
}

// handleClick tracks an email click; same non-critical policy as opens
func (p *SendGridProcessor) handleClick(eventID uuid.UUID, event SendGridEvent) error {
	if err := p.track(event, "click"); err != nil {
		log.Printf("Email click tracking error (ignored): %v", err)
		return nil
	}

	p.ledger.LogAction(eventID, "track_click", models.WebhookLogStatusSuccess, models.JSON{
		"email":         event.Email,
		"url":           event.URL,
		"sg_message_id": event.SGMessageID,
	}, "")
	return nil
}

// handleDelivered tracks a successful delivery; non-critical
func (p *SendGridProcessor) handleDelivered(eventID uuid.UUID, event SendGridEvent) error {
	if err := p.track(event, "delivered"); err != nil {
		log.Printf("Email delivered tracking error (ignored): %v", err)
		return nil
	}

	p.ledger.LogAction(eventID, "handle_delivered", models.WebhookLogStatusSuccess, models.JSON{
		"email":         event.Email,
		"sg_message_id": event.SGMessageID,
	}, "")
	return nil
}

// suppress adds an address to the suppression list, keeping the first
// recorded reason on repeat suppressions
func (p *SendGridProcessor) suppress(email, reason string) error {
	suppression := models.EmailSuppression{
		Email:          email,
		Reason:         reason,
		UnsubscribedAt: time.Now(),
	}
	err := p.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(&suppression).Error
	if err != nil {
		return fmt.Errorf("failed to suppress email: %w", err)
	}
	return nil
}

// track appends an engagement analytics row
func (p *SendGridProcessor) track(event SendGridEvent, eventType string) error {
	row := models.EmailTrackingEvent{
		Email:      event.Email,
		EventType:  eventType,
		MessageID:  event.SGMessageID,
		URL:        event.URL,
		UserAgent:  event.UserAgent,
		IPAddress:  event.IP,
		OccurredAt: time.Unix(event.Timestamp, 0),
	}
	return p.db.Create(&row).Error
}

// EngagementStats summarizes one address's email engagement
type EngagementStats struct {
	Opens          int64      `json:"opens"`
	Clicks         int64      `json:"clicks"`
	EmailsReceived int64      `json:"emails_received"`
	LastEngagement *time.Time `json:"last_engagement,omitempty"`
}

// GetEngagementStats aggregates open/click engagement for an address
func (p *SendGridProcessor) GetEngagementStats(email string) (*EngagementStats, error) {
	var stats EngagementStats
	row := p.db.Model(&models.EmailTrackingEvent{}).
		Select(`COALESCE(SUM(CASE WHEN event_type = 'open' THEN 1 ELSE 0 END), 0) AS opens,
			COALESCE(SUM(CASE WHEN event_type = 'click' THEN 1 ELSE 0 END), 0) AS clicks,
			COUNT(DISTINCT message_id) AS emails_received`).
		Where("email = ?", email).
		Row()
	if err := row.Scan(&stats.Opens, &stats.Clicks, &stats.EmailsReceived); err != nil {
		return nil, fmt.Errorf("failed to aggregate engagement stats: %w", err)
	}

	var latest models.EmailTrackingEvent
	err := p.db.Where("email = ? AND event_type IN ?", email, []string{"open", "click"}).
		Order("occurred_at desc").
		First(&latest).Error
	if err == nil {
		stats.LastEngagement = &latest.OccurredAt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load last engagement: %w", err)
	}

	return &stats, nil
}

// IsEmailSuppressed reports whether an address is on the suppression list
func (p *SendGridProcessor) IsEmailSuppressed(email string) (bool, error) {
	var count int64
	if err := p.db.Model(&models.EmailSuppression{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check suppression list: %w", err)
	}
	return count > 0, nil
}
