package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/heartlink/backend/internal/config"
	"github.com/heartlink/backend/internal/services/webhook"
	"github.com/heartlink/backend/internal/utils"
)

// SendGrid event-webhook signature headers
const (
	sendGridSignatureHeader = "X-Twilio-Email-Event-Webhook-Signature"
	sendGridTimestampHeader = "X-Twilio-Email-Event-Webhook-Timestamp"
)

// Manus webhook signature headers
const (
	manusSignatureHeader = "X-Manus-Signature"
	manusTimestampHeader = "X-Manus-Timestamp"
)

// WebhookHandler handles webhooks from external providers. Per webhook
// convention it acknowledges accepted batches with 200 even when individual
// events fail: retry state lives in the ledger, not the HTTP response.
type WebhookHandler struct {
	sendgrid *webhook.SendGridProcessor
	manus    *webhook.ManusProcessor
	cfg      *config.Config
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(sendgrid *webhook.SendGridProcessor, manus *webhook.ManusProcessor, cfg *config.Config) *WebhookHandler {
	return &WebhookHandler{sendgrid: sendgrid, manus: manus, cfg: cfg}
}

// SendGridWebhook ingests a batch of email events. The batch signature is
// verified once before any event is processed.
func (h *WebhookHandler) SendGridWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	signature := c.GetHeader(sendGridSignatureHeader)
	timestamp := c.GetHeader(sendGridTimestampHeader)

	if _, err := webhook.VerifyBatchSignature(h.cfg.SendGrid.WebhookPublicKey, signature, timestamp, body); err != nil {
		log.Printf("Rejected SendGrid webhook batch: signature verification failed")
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid signature"})
		return
	}

	var events []webhook.SendGridEvent
	if err := json.Unmarshal(body, &events); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event payload"})
		return
	}

	h.sendgrid.ProcessBatch(events, signature)

	c.JSON(http.StatusOK, gin.H{"received": len(events)})
}

// ManusWebhook ingests one task-automation event, verified with the shared
// HMAC secret over timestamp + body
func (h *WebhookHandler) ManusWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	signature := c.GetHeader(manusSignatureHeader)
	timestamp := c.GetHeader(manusTimestampHeader)

	verified := true
	if h.cfg.Manus.WebhookSecret == "" {
		log.Printf("WARNING: Manus webhook verification DISABLED - no webhook secret configured. Do not run this way in production.")
		verified = false
	} else if !utils.VerifyTimestampedHMAC(timestamp, body, signature, h.cfg.Manus.WebhookSecret) {
		log.Printf("Rejected Manus webhook: signature verification failed")
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid signature"})
		return
	}

	var event webhook.ManusEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event payload"})
		return
	}

	// Handler failures are recorded in the ledger; the provider still gets
	// a 200 so it does not hammer us with re-deliveries.
	if err := h.manus.Process(event, signature, verified); err != nil {
		log.Printf("Manus webhook processing error: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
