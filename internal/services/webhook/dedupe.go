package webhook

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// DedupeCache is a Redis fast path in front of the webhook_events unique
// constraint. It short-circuits obvious re-deliveries without a database
// round trip; it is never the source of truth.
type DedupeCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDedupeCache creates a dedupe cache. A zero ttl defaults to 24 hours,
// comfortably past provider re-delivery windows.
func NewDedupeCache(client *redis.Client, ttl time.Duration) *DedupeCache {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &DedupeCache{client: client, ttl: ttl}
}

// Seen reports whether this provider event ID has been recorded before.
// Redis errors are treated as "not seen" so the database constraint decides.
func (c *DedupeCache) Seen(provider, eventID string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	n, err := c.client.Exists(ctx, dedupeKey(provider, eventID)).Result()
	if err != nil {
		log.Printf("Webhook dedupe cache unavailable: %v", err)
		return false
	}
	return n > 0
}

// MarkSeen caches the event ID after the ledger row exists. Marking only
// recorded events keeps a failed insert retryable on provider re-delivery.
func (c *DedupeCache) MarkSeen(provider, eventID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	if err := c.client.Set(ctx, dedupeKey(provider, eventID), 1, c.ttl).Err(); err != nil {
		log.Printf("Webhook dedupe cache unavailable: %v", err)
	}
}

func dedupeKey(provider, eventID string) string {
	return "webhook:seen:" + provider + ":" + eventID
}
