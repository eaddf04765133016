package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/flowiq/scheduling-platform/pkg/logging"
)

// Channel returns the redis pub/sub channel carrying one tenant's slot feed.
func Channel(tenantID string) string {
	return "slots:" + tenantID
}

// Publisher broadcasts slot change events over redis pub/sub. A nil
// Publisher drops events silently so the ledger works without redis.
type Publisher struct {
	client *redis.Client
	logger *logging.Logger
}

// NewPublisher creates a publisher, or nil when redis is not configured.
func NewPublisher(client *redis.Client, logger *logging.Logger) *Publisher {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{client: client, logger: logger.Component("realtime")}
}

// PublishSlotChange sends one event on the tenant's channel. Failures are
// logged, not returned: the booking already committed and a missed feed
// update must not fail the request.
func (p *Publisher) PublishSlotChange(ctx context.Context, ev SlotEvent) {
	if p == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("marshal slot event", "error", err, "event_type", ev.EventType)
		return
	}
	if err := p.client.Publish(ctx, Channel(ev.TenantID), payload).Err(); err != nil {
		p.logger.Error("publish slot event", "error", err,
			"event_type", ev.EventType, "tenant_id", ev.TenantID)
		return
	}
	p.logger.Debug("slot event published",
		"event_type", ev.EventType, "tenant_id", ev.TenantID, "slot_id", ev.SlotID)
}

// Subscribe opens a redis subscription for one tenant's slot feed.
func Subscribe(ctx context.Context, client *redis.Client, tenantID string) (*redis.PubSub, error) {
	if client == nil {
		return nil, fmt.Errorf("realtime: redis client required")
	}
	sub := client.Subscribe(ctx, Channel(tenantID))
	// Force the subscription to be established before returning.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("realtime: subscribe %s: %w", tenantID, err)
	}
	return sub, nil
}
