// Package eventhub is the client-side half of the durable per-consumer
// fan-out queue of §4.2. The durable half (consumer rows, event rows,
// fan-out, idle cleanup) lives in internal/store; Consumer adds the
// liveness bookkeeping a replicator instance needs on top of it —
// opportunistic lastUsedAt refresh, mirroring the teacher's
// refresh_manager.go freshness-counter idiom instead of refreshing on
// every single pull.
package eventhub

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/replane-dev/replane-sub002/internal/apierr"
	"github.com/replane-dev/replane-sub002/internal/config"
	"github.com/replane-dev/replane-sub002/internal/store"
)

// Consumer is one replicator's durable queue handle for a topic.
type Consumer struct {
	hub   store.EventHub
	topic string
	id    string
	cfg   config.EventHubConfig
	log   *slog.Logger

	pullCount uint64
}

// Create registers a brand new consumer for topic.
func Create(ctx context.Context, hub store.EventHub, topic string, cfg config.EventHubConfig, log *slog.Logger) (*Consumer, error) {
	id, err := hub.CreateConsumer(ctx, topic)
	if err != nil {
		return nil, err
	}
	return &Consumer{hub: hub, topic: topic, id: id, cfg: cfg, log: log}, nil
}

// Restore attempts to resume a previously known consumer id. alive is
// false when the consumer was garbage collected (idle past
// ConsumerIdleTTL) and the caller must fall back to a full dump
// against a freshly created consumer.
func Restore(ctx context.Context, hub store.EventHub, topic, consumerID string, cfg config.EventHubConfig, log *slog.Logger) (c *Consumer, alive bool, err error) {
	alive, err = hub.TryRestoreConsumer(ctx, topic, consumerID)
	if err != nil || !alive {
		return nil, alive, err
	}
	return &Consumer{hub: hub, topic: topic, id: consumerID, cfg: cfg, log: log}, true, nil
}

// ID returns the durable consumer id, to be persisted by the caller so
// a restart can Restore instead of re-dumping.
func (c *Consumer) ID() string {
	return c.id
}

// Pull returns up to n undelivered events. Every ReportFrequency pulls
// it opportunistically refreshes lastUsedAt so an active consumer
// never gets garbage collected out from under it; a refresh failure is
// logged and otherwise ignored; the pull itself still fails with
// *apierr.ErrConsumerDestroyed if the hub reports the consumer gone.
func (c *Consumer) Pull(ctx context.Context, n int) ([]store.Event, error) {
	if c.cfg.ReportFrequency > 0 {
		count := atomic.AddUint64(&c.pullCount, 1)
		if count%uint64(c.cfg.ReportFrequency) == 0 {
			alive, err := c.hub.TryRestoreConsumer(ctx, c.topic, c.id)
			if err != nil {
				c.log.Warn("event hub consumer refresh failed", "consumer_id", c.id, "topic", c.topic, "error", err)
			} else if !alive {
				return nil, &apierr.ErrConsumerDestroyed{ConsumerID: c.id}
			}
		}
	}

	return c.hub.Pull(ctx, c.id, n)
}

// Ack deletes the given event ids from this consumer's queue.
func (c *Consumer) Ack(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return c.hub.Ack(ctx, c.id, ids)
}

// Destroy deletes the consumer row, dropping its entire queue.
func (c *Consumer) Destroy(ctx context.Context) error {
	return c.hub.DestroyConsumer(ctx, c.id)
}
