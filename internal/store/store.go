// Package store defines the durable-store adapter interface (§6):
// the narrow surface the replicator and event hub consume. The only
// implementation in this repository is Postgres (internal/store/postgres);
// pluggable storage engines are an explicit Non-goal.
package store

import (
	"context"
	"time"

	"github.com/replane-dev/replane-sub002/internal/domain"
)

// ConfigSource is the §4.3 "source" collaborator for the configs
// replicator: it can list every config id and resolve a batch of them
// into full aggregates in one call.
type ConfigSource interface {
	// GetConfigAggregateIDs returns every config id visible to the
	// replica (every project it serves, per the "no partial replicas"
	// Non-goal).
	GetConfigAggregateIDs(ctx context.Context) ([]string, error)

	// GetConfigAggregatesByIDs resolves ids to aggregates. An id with
	// no matching config is simply omitted from the result — the
	// replicator interprets a missing id as a deletion.
	GetConfigAggregatesByIDs(ctx context.Context, ids []string) ([]domain.ConfigAggregate, error)
}

// Event is one row of the durable events table as seen by a consumer.
type Event struct {
	ID        string
	Data      domain.TopicEvent
	CreatedAt time.Time
}

// EventHub is the durable per-consumer fan-out queue of §4.2.
type EventHub interface {
	// CreateConsumer inserts a new consumer row for topic and returns
	// its id.
	CreateConsumer(ctx context.Context, topic string) (string, error)

	// TryRestoreConsumer refreshes lastUsedAt for an existing consumer
	// and reports whether it is still alive (false if it was garbage
	// collected).
	TryRestoreConsumer(ctx context.Context, topic, consumerID string) (bool, error)

	// DestroyConsumer deletes the consumer row; its queued events
	// cascade-delete with it.
	DestroyConsumer(ctx context.Context, consumerID string) error

	// Publish appends event as a new row for every live consumer of
	// topic. Every PublishCleanupFrequency calls it also deletes
	// consumers idle past ConsumerIdleTTL.
	Publish(ctx context.Context, topic string, event domain.TopicEvent) error

	// Pull returns up to n undelivered events for consumerID in
	// created_at ASC order. It fails with *apierr.ErrConsumerDestroyed
	// if the consumer no longer exists.
	Pull(ctx context.Context, consumerID string, n int) ([]Event, error)

	// Ack deletes the given event ids for consumerID.
	Ack(ctx context.Context, consumerID string, ids []string) error
}

// Store is the full durable-store surface consumed by the core.
type Store interface {
	ConfigSource
	EventHub
}
