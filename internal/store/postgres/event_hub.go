package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/replane-dev/replane-sub002/internal/apierr"
	"github.com/replane-dev/replane-sub002/internal/domain"
	"github.com/replane-dev/replane-sub002/internal/store"
)

// CreateConsumer inserts a new consumer row for topic.
func (a *Adapter) CreateConsumer(ctx context.Context, topic string) (string, error) {
	id := uuid.NewString()
	_, err := a.pool.Exec(ctx, `
		INSERT INTO event_consumers (id, topic, created_at, last_used_at)
		VALUES ($1, $2, now(), now())`, id, topic)
	if err != nil {
		return "", fmt.Errorf("creating consumer: %w", err)
	}
	return id, nil
}

// TryRestoreConsumer refreshes last_used_at and reports whether the
// consumer row still exists.
func (a *Adapter) TryRestoreConsumer(ctx context.Context, topic, consumerID string) (bool, error) {
	tag, err := a.pool.Exec(ctx, `
		UPDATE event_consumers SET last_used_at = now()
		WHERE id = $1 AND topic = $2`, consumerID, topic)
	if err != nil {
		return false, fmt.Errorf("restoring consumer %s: %w", consumerID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// DestroyConsumer deletes the consumer row; events cascade.
func (a *Adapter) DestroyConsumer(ctx context.Context, consumerID string) error {
	_, err := a.pool.Exec(ctx, `DELETE FROM event_consumers WHERE id = $1`, consumerID)
	if err != nil {
		return fmt.Errorf("destroying consumer %s: %w", consumerID, err)
	}
	return nil
}

// Publish fans event out to a new row for every live consumer of
// topic, then every PublishCleanupFrequency calls deletes consumers
// idle past ConsumerIdleTTL.
func (a *Adapter) Publish(ctx context.Context, topic string, event domain.TopicEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}

	_, err = a.pool.Exec(ctx, `
		INSERT INTO events (consumer_id, data, created_at)
		SELECT id, $2, now() FROM event_consumers WHERE topic = $1`, topic, data)
	if err != nil {
		return fmt.Errorf("publishing event to topic %s: %w", topic, err)
	}

	if a.publishCleanupFrequency > 0 {
		n := atomic.AddUint64(&a.publishCount, 1)
		if n%uint64(a.publishCleanupFrequency) == 0 {
			if _, err := a.cleanupIdleConsumers(ctx, topic); err != nil {
				a.log.Warn("consumer cleanup failed", "topic", topic, "error", err)
			}
		}
	}
	return nil
}

func (a *Adapter) cleanupIdleConsumers(ctx context.Context, topic string) (int64, error) {
	cutoff := time.Now().Add(-a.consumerIdleTTL)
	tag, err := a.pool.Exec(ctx, `
		DELETE FROM event_consumers WHERE topic = $1 AND last_used_at < $2`, topic, cutoff)
	if err != nil {
		return 0, err
	}
	if n := tag.RowsAffected(); n > 0 {
		a.log.Info("cleaned up idle consumers", "topic", topic, "count", n)
		return n, nil
	}
	return 0, nil
}

// Pull returns up to n undelivered events in created_at ASC order.
// Per §4.2, a consumer that no longer exists fails with
// apierr.ErrConsumerDestroyed rather than silently returning nothing.
func (a *Adapter) Pull(ctx context.Context, consumerID string, n int) ([]store.Event, error) {
	var exists bool
	if err := a.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM event_consumers WHERE id = $1)`, consumerID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking consumer %s: %w", consumerID, err)
	}
	if !exists {
		return nil, &apierr.ErrConsumerDestroyed{ConsumerID: consumerID}
	}

	rows, err := a.pool.Query(ctx, `
		SELECT id, data, created_at FROM events
		WHERE consumer_id = $1 ORDER BY created_at ASC LIMIT $2`, consumerID, n)
	if err != nil {
		return nil, fmt.Errorf("pulling events for consumer %s: %w", consumerID, err)
	}
	defer rows.Close()

	var out []store.Event
	for rows.Next() {
		var ev store.Event
		var id int64
		var raw []byte
		if err := rows.Scan(&id, &raw, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		if err := json.Unmarshal(raw, &ev.Data); err != nil {
			return nil, fmt.Errorf("decoding event payload: %w", err)
		}
		ev.ID = fmt.Sprintf("%d", id)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Ack deletes the acknowledged event rows for consumerID.
func (a *Adapter) Ack(ctx context.Context, consumerID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := a.pool.Exec(ctx, `
		DELETE FROM events WHERE consumer_id = $1 AND id = ANY($2::bigint[])`, consumerID, ids)
	if err != nil {
		return fmt.Errorf("acking events for consumer %s: %w", consumerID, err)
	}
	return nil
}
