package eventhub

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replane-dev/replane-sub002/internal/apierr"
	"github.com/replane-dev/replane-sub002/internal/config"
	"github.com/replane-dev/replane-sub002/internal/domain"
	"github.com/replane-dev/replane-sub002/internal/store"
)

// fakeHub is a minimal in-memory store.EventHub used to exercise
// Consumer's liveness-refresh bookkeeping without a database.
type fakeHub struct {
	nextID       int
	alive        map[string]bool
	restoreCalls int
	queues       map[string][]store.Event
}

func newFakeHub() *fakeHub {
	return &fakeHub{alive: map[string]bool{}, queues: map[string][]store.Event{}}
}

func (h *fakeHub) CreateConsumer(ctx context.Context, topic string) (string, error) {
	h.nextID++
	id := topic + "-consumer"
	h.alive[id] = true
	return id, nil
}

func (h *fakeHub) TryRestoreConsumer(ctx context.Context, topic, consumerID string) (bool, error) {
	h.restoreCalls++
	return h.alive[consumerID], nil
}

func (h *fakeHub) DestroyConsumer(ctx context.Context, consumerID string) error {
	delete(h.alive, consumerID)
	delete(h.queues, consumerID)
	return nil
}

func (h *fakeHub) Publish(ctx context.Context, topic string, event domain.TopicEvent) error {
	return nil
}

func (h *fakeHub) Pull(ctx context.Context, consumerID string, n int) ([]store.Event, error) {
	if !h.alive[consumerID] {
		return nil, &apierr.ErrConsumerDestroyed{ConsumerID: consumerID}
	}
	q := h.queues[consumerID]
	if len(q) > n {
		q = q[:n]
	}
	return q, nil
}

func (h *fakeHub) Ack(ctx context.Context, consumerID string, ids []string) error {
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConsumer_CreateThenRestore(t *testing.T) {
	hub := newFakeHub()
	cfg := config.EventHubConfig{ReportFrequency: 2}

	c, err := Create(context.Background(), hub, "configs", cfg, testLogger())
	require.NoError(t, err)
	require.NotEmpty(t, c.ID())

	restored, alive, err := Restore(context.Background(), hub, "configs", c.ID(), cfg, testLogger())
	require.NoError(t, err)
	assert.True(t, alive)
	assert.Equal(t, c.ID(), restored.ID())
}

func TestConsumer_RestoreOfDeadConsumerReportsNotAlive(t *testing.T) {
	hub := newFakeHub()
	cfg := config.EventHubConfig{ReportFrequency: 2}

	c, err := Create(context.Background(), hub, "configs", cfg, testLogger())
	require.NoError(t, err)
	require.NoError(t, hub.DestroyConsumer(context.Background(), c.ID()))

	_, alive, err := Restore(context.Background(), hub, "configs", c.ID(), cfg, testLogger())
	require.NoError(t, err)
	assert.False(t, alive)
}

func TestConsumer_PullRefreshesEveryReportFrequencyCalls(t *testing.T) {
	hub := newFakeHub()
	cfg := config.EventHubConfig{ReportFrequency: 3}

	c, err := Create(context.Background(), hub, "configs", cfg, testLogger())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := c.Pull(context.Background(), 10)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, hub.restoreCalls, "refresh should fire exactly once every ReportFrequency pulls")
}

func TestConsumer_PullFailsWhenConsumerDestroyedMidway(t *testing.T) {
	hub := newFakeHub()
	cfg := config.EventHubConfig{ReportFrequency: 1}

	c, err := Create(context.Background(), hub, "configs", cfg, testLogger())
	require.NoError(t, err)

	hub.alive[c.ID()] = false

	_, err = c.Pull(context.Background(), 10)
	var destroyed *apierr.ErrConsumerDestroyed
	require.ErrorAs(t, err, &destroyed)
}

func TestConsumer_AckNoOpOnEmptyIDs(t *testing.T) {
	hub := newFakeHub()
	cfg := config.EventHubConfig{}
	c, err := Create(context.Background(), hub, "configs", cfg, testLogger())
	require.NoError(t, err)

	assert.NoError(t, c.Ack(context.Background(), nil))
}
