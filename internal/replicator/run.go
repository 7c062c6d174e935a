package replicator

import (
	"context"
	"errors"
	"time"

	"github.com/replane-dev/replane-sub002/internal/apierr"
	"github.com/replane-dev/replane-sub002/internal/asyncworker"
	"github.com/replane-dev/replane-sub002/internal/domain"
	"github.com/replane-dev/replane-sub002/internal/eventhub"
	"github.com/replane-dev/replane-sub002/internal/replica"
)

// Start performs the restore-or-dump sequence synchronously, then
// launches the steady loop in the background. Returns once the
// replica is caught up and the loop has taken over.
func (r *Replicator[E]) Start(ctx context.Context) error {
	if err := r.resync(ctx); err != nil {
		return err
	}

	r.worker = asyncworker.New(ctx, r.step, r.handleTaskError, r.log)
	r.worker.Start()
	return nil
}

// Stop halts the steady loop. An in-flight step is allowed to finish.
func (r *Replicator[E]) Stop() {
	if r.worker != nil {
		r.worker.Stop()
	}
}

// resync restores the last known consumer if it is still alive,
// otherwise clears the replica and performs a full dump against a
// freshly created consumer. The dump upserts one DumpBatchSize batch
// per critical section, so a concurrent reader can see the replica
// empty or partly filled until resync returns.
func (r *Replicator[E]) resync(ctx context.Context) error {
	if consumerID := r.state.GetConsumerID(); consumerID != "" {
		c, alive, err := eventhub.Restore(ctx, r.hub, r.topic, consumerID, r.ehCfg, r.log)
		if err != nil {
			return err
		}
		if alive {
			r.consumer = c
			return nil
		}
		r.log.Warn("event hub consumer was garbage collected, resyncing", "consumer_id", consumerID, "topic", r.topic)
	}

	r.state.Clear()

	c, err := eventhub.Create(ctx, r.hub, r.topic, r.ehCfg, r.log)
	if err != nil {
		return err
	}
	r.consumer = c
	r.state.SetConsumerID(c.ID())

	ids, err := r.source.GetConfigAggregateIDs(ctx)
	if err != nil {
		return err
	}

	batchSize := r.cfg.DumpBatchSize
	if batchSize <= 0 {
		batchSize = len(ids)
		if batchSize == 0 {
			batchSize = 1
		}
	}
	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		aggs, err := r.source.GetConfigAggregatesByIDs(ctx, ids[start:end])
		if err != nil {
			return err
		}
		r.sink.UpsertConfigs(aggs)
	}

	return nil
}

// step is one iteration of the steady loop: pull, resolve, apply,
// emit, ack. It is run by the asyncworker.Worker on Start and every
// Wakeup thereafter.
func (r *Replicator[E]) step(ctx context.Context) error {
	events, err := r.consumer.Pull(ctx, r.cfg.StepBatchSize)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		r.scheduleNext(r.cfg.StepInterval)
		return nil
	}

	ids := make([]string, 0, len(events))
	seen := make(map[string]struct{}, len(events))
	ackIDs := make([]string, len(events))
	for i, ev := range events {
		ackIDs[i] = ev.ID
		if _, ok := seen[ev.Data.EntityID]; ok {
			continue
		}
		seen[ev.Data.EntityID] = struct{}{}
		ids = append(ids, ev.Data.EntityID)
	}

	aggs, err := r.source.GetConfigAggregatesByIDs(ctx, ids)
	if err != nil {
		return err
	}

	found := make(map[string]struct{}, len(aggs))
	for _, agg := range aggs {
		found[agg.EntityID()] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := found[id]; ok {
			continue
		}
		projectID, name := r.lookupLocation(id)
		if r.sink.DeleteConfig(id) {
			r.emit(domain.ChangeDeleted, id, projectID, name)
		}
	}

	if len(aggs) > 0 {
		results := r.sink.UpsertConfigs(aggs)
		for i, res := range results {
			projectID, name := r.entityLocation(aggs[i])
			switch res {
			case replica.UpsertCreated:
				r.emit(domain.ChangeCreated, aggs[i].EntityID(), projectID, name)
			case replica.UpsertUpdated:
				r.emit(domain.ChangeUpdated, aggs[i].EntityID(), projectID, name)
			}
		}
	}

	if err := r.consumer.Ack(ctx, ackIDs); err != nil {
		return err
	}

	if len(events) >= r.cfg.StepBatchSize {
		r.scheduleNext(0)
	} else {
		r.scheduleNext(r.cfg.StepInterval)
	}
	return nil
}

func (r *Replicator[E]) scheduleNext(delay time.Duration) {
	if delay <= 0 {
		r.worker.Wakeup()
		return
	}
	time.AfterFunc(delay, func() {
		r.worker.Wakeup()
	})
}

func (r *Replicator[E]) emit(kind domain.ChangeKind, entityID, projectID, name string) {
	if r.onChange == nil {
		return
	}
	r.onChange(domain.ChangeEvent{Kind: kind, EntityID: entityID, ProjectID: projectID, ConfigName: name})
}

// entityLocation extracts (projectId, name) from a freshly resolved
// entity. E is always domain.ConfigAggregate in this repository; the
// type assertion is a no-op there and simply fails closed (empty
// strings) if the engine is ever instantiated for a different topic.
func (r *Replicator[E]) entityLocation(e E) (projectID, name string) {
	if agg, ok := any(e).(domain.ConfigAggregate); ok {
		return agg.Config.ProjectID, agg.Config.Name
	}
	return "", ""
}

// lookupLocation resolves a config's (projectId, name) from the
// replica just before it is deleted, so the deletion notification can
// still be routed to the right project's subscribers.
type locatable interface {
	ConfigByID(id string) (replica.ConfigReplica, bool)
}

func (r *Replicator[E]) lookupLocation(id string) (projectID, name string) {
	if l, ok := any(r.sink).(locatable); ok {
		if cfg, ok := l.ConfigByID(id); ok {
			return cfg.ProjectID, cfg.Name
		}
	}
	return "", ""
}

// handleTaskError classifies a step failure. A destroyed consumer is
// fatal: the loop stops and the caller must restart the replicator
// from Start to resync.
func (r *Replicator[E]) handleTaskError(err error) {
	var destroyed *apierr.ErrConsumerDestroyed
	if errors.As(err, &destroyed) {
		r.log.Error("event hub consumer destroyed, stopping replicator", "topic", r.topic, "error", err)
		r.Stop()
		if r.onFatal != nil {
			r.onFatal(err)
		}
		return
	}
	r.log.Warn("replicator step failed, will retry", "topic", r.topic, "error", err)
	r.scheduleNext(r.cfg.StepInterval)
}
