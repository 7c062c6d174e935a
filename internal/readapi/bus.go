package readapi

import (
	"strconv"
	"sync"

	"github.com/replane-dev/replane-sub002/internal/domain"
	"github.com/replane-dev/replane-sub002/internal/metrics"
)

const subscriberBuffer = 64

// subscriber is one open /events connection, scoped to a single
// environment since the events it receives carry that environment's
// value/overrides.
type subscriber struct {
	id            string
	environmentID string
	ch            chan domain.StreamEvent
}

// bus fans out stream events to per-project subscribers, adapted from
// the teacher's realtime.DefaultEventBus: a map of subscribers guarded
// by one RWMutex, publish is non-blocking. Unlike the teacher's bus,
// a full subscriber channel drops its oldest queued event rather than
// the new one — an SSE client that falls behind should see the latest
// state, not get stuck replaying stale events.
type bus struct {
	mu   sync.RWMutex
	subs map[string]map[*subscriber]struct{} // projectId -> subscribers
	seq  uint64
}

func newBus() *bus {
	return &bus{subs: make(map[string]map[*subscriber]struct{})}
}

func (b *bus) subscribe(projectID, environmentID string) *subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	sub := &subscriber{
		id:            projectID + "-" + strconv.FormatUint(b.seq, 10),
		environmentID: environmentID,
		ch:            make(chan domain.StreamEvent, subscriberBuffer),
	}
	if b.subs[projectID] == nil {
		b.subs[projectID] = make(map[*subscriber]struct{})
	}
	b.subs[projectID][sub] = struct{}{}
	metrics.StreamSubscribersActive.WithLabelValues(projectID).Set(float64(len(b.subs[projectID])))
	return sub
}

func (b *bus) unsubscribe(projectID string, sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if set, ok := b.subs[projectID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(b.subs, projectID)
		}
		metrics.StreamSubscribersActive.WithLabelValues(projectID).Set(float64(len(set)))
	}
}

// publish delivers one event per subscriber of projectID, built by
// build for that subscriber's own environmentID. build is called at
// most once per distinct environment subscribed, since subscribers of
// the same environment always receive an identical event.
func (b *bus) publish(projectID string, build func(environmentID string) domain.StreamEvent) {
	b.mu.RLock()
	subs := make([]*subscriber, 0, len(b.subs[projectID]))
	for sub := range b.subs[projectID] {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	events := make(map[string]domain.StreamEvent, len(subs))
	for _, sub := range subs {
		event, ok := events[sub.environmentID]
		if !ok {
			event = build(sub.environmentID)
			events[sub.environmentID] = event
		}

		select {
		case sub.ch <- event:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- event:
			default:
			}
		}
	}
}
