package readapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replane-dev/replane-sub002/internal/domain"
)

func constEvent(event domain.StreamEvent) func(string) domain.StreamEvent {
	return func(string) domain.StreamEvent { return event }
}

func TestBus_PublishDeliversToSubscribersOfThatProjectOnly(t *testing.T) {
	b := newBus()
	a := b.subscribe("proj-a", "env-prod")
	other := b.subscribe("proj-b", "env-prod")

	b.publish("proj-a", constEvent(domain.StreamEvent{ConfigName: "limits"}))

	select {
	case ev := <-a.ch:
		assert.Equal(t, "limits", ev.ConfigName)
	default:
		t.Fatal("expected subscriber of proj-a to receive the event")
	}

	select {
	case <-other.ch:
		t.Fatal("subscriber of a different project must not receive the event")
	default:
	}
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	b := newBus()
	sub := b.subscribe("proj-a", "env-prod")
	b.unsubscribe("proj-a", sub)

	b.publish("proj-a", constEvent(domain.StreamEvent{ConfigName: "limits"}))

	select {
	case <-sub.ch:
		t.Fatal("unsubscribed subscriber must not receive further events")
	default:
	}
}

func TestBus_FullChannelDropsOldestNotNewest(t *testing.T) {
	b := newBus()
	sub := b.subscribe("proj-a", "env-prod")

	for i := 0; i < subscriberBuffer+1; i++ {
		version := int64(i)
		b.publish("proj-a", constEvent(domain.StreamEvent{ConfigName: "limits", Version: version}))
	}

	require.Len(t, sub.ch, subscriberBuffer)
	first := <-sub.ch
	assert.EqualValues(t, 1, first.Version, "the oldest event (version 0) must have been dropped to make room for the newest")
}

func TestBus_PublishBuildsOncePerDistinctSubscriberEnvironment(t *testing.T) {
	b := newBus()
	prod := b.subscribe("proj-a", "env-prod")
	staging := b.subscribe("proj-a", "env-staging")
	prod2 := b.subscribe("proj-a", "env-prod")

	calls := map[string]int{}
	b.publish("proj-a", func(environmentID string) domain.StreamEvent {
		calls[environmentID]++
		return domain.StreamEvent{ConfigName: "limits-" + environmentID}
	})

	assert.Equal(t, 1, calls["env-prod"], "build must run once for both env-prod subscribers")
	assert.Equal(t, 1, calls["env-staging"])

	prodEvent := <-prod.ch
	prod2Event := <-prod2.ch
	stagingEvent := <-staging.ch
	assert.Equal(t, "limits-env-prod", prodEvent.ConfigName)
	assert.Equal(t, "limits-env-prod", prod2Event.ConfigName)
	assert.Equal(t, "limits-env-staging", stagingEvent.ConfigName)
}
