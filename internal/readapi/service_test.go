package readapi

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replane-dev/replane-sub002/internal/apierr"
	"github.com/replane-dev/replane-sub002/internal/domain"
	"github.com/replane-dev/replane-sub002/internal/replica"
)

func testService() (*Service, *replica.Store) {
	store := replica.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, log), store
}

func TestGetConfigValue_NotFoundWhenConfigAbsent(t *testing.T) {
	svc, _ := testService()
	_, err := svc.GetConfigValue("proj-1", "missing", "env-prod", map[string]any{})
	assert.ErrorIs(t, err, apierr.ErrNotFound)
}

func TestGetConfigValue_AppliesMatchingOverride(t *testing.T) {
	svc, store := testService()
	store.UpsertConfigs([]domain.ConfigAggregate{{
		Config: domain.Config{
			ID: "cfg-1", ProjectID: "proj-1", Name: "limits", Version: 1,
			BaseValue: []byte(`"default"`),
			BaseOverrides: []domain.Override{
				{
					Name: "beta",
					Conditions: []domain.Condition{
						{Op: domain.OpEquals, Property: "tier", Value: &domain.Value{Type: domain.ValueKindLiteral, Literal: []byte(`"beta"`)}},
					},
					Value: domain.Value{Type: domain.ValueKindLiteral, Literal: []byte(`"beta-value"`)},
				},
			},
		},
	}})

	result, err := svc.GetConfigValue("proj-1", "limits", "env-prod", map[string]any{"tier": "beta"})
	require.NoError(t, err)
	assert.Equal(t, "beta", result.MatchedOverride)
	assert.JSONEq(t, `"beta-value"`, string(result.Value))
}

func TestGetProjectConfigs_ListsEveryConfigInProject(t *testing.T) {
	svc, store := testService()
	store.UpsertConfigs([]domain.ConfigAggregate{
		{Config: domain.Config{ID: "cfg-1", ProjectID: "proj-1", Name: "a", Version: 1, BaseValue: []byte(`1`)}},
		{Config: domain.Config{ID: "cfg-2", ProjectID: "proj-1", Name: "b", Version: 1, BaseValue: []byte(`2`)}},
		{Config: domain.Config{ID: "cfg-3", ProjectID: "proj-2", Name: "c", Version: 1, BaseValue: []byte(`3`)}},
	})

	results := svc.GetProjectConfigs("proj-1", "env-prod", map[string]any{})
	assert.Len(t, results, 2)
}

func TestHandleChange_NotifiesDirectSubscriber(t *testing.T) {
	svc, store := testService()
	store.UpsertConfigs([]domain.ConfigAggregate{
		{Config: domain.Config{ID: "cfg-1", ProjectID: "proj-1", Name: "limits", Version: 3, BaseValue: []byte(`"v3"`)}},
	})
	sub := svc.Subscribe("proj-1", "env-prod")

	svc.HandleChange(domain.ChangeEvent{Kind: domain.ChangeUpdated, EntityID: "cfg-1", ProjectID: "proj-1", ConfigName: "limits"})

	select {
	case ev := <-sub.ch:
		assert.Equal(t, domain.StreamConfigUpdated, ev.Type)
		assert.Equal(t, "limits", ev.ConfigName)
		assert.EqualValues(t, 3, ev.Version)
		assert.JSONEq(t, `"v3"`, string(ev.Value))
	default:
		t.Fatal("expected the direct subscriber to receive a stream event")
	}
}

func TestHandleChange_NotifiesReferencingConfigsOwnProject(t *testing.T) {
	svc, store := testService()
	store.UpsertConfigs([]domain.ConfigAggregate{
		{Config: domain.Config{ID: "cfg-1", ProjectID: "proj-1", Name: "limits", Version: 1}},
		{Config: domain.Config{
			ID: "cfg-2", ProjectID: "proj-1", Name: "derived", Version: 1,
			BaseOverrides: []domain.Override{
				{Name: "only", Value: domain.Value{Type: domain.ValueKindReference, ProjectID: "proj-1", ConfigName: "limits"}},
			},
		}},
	})
	referrerSub := svc.Subscribe("proj-1", "env-prod")

	svc.HandleChange(domain.ChangeEvent{Kind: domain.ChangeUpdated, EntityID: "cfg-1", ProjectID: "proj-1", ConfigName: "limits"})

	// First event is the direct notification for "limits" itself.
	first := <-referrerSub.ch
	assert.Equal(t, "limits", first.ConfigName)

	// Second is the referential notification for "derived".
	second := <-referrerSub.ch
	assert.Equal(t, "derived", second.ConfigName)
	assert.Equal(t, domain.StreamConfigUpdated, second.Type)
}

func TestHandleChange_IgnoresEventsWithoutLocation(t *testing.T) {
	svc, _ := testService()
	sub := svc.Subscribe("proj-1", "env-prod")

	svc.HandleChange(domain.ChangeEvent{Kind: domain.ChangeDeleted, EntityID: "cfg-1"})

	select {
	case <-sub.ch:
		t.Fatal("an event with no resolvable project/config must not be published")
	default:
	}
}
