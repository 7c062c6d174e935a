package readapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replane-dev/replane-sub002/internal/config"
	"github.com/replane-dev/replane-sub002/internal/domain"
	"github.com/replane-dev/replane-sub002/internal/replica"
)

func testRouter(t *testing.T) (http.Handler, *replica.Store) {
	t.Helper()
	store := replica.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(store, log)
	cfg := config.ServerConfig{RateLimitPerSecond: 1000, RateLimitBurst: 1000}
	return NewRouter(svc, cfg, log), store
}

func TestHealthz(t *testing.T) {
	router, _ := testRouter(t)
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetConfigValueHandler_ReturnsEvaluatedValue(t *testing.T) {
	router, store := testRouter(t)
	store.UpsertConfigs([]domain.ConfigAggregate{{
		Config: domain.Config{ID: "cfg-1", ProjectID: "proj-1", Name: "limits", Version: 1, BaseValue: []byte(`"default"`)},
	}})

	r := httptest.NewRequest(http.MethodGet, "/projects/proj-1/configs/limits/value?environmentId=env-prod", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "limits", body["name"])
	assert.Equal(t, "default", body["value"])
}

func TestGetConfigValueHandler_NotFoundConfigReturns404(t *testing.T) {
	router, _ := testRouter(t)

	r := httptest.NewRequest(http.MethodGet, "/projects/proj-1/configs/missing/value?environmentId=env-prod", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetConfigValueHandler_MissingEnvironmentIDReturns400(t *testing.T) {
	router, store := testRouter(t)
	store.UpsertConfigs([]domain.ConfigAggregate{{
		Config: domain.Config{ID: "cfg-1", ProjectID: "proj-1", Name: "limits", Version: 1, BaseValue: []byte(`"default"`)},
	}})

	r := httptest.NewRequest(http.MethodGet, "/projects/proj-1/configs/limits/value", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetConfigHandler_ReturnsStoredValueAndRenderedOverrides(t *testing.T) {
	router, store := testRouter(t)
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

	r := httptest.NewRequest(http.MethodGet, "/projects/proj-1/configs/limits?environmentId=env-prod", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "limits", body["name"])
	assert.Equal(t, "default", body["value"], "GetConfig must return the stored value, not the evaluated one")
	overrides, ok := body["renderedOverrides"].([]any)
	require.True(t, ok, "response must carry a renderedOverrides array")
	require.Len(t, overrides, 1)
}

func TestGetProjectConfigsHandler_ListsConfigs(t *testing.T) {
	router, store := testRouter(t)
	store.UpsertConfigs([]domain.ConfigAggregate{
		{Config: domain.Config{ID: "cfg-1", ProjectID: "proj-1", Name: "a", Version: 1, BaseValue: []byte(`1`)}},
		{Config: domain.Config{ID: "cfg-2", ProjectID: "proj-1", Name: "b", Version: 1, BaseValue: []byte(`2`)}},
	})

	r := httptest.NewRequest(http.MethodGet, "/projects/proj-1/configs?environmentId=env-prod", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var body []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body, 2)
}

func TestEventsHandler_MissingEnvironmentIDReturns400(t *testing.T) {
	router, _ := testRouter(t)

	r := httptest.NewRequest(http.MethodGet, "/projects/proj-1/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventsHandler_StreamsPublishedChangeAsSSEFrame(t *testing.T) {
	store := replica.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(store, log)
	h := &handlers{svc: svc, log: log, streamHeartbeat: time.Hour}

	store.UpsertConfigs([]domain.ConfigAggregate{{
		Config: domain.Config{ID: "cfg-1", ProjectID: "proj-1", Name: "limits", Version: 1, BaseValue: []byte(`"default"`)},
	}})

	r := httptest.NewRequest(http.MethodGet, "/projects/proj-1/events?environmentId=env-prod", nil)
	r = mux.SetURLVars(r, map[string]string{"projectId": "proj-1"})
	ctx, cancel := context.WithCancel(r.Context())
	r = r.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.Events(w, r)
		close(done)
	}()

	// Give the handler a moment to subscribe before publishing.
	time.Sleep(20 * time.Millisecond)
	svc.HandleChange(domain.ChangeEvent{Kind: domain.ChangeUpdated, EntityID: "cfg-1", ProjectID: "proj-1", ConfigName: "limits"})

	require.Eventually(t, func() bool {
		return w.Body.Len() > 0
	}, time.Second, 5*time.Millisecond)

	assert.Contains(t, w.Body.String(), `"configName":"limits"`)
	assert.Contains(t, w.Body.String(), `"value":"default"`)

	cancel()
	<-done
}
