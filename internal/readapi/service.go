// Package readapi implements the read path of §4.6/§4.7: resolving a
// config's environmental view, rendering and evaluating its
// overrides against a caller-supplied context, and pushing change
// notifications (direct and referential) to SSE subscribers.
package readapi

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/replane-dev/replane-sub002/internal/apierr"
	"github.com/replane-dev/replane-sub002/internal/domain"
	"github.com/replane-dev/replane-sub002/internal/evaluator"
	"github.com/replane-dev/replane-sub002/internal/metrics"
	"github.com/replane-dev/replane-sub002/internal/replica"
	"github.com/replane-dev/replane-sub002/internal/resolver"
)

// Service is the read API's core: a thin composition over the replica
// store, reference resolver, and override evaluator. It holds no
// durable state of its own.
type Service struct {
	store *replica.Store
	bus   *bus
	log   *slog.Logger
}

// New builds a Service bound to store. Register HandleChange as the
// replicator's onChange callback so replicated updates are pushed to
// SSE subscribers.
func New(store *replica.Store, log *slog.Logger) *Service {
	return &Service{store: store, bus: newBus(), log: log}
}

// ConfigValueResult is the outcome of evaluating one config for a
// given environment and context.
type ConfigValueResult struct {
	Name            string
	Version         int64
	Value           json.RawMessage
	MatchedOverride string
	Trace           []string
}

// GetConfigValue resolves, renders, and evaluates a single config.
func (s *Service) GetConfigValue(projectID, name, environmentID string, ctx map[string]any) (ConfigValueResult, error) {
	start := time.Now()
	defer func() { metrics.EvaluatorDurationSeconds.Observe(time.Since(start).Seconds()) }()

	econf, ok := s.store.GetEnvironmentalConfig(projectID, name, environmentID)
	if !ok {
		return ConfigValueResult{}, apierr.ErrNotFound
	}

	rendered := resolver.RenderOverrides(econf.Overrides, environmentID, s.store)
	result := evaluator.Evaluate(econf.Value, rendered, ctx)

	return ConfigValueResult{
		Name:            econf.Name,
		Version:         econf.Version,
		Value:           result.FinalValue,
		MatchedOverride: result.MatchedOverride,
		Trace:           result.Trace,
	}, nil
}

// ConfigResult is the stored value plus rendered overrides for one
// config/environment, without the override evaluator applied — the
// §4.7 GetConfig operation, for SDKs that evaluate overrides
// client-side.
type ConfigResult struct {
	Name      string
	Version   int64
	Value     json.RawMessage
	Overrides []domain.RenderedOverride
}

// GetConfig resolves and renders a single config's stored value for
// environmentID.
func (s *Service) GetConfig(projectID, name, environmentID string) (ConfigResult, error) {
	econf, ok := s.store.GetEnvironmentalConfig(projectID, name, environmentID)
	if !ok {
		return ConfigResult{}, apierr.ErrNotFound
	}

	rendered := resolver.RenderOverrides(econf.Overrides, environmentID, s.store)
	return ConfigResult{
		Name:      econf.Name,
		Version:   econf.Version,
		Value:     econf.Value,
		Overrides: rendered,
	}, nil
}

// ProjectConfigsResult is one config's evaluated view within a
// project-wide listing.
type ProjectConfigsResult struct {
	Name    string
	Version int64
	Value   json.RawMessage
}

// GetProjectConfigs evaluates every config visible in a project for
// one environment and context.
func (s *Service) GetProjectConfigs(projectID, environmentID string, ctx map[string]any) []ProjectConfigsResult {
	econfs := s.store.GetProjectConfigs(projectID, environmentID)
	out := make([]ProjectConfigsResult, len(econfs))
	for i, econf := range econfs {
		rendered := resolver.RenderOverrides(econf.Overrides, environmentID, s.store)
		result := evaluator.Evaluate(econf.Value, rendered, ctx)
		out[i] = ProjectConfigsResult{Name: econf.Name, Version: econf.Version, Value: result.FinalValue}
	}
	return out
}

// Subscribe opens a new SSE subscription for projectID, scoped to
// environmentID since every emitted event's value/overrides are
// environment-specific (§4.7). Callers must Unsubscribe when the
// connection closes.
func (s *Service) Subscribe(projectID, environmentID string) *subscriber {
	return s.bus.subscribe(projectID, environmentID)
}

// Unsubscribe closes a subscription opened by Subscribe.
func (s *Service) Unsubscribe(projectID string, sub *subscriber) {
	s.bus.unsubscribe(projectID, sub)
}

// HandleChange is the replicator's onChange callback (§4.7): it
// notifies the changed config's own project, and every config that
// references it, since a referenced config's new value can change a
// referencing config's evaluated result without the referencing
// config's own version changing. Each subscriber's event is built for
// its own subscribed environment, since §6's wire payload carries the
// environment-specific version/value/overrides, not just the kind of
// change.
func (s *Service) HandleChange(ev domain.ChangeEvent) {
	if ev.ProjectID == "" || ev.ConfigName == "" {
		return
	}

	streamType := changeToStreamType(ev.Kind)
	s.bus.publish(ev.ProjectID, func(environmentID string) domain.StreamEvent {
		return s.buildStreamEvent(streamType, ev.ProjectID, ev.ConfigName, environmentID)
	})

	for _, referrerID := range s.store.ReferencingConfigs(ev.ProjectID, ev.ConfigName) {
		referrer, ok := s.store.ConfigByID(referrerID)
		if !ok {
			continue
		}
		s.bus.publish(referrer.ProjectID, func(environmentID string) domain.StreamEvent {
			return s.buildStreamEvent(domain.StreamConfigUpdated, referrer.ProjectID, referrer.Name, environmentID)
		})
	}
}

// buildStreamEvent resolves and renders configName for environmentID
// to fill in the version/value/overrides a subscriber in that
// environment expects. If the config is no longer present (e.g. a
// delete that raced the lookup), it degrades to the bare
// type/configName the client still needs to know which config changed.
func (s *Service) buildStreamEvent(streamType domain.StreamEventType, projectID, configName, environmentID string) domain.StreamEvent {
	econf, ok := s.store.GetEnvironmentalConfig(projectID, configName, environmentID)
	if !ok {
		return domain.StreamEvent{Type: streamType, ConfigName: configName}
	}

	rendered := resolver.RenderOverrides(econf.Overrides, environmentID, s.store)
	return domain.StreamEvent{
		Type:       streamType,
		ConfigName: configName,
		Version:    econf.Version,
		Value:      econf.Value,
		Overrides:  rendered,
	}
}

func changeToStreamType(kind domain.ChangeKind) domain.StreamEventType {
	switch kind {
	case domain.ChangeCreated:
		return domain.StreamConfigCreated
	case domain.ChangeDeleted:
		return domain.StreamConfigDeleted
	default:
		return domain.StreamConfigUpdated
	}
}
