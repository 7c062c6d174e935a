// Package replica implements the in-memory, read-optimized replica
// store of §4.4: a primary map keyed by config id plus the secondary
// indices the read path needs, guarded by a single RWMutex so reads
// never observe a partial upsert.
package replica

import (
	"sync"

	"github.com/replane-dev/replane-sub002/internal/domain"
)

// ConfigReplica is one config's in-memory projection: its base
// fields plus every environment's variant.
type ConfigReplica struct {
	ID            string
	ProjectID     string
	Name          string
	Version       int64
	BaseValue     []byte
	BaseSchema    []byte
	BaseOverrides []domain.Override
	Variants      map[string]domain.ConfigVariant // keyed by environmentId
}

type projectAndName struct {
	projectID string
	name      string
}

// Store is the in-memory replica of every config visible to this
// process. Zero value is not usable; use New.
type Store struct {
	mu sync.RWMutex

	configs          map[string]ConfigReplica                // configId -> replica
	byProjectAndName map[projectAndName]string               // (projectId, name) -> configId
	byProject        map[string]map[string]struct{}          // projectId -> set<configId>
	referencedBy     map[projectAndName]map[string]struct{} // (projectId, configName) -> set<configId> that reference it

	consumerID string
}

// New returns an empty replica store.
func New() *Store {
	return &Store{
		configs:          make(map[string]ConfigReplica),
		byProjectAndName: make(map[projectAndName]string),
		byProject:        make(map[string]map[string]struct{}),
		referencedBy:     make(map[projectAndName]map[string]struct{}),
	}
}

// GetConsumerID returns the event-hub consumer id this replica is
// bound to, or "" if none has been persisted yet.
func (s *Store) GetConsumerID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.consumerID
}

// SetConsumerID persists the consumer id this replica is bound to.
func (s *Store) SetConsumerID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumerID = id
}

// Clear empties the replica and forgets its consumer id; used when
// the replicator must perform a full resync.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs = make(map[string]ConfigReplica)
	s.byProjectAndName = make(map[projectAndName]string)
	s.byProject = make(map[string]map[string]struct{})
	s.referencedBy = make(map[projectAndName]map[string]struct{})
	s.consumerID = ""
}

// GetEnvironmentalConfig resolves (projectId, name, environmentId) to
// the variant overlay if one exists for that environment, otherwise
// to the config's base.
func (s *Store) GetEnvironmentalConfig(projectID, name, environmentID string) (domain.EnvironmentalConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.lookupLocked(projectID, name)
	if !ok {
		return domain.EnvironmentalConfig{}, false
	}

	if variant, ok := cfg.Variants[environmentID]; ok {
		schema := variant.Schema
		if variant.UseBaseSchema {
			schema = cfg.BaseSchema
		}
		return domain.EnvironmentalConfig{
			Name:          cfg.Name,
			Version:       cfg.Version,
			EnvironmentID: environmentID,
			Value:         variant.Value,
			Schema:        schema,
			Overrides:     variant.Overrides,
		}, true
	}

	return domain.EnvironmentalConfig{
		Name:          cfg.Name,
		Version:       cfg.Version,
		EnvironmentID: environmentID,
		Value:         cfg.BaseValue,
		Schema:        cfg.BaseSchema,
		Overrides:     cfg.BaseOverrides,
	}, true
}

// GetConfigValue returns only the raw stored value for (projectId,
// name, environmentId), without overrides applied — used by the
// reference resolver, which deliberately never re-evaluates.
func (s *Store) GetConfigValue(projectID, name, environmentID string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.lookupLocked(projectID, name)
	if !ok {
		return nil, false
	}
	if variant, ok := cfg.Variants[environmentID]; ok {
		return variant.Value, true
	}
	return cfg.BaseValue, true
}

// GetProjectConfigs returns every config visible in a project,
// resolved for the given environment.
func (s *Store) GetProjectConfigs(projectID, environmentID string) []domain.EnvironmentalConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byProject[projectID]
	out := make([]domain.EnvironmentalConfig, 0, len(ids))
	for id := range ids {
		cfg := s.configs[id]
		if variant, ok := cfg.Variants[environmentID]; ok {
			schema := variant.Schema
			if variant.UseBaseSchema {
				schema = cfg.BaseSchema
			}
			out = append(out, domain.EnvironmentalConfig{
				Name: cfg.Name, Version: cfg.Version, EnvironmentID: environmentID,
				Value: variant.Value, Schema: schema, Overrides: variant.Overrides,
			})
			continue
		}
		out = append(out, domain.EnvironmentalConfig{
			Name: cfg.Name, Version: cfg.Version, EnvironmentID: environmentID,
			Value: cfg.BaseValue, Schema: cfg.BaseSchema, Overrides: cfg.BaseOverrides,
		})
	}
	return out
}

// ReferencingConfigs returns the ids of configs whose overrides
// reference (projectId, configName), used to implement the
// referential subscription rule of §4.7.
func (s *Store) ReferencingConfigs(projectID, configName string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.referencedBy[projectAndName{projectID, configName}]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// ConfigByID returns the replica's view of a config by id, mainly
// for emitting change-event details (name, project) to subscribers.
func (s *Store) ConfigByID(id string) (ConfigReplica, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[id]
	return cfg, ok
}

func (s *Store) lookupLocked(projectID, name string) (ConfigReplica, bool) {
	id, ok := s.byProjectAndName[projectAndName{projectID, name}]
	if !ok {
		return ConfigReplica{}, false
	}
	cfg, ok := s.configs[id]
	return cfg, ok
}
