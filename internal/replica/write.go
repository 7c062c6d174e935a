package replica

import "github.com/replane-dev/replane-sub002/internal/domain"

// UpsertResult is what Upsert reports for one aggregate, mirroring
// the replicator's created/updated/ignored vocabulary (§4.3).
type UpsertResult string

const (
	UpsertCreated UpsertResult = "created"
	UpsertUpdated UpsertResult = "updated"
	UpsertIgnored UpsertResult = "ignored"
)

// UpsertConfigs applies a batch of aggregates in one exclusive
// critical section, per the "batched writes" policy of §5. For each
// aggregate, if the replica already holds an entity with the same id
// and version >= the incoming version, the upsert is ignored —
// the tie-break that makes replay idempotent.
func (s *Store) UpsertConfigs(aggregates []domain.ConfigAggregate) []UpsertResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]UpsertResult, len(aggregates))
	for i, agg := range aggregates {
		results[i] = s.upsertLocked(agg)
	}
	return results
}

func (s *Store) upsertLocked(agg domain.ConfigAggregate) UpsertResult {
	existing, existed := s.configs[agg.Config.ID]
	if existed && existing.Version >= agg.Config.Version {
		return UpsertIgnored
	}

	replica := ConfigReplica{
		ID:            agg.Config.ID,
		ProjectID:     agg.Config.ProjectID,
		Name:          agg.Config.Name,
		Version:       agg.Config.Version,
		BaseValue:     agg.Config.BaseValue,
		BaseSchema:    agg.Config.BaseSchema,
		BaseOverrides: agg.Config.BaseOverrides,
		Variants:      agg.Variants,
	}
	if replica.Variants == nil {
		replica.Variants = map[string]domain.ConfigVariant{}
	}

	if existed {
		s.removeFromIndicesLocked(existing)
	}
	s.configs[replica.ID] = replica
	s.addToIndicesLocked(replica)

	if existed {
		return UpsertUpdated
	}
	return UpsertCreated
}

// DeleteConfig removes a config from the replica and reports whether
// it was present.
func (s *Store) DeleteConfig(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.configs[id]
	if !ok {
		return false
	}
	s.removeFromIndicesLocked(existing)
	delete(s.configs, id)
	return true
}

func (s *Store) addToIndicesLocked(cfg ConfigReplica) {
	s.byProjectAndName[projectAndName{cfg.ProjectID, cfg.Name}] = cfg.ID
	if s.byProject[cfg.ProjectID] == nil {
		s.byProject[cfg.ProjectID] = make(map[string]struct{})
	}
	s.byProject[cfg.ProjectID][cfg.ID] = struct{}{}

	for _, ref := range cfg.allReferences() {
		key := projectAndName{ref.ProjectID, ref.ConfigName}
		if s.referencedBy[key] == nil {
			s.referencedBy[key] = make(map[string]struct{})
		}
		s.referencedBy[key][cfg.ID] = struct{}{}
	}
}

func (s *Store) removeFromIndicesLocked(cfg ConfigReplica) {
	delete(s.byProjectAndName, projectAndName{cfg.ProjectID, cfg.Name})
	if set := s.byProject[cfg.ProjectID]; set != nil {
		delete(set, cfg.ID)
		if len(set) == 0 {
			delete(s.byProject, cfg.ProjectID)
		}
	}
	for _, ref := range cfg.allReferences() {
		key := projectAndName{ref.ProjectID, ref.ConfigName}
		if set := s.referencedBy[key]; set != nil {
			delete(set, cfg.ID)
			if len(set) == 0 {
				delete(s.referencedBy, key)
			}
		}
	}
}

func (cfg ConfigReplica) allReferences() []struct{ ProjectID, ConfigName string } {
	all := append([]domain.Override{}, cfg.BaseOverrides...)
	for _, v := range cfg.Variants {
		all = append(all, v.Overrides...)
	}
	return domain.ReferencedConfigs(all)
}
