package domain

// ConfigAggregate is the replication unit for the "configs" topic: a
// config together with all of its per-environment variants. The
// event hub addresses change events by configId; an update to either
// the config row or any of its variant rows produces one event for
// this aggregate's id.
type ConfigAggregate struct {
	Config   Config
	Variants map[string]ConfigVariant // keyed by environmentId
}

// EntityID satisfies the replicator's Entity constraint.
func (a ConfigAggregate) EntityID() string { return a.Config.ID }

// EntityVersion satisfies the replicator's Entity constraint; it is
// the tie-break used to make replay idempotent (§4.3).
func (a ConfigAggregate) EntityVersion() int64 { return a.Config.Version }
