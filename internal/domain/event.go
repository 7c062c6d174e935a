package domain

import "encoding/json"

// ChangeKind is the outcome of applying a replicator event to the
// replica store.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// ChangeEvent is what the replicator emits to downstream observers
// after applying one upsert or delete to the replica store. ProjectID
// and ConfigName are best-effort: populated whenever the replicator
// can still resolve them (always for created/updated, and for deleted
// when the entity was still in the replica just before removal).
type ChangeEvent struct {
	Kind       ChangeKind
	EntityID   string
	ProjectID  string
	ConfigName string
}

// TopicEvent is the payload appended to the events table by a
// publisher and read back by consumer.pull(); for the configs topic
// it is just {entityId}.
type TopicEvent struct {
	EntityID string `json:"entityId"`
}

// StreamEventType enumerates the SubscribeProjectEvents payload
// kinds (§4.7).
type StreamEventType string

const (
	StreamConfigCreated StreamEventType = "config_created"
	StreamConfigUpdated StreamEventType = "config_updated"
	StreamConfigDeleted StreamEventType = "config_deleted"
)

// StreamEvent is the wire payload emitted on the SSE event stream.
type StreamEvent struct {
	Type       StreamEventType    `json:"type"`
	ConfigName string             `json:"configName"`
	Version    int64              `json:"version"`
	Value      json.RawMessage    `json:"value,omitempty"`
	Overrides  []RenderedOverride `json:"overrides,omitempty"`
}
