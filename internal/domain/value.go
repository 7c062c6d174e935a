package domain

import (
	"encoding/json"
	"fmt"
)

// ValueKind discriminates the two shapes a Value can take.
type ValueKind string

const (
	ValueKindLiteral   ValueKind = "literal"
	ValueKindReference ValueKind = "reference"
)

// Value is a tagged union: either a literal JSON value, or a
// reference that points at a JSON sub-tree of another config's base
// value. Overrides and condition operands are expressed as Value so
// that references can appear anywhere a literal could.
type Value struct {
	Type ValueKind `json:"type"`

	// Literal, set when Type == ValueKindLiteral.
	Literal json.RawMessage `json:"value,omitempty"`

	// Reference fields, set when Type == ValueKindReference.
	ProjectID  string        `json:"projectId,omitempty"`
	ConfigName string        `json:"configName,omitempty"`
	Path       []PathSegment `json:"path,omitempty"`
}

// PathSegment is one step of a reference path: either an object key
// (string) or an array index (int). It marshals as whichever JSON
// primitive it holds.
type PathSegment struct {
	Key   string
	Index int
	IsKey bool
}

func (p PathSegment) MarshalJSON() ([]byte, error) {
	if p.IsKey {
		return json.Marshal(p.Key)
	}
	return json.Marshal(p.Index)
}

func (p *PathSegment) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = PathSegment{Key: s, IsKey: true}
		return nil
	}
	var i int
	if err := json.Unmarshal(data, &i); err != nil {
		return fmt.Errorf("path segment must be a string or integer: %w", err)
	}
	*p = PathSegment{Index: i, IsKey: false}
	return nil
}

// IsReference reports whether this Value is a reference rather than
// a literal.
func (v Value) IsReference() bool {
	return v.Type == ValueKindReference
}
