// Package resolver implements the reference resolver of §4.6:
// renderOverrides walks an override tree and replaces every
// "reference" Value with the concrete JSON at that path of the
// referenced config's stored (base-less) value. It deliberately reads
// raw stored values rather than re-evaluating them, which is what
// makes reference cycles impossible to form — there is no recursion
// through the evaluator, so no cycle detection is needed (§9).
package resolver

import (
	"encoding/json"

	"github.com/replane-dev/replane-sub002/internal/domain"
)

// ConfigValueLookup is the narrow replica-store surface the resolver
// needs: the raw stored value for a config in a given environment,
// without overrides applied.
type ConfigValueLookup interface {
	GetConfigValue(projectID, configName, environmentID string) ([]byte, bool)
}

// RenderOverrides resolves every reference in overrides against
// lookup for environmentID. Rendering happens once per call; the
// resolver does not memoize across calls (§4.6), since the replica it
// reads may have changed between calls.
func RenderOverrides(overrides []domain.Override, environmentID string, lookup ConfigValueLookup) []domain.RenderedOverride {
	out := make([]domain.RenderedOverride, len(overrides))
	for i, ov := range overrides {
		value, undef := renderValue(ov.Value, environmentID, lookup)
		rendered := domain.RenderedOverride{
			Name:       ov.Name,
			Conditions: renderConditions(ov.Conditions, environmentID, lookup),
		}
		if !undef {
			rendered.Value = value
		}
		out[i] = rendered
	}
	return out
}

func renderConditions(conditions []domain.Condition, environmentID string, lookup ConfigValueLookup) []domain.RenderedCondition {
	out := make([]domain.RenderedCondition, len(conditions))
	for i, c := range conditions {
		out[i] = renderCondition(c, environmentID, lookup)
	}
	return out
}

func renderCondition(c domain.Condition, environmentID string, lookup ConfigValueLookup) domain.RenderedCondition {
	rc := domain.RenderedCondition{
		Op:         c.Op,
		Property:   c.Property,
		Percentage: c.Percentage,
		Salt:       c.Salt,
	}
	if c.Value != nil {
		value, undef := renderValue(*c.Value, environmentID, lookup)
		rc.Value = value
		rc.ValueUndef = undef
	}
	if len(c.Conditions) > 0 {
		rc.Conditions = renderConditions(c.Conditions, environmentID, lookup)
	}
	if c.Condition != nil {
		child := renderCondition(*c.Condition, environmentID, lookup)
		rc.Condition = &child
	}
	return rc
}

// renderValue resolves one Value to concrete JSON. The bool result is
// true when the value is "undefined" — either because the referenced
// config is missing, or because path traversal hit a non-indexable
// step — and must be treated by the evaluator as unequal to anything.
func renderValue(v domain.Value, environmentID string, lookup ConfigValueLookup) (json.RawMessage, bool) {
	if !v.IsReference() {
		return v.Literal, false
	}

	raw, ok := lookup.GetConfigValue(v.ProjectID, v.ConfigName, environmentID)
	if !ok {
		return nil, true
	}

	return traversePath(raw, v.Path)
}

// traversePath walks raw along path, stopping and returning
// "undefined" at the first null/missing or non-indexable step.
func traversePath(raw []byte, path []domain.PathSegment) (json.RawMessage, bool) {
	var cur any
	if err := json.Unmarshal(raw, &cur); err != nil {
		return nil, true
	}

	for _, seg := range path {
		if cur == nil {
			return nil, true
		}
		if seg.IsKey {
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, true
			}
			next, ok := m[seg.Key]
			if !ok {
				return nil, true
			}
			cur = next
			continue
		}
		arr, ok := cur.([]any)
		if !ok || seg.Index < 0 || seg.Index >= len(arr) {
			return nil, true
		}
		cur = arr[seg.Index]
	}

	out, err := json.Marshal(cur)
	if err != nil {
		return nil, true
	}
	return out, false
}
