// Package evaluator implements the pure override evaluator of §4.5:
// (value, overrides, context) -> (finalValue, matchedOverride, trace).
// Every function here is non-suspending — no I/O, no locks — so it is
// safe to call straight from the hot read path.
package evaluator

import (
	"encoding/json"

	"github.com/replane-dev/replane-sub002/internal/domain"
)

// Result is the outcome of evaluating one config's rendered overrides
// against a context.
type Result struct {
	FinalValue      json.RawMessage
	MatchedOverride string // "" if no override matched
	Trace           []string
}

// Evaluate iterates overrides in order; the first override whose
// top-level conditions all match (implicit AND) wins. If none match,
// base is returned unchanged.
func Evaluate(base json.RawMessage, overrides []domain.RenderedOverride, ctx map[string]any) Result {
	var trace []string
	for _, ov := range overrides {
		matched := true
		for _, cond := range ov.Conditions {
			ok, diag := matchCondition(cond, ctx)
			if diag != "" {
				trace = append(trace, diag)
			}
			if !ok {
				matched = false
				break
			}
		}
		if matched {
			return Result{FinalValue: ov.Value, MatchedOverride: ov.Name, Trace: trace}
		}
	}
	return Result{FinalValue: base, Trace: trace}
}

func matchCondition(cond domain.RenderedCondition, ctx map[string]any) (bool, string) {
	switch cond.Op {
	case domain.OpAnd:
		var lastDiag string
		for _, child := range cond.Conditions {
			ok, diag := matchCondition(child, ctx)
			if diag != "" {
				lastDiag = diag
			}
			if !ok {
				return false, lastDiag
			}
		}
		return true, lastDiag

	case domain.OpOr:
		var lastDiag string
		for _, child := range cond.Conditions {
			ok, diag := matchCondition(child, ctx)
			if diag != "" {
				lastDiag = diag
			}
			if ok {
				return true, ""
			}
		}
		return false, lastDiag

	case domain.OpNot:
		if cond.Condition == nil {
			return true, "not: missing child condition"
		}
		ok, diag := matchCondition(*cond.Condition, ctx)
		return !ok, diag

	case domain.OpSegmentation:
		v, ok := ctx[cond.Property]
		if !ok || v == nil {
			return false, "segmentation: missing property " + cond.Property
		}
		bucket := segmentationBucket(stringify(v), cond.Salt)
		return float64(bucket) < cond.Percentage, ""

	default:
		return matchComparison(cond, ctx)
	}
}

func matchComparison(cond domain.RenderedCondition, ctx map[string]any) (bool, string) {
	ctxVal, ok := ctx[cond.Property]
	if !ok {
		return false, "missing property " + cond.Property
	}
	if cond.ValueUndef {
		return false, "operand could not be resolved (reference undefined)"
	}

	var expVal any
	if len(cond.Value) > 0 {
		if err := json.Unmarshal(cond.Value, &expVal); err != nil {
			return false, "operand is not valid JSON: " + err.Error()
		}
	}

	switch cond.Op {
	case domain.OpEquals:
		coerced := coerce(ctxVal, expVal)
		return equalJSON(ctxVal, coerced), ""

	case domain.OpIn, domain.OpNotIn:
		list, ok := expVal.([]any)
		if !ok {
			return false, "in/not_in operand is not an array"
		}
		found := false
		for _, item := range list {
			if equalJSON(ctxVal, coerce(ctxVal, item)) {
				found = true
				break
			}
		}
		if cond.Op == domain.OpNotIn {
			return !found, ""
		}
		return found, ""

	case domain.OpLessThan, domain.OpLessThanOrEqual, domain.OpGreaterThan, domain.OpGreaterThanOrEqual:
		return compareOrdered(cond.Op, ctxVal, coerce(ctxVal, expVal))

	default:
		return false, "unknown operator " + string(cond.Op)
	}
}

func equalJSON(a, b any) bool {
	af, aIsFloat := a.(float64)
	bf, bIsFloat := b.(float64)
	if aIsFloat && bIsFloat {
		return af == bf
	}
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return as == bs
	}
	ab, aIsBool := a.(bool)
	bb, bIsBool := b.(bool)
	if aIsBool && bIsBool {
		return ab == bb
	}
	return a == b
}

func compareOrdered(op domain.Operator, a, b any) (bool, string) {
	if af, aok := a.(float64); aok {
		if bf, bok := b.(float64); bok {
			return orderResult(op, compareFloat(af, bf)), ""
		}
	}
	if as, aok := a.(string); aok {
		if bs, bok := b.(string); bok {
			return orderResult(op, compareString(as, bs)), ""
		}
	}
	return false, "comparison operands are not both numbers or both strings"
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func orderResult(op domain.Operator, cmp int) bool {
	switch op {
	case domain.OpLessThan:
		return cmp < 0
	case domain.OpLessThanOrEqual:
		return cmp <= 0
	case domain.OpGreaterThan:
		return cmp > 0
	case domain.OpGreaterThanOrEqual:
		return cmp >= 0
	default:
		return false
	}
}
