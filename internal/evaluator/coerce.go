package evaluator

import (
	"fmt"
	"strconv"
)

// coerce implements the §4.5 type-aligning coercion: it nudges the
// condition operand exp toward the type of the context value ctx so
// that "18" (a literal string, because JSON numbers and strings both
// arrive as Go values here) can still compare equal to the number 18.
func coerce(ctx, exp any) any {
	switch c := ctx.(type) {
	case float64:
		if s, ok := exp.(string); ok {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f
			}
		}
	case bool:
		switch e := exp.(type) {
		case string:
			switch e {
			case "true":
				return true
			case "false":
				return false
			}
		case float64:
			return e != 0
		}
	case string:
		switch e := exp.(type) {
		case float64:
			return formatNumber(e)
		case bool:
			if e {
				return "true"
			}
			return "false"
		}
		_ = c
	}
	return exp
}

// stringify renders a context/value operand the way the segmentation
// hash input is built: str(value).
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		return formatNumber(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
