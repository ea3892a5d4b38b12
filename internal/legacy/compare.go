package legacy

import (
	"cmp"
	"math"
	"strconv"
	"strings"
)

// CompareLegacy orders two order-index values the way the legacy system's
// relational comparison did. Two strings compare lexicographically, so "10"
// sorts before "9". Anything else compares numerically after coercion, with
// NULL counting as 0. Values that do not coerce to a number compare equal.
func CompareLegacy(a, b any) int {
	as, aText := asText(a)
	bs, bText := asText(b)
	if aText && bText {
		return strings.Compare(as, bs)
	}

	x, okA := toNumber(a)
	y, okB := toNumber(b)
	if !okA || !okB {
		return 0
	}
	return cmp.Compare(x, y)
}

func asText(v any) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}

func toNumber(v any) (float64, bool) {
	switch v := v.(type) {
	case nil:
		return 0, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case float64:
		if math.IsNaN(v) {
			return 0, false
		}
		return v, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string, []byte:
		s := strings.TrimSpace(formatValue(v))
		if s == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
