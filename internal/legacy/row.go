// Package legacy reads the converted Living Cookbook tables from the
// disposable store and builds the per-recipe indices used for aggregation.
package legacy

import (
	"strconv"
	"strings"
	"time"
)

// Row is one row of a legacy table keyed by lower-cased column name. Values
// are whatever the SQLite driver produced: int64, float64, string, []byte,
// bool, time.Time or nil.
type Row map[string]any

// Tables maps a legacy table name to its rows in source order.
type Tables map[string][]Row

// dateLayouts are tried in order when a date column holds text. The first one
// is the default mdb-export format.
var dateLayouts = []string{
	"01/02/06 15:04:05",
	"01/02/2006 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/06",
	"01/02/2006",
	"2006-01-02",
}

// Value returns the raw value of col, nil when absent.
func (r Row) Value(col string) any {
	return r[col]
}

// String returns col formatted as text; absent and NULL values give "".
func (r Row) String(col string) string {
	return formatValue(r[col])
}

// Present reports whether col holds a non-NULL, non-empty value.
func (r Row) Present(col string) bool {
	switch v := r[col].(type) {
	case nil:
		return false
	case string:
		return v != ""
	case []byte:
		return len(v) > 0
	default:
		return true
	}
}

// Int parses col as an integer.
func (r Row) Int(col string) (int, bool) {
	switch v := r[col].(type) {
	case int64:
		return int(v), true
	case int:
		return v, true
	case int32:
		return int(v), true
	case float64:
		return int(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string, []byte:
		n, err := strconv.Atoi(strings.TrimSpace(formatValue(v)))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Time parses col as a timestamp. Zero times, as produced by the driver for
// unparsable DATETIME text, count as absent.
func (r Row) Time(col string) (time.Time, bool) {
	switch v := r[col].(type) {
	case time.Time:
		return v, !v.IsZero()
	case string, []byte:
		s := strings.TrimSpace(formatValue(v))
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return ""
	}
}

// normalizeRow lower-cases column names.
func normalizeRow(m map[string]any) Row {
	row := make(Row, len(m))
	for k, v := range m {
		row[strings.ToLower(k)] = v
	}
	return row
}
