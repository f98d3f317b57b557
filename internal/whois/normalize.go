package whois

import (
	"strings"
	"time"
)

// timestampLayouts are the recognised string formats, tried in order.
// First match wins.
var timestampLayouts = []string{
	"2006-01-02T15:04:05Z07:00", // ISO-8601 with offset
	"2006-01-02T15:04:05",       // ISO-8601 without offset
	"2006-01-02 15:04:05",       // space-separated date-time
	"2006-01-02",                // date-only
}

// NormalizeTimestamp coerces the loosely-typed date values that WHOIS
// registries return into a timezone-aware timestamp. Accepted inputs are
// a time.Time, a date string in one of the recognised formats, or a list
// wrapping either. Values without zone information default to UTC.
// The second return value is false when no timestamp could be derived;
// an unrecognised string is a degraded result, not an error.
func NormalizeTimestamp(value any) (time.Time, bool) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false
		}
		return v, true
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, false
		}
		return *v, true
	case string:
		return parseTimestamp(v)
	case []string:
		if len(v) == 0 {
			return time.Time{}, false
		}
		return NormalizeTimestamp(v[0])
	case []any:
		if len(v) == 0 {
			return time.Time{}, false
		}
		return NormalizeTimestamp(v[0])
	default:
		return time.Time{}, false
	}
}

func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	for _, layout := range timestampLayouts {
		// time.Parse yields UTC for layouts without zone information,
		// which matches the UTC-default rule.
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
