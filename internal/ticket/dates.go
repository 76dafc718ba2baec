package ticket

import (
	"strings"
	"time"
)

// submitDateLayouts is tried in priority order; the first match wins.
var submitDateLayouts = []string{
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-01-2006 15:04:05",
	"02-01-2006",
	"Jan 2 2006 3:04PM",
	"Jan 2 2006 3:04pm",
	"Jan _2 2006 3:04PM",
	"Jan _2 2006 3:04pm",
}

// genericDateLayouts is the best-effort fallback once the explicit
// ladder is exhausted.
var genericDateLayouts = []string{
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
	time.RFC3339,
}

// ParseSubmitDate parses a SubmitDate value. It is total: malformed
// input returns ok=false and callers exclude the row from date-based
// views instead of failing the run.
func ParseSubmitDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "nan") {
		return time.Time{}, false
	}
	for _, layout := range submitDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range genericDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
