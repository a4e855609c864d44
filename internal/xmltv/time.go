package xmltv

import (
	"strings"
	"time"
)

var timeLayouts = []string{
	"20060102150405 -0700",
	"20060102150405 -07:00",
	"20060102150405-0700",
	"20060102150405",
	"200601021504 -0700",
	"200601021504",
}

// ParseTime reads an XMLTV timestamp ("YYYYMMDDHHMMSS ±HHMM"). A missing
// offset means UTC. The result is always in UTC.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatTime is the inverse of ParseTime for UTC output.
func FormatTime(t time.Time) string {
	return t.UTC().Format("20060102150405 -0700")
}
