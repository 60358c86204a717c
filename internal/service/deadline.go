package service

import (
	"fmt"
	"strings"
	"time"
)

// deadlineLayouts are tried in order. Layouts without a zone are read as UTC.
var deadlineLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateOnly,
}

// ParseDeadline converts the client supplied deadline into a point in time.
func ParseDeadline(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	for _, layout := range deadlineLayouts {
		deadline, err := time.Parse(layout, value)
		if err == nil {
			return deadline, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDeadline, raw)
}
