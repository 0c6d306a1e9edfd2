package util

import "time"

// ParseTime parses an RFC3339 or RFC3339Nano timestamp, returning nil when
// neither fits. Backends disagree on sub-second precision.
func ParseTime(timeStr string) *time.Time {
	if t, err := time.Parse(time.RFC3339, timeStr); err == nil {
		return &t
	}
	if t, err := time.Parse(time.RFC3339Nano, timeStr); err == nil {
		return &t
	}
	return nil
}
