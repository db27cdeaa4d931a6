package utils

import "time"

// StorageTimeLayout is RFC3339 with fixed millisecond precision so stored
// timestamps sort lexicographically.
const StorageTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t in UTC using StorageTimeLayout
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(StorageTimeLayout)
}

// ParseTimestamp parses a stored timestamp. Plain RFC3339 values written
// by older code are accepted too.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
