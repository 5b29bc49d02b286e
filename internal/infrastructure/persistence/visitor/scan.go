// Package visitor provides the concrete SQL-based implementations of the
// visitor domain repositories (Fingerprint, Stats, EventLog, Achievement,
// Progress).
package visitor

import "time"

// parseTimestamp handles the two formats the drivers hand back.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", s)
}
