package todo

import "time"

// timeNow is a package-level variable for testability.
var timeNow = time.Now

func now() string {
	return timeNow().UTC().Format(time.RFC3339Nano)
}

// parseTime reads a persisted timestamp; the zero time is returned for
// empty or malformed values.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
