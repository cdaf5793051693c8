package knowledge

import "time"

// timeNow is a package-level variable for testability.
// Tests can replace this to control time in assertions.
var timeNow = time.Now

// now returns the current time formatted for persisted documents.
func now() string {
	return timeNow().UTC().Format(time.RFC3339Nano)
}
