package tool

import "github.com/google/uuid"

// TraceID returns a time-ordered identifier for request tracing. UUIDv7
// keeps log entries sortable by creation time.
func TraceID() string {
	return uuid.Must(uuid.NewV7()).String()
}
