package events

import "github.com/google/uuid"

// IDGenerator stamps each published event with an ID. The same ID appears in
// the publish log line and in every handler's log lines for that event, which
// is how a room sighting is traced to the queue entry it produced.
type IDGenerator interface {
	Generate() string
}

// TimeOrderedIDs stamps events with UUIDv7s, so sorting a session's log by
// event ID also sorts it by publish time. It is the bus default.
type TimeOrderedIDs struct{}

// Generate returns a new UUIDv7. It panics only if the system random source
// fails.
func (TimeOrderedIDs) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// IDFunc adapts a plain function to IDGenerator.
type IDFunc func() string

// Generate calls f.
func (f IDFunc) Generate() string {
	return f()
}
