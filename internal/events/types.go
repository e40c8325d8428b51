package events

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/BatmenzDW/BluePrinceArchipelago/internal/state"
	"github.com/BatmenzDW/BluePrinceArchipelago/internal/value"
)

// SubjectKind labels what was discovered. The label is the location type
// reported to the multiworld.
type SubjectKind string

const (
	SubjectRoom SubjectKind = "First Draft Room"
	SubjectItem SubjectKind = "Item First Pickup"
)

var subjectSuffix = map[SubjectKind]string{
	SubjectRoom: "First Entering",
	SubjectItem: "First Pickup",
}

// Discovery reports a first encounter with a room or item.
type Discovery struct {
	ID      string
	Subject string
	Kind    SubjectKind
	// Message is the location name, e.g. "Parlor First Entering".
	Message string
}

// QueueEvent asks for Payload to be persisted under Sender.
type QueueEvent struct {
	ID        string
	Sender    string
	EventType string
	Payload   value.Value
	Type      state.TypeName
}

// DiscoveryHandler receives discovery events.
type DiscoveryHandler func(Discovery)

// QueueHandler receives queue events.
type QueueHandler func(QueueEvent)

// LocationName builds the human-readable location for subject and kind:
// the subject title-cased, followed by the kind's suffix. Unknown kinds
// use the kind label itself as the suffix.
func LocationName(subject string, kind SubjectKind) string {
	// Casers are stateful; build one per call.
	title := cases.Title(language.English).String(strings.ToLower(strings.TrimSpace(subject)))
	suffix, ok := subjectSuffix[kind]
	if !ok {
		suffix = string(kind)
	}
	if suffix == "" {
		return title
	}
	return title + " " + suffix
}
