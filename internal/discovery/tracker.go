package discovery

import (
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/BatmenzDW/BluePrinceArchipelago/internal/events"
	"github.com/BatmenzDW/BluePrinceArchipelago/internal/state"
	"github.com/BatmenzDW/BluePrinceArchipelago/internal/value"
)

// State keys holding the seen lists.
const (
	DraftedRoomsKey = "DraftedRooms"
	FoundItemsKey   = "FoundItems"
)

// EventType is the queue event type used when a seen list changes.
const EventType = "discovery"

// Tracker remembers first encounters.
//
// Thread-safety: safe for concurrent use. First sightings are published one
// at a time, so the persisted lists only grow. Handlers may query the
// Tracker but must not call RoomDrafted or ItemFound.
type Tracker struct {
	bus    *events.Bus
	logger *slog.Logger

	// publishMu orders first sightings with their events.
	publishMu sync.Mutex

	mu    sync.Mutex
	rooms map[string]struct{}
	items map[string]struct{}
}

// Option customises a Tracker.
type Option func(*Tracker)

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New creates a tracker publishing on bus. A nil bus makes publishing a no-op.
func New(bus *events.Bus, opts ...Option) *Tracker {
	t := &Tracker{
		bus:    bus,
		logger: slog.Default(),
		rooms:  make(map[string]struct{}),
		items:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RoomDrafted records that name was drafted. It returns true only the first
// time, after publishing the discovery and the updated DraftedRooms list.
func (t *Tracker) RoomDrafted(name string) bool {
	return t.see(name, events.SubjectRoom, DraftedRoomsKey)
}

// ItemFound records that name was picked up. It returns true only the first
// time, after publishing the discovery and the updated FoundItems list.
func (t *Tracker) ItemFound(name string) bool {
	return t.see(name, events.SubjectItem, FoundItemsKey)
}

// HasDrafted reports whether name was drafted.
func (t *Tracker) HasDrafted(name string) bool {
	return t.has(events.SubjectRoom, name)
}

// HasFound reports whether name was picked up.
func (t *Tracker) HasFound(name string) bool {
	return t.has(events.SubjectItem, name)
}

// Rooms returns the drafted rooms in sorted order.
func (t *Tracker) Rooms() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return sortedKeys(t.rooms)
}

// Items returns the picked-up items in sorted order.
func (t *Tracker) Items() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return sortedKeys(t.items)
}

// Restore replaces the seen lists with those persisted in s. Lists that are
// missing or unreadable start empty. Nothing is published.
func (t *Tracker) Restore(s *state.Store) {
	rooms := t.restoreList(s, DraftedRoomsKey)
	items := t.restoreList(s, FoundItemsKey)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rooms = rooms
	t.items = items
	t.logger.Debug("discoveries restored", "rooms", len(rooms), "items", len(items))
}

func (t *Tracker) restoreList(s *state.Store, key string) map[string]struct{} {
	set := make(map[string]struct{})
	if !s.Contains(key) {
		return set
	}
	names, err := state.Lookup(s, key, state.Strings)
	if err != nil {
		t.logger.Warn("discarding unreadable discovery list", "key", key, "error", err)
		return set
	}
	for _, name := range names {
		if n := normalize(name); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

func (t *Tracker) see(name string, kind events.SubjectKind, key string) bool {
	n := normalize(name)
	if n == "" {
		return false
	}

	t.publishMu.Lock()
	defer t.publishMu.Unlock()

	t.mu.Lock()
	seen := t.setLocked(kind)
	if _, ok := seen[n]; ok {
		t.mu.Unlock()
		return false
	}
	seen[n] = struct{}{}
	list := sortedKeys(seen)
	t.mu.Unlock()

	t.bus.PublishDiscovery(n, kind)
	t.bus.PublishQueueEvent(key, EventType, value.Strings(list), events.WithType(state.TypeStrings))
	return true
}

func (t *Tracker) has(kind events.SubjectKind, name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.setLocked(kind)[normalize(name)]
	return ok
}

func (t *Tracker) setLocked(kind events.SubjectKind) map[string]struct{} {
	if kind == events.SubjectItem {
		return t.items
	}
	return t.rooms
}

// normalize upper-cases names so "Parlor" and "PARLOR" are one room.
func normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// sortedKeys returns the names in set in sorted order.
func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
