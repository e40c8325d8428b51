package events

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/BatmenzDW/BluePrinceArchipelago/internal/state"
	"github.com/BatmenzDW/BluePrinceArchipelago/internal/value"
)

// Bus fans discovery and queue events out to subscribers.
type Bus struct {
	logger    *slog.Logger
	ids       IDGenerator
	mu        sync.RWMutex
	discovery []discoverySub
	queue     []queueSub
	nextID    uint64
}

type discoverySub struct {
	id uint64
	h  DiscoveryHandler
}

type queueSub struct {
	id uint64
	h  QueueHandler
}

// New constructs an empty bus.
func New(opts ...BusOption) *Bus {
	b := &Bus{
		logger: slog.Default(),
		ids:    TimeOrderedIDs{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BusOption customises bus behaviour.
type BusOption func(*Bus)

// WithLogger overrides the logger used for delivery diagnostics.
func WithLogger(logger *slog.Logger) BusOption {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithIDGenerator overrides how event IDs are produced.
func WithIDGenerator(ids IDGenerator) BusOption {
	return func(b *Bus) {
		if ids != nil {
			b.ids = ids
		}
	}
}

// OnDiscovery registers h for discovery events and returns a func that
// removes it. If b is nil the registration is a no-op.
func (b *Bus) OnDiscovery(h DiscoveryHandler) (unsubscribe func()) {
	if b == nil || h == nil {
		return func() {}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.discovery = append(b.discovery, discoverySub{id: id, h: h})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.discovery = slices.DeleteFunc(b.discovery, func(s discoverySub) bool { return s.id == id })
		})
	}
}

// OnQueueEvent registers h for queue events and returns a func that
// removes it. If b is nil the registration is a no-op.
func (b *Bus) OnQueueEvent(h QueueHandler) (unsubscribe func()) {
	if b == nil || h == nil {
		return func() {}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.queue = append(b.queue, queueSub{id: id, h: h})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.queue = slices.DeleteFunc(b.queue, func(s queueSub) bool { return s.id == id })
		})
	}
}

// PublishDiscovery notifies discovery subscribers that subject was found
// for the first time and returns the delivered event.
func (b *Bus) PublishDiscovery(subject string, kind SubjectKind) Discovery {
	ev := Discovery{
		Subject: subject,
		Kind:    kind,
		Message: LocationName(subject, kind),
	}
	if b == nil {
		return ev
	}
	ev.ID = b.ids.Generate()

	b.mu.RLock()
	subs := slices.Clone(b.discovery)
	b.mu.RUnlock()

	b.logger.Debug("publishing discovery",
		"event_id", ev.ID,
		"location", ev.Message,
		"kind", string(kind),
		"subscribers", len(subs),
	)
	for _, sub := range subs {
		b.deliver("discovery", ev.ID, func() { sub.h(ev) })
	}
	return ev
}

type publishConfig struct {
	typ state.TypeName
}

// PublishOption customises a queue event.
type PublishOption func(*publishConfig)

// WithType declares the payload's type tag instead of its runtime kind.
func WithType(t state.TypeName) PublishOption {
	return func(c *publishConfig) {
		c.typ = t
	}
}

// PublishQueueEvent notifies queue subscribers that payload should be
// stored under sender and returns the delivered event. A nil payload is
// sent as value.Null.
func (b *Bus) PublishQueueEvent(sender, eventType string, payload value.Value, opts ...PublishOption) QueueEvent {
	if payload == nil {
		payload = value.Null{}
	}
	cfg := publishConfig{typ: state.TypeOf(payload)}
	for _, opt := range opts {
		opt(&cfg)
	}

	ev := QueueEvent{
		Sender:    sender,
		EventType: eventType,
		Payload:   payload,
		Type:      cfg.typ,
	}
	if b == nil {
		return ev
	}
	ev.ID = b.ids.Generate()

	b.mu.RLock()
	subs := slices.Clone(b.queue)
	b.mu.RUnlock()

	b.logger.Debug("publishing queue event",
		"event_id", ev.ID,
		"sender", sender,
		"event_type", eventType,
		"type", cfg.typ,
		"subscribers", len(subs),
	)
	for _, sub := range subs {
		b.deliver("queue", ev.ID, func() { sub.h(ev) })
	}
	return ev
}

// Subscribers returns the number of discovery and queue handlers.
func (b *Bus) Subscribers() (discovery, queue int) {
	if b == nil {
		return 0, 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.discovery), len(b.queue)
}

// Shutdown removes every handler. If b is nil the call is a no-op.
func (b *Bus) Shutdown() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.discovery = nil
	b.queue = nil
}

func (b *Bus) deliver(channel, eventID string, call func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"channel", channel,
				"event_id", eventID,
				"panic", r,
			)
		}
	}()
	call()
}
