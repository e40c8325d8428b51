package mod

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/BatmenzDW/BluePrinceArchipelago/internal/config"
	"github.com/BatmenzDW/BluePrinceArchipelago/internal/discovery"
	"github.com/BatmenzDW/BluePrinceArchipelago/internal/events"
	"github.com/BatmenzDW/BluePrinceArchipelago/internal/state"
	"github.com/BatmenzDW/BluePrinceArchipelago/internal/statedb"
	"github.com/BatmenzDW/BluePrinceArchipelago/internal/statefile"
	"github.com/BatmenzDW/BluePrinceArchipelago/internal/value"
)

// ErrAlreadyInitialized is returned by a second call to Initialize.
var ErrAlreadyInitialized = errors.New("mod already initialized")

// Mod wires the store to its backend and to the event bus.
//
// Thread-safety: all methods are safe for concurrent use. Initialize and
// Shutdown are serialized against each other.
type Mod struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *state.Store
	bus       *events.Bus
	tracker   *discovery.Tracker
	persister state.Persister
	backend   state.Persister
	closers   []io.Closer
	strict    bool

	mu          sync.Mutex
	initialized bool
	unsubscribe func()
}

type options struct {
	logger    *slog.Logger
	bus       *events.Bus
	persister state.Persister
	strict    bool
}

// Option customises a Mod.
type Option func(*options)

// WithLogger overrides slog.Default() for the mod and everything it builds.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithBus shares an existing bus instead of creating one.
func WithBus(bus *events.Bus) Option {
	return func(o *options) {
		o.bus = bus
	}
}

// WithPersister bypasses the configured backend. SaveDelay still applies.
func WithPersister(p state.Persister) Option {
	return func(o *options) {
		o.persister = p
	}
}

// WithStrictLoad makes Initialize fail on malformed persisted data instead
// of continuing empty. Tools that rewrite the file use it so a bad file is
// never replaced by an empty one.
func WithStrictLoad() Option {
	return func(o *options) {
		o.strict = true
	}
}

// New validates cfg and builds the backend, store, bus and tracker.
// Nothing is read from disk until Initialize.
func New(cfg config.Config, opts ...Option) (*Mod, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Mod{cfg: cfg, logger: logger, strict: o.strict}

	p := o.persister
	if p == nil {
		var err error
		p, err = m.openBackend()
		if err != nil {
			return nil, err
		}
	}
	m.backend = p
	if cfg.SaveDelay > 0 {
		wb := state.NewWriteBehind(p, cfg.SaveDelay, logger)
		// Flush before the backend closes.
		m.closers = append([]io.Closer{wb}, m.closers...)
		p = wb
	}
	m.persister = p

	m.bus = o.bus
	if m.bus == nil {
		m.bus = events.New(events.WithLogger(logger))
	}
	m.store = state.New(p, state.WithLogger(logger))
	m.tracker = discovery.New(m.bus, discovery.WithLogger(logger))
	return m, nil
}

func (m *Mod) openBackend() (state.Persister, error) {
	path := m.cfg.StatePath()
	switch m.cfg.Backend {
	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, state.NewIOError("create directory for", path, err)
		}
		db, err := statedb.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open state database: %w", err)
		}
		m.closers = append(m.closers, db)
		return db, nil
	default:
		return statefile.New(path, statefile.WithLogger(m.logger)), nil
	}
}

// Initialize loads persisted state and starts persisting queue events.
//
// Malformed persisted data is logged and the mod continues with an empty
// store; the next save overwrites the file. Other load failures are
// returned.
func (m *Mod) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return ErrAlreadyInitialized
	}

	if err := m.store.Load(); err != nil {
		if m.strict || !state.IsMalformed(err) {
			return fmt.Errorf("initialize: %w", err)
		}
		m.logger.Error("persisted state is malformed, continuing with empty state",
			"path", m.cfg.StatePath(),
			"error", err,
		)
	}

	m.unsubscribe = m.bus.OnQueueEvent(m.persistQueueEvent)
	m.tracker.Restore(m.store)
	m.initialized = true

	m.logger.Info("mod initialized",
		"path", m.cfg.StatePath(),
		"backend", string(m.cfg.Backend),
		"records", m.store.Len(),
	)
	return nil
}

func (m *Mod) persistQueueEvent(ev events.QueueEvent) {
	m.store.Update(ev.Sender, ev.Payload, state.As(ev.Type))
}

// Shutdown stops persisting queue events, writes pending data and closes
// the backend. The mod cannot be initialized again.
func (m *Mod) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}

	var errs []error
	for _, c := range m.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	m.closers = nil
	if err := errors.Join(errs...); err != nil {
		m.logger.Error("mod shutdown failed", "error", err)
		return fmt.Errorf("shutdown: %w", err)
	}
	m.logger.Debug("mod shut down")
	return nil
}

// Update stores v under key. See state.Store.Update.
func (m *Mod) Update(key string, v value.Value, opts ...state.UpdateOption) {
	m.store.Update(key, v, opts...)
}

// BulkUpdate stores every key/value pair and saves once.
func (m *Mod) BulkUpdate(keys []string, values []value.Value) error {
	return m.store.BulkUpdate(keys, values)
}

// Contains reports whether key is stored.
func (m *Mod) Contains(key string) bool {
	return m.store.Contains(key)
}

// Reset clears everything except the multiworld credentials, including the
// discovery lists.
func (m *Mod) Reset() {
	m.store.Reset()
	m.tracker.Restore(m.store)
}

// Store returns the underlying store.
func (m *Mod) Store() *state.Store {
	return m.store
}

// Bus returns the event bus.
func (m *Mod) Bus() *events.Bus {
	return m.bus
}

// Tracker returns the discovery tracker.
func (m *Mod) Tracker() *discovery.Tracker {
	return m.tracker
}

// Backend returns the persister the store writes to, without the
// write-behind wrapper.
func (m *Mod) Backend() state.Persister {
	return m.backend
}

// Config returns the configuration the mod was built with.
func (m *Mod) Config() config.Config {
	return m.cfg
}

// NotifyFirstDiscovery announces that subject was encountered for the
// first time.
func (m *Mod) NotifyFirstDiscovery(subject string, kind events.SubjectKind) events.Discovery {
	return m.bus.PublishDiscovery(subject, kind)
}

// NotifyQueueEvent asks for payload to be stored under sender.
func (m *Mod) NotifyQueueEvent(sender, eventType string, payload value.Value, opts ...events.PublishOption) events.QueueEvent {
	return m.bus.PublishQueueEvent(sender, eventType, payload, opts...)
}

// StoreUnderKey stores v under key with typ's tag. Pass state.NoSave() to
// skip the save.
func StoreUnderKey[T any](m *Mod, v T, key string, typ state.Type[T], opts ...state.UpdateOption) {
	state.Put(m.store, key, v, typ, opts...)
}

// Get reads key as typ. On failure it logs and returns the zero value and
// false.
func Get[T any](m *Mod, key string, typ state.Type[T]) (T, bool) {
	return state.Get(m.store, key, typ)
}
