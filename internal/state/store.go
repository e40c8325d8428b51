package state

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/BatmenzDW/BluePrinceArchipelago/internal/value"
)

// Persister reads and writes the whole record set.
// Save receives a snapshot the store no longer mutates; implementations may
// retain it.
type Persister interface {
	Load() (map[string]Record, error)
	Save(records map[string]Record) error
}

// ErrNotLoaded is returned by Save before the first Load. Writing then would
// replace the persisted records with whatever happens to be in memory.
var ErrNotLoaded = errors.New("state not loaded")

// Phase is the store's lifecycle position.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseLoaded
	PhaseMutated
	PhasePersisted
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseLoaded:
		return "loaded"
	case PhaseMutated:
		return "mutated"
	case PhasePersisted:
		return "persisted"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Store is the in-memory map of records.
//
// Thread-safety: a single mutex covers every read, read-modify-write and
// save, so Store is safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	records   map[string]Record
	persister Persister
	logger    *slog.Logger
	phase     Phase
}

// Option customises a Store.
type Option func(*Store)

// WithLogger overrides the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates an empty, uninitialized store. A nil persister keeps the store
// memory-only.
func New(p Persister, opts ...Option) *Store {
	s := &Store{
		records:   make(map[string]Record),
		persister: p,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory records with the persisted ones.
// On error the store is left empty and Loaded; the caller decides whether
// that fallback is acceptable.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseUninitialized && len(s.records) > 0 {
		s.logger.Warn("discarding writes made before state was loaded", "records", len(s.records))
	}
	s.records = make(map[string]Record)
	s.phase = PhaseLoaded
	if s.persister == nil {
		return nil
	}

	records, err := s.persister.Load()
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	for name, rec := range records {
		// The map key is authoritative; older files may carry a stale Name.
		rec.Name = name
		s.records[name] = rec
	}
	s.logger.Debug("state loaded", "records", len(s.records))
	return nil
}

type updateConfig struct {
	typ  TypeName
	save bool
}

// UpdateOption customises a single write.
type UpdateOption func(*updateConfig)

// As declares the type tag for the written value instead of its runtime kind.
func As(t TypeName) UpdateOption {
	return func(c *updateConfig) {
		c.typ = t
	}
}

// NoSave skips the save that normally follows a write.
func NoSave() UpdateOption {
	return func(c *updateConfig) {
		c.save = false
	}
}

// Update writes v under key, tagged with its runtime kind unless As is given,
// then saves the whole store unless NoSave is given.
//
// Update has no error path. A value that cannot be encoded (a NaN float) is
// logged and the previous record under key is kept. Before Load the write
// stays in memory and is discarded by Load.
func (s *Store) Update(key string, v value.Value, opts ...UpdateOption) {
	cfg := updateConfig{typ: TypeOf(v), save: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := newRecord(key, v, cfg.typ)
	if err != nil {
		s.logger.Error("state value not encodable, keeping previous record",
			"key", key,
			"type", cfg.typ,
			"error", err,
		)
		return
	}
	s.records[key] = rec
	s.markMutatedLocked()

	if cfg.save {
		_ = s.saveLocked()
	}
}

// BulkUpdate writes every key/value pair, each tagged with its runtime kind,
// then saves once.
//
// With unequal lengths, or any value that cannot be encoded, nothing is
// written. This is one save per batch, not a transaction.
func (s *Store) BulkUpdate(keys []string, values []value.Value) error {
	if len(keys) != len(values) {
		err := &Error{
			Code:    ErrCodeCountMismatch,
			Message: fmt.Sprintf("%d keys but %d values", len(keys), len(values)),
		}
		s.logger.Warn("unable to add data to the state, number of keys and values do not match",
			"keys", len(keys),
			"values", len(values),
		)
		return err
	}

	batch := make([]Record, len(keys))
	for i, key := range keys {
		rec, err := newRecord(key, values[i], TypeOf(values[i]))
		if err != nil {
			s.logger.Error("state value not encodable, bulk update skipped", "key", key, "error", err)
			return fmt.Errorf("bulk update %q: %w", key, err)
		}
		batch[i] = rec
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range batch {
		s.records[rec.Name] = rec
	}
	s.markMutatedLocked()
	_ = s.saveLocked()
	return nil
}

// Delete removes key and saves unless NoSave is given. It reports whether
// key was present; deleting a missing key does not save.
func (s *Store) Delete(key string, opts ...UpdateOption) bool {
	cfg := updateConfig{save: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[key]; !ok {
		return false
	}
	delete(s.records, key)
	s.markMutatedLocked()
	if cfg.save {
		_ = s.saveLocked()
	}
	return true
}

// Contains reports whether key is present.
func (s *Store) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[key]
	return ok
}

// Record returns the raw record stored under key.
func (s *Store) Record(key string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	return rec, ok
}

// Keys returns all record names in sorted order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Snapshot returns a copy of all records.
func (s *Store) Snapshot() map[string]Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.records)
}

// Phase returns the current lifecycle phase.
func (s *Store) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Save persists the whole store now.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

// Reset discards every record except the multiworld credentials, which are
// re-seeded under ServerDataKey, then saves.
//
// Credentials that are missing or unreadable are re-seeded empty.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := lookupLocked(s, ServerDataKey, ServerDataType)
	if err != nil {
		s.logger.Warn("no server data to preserve across reset", "error", err)
		creds = ServerData{}
	}

	dropped := len(s.records)
	if _, ok := s.records[ServerDataKey]; ok {
		dropped--
	}
	s.records = make(map[string]Record)

	rec, err := encodeServerDataRecord(creds)
	if err != nil {
		s.logger.Error("server data not encodable", "error", err)
	} else {
		s.records[ServerDataKey] = rec
	}

	s.logger.Info("state reset", "dropped", dropped)
	if s.phase == PhaseUninitialized {
		_ = s.saveLocked()
		return
	}
	if err := s.saveLocked(); err != nil {
		s.phase = PhaseMutated
		return
	}
	s.phase = PhaseLoaded
}

func encodeServerDataRecord(creds ServerData) (Record, error) {
	encoded, err := ServerDataType.Encode(creds)
	if err != nil {
		return Record{}, err
	}
	return newRecord(ServerDataKey, encoded, TypeServerData)
}

// markMutatedLocked leaves an unloaded store Uninitialized.
func (s *Store) markMutatedLocked() {
	if s.phase != PhaseUninitialized {
		s.phase = PhaseMutated
	}
}

func (s *Store) saveLocked() error {
	if s.phase == PhaseUninitialized {
		s.logger.Warn("state not loaded, write kept in memory only", "records", len(s.records))
		return ErrNotLoaded
	}
	if s.persister == nil {
		s.phase = PhasePersisted
		return nil
	}
	if err := s.persister.Save(maps.Clone(s.records)); err != nil {
		s.logger.Error("state save failed, in-memory state remains authoritative",
			"records", len(s.records),
			"error", err,
		)
		return fmt.Errorf("save state: %w", err)
	}
	s.phase = PhasePersisted
	s.logger.Debug("state saved", "records", len(s.records))
	return nil
}

func newRecord(key string, v value.Value, typ TypeName) (Record, error) {
	payload, err := value.MarshalString(v)
	if err != nil {
		return Record{}, err
	}
	return Record{Name: key, Payload: payload, Type: typ}, nil
}
