package state

import (
	"bytes"
	"log/slog"
	"maps"
	"sync"
	"testing"
)

// fakePersister records saves in memory. testutil.MemoryPersister cannot be
// used here without an import cycle.
type fakePersister struct {
	mu      sync.Mutex
	records map[string]Record
	saves   int
	loadErr error
	saveErr error
}

func (p *fakePersister) Load() (map[string]Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	return maps.Clone(p.records), nil
}

func (p *fakePersister) Save(records map[string]Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saveErr != nil {
		return p.saveErr
	}
	p.records = maps.Clone(records)
	p.saves++
	return nil
}

func (p *fakePersister) saveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// createTestStore creates a loaded store over a fake persister with logs captured.
func createTestStore(t *testing.T) (*Store, *fakePersister, *syncBuffer) {
	t.Helper()
	p := &fakePersister{}
	logs := &syncBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := New(p, WithLogger(logger))
	if err := s.Load(); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	return s, p, logs
}
