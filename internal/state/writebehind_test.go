package state

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteBehind_CoalescesSaves(t *testing.T) {
	next := &fakePersister{}
	w := NewWriteBehind(next, time.Hour, nil)

	for i := 0; i < 5; i++ {
		require.NoError(t, w.Save(map[string]Record{"k": {Name: "k", Payload: string(rune('0' + i)), Type: TypeInt}}))
	}
	assert.Equal(t, 0, next.saveCount())
	assert.True(t, w.Pending())

	require.NoError(t, w.Flush())
	assert.Equal(t, 1, next.saveCount())
	assert.Equal(t, "4", next.records["k"].Payload, "latest snapshot wins")
	assert.False(t, w.Pending())

	require.NoError(t, w.Flush())
	assert.Equal(t, 1, next.saveCount(), "nothing pending")
}

func TestWriteBehind_TimerFlushes(t *testing.T) {
	next := &fakePersister{}
	w := NewWriteBehind(next, 10*time.Millisecond, nil)

	require.NoError(t, w.Save(map[string]Record{"k": {Name: "k", Payload: "1", Type: TypeInt}}))

	assert.Eventually(t, func() bool { return next.saveCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, w.Pending())
}

func TestWriteBehind_FailedFlushStaysPending(t *testing.T) {
	next := &fakePersister{saveErr: errors.New("disk full")}
	w := NewWriteBehind(next, time.Hour, nil)
	require.NoError(t, w.Save(map[string]Record{"k": {Name: "k", Payload: "1", Type: TypeInt}}))

	require.Error(t, w.Flush())
	assert.True(t, w.Pending())

	next.mu.Lock()
	next.saveErr = nil
	next.mu.Unlock()
	require.NoError(t, w.Flush())
	assert.Equal(t, 1, next.saveCount())
}

func TestWriteBehind_CloseFlushesThenWritesThrough(t *testing.T) {
	next := &fakePersister{}
	w := NewWriteBehind(next, time.Hour, nil)
	require.NoError(t, w.Save(map[string]Record{"a": {Name: "a", Payload: "1", Type: TypeInt}}))

	require.NoError(t, w.Close())
	assert.Equal(t, 1, next.saveCount())

	require.NoError(t, w.Save(map[string]Record{"b": {Name: "b", Payload: "2", Type: TypeInt}}))
	assert.Equal(t, 2, next.saveCount())
}

func TestWriteBehind_WithStore(t *testing.T) {
	next := &fakePersister{records: map[string]Record{"old": {Name: "old", Payload: "1", Type: TypeInt}}}
	w := NewWriteBehind(next, time.Hour, nil)
	s := New(w)
	require.NoError(t, s.Load())
	assert.True(t, s.Contains("old"), "load delegates")

	for i := 0; i < 10; i++ {
		Put(s, "n", int64(i), Int)
	}
	assert.Equal(t, 0, next.saveCount())

	require.NoError(t, w.Close())
	assert.Equal(t, 1, next.saveCount())
	assert.Equal(t, "9", next.records["n"].Payload)
}

// gatedPersister blocks its first Save until release is closed.
type gatedPersister struct {
	fakePersister
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (p *gatedPersister) Save(records map[string]Record) error {
	p.once.Do(func() {
		close(p.entered)
		<-p.release
	})
	return p.fakePersister.Save(records)
}

func TestWriteBehind_SaveDuringCloseIsNotOverwritten(t *testing.T) {
	next := &gatedPersister{entered: make(chan struct{}), release: make(chan struct{})}
	w := NewWriteBehind(next, time.Hour, nil)
	require.NoError(t, w.Save(map[string]Record{"k": {Name: "k", Payload: "1", Type: TypeInt}}))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, w.Close())
	}()
	<-next.entered
	go func() {
		defer wg.Done()
		assert.NoError(t, w.Save(map[string]Record{"k": {Name: "k", Payload: "2", Type: TypeInt}}))
	}()
	time.Sleep(10 * time.Millisecond)
	close(next.release)
	wg.Wait()

	next.mu.Lock()
	defer next.mu.Unlock()
	assert.Equal(t, "2", next.records["k"].Payload, "newer snapshot is written last")
	assert.Equal(t, 2, next.saves)
	assert.False(t, w.Pending())
}

func TestWriteBehind_WriteThroughClearsFailedPending(t *testing.T) {
	next := &fakePersister{saveErr: errors.New("disk full")}
	w := NewWriteBehind(next, time.Hour, nil)
	require.NoError(t, w.Save(map[string]Record{"k": {Name: "k", Payload: "1", Type: TypeInt}}))
	require.Error(t, w.Close())
	assert.True(t, w.Pending())

	next.mu.Lock()
	next.saveErr = nil
	next.mu.Unlock()
	require.NoError(t, w.Save(map[string]Record{"k": {Name: "k", Payload: "2", Type: TypeInt}}))
	require.NoError(t, w.Flush())

	assert.False(t, w.Pending())
	assert.Equal(t, 1, next.saveCount())
	assert.Equal(t, "2", next.records["k"].Payload)
}
