package state

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BatmenzDW/BluePrinceArchipelago/internal/value"
)

func TestNew_StartsUninitialized(t *testing.T) {
	s := New(nil)
	assert.Equal(t, PhaseUninitialized, s.Phase())
	assert.Equal(t, 0, s.Len())
}

func TestLoad_ReadsPersistedRecords(t *testing.T) {
	p := &fakePersister{records: map[string]Record{
		"RoomA": {Name: "stale", Payload: "true", Type: TypeBool},
	}}
	s := New(p)

	require.NoError(t, s.Load())
	assert.Equal(t, PhaseLoaded, s.Phase())

	rec, ok := s.Record("RoomA")
	require.True(t, ok)
	assert.Equal(t, "RoomA", rec.Name, "map key wins over stored name")
}

func TestLoad_ErrorLeavesEmptyLoadedStore(t *testing.T) {
	p := &fakePersister{loadErr: NewMalformedError("bad json", errors.New("unexpected EOF"))}
	s := New(p)
	s.Update("x", value.Int(1), NoSave())

	err := s.Load()
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, PhaseLoaded, s.Phase())
}

func TestUpdate_BeforeLoadDoesNotPersist(t *testing.T) {
	p := &fakePersister{records: map[string]Record{
		ServerDataKey: {Name: ServerDataKey, Payload: `{"Password":"","SlotName":"P1","Uri":"ws://x"}`, Type: TypeServerData},
	}}
	s := New(p)

	s.Update("Steps", value.Int(1))
	Put(s, "Gems", int64(2), Int)
	require.NoError(t, s.BulkUpdate([]string{"a"}, []value.Value{value.Bool(true)}))
	s.Delete(ServerDataKey)
	s.Reset()
	assert.ErrorIs(t, s.Save(), ErrNotLoaded)

	assert.Equal(t, 0, p.saveCount(), "nothing reaches the persister before Load")
	assert.Equal(t, PhaseUninitialized, s.Phase())

	require.NoError(t, s.Load())
	assert.Equal(t, []string{ServerDataKey}, s.Keys(), "Load replaces writes made before it")
}

func TestUpdate_DefaultsToRuntimeKind(t *testing.T) {
	s, p, _ := createTestStore(t)

	s.Update("ItemB", value.Int(5))

	rec, ok := s.Record("ItemB")
	require.True(t, ok)
	assert.Equal(t, Record{Name: "ItemB", Payload: "5", Type: TypeInt}, rec)
	assert.Equal(t, 1, p.saveCount())
	assert.Equal(t, PhasePersisted, s.Phase())
}

func TestUpdate_DeclaredType(t *testing.T) {
	s, _, _ := createTestStore(t)

	s.Update("Rooms", value.Strings([]string{"Foyer"}), As(TypeStrings))

	rec, _ := s.Record("Rooms")
	assert.Equal(t, TypeStrings, rec.Type)
	assert.Equal(t, `["Foyer"]`, rec.Payload)
}

func TestUpdate_NoSave(t *testing.T) {
	s, p, _ := createTestStore(t)

	s.Update("a", value.Bool(true), NoSave())

	assert.True(t, s.Contains("a"))
	assert.Equal(t, 0, p.saveCount())
	assert.Equal(t, PhaseMutated, s.Phase())

	require.NoError(t, s.Save())
	assert.Equal(t, 1, p.saveCount())
	assert.Equal(t, PhasePersisted, s.Phase())
}

func TestUpdate_Overwrites(t *testing.T) {
	s, _, _ := createTestStore(t)

	s.Update("k", value.Int(1))
	s.Update("k", value.String("now text"))

	assert.Equal(t, 1, s.Len())
	rec, _ := s.Record("k")
	assert.Equal(t, TypeString, rec.Type)
}

func TestUpdate_UnencodableKeepsPrevious(t *testing.T) {
	s, p, logs := createTestStore(t)
	s.Update("f", value.Float(1.5))

	s.Update("f", value.Float(math.NaN()))

	got, ok := Get(s, "f", Float)
	assert.True(t, ok)
	assert.Equal(t, 1.5, got)
	assert.Equal(t, 1, p.saveCount())
	assert.Contains(t, logs.String(), "state value not encodable")
}

func TestUpdate_SaveFailureKeepsMemory(t *testing.T) {
	s, p, logs := createTestStore(t)
	p.saveErr = errors.New("disk full")

	s.Update("a", value.Int(1))

	assert.True(t, s.Contains("a"))
	assert.Equal(t, PhaseMutated, s.Phase())
	assert.Contains(t, logs.String(), "state save failed")

	p.saveErr = nil
	require.NoError(t, s.Save())
	assert.Contains(t, p.records, "a")
}

func TestBulkUpdate_WritesAllAndSavesOnce(t *testing.T) {
	s, p, _ := createTestStore(t)

	err := s.BulkUpdate([]string{"a", "b"}, []value.Value{value.Int(1), value.Int(2)})
	require.NoError(t, err)

	assert.True(t, s.Contains("a"))
	assert.True(t, s.Contains("b"))
	assert.Equal(t, 1, p.saveCount())
}

func TestBulkUpdate_CountMismatch(t *testing.T) {
	s, p, logs := createTestStore(t)
	s.Update("a", value.Int(0))

	err := s.BulkUpdate([]string{"a"}, []value.Value{value.Int(1), value.Int(2)})

	require.Error(t, err)
	assert.Equal(t, ErrCodeCountMismatch, CodeOf(err))
	assert.Contains(t, logs.String(), "number of keys and values do not match")

	got, _ := Get(s, "a", Int)
	assert.Equal(t, int64(0), got, "store unchanged")
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1, p.saveCount(), "no save for rejected batch")
}

func TestBulkUpdate_UnencodableWritesNothing(t *testing.T) {
	s, p, _ := createTestStore(t)

	err := s.BulkUpdate([]string{"a", "b"}, []value.Value{value.Int(1), value.Float(math.Inf(1))})

	require.Error(t, err)
	assert.False(t, s.Contains("a"))
	assert.Equal(t, 0, p.saveCount())
}

func TestReset_PreservesServerDataOnly(t *testing.T) {
	s, p, _ := createTestStore(t)
	creds := ServerData{URI: "ws://x", SlotName: "P1", Password: ""}
	Put(s, ServerDataKey, creds, ServerDataType)
	s.Update("RoomA", value.Bool(true))
	s.Update("ItemB", value.Int(5))

	s.Reset()

	assert.True(t, s.Contains(ServerDataKey))
	assert.False(t, s.Contains("RoomA"))
	assert.False(t, s.Contains("ItemB"))
	assert.Equal(t, []string{ServerDataKey}, s.Keys())

	got, ok := Get(s, ServerDataKey, ServerDataType)
	require.True(t, ok)
	assert.Equal(t, creds, got)

	assert.Equal(t, PhaseLoaded, s.Phase())
	assert.Equal(t, []string{ServerDataKey}, keysOf(p.records), "reset is persisted")
}

func TestReset_WithoutServerDataSeedsEmpty(t *testing.T) {
	s, _, logs := createTestStore(t)
	s.Update("RoomA", value.Bool(true))

	s.Reset()

	got, ok := Get(s, ServerDataKey, ServerDataType)
	require.True(t, ok)
	assert.Equal(t, ServerData{}, got)
	assert.Contains(t, logs.String(), "no server data to preserve")
}

func TestReset_WrongTypedServerDataSeedsEmpty(t *testing.T) {
	s, _, _ := createTestStore(t)
	s.Update(ServerDataKey, value.String("ws://x"))

	s.Reset()

	got, ok := Get(s, ServerDataKey, ServerDataType)
	require.True(t, ok)
	assert.Equal(t, ServerData{}, got)
}

func TestDelete(t *testing.T) {
	s, p, _ := createTestStore(t)
	s.Update("Steps", value.Int(3))
	s.Update("Gems", value.Int(1))
	savesBefore := p.saveCount()

	assert.True(t, s.Delete("Steps"))
	assert.False(t, s.Contains("Steps"))
	assert.Equal(t, savesBefore+1, p.saveCount())

	assert.False(t, s.Delete("Steps"), "second delete finds nothing")
	assert.Equal(t, savesBefore+1, p.saveCount())

	assert.True(t, s.Delete("Gems", NoSave()))
	assert.Equal(t, savesBefore+1, p.saveCount())
	assert.Equal(t, PhaseMutated, s.Phase())
}

func TestKeysSnapshot(t *testing.T) {
	s, _, _ := createTestStore(t)
	s.Update("b", value.Int(1), NoSave())
	s.Update("a", value.Int(2), NoSave())

	assert.Equal(t, []string{"a", "b"}, s.Keys())

	snap := s.Snapshot()
	delete(snap, "a")
	assert.True(t, s.Contains("a"), "snapshot is a copy")
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "uninitialized", PhaseUninitialized.String())
	assert.Equal(t, "persisted", PhasePersisted.String())
	assert.Equal(t, "phase(9)", Phase(9).String())
}

func TestStore_ConcurrentUpdates(t *testing.T) {
	s, _, _ := createTestStore(t)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				s.Update(string(rune('a'+n)), value.Int(int64(j)))
				_, _ = Get(s, string(rune('a'+n)), Int)
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	assert.Equal(t, 8, s.Len())
}

func keysOf(m map[string]Record) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
