package statefile

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BatmenzDW/BluePrinceArchipelago/internal/state"
	"github.com/BatmenzDW/BluePrinceArchipelago/internal/value"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// seedMixed writes one record of each built-in shape through the store.
func seedMixed(s *state.Store) {
	state.Put(s, "ItemB", 5, state.Int, state.NoSave())
	state.Put(s, "Note", `say "hi" <b>`, state.String, state.NoSave())
	state.Put(s, "Ratio", 3.14, state.Float, state.NoSave())
	state.Put(s, "RoomA", true, state.Bool, state.NoSave())
	state.Put(s, "Rooms", []string{"Foyer", "Attic"}, state.Strings, state.NoSave())
	state.Put(s, state.ServerDataKey, state.ServerData{URI: "ws://x", SlotName: "P1"}, state.ServerDataType, state.NoSave())
}

func TestLoad_MissingFileCreatesEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "BluePrinceArchipelago", FileName)
	f := New(path)

	records, err := f.Load()
	require.NoError(t, err)
	assert.Empty(t, records)

	info, err := os.Stat(path)
	require.NoError(t, err, "file should be created")
	assert.Equal(t, int64(0), info.Size())

	// The created empty file loads as empty too.
	records, err = f.Load()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLoad_WhitespaceFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o644))

	records, err := New(path).Load()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"RoomA": {"Name": "RoomA", "SerializedObject": `), 0o644))

	_, err := New(path).Load()
	require.Error(t, err)
	assert.True(t, state.IsMalformed(err))
	assert.Contains(t, err.Error(), path)
}

func TestLoad_MalformedRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"RoomA": null}`), 0o644))

	_, err := New(path).Load()
	require.Error(t, err)
	assert.True(t, state.IsMalformed(err))
	assert.Contains(t, err.Error(), "key=RoomA")
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	f := InDir(t.TempDir())
	s := state.New(f)
	require.NoError(t, s.Load())
	seedMixed(s)
	require.NoError(t, s.Save())

	reloaded := state.New(InDir(filepath.Dir(f.Path())))
	require.NoError(t, reloaded.Load())

	assert.Equal(t, s.Snapshot(), reloaded.Snapshot())

	rooms, ok := state.Get(reloaded, "Rooms", state.Strings)
	assert.True(t, ok)
	assert.Equal(t, []string{"Foyer", "Attic"}, rooms)
}

func TestSave_Golden(t *testing.T) {
	f := InDir(t.TempDir())
	s := state.New(f)
	require.NoError(t, s.Load())
	seedMixed(s)
	require.NoError(t, s.Save())

	data, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	newGoldie(t).Assert(t, "mixed_records", data)
}

func TestSave_AfterResetGolden(t *testing.T) {
	f := InDir(t.TempDir())
	s := state.New(f)
	require.NoError(t, s.Load())
	seedMixed(s)

	s.Reset()

	data, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	newGoldie(t).Assert(t, "after_reset", data)
}

func TestEncode_EmptyGolden(t *testing.T) {
	data, err := Encode(map[string]state.Record{})
	require.NoError(t, err)
	newGoldie(t).Assert(t, "empty", data)
}

func TestSave_Idempotent(t *testing.T) {
	f := InDir(t.TempDir())
	s := state.New(f)
	require.NoError(t, s.Load())
	seedMixed(s)

	require.NoError(t, s.Save())
	first, err := os.ReadFile(f.Path())
	require.NoError(t, err)

	require.NoError(t, s.Save())
	second, err := os.ReadFile(f.Path())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	f := InDir(dir)
	require.NoError(t, f.Save(map[string]state.Record{"a": {Name: "a", Payload: "1", Type: state.TypeInt}}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, FileName, entries[0].Name())
}

func TestSave_FailureKeepsPreviousFile(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced")
	}
	dir := t.TempDir()
	f := InDir(dir)
	require.NoError(t, f.Save(map[string]state.Record{"a": {Name: "a", Payload: "1", Type: state.TypeInt}}))
	before, err := os.ReadFile(f.Path())
	require.NoError(t, err)

	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	err = f.Save(map[string]state.Record{"b": {Name: "b", Payload: "2", Type: state.TypeInt}})
	require.Error(t, err)
	assert.Equal(t, state.ErrCodeIOFailure, state.CodeOf(err))

	after, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestLoad_LegacyObjectsWrapper(t *testing.T) {
	data, err := os.ReadFile("testdata/legacy_objects.json")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	s := state.New(New(path))
	require.NoError(t, s.Load())

	assert.Equal(t, []string{"DraftedRooms", "Foyer", "Gems", "LastRoom", "ServerData", "Steps"}, s.Keys())

	creds, ok := state.Get(s, state.ServerDataKey, state.ServerDataType)
	require.True(t, ok)
	assert.Equal(t, state.ServerData{URI: "archipelago.gg:38281", SlotName: "Simon"}, creds)

	foyer, ok := state.Get(s, "Foyer", state.Bool)
	assert.True(t, ok)
	assert.True(t, foyer)

	steps, ok := state.Get(s, "Steps", state.Int)
	assert.True(t, ok)
	assert.Equal(t, int64(42), steps)

	gems, ok := state.Get(s, "Gems", state.Float)
	assert.True(t, ok)
	assert.Equal(t, 2.5, gems)

	rooms, ok := state.Get(s, "DraftedRooms", state.Strings)
	assert.True(t, ok)
	assert.Equal(t, []string{"Foyer", "Parlor"}, rooms)

	last, ok := state.Get(s, "LastRoom", state.String)
	assert.True(t, ok)
	assert.Equal(t, "Parlor", last)
}

func TestLoad_NativePayloads(t *testing.T) {
	data, err := os.ReadFile("testdata/native_payloads.json")
	require.NoError(t, err)

	records, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, state.Record{Name: "Keys", Payload: "3", Type: state.TypeInt}, records["Keys"])
	assert.Equal(t, state.Record{Name: "Visited", Payload: `["Foyer","Vault"]`, Type: state.TypeStrings}, records["Visited"])
	assert.Equal(t, state.Record{Name: "Motto", Payload: `"plain text"`, Type: state.TypeString}, records["Motto"])
	assert.Equal(t, state.Record{Name: "Flags", Payload: `{"a":false,"b":true}`, Type: state.TypeObject}, records["Flags"],
		"missing type tag falls back to the payload kind")
}

func TestDecode_ObjectsKeyThatIsARecord(t *testing.T) {
	records, err := Decode([]byte(`{"Objects": {"Name": "Objects", "SerializedObject": "1", "SerializedObjectType": "int"}}`))
	require.NoError(t, err)
	assert.Equal(t, state.Record{Name: "Objects", Payload: "1", Type: state.TypeInt}, records["Objects"])
}

func TestDecode_ByteOrderMark(t *testing.T) {
	records, err := Decode([]byte("\xef\xbb\xbf{}"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestNormalizeTypeName(t *testing.T) {
	tests := []struct {
		in   string
		want state.TypeName
	}{
		{"System.Int32", state.TypeInt},
		{"System.Int64, System.Private.CoreLib, Version=6.0.0.0", state.TypeInt},
		{"System.Single, mscorlib", state.TypeFloat},
		{"System.String[], System.Private.CoreLib", state.TypeStrings},
		{"BluePrinceArchipelago.Archipelago.ArchipelagoData, BluePrinceArchipelago", state.TypeServerData},
		{"System.Collections.Generic.List`1[[System.String, System.Private.CoreLib]], System.Private.CoreLib", state.TypeStrings},
		{"System.Collections.Generic.List`1[[System.Int32, System.Private.CoreLib]], System.Private.CoreLib",
			"System.Collections.Generic.List`1[[System.Int32, System.Private.CoreLib]], System.Private.CoreLib"},
		{" server_data ", state.TypeServerData},
		{"coords", "coords"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeTypeName(tt.in), tt.in)
	}
}

func TestDecode_ValueEncodingNormalized(t *testing.T) {
	records, err := Decode([]byte(`{"o": {"Name": "o", "SerializedObject": "{ \"z\": 1, \"a\": 2.50 }", "SerializedObjectType": "object"}}`))
	require.NoError(t, err)

	assert.Equal(t, `{"a":2.5,"z":1}`, records["o"].Payload)
	v, err := value.UnmarshalString(records["o"].Payload)
	require.NoError(t, err)
	assert.True(t, value.Equal(value.Object{"a": value.Float(2.5), "z": value.Int(1)}, v))
}
