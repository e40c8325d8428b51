package statefile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BatmenzDW/BluePrinceArchipelago/internal/state"
	"github.com/BatmenzDW/BluePrinceArchipelago/internal/value"
)

// diskRecord is the on-disk shape of one record.
type diskRecord struct {
	Name                 string `json:"Name"`
	SerializedObject     string `json:"SerializedObject"`
	SerializedObjectType string `json:"SerializedObjectType"`
}

// looseRecord accepts either text or a native value for SerializedObject.
type looseRecord struct {
	Name                 string          `json:"Name"`
	SerializedObject     json.RawMessage `json:"SerializedObject"`
	SerializedObjectType string          `json:"SerializedObjectType"`
}

// legacyWrapperKey is the field the original plugin nested all records under.
const legacyWrapperKey = "Objects"

// Encode renders records as a State.json document.
// Output is deterministic: keys sorted, two-space indent, trailing newline.
func Encode(records map[string]state.Record) ([]byte, error) {
	out := make(map[string]diskRecord, len(records))
	for key, rec := range records {
		out[key] = diskRecord{
			Name:                 key,
			SerializedObject:     rec.Payload,
			SerializedObjectType: string(rec.Type),
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a State.json document, current or legacy.
// Any failure is returned as a state error with ErrCodeMalformed.
func Decode(data []byte) (map[string]state.Record, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, state.NewMalformedError("state file is not a JSON object", err)
	}
	if inner, ok := top[legacyWrapperKey]; ok && len(top) == 1 && !isRecord(inner) {
		top = nil
		if err := json.Unmarshal(inner, &top); err != nil {
			return nil, state.NewMalformedError("legacy Objects field is not a JSON object", err)
		}
	}

	records := make(map[string]state.Record, len(top))
	for key, raw := range top {
		rec, err := decodeRecord(key, raw)
		if err != nil {
			return nil, &state.Error{
				Code:    state.ErrCodeMalformed,
				Key:     key,
				Message: "record cannot be decoded",
				Err:     err,
			}
		}
		records[key] = rec
	}
	return records, nil
}

func isRecord(raw json.RawMessage) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false
	}
	_, ok := fields["SerializedObject"]
	return ok
}

func decodeRecord(key string, raw json.RawMessage) (state.Record, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return state.Record{}, fmt.Errorf("record is null")
	}
	var lr looseRecord
	if err := json.Unmarshal(raw, &lr); err != nil {
		return state.Record{}, err
	}

	v, err := decodePayload(lr.SerializedObject)
	if err != nil {
		return state.Record{}, fmt.Errorf("SerializedObject: %w", err)
	}
	payload, err := value.MarshalString(v)
	if err != nil {
		return state.Record{}, fmt.Errorf("SerializedObject: %w", err)
	}

	typ := normalizeTypeName(lr.SerializedObjectType)
	if typ == "" {
		typ = state.TypeOf(v)
	}
	return state.Record{Name: key, Payload: payload, Type: typ}, nil
}

// decodePayload handles text and native payloads. Text that is not itself
// JSON is taken as a native string value.
func decodePayload(raw json.RawMessage) (value.Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return value.Null{}, nil
	}
	if raw[0] != '"' {
		return value.Unmarshal(raw)
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, err
	}
	if v, err := value.UnmarshalString(text); err == nil {
		return v, nil
	}
	return value.String(text), nil
}

const (
	listOfStringPrefix = "System.Collections.Generic.List`1[[System.String"
	archipelagoData    = "BluePrinceArchipelago.Archipelago.ArchipelagoData"
)

var legacyTypeNames = map[string]state.TypeName{
	"System.Int16":    state.TypeInt,
	"System.Int32":    state.TypeInt,
	"System.Int64":    state.TypeInt,
	"System.UInt16":   state.TypeInt,
	"System.UInt32":   state.TypeInt,
	"System.Byte":     state.TypeInt,
	"System.Single":   state.TypeFloat,
	"System.Double":   state.TypeFloat,
	"System.Decimal":  state.TypeFloat,
	"System.Boolean":  state.TypeBool,
	"System.String":   state.TypeString,
	"System.String[]": state.TypeStrings,
	archipelagoData:   state.TypeServerData,
}

// normalizeTypeName maps .NET type names onto state tags. Other names pass
// through unchanged.
func normalizeTypeName(name string) state.TypeName {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, listOfStringPrefix) {
		return state.TypeStrings
	}
	base := stripAssembly(name)
	if t, ok := legacyTypeNames[base]; ok {
		return t
	}
	return state.TypeName(name)
}

// stripAssembly drops the ", Assembly, Version=..." suffix of an
// assembly-qualified name, ignoring commas inside generic brackets.
func stripAssembly(name string) string {
	depth := 0
	for i, r := range name {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				return strings.TrimSpace(name[:i])
			}
		}
	}
	return name
}
