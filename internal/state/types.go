package state

import (
	"fmt"

	"github.com/BatmenzDW/BluePrinceArchipelago/internal/value"
)

// TypeName is the declared type tag stored alongside a record's payload.
type TypeName string

// Built-in type names. Untyped writes are tagged with the value's Kind,
// so the names for plain shapes match value.Kind.
const (
	TypeNull       TypeName = TypeName(value.KindNull)
	TypeString     TypeName = TypeName(value.KindString)
	TypeInt        TypeName = TypeName(value.KindInt)
	TypeFloat      TypeName = TypeName(value.KindFloat)
	TypeBool       TypeName = TypeName(value.KindBool)
	TypeArray      TypeName = TypeName(value.KindArray)
	TypeObject     TypeName = TypeName(value.KindObject)
	TypeStrings    TypeName = "strings"
	TypeServerData TypeName = "server_data"
)

// TypeOf returns the runtime type tag of v, used when a write declares none.
func TypeOf(v value.Value) TypeName {
	if v == nil {
		return TypeNull
	}
	return TypeName(v.Kind())
}

// Type binds a type tag to the encode/decode pair for Go type T.
type Type[T any] struct {
	name   TypeName
	encode func(T) (value.Value, error)
	decode func(value.Value) (T, error)
}

// NewType defines a declared type. Names must be unique across the types a
// program uses; two types sharing a name would read each other's records.
func NewType[T any](name TypeName, encode func(T) (value.Value, error), decode func(value.Value) (T, error)) Type[T] {
	return Type[T]{name: name, encode: encode, decode: decode}
}

// Name returns the type tag.
func (t Type[T]) Name() TypeName {
	return t.name
}

// Encode converts v to a Value.
func (t Type[T]) Encode(v T) (value.Value, error) {
	return t.encode(v)
}

// Decode converts a Value back to T.
func (t Type[T]) Decode(v value.Value) (T, error) {
	return t.decode(v)
}

var (
	// Int stores int64 values.
	Int = NewType(TypeInt,
		func(n int64) (value.Value, error) { return value.Int(n), nil },
		func(v value.Value) (int64, error) {
			if n, ok := v.(value.Int); ok {
				return int64(n), nil
			}
			return 0, decodeError(TypeInt, v)
		})

	// Float stores float64 values. Integral payloads are accepted.
	Float = NewType(TypeFloat,
		func(f float64) (value.Value, error) { return value.Float(f), nil },
		func(v value.Value) (float64, error) {
			switch n := v.(type) {
			case value.Float:
				return float64(n), nil
			case value.Int:
				return float64(n), nil
			}
			return 0, decodeError(TypeFloat, v)
		})

	// Bool stores booleans.
	Bool = NewType(TypeBool,
		func(b bool) (value.Value, error) { return value.Bool(b), nil },
		func(v value.Value) (bool, error) {
			if b, ok := v.(value.Bool); ok {
				return bool(b), nil
			}
			return false, decodeError(TypeBool, v)
		})

	// String stores text.
	String = NewType(TypeString,
		func(s string) (value.Value, error) { return value.String(s), nil },
		func(v value.Value) (string, error) {
			if s, ok := v.(value.String); ok {
				return string(s), nil
			}
			return "", decodeError(TypeString, v)
		})

	// Strings stores a list of strings. A null payload decodes as nil.
	Strings = NewType(TypeStrings,
		func(ss []string) (value.Value, error) { return value.Strings(ss), nil },
		decodeStrings)

	// Array stores an arbitrary list of values.
	Array = NewType(TypeArray,
		func(a value.Array) (value.Value, error) { return a, nil },
		func(v value.Value) (value.Array, error) {
			if a, ok := v.(value.Array); ok {
				return a, nil
			}
			return nil, decodeError(TypeArray, v)
		})

	// Object stores an arbitrary map of values.
	Object = NewType(TypeObject,
		func(o value.Object) (value.Value, error) { return o, nil },
		func(v value.Value) (value.Object, error) {
			if o, ok := v.(value.Object); ok {
				return o, nil
			}
			return nil, decodeError(TypeObject, v)
		})

	// ServerDataType stores multiworld connection credentials.
	ServerDataType = NewType(TypeServerData, encodeServerData, decodeServerData)
)

func decodeStrings(v value.Value) ([]string, error) {
	switch arr := v.(type) {
	case value.Null:
		return nil, nil
	case value.Array:
		out := make([]string, len(arr))
		for i, elem := range arr {
			s, ok := elem.(value.String)
			if !ok {
				return nil, fmt.Errorf("element %d: %w", i, decodeError(TypeString, elem))
			}
			out[i] = string(s)
		}
		return out, nil
	}
	return nil, decodeError(TypeStrings, v)
}

// ServerData holds the multiworld session credentials preserved across Reset.
type ServerData struct {
	URI      string
	SlotName string
	Password string
}

func encodeServerData(d ServerData) (value.Value, error) {
	return value.NewObject(
		value.O("Uri", value.String(d.URI)),
		value.O("SlotName", value.String(d.SlotName)),
		value.O("Password", value.String(d.Password)),
	), nil
}

// decodeServerData ignores unknown fields; older builds stored extra
// session bookkeeping next to the credentials.
func decodeServerData(v value.Value) (ServerData, error) {
	obj, ok := v.(value.Object)
	if !ok {
		return ServerData{}, decodeError(TypeServerData, v)
	}
	var d ServerData
	for field, dst := range map[string]*string{"Uri": &d.URI, "SlotName": &d.SlotName, "Password": &d.Password} {
		switch s := obj[field].(type) {
		case nil, value.Null:
		case value.String:
			*dst = string(s)
		default:
			return ServerData{}, fmt.Errorf("field %s: %w", field, decodeError(TypeString, s))
		}
	}
	return d, nil
}

func decodeError(want TypeName, got value.Value) error {
	return fmt.Errorf("cannot decode %s as %s", TypeOf(got), want)
}
