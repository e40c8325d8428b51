package state

import (
	"fmt"

	"github.com/BatmenzDW/BluePrinceArchipelago/internal/value"
)

// Lookup returns the value stored under key decoded as typ.
//
// Errors carry ErrCodeMissingKey when key is absent, ErrCodeTypeMismatch
// when the record was written under a different tag or does not decode as
// typ, and ErrCodeMalformed when the payload is not valid JSON.
func Lookup[T any](s *Store, key string, typ Type[T]) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lookupLocked(s, key, typ)
}

func lookupLocked[T any](s *Store, key string, typ Type[T]) (T, error) {
	var zero T

	rec, ok := s.records[key]
	if !ok {
		return zero, &Error{Code: ErrCodeMissingKey, Key: key, Message: "key does not exist"}
	}
	if rec.Type != typ.Name() {
		return zero, &Error{
			Code:    ErrCodeTypeMismatch,
			Key:     key,
			Message: fmt.Sprintf("stored type %q does not match expected type %q", rec.Type, typ.Name()),
		}
	}

	v, err := value.UnmarshalString(rec.Payload)
	if err != nil {
		return zero, &Error{Code: ErrCodeMalformed, Key: key, Message: "payload is not valid JSON", Err: err}
	}
	out, err := typ.Decode(v)
	if err != nil {
		return zero, &Error{
			Code:    ErrCodeTypeMismatch,
			Key:     key,
			Message: fmt.Sprintf("unable to get value as %s", typ.Name()),
			Err:     err,
		}
	}
	return out, nil
}

// Get is Lookup for callers that degrade instead of handling errors.
// On any failure it logs a diagnostic and returns the zero value and false.
func Get[T any](s *Store, key string, typ Type[T]) (T, bool) {
	v, err := Lookup(s, key, typ)
	if err != nil {
		s.logger.Warn("state read returned default value",
			"key", key,
			"type", typ.Name(),
			"code", CodeOf(err),
			"error", err,
		)
		return v, false
	}
	return v, true
}

// Put encodes v with typ and writes it under key tagged with typ's name.
// A value typ cannot encode is logged and nothing is written.
func Put[T any](s *Store, key string, v T, typ Type[T], opts ...UpdateOption) {
	encoded, err := typ.Encode(v)
	if err != nil {
		s.logger.Error("state value not encodable, keeping previous record",
			"key", key,
			"type", typ.Name(),
			"error", err,
		)
		return
	}
	s.Update(key, encoded, append([]UpdateOption{As(typ.Name())}, opts...)...)
}
