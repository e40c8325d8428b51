// Package value provides the closed set of value shapes the state store can
// hold, and their JSON encoding.
//
// Every stored payload is one of Null, String, Int, Float, Bool, Array or
// Object. The set is sealed: no other package can add a shape, so encode and
// decode are exhaustive type switches rather than reflection.
//
// Key constraints:
//   - Marshal is deterministic: the same Value always produces the same bytes
//   - Floats keep a fraction or exponent on the wire so they never decode as Int
//   - NaN and infinities cannot be encoded
//   - Strings are NFC normalized at the serialization boundary
package value
