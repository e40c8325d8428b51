// Package state provides the typed record store that holds the mod's
// persistent state.
//
// A Store maps names to Records. Each Record keeps the JSON encoding of a
// value.Value together with the TypeName it was written as. Reads go through
// a Type[T], which names the expected tag and decodes the payload; a read
// whose tag does not match never attempts a conversion.
//
// # Lifecycle
//
//	Uninitialized -> Loaded -> Mutated <-> Persisted
//	Reset returns the store to Loaded holding only ServerData.
//
// # Persistence
//
// Every mutating call hands a full snapshot to the Persister unless NoSave
// is passed. BulkUpdate saves once for the whole batch. WriteBehind wraps a
// Persister to coalesce bursts of saves into one delayed write.
//
// # Failure policy
//
// Nothing here terminates the caller. Reads degrade to the zero value and log
// a diagnostic; failed saves are logged and the in-memory map stays
// authoritative until the next successful save. Error codes are listed on
// ErrorCode.
package state
