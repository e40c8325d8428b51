// Package events carries game-side notifications to the persistence path.
//
// A Bus has two channels:
//   - discovery: a room or item was encountered for the first time
//   - queue: a keyed value should be persisted under the sender's ID
//
// Delivery is synchronous and in registration order. Publishing with no
// subscribers, or on a nil *Bus, does nothing. A handler that panics is
// recovered and logged; the remaining handlers still run.
package events
