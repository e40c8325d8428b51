// Package mod is the entry point the game plugin talks to.
//
// A Mod owns the state store, the event bus and the discovery tracker.
// Typical lifecycle:
//
//	m, err := mod.New(cfg)
//	if err != nil { ... }
//	if err := m.Initialize(); err != nil { ... }
//	defer m.Shutdown()
//
//	m.Tracker().RoomDrafted("Parlor")
//	mod.StoreUnderKey(m, int64(42), "Steps", state.Int)
//	steps, ok := mod.Get(m, "Steps", state.Int)
//
// Queue events published on the bus are persisted under the sender's ID
// once Initialize has run.
package mod
