// Package statedb keeps the mod's records in SQLite instead of State.json.
//
// The records table holds one row per state key. Save replaces every row in
// one transaction, so a reader sees either the previous record set or the
// new one. Opening a database sets journal_mode=WAL (the bpstate CLI can
// read while the game writes), synchronous=NORMAL and a five second
// busy_timeout.
package statedb
