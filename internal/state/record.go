package state

// ServerDataKey is the record that survives Reset.
const ServerDataKey = "ServerData"

// Record is a single named, type-tagged, serialized value.
//
// Payload is the JSON encoding of a value whose declared type was Type at the
// time of the last write under Name.
type Record struct {
	Name    string
	Payload string
	Type    TypeName
}
