package testutil

// FixedIDGenerator returns the same event ID every time.
//
// Tests that assert on log output use it so every event line carries a
// known ID.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a generator returning id.
// If id is empty, Generate returns "test-event".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-event"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed ID.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}
