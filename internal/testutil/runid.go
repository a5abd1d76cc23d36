package testutil

// FixedRunID hands out the same run ID every time so logs and snapshots of
// a test run do not depend on UUID generation.
type FixedRunID struct {
	id string
}

// NewFixedRunID returns a generator for id, or "test-run-default" when id is empty.
func NewFixedRunID(id string) *FixedRunID {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunID{id: id}
}

// Generate returns the fixed run ID.
func (g *FixedRunID) Generate() string {
	return g.id
}
