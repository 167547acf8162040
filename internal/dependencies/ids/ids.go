package ids

import "github.com/google/uuid"

// Generator issues identifiers for new records and tokens
type Generator interface {
	NewID() string
}

// UUIDGenerator issues random (version 4) UUIDs
type UUIDGenerator struct{}

// New creates a new UUIDGenerator
func New() *UUIDGenerator {
	return &UUIDGenerator{}
}

// NewID returns a fresh UUID string
func (g *UUIDGenerator) NewID() string {
	return uuid.NewString()
}
