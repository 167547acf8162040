package mocks

import (
	"fmt"
	"sync"

	"github.com/joyverse/joyverse-backend/internal/dependencies/ids"
)

// MockIDs is a mock id generator. Queued ids are returned first, then
// sequential ids of the form "<prefix>-N".
type MockIDs struct {
	mu     sync.Mutex
	queue  []string
	prefix string
	next   int
}

// Ensure MockIDs implements Generator
var _ ids.Generator = (*MockIDs)(nil)

// NewMockIDs creates a MockIDs with the given fallback prefix
func NewMockIDs(prefix string) *MockIDs {
	return &MockIDs{prefix: prefix}
}

// NewID returns the next queued id, or the next sequential id
func (g *MockIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.queue) > 0 {
		id := g.queue[0]
		g.queue = g.queue[1:]
		return id
	}
	g.next++
	return fmt.Sprintf("%s-%d", g.prefix, g.next)
}

// Queue adds ids to be returned before the sequential fallback
func (g *MockIDs) Queue(values ...string) {
	g.mu.Lock()
	g.queue = append(g.queue, values...)
	g.mu.Unlock()
}
