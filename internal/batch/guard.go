package batch

import (
	"fmt"
	"sync"
)

// Guard allows at most one in-flight batch per owner. An owner is whatever
// scopes a selection: a user, a session, or a CLI invocation.
type Guard struct {
	mu     sync.Mutex
	active map[string]string
}

// NewGuard creates an empty Guard.
func NewGuard() *Guard {
	return &Guard{active: make(map[string]string)}
}

// Acquire claims owner for batchID. It fails with ErrInProgress while another
// batch holds the owner.
func (g *Guard) Acquire(owner, batchID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if current, ok := g.active[owner]; ok {
		return fmt.Errorf("%w: %s", ErrInProgress, current)
	}
	g.active[owner] = batchID
	return nil
}

// Release frees owner if batchID still holds it.
func (g *Guard) Release(owner, batchID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.active[owner] == batchID {
		delete(g.active, owner)
	}
}

// Active returns the batch currently holding owner.
func (g *Guard) Active(owner string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, ok := g.active[owner]
	return id, ok
}
