// ABOUTME: Process-lifetime set of users who already received the greeting.
// ABOUTME: Insert-if-absent is atomic so concurrent first messages greet once.

package orchestrator

import "sync"

// GreetedUsers tracks which users have been greeted. Implementations must
// make MarkIfNew atomic: two concurrent calls for the same new user must
// yield exactly one true.
type GreetedUsers interface {
	// MarkIfNew inserts the user and reports whether it was absent.
	MarkIfNew(userID string) bool
	// Seen reports membership without modifying the set.
	Seen(userID string) bool
}

// Greeted is the in-memory production implementation. State is best-effort
// and lives for the process lifetime only; a restart greets everyone again.
type Greeted struct {
	mu    sync.Mutex
	users map[string]struct{}
}

// NewGreeted returns an empty set.
func NewGreeted() *Greeted {
	return &Greeted{users: make(map[string]struct{})}
}

func (g *Greeted) MarkIfNew(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.users[userID]; ok {
		return false
	}
	g.users[userID] = struct{}{}
	return true
}

func (g *Greeted) Seen(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.users[userID]
	return ok
}
