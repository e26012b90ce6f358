// Package cart keeps each customer's in-progress selection in memory. Carts
// are ordered lists of item names; repeated names mean repeated portions.
// Nothing here survives a restart.
package cart

import "sync"

// Ledger maps user ids to carts. The zero value is not usable; call New.
type Ledger struct {
	mu    sync.Mutex
	carts map[string][]string
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{carts: make(map[string][]string)}
}

// Add appends item to the user's cart, creating it if needed.
func (l *Ledger) Add(userID, item string) {
	l.mu.Lock()
	l.carts[userID] = append(l.carts[userID], item)
	l.mu.Unlock()
}

// Clear empties the user's cart. Clearing an absent cart is a no-op.
func (l *Ledger) Clear(userID string) {
	l.mu.Lock()
	delete(l.carts, userID)
	l.mu.Unlock()
}

// Get returns a copy of the user's cart, or an empty slice if none exists.
func (l *Ledger) Get(userID string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.carts[userID]...)
}

// Len reports how many items the user's cart holds.
func (l *Ledger) Len(userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.carts[userID])
}
