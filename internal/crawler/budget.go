package crawler

import (
	"sync"
)

// Budget caps how many bridge edges one session may synthesize
type Budget struct {
	max  int
	mu   sync.Mutex
	used int
}

// NewBudget creates a budget allowing max takes
func NewBudget(max int) *Budget {
	if max < 0 {
		max = 0
	}
	return &Budget{max: max}
}

// TryTake consumes one unit. Returns false once the budget is spent.
func (b *Budget) TryTake() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.used >= b.max {
		return false
	}
	b.used++
	return true
}

// Remaining returns how many units are left
func (b *Budget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.max - b.used
}

// Used returns how many units were consumed
func (b *Budget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

// Exhausted reports whether nothing is left
func (b *Budget) Exhausted() bool {
	return b.Remaining() <= 0
}
