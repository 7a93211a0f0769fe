package crawler

import (
	"fmt"
	"sync"
)

// Entry is an actor waiting on the crawl frontier
type Entry struct {
	ActorID int
	Depth   int
}

// Queue implements the BFS frontier with deduplication
type Queue struct {
	mu       sync.Mutex
	items    []Entry
	queued   map[string]bool // key: actor@depth
	maxDepth int
}

// NewQueue creates a frontier that rejects entries deeper than maxDepth
func NewQueue(maxDepth int) *Queue {
	return &Queue{
		items:    make([]Entry, 0),
		queued:   make(map[string]bool),
		maxDepth: maxDepth,
	}
}

// Push adds an entry unless it is too deep or was already queued at this depth.
// Returns true if added.
func (q *Queue) Push(entry Entry) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if entry.Depth > q.maxDepth {
		return false
	}

	key := makeKey(entry.ActorID, entry.Depth)
	if q.queued[key] {
		return false
	}

	q.queued[key] = true
	q.items = append(q.items, entry)
	return true
}

// Pop removes and returns the oldest entry.
// Returns (empty, false) when the frontier is exhausted.
func (q *Queue) Pop() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Entry{}, false
	}
	entry := q.items[0]
	q.items = q.items[1:]
	return entry, true
}

// IsEmpty returns true if the queue has no items
func (q *Queue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Size returns the current number of items in the queue
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// makeKey creates a deduplication key from actor and depth
func makeKey(actorID, depth int) string {
	return fmt.Sprintf("%d@%d", actorID, depth)
}

// visitSet records provider ids already expanded in one crawl
type visitSet map[int]struct{}

// markVisited returns true if id was not yet visited, and marks it
func (v visitSet) markVisited(id int) bool {
	if _, ok := v[id]; ok {
		return false
	}
	v[id] = struct{}{}
	return true
}

func (v visitSet) has(id int) bool {
	_, ok := v[id]
	return ok
}
