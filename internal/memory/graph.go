package memory

import (
	"sort"
	"sync"
)

// Node is one actor in the collaboration graph
type Node struct {
	ID    int
	Name  string
	Image string
}

// Placeholder reports whether the node was created without real data
func (n *Node) Placeholder() bool {
	return n.Name == ""
}

// Edge links two actors that appeared in at least one movie together.
// A is always the smaller id.
type Edge struct {
	A      int
	B      int
	Titles []string
}

// HasTitle reports whether title is already recorded on the edge
func (e *Edge) HasTitle(title string) bool {
	for _, t := range e.Titles {
		if t == title {
			return true
		}
	}
	return false
}

type edgeKey struct {
	a, b int
}

func makeKey(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a: a, b: b}
}

// Option configures a MemoryGraph
type Option func(*MemoryGraph)

// KeepDuplicateTitles records a title once per discovery instead of once per edge
func KeepDuplicateTitles() Option {
	return func(mg *MemoryGraph) {
		mg.keepDuplicates = true
	}
}

// MemoryGraph holds the undirected collaboration graph of one search session
type MemoryGraph struct {
	nodes          map[int]*Node
	edges          map[edgeKey]*Edge
	adjacency      map[int]map[int]struct{}
	keepDuplicates bool
	mu             sync.RWMutex
}

// NewMemoryGraph creates a new in-memory graph
func NewMemoryGraph(opts ...Option) *MemoryGraph {
	mg := &MemoryGraph{
		nodes:     make(map[int]*Node),
		edges:     make(map[edgeKey]*Edge),
		adjacency: make(map[int]map[int]struct{}),
	}
	for _, opt := range opts {
		opt(mg)
	}
	return mg
}

// AddOrGetNode inserts a node or fills in a placeholder.
// Existing name and image are never overwritten.
func (mg *MemoryGraph) AddOrGetNode(id int, name, image string) Node {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	return *mg.upsertNodeLocked(id, name, image)
}

func (mg *MemoryGraph) upsertNodeLocked(id int, name, image string) *Node {
	if node, exists := mg.nodes[id]; exists {
		if name != "" && node.Name == "" {
			node.Name = name
		}
		if image != "" && node.Image == "" {
			node.Image = image
		}
		return node
	}

	node := &Node{ID: id, Name: name, Image: image}
	mg.nodes[id] = node
	mg.adjacency[id] = make(map[int]struct{})
	return node
}

// AddOrMergeEdge records that a and b appeared together in title.
// Self loops are ignored. Missing endpoints are created as placeholders.
// Returns true if a new edge was created.
func (mg *MemoryGraph) AddOrMergeEdge(a, b int, title string) bool {
	if a == b {
		return false
	}

	mg.mu.Lock()
	defer mg.mu.Unlock()
	return mg.mergeEdgeLocked(a, b, []string{title})
}

func (mg *MemoryGraph) mergeEdgeLocked(a, b int, titles []string) bool {
	mg.upsertNodeLocked(a, "", "")
	mg.upsertNodeLocked(b, "", "")

	key := makeKey(a, b)
	edge, exists := mg.edges[key]
	if !exists {
		edge = &Edge{A: key.a, B: key.b}
		mg.edges[key] = edge
		mg.adjacency[a][b] = struct{}{}
		mg.adjacency[b][a] = struct{}{}
	}

	for _, title := range titles {
		if !mg.keepDuplicates && edge.HasTitle(title) {
			continue
		}
		edge.Titles = append(edge.Titles, title)
	}
	return !exists
}

// HasNode reports whether id is in the graph
func (mg *MemoryGraph) HasNode(id int) bool {
	mg.mu.RLock()
	defer mg.mu.RUnlock()
	_, ok := mg.nodes[id]
	return ok
}

// Node returns a copy of the node for id
func (mg *MemoryGraph) Node(id int) (Node, bool) {
	mg.mu.RLock()
	defer mg.mu.RUnlock()

	if node, ok := mg.nodes[id]; ok {
		return *node, true
	}
	return Node{}, false
}

// Neighbors returns the ids adjacent to id, in no particular order
func (mg *MemoryGraph) Neighbors(id int) []int {
	mg.mu.RLock()
	defer mg.mu.RUnlock()

	adj := mg.adjacency[id]
	out := make([]int, 0, len(adj))
	for n := range adj {
		out = append(out, n)
	}
	return out
}

// sortedNeighborsLocked is Neighbors with a stable order; caller holds the lock
func (mg *MemoryGraph) sortedNeighborsLocked(id int) []int {
	adj := mg.adjacency[id]
	out := make([]int, 0, len(adj))
	for n := range adj {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Edge returns a copy of the edge between a and b
func (mg *MemoryGraph) Edge(a, b int) (Edge, bool) {
	mg.mu.RLock()
	defer mg.mu.RUnlock()

	edge, ok := mg.edges[makeKey(a, b)]
	if !ok {
		return Edge{}, false
	}
	return copyEdge(edge), true
}

// Nodes returns copies of all nodes ordered by id
func (mg *MemoryGraph) Nodes() []Node {
	mg.mu.RLock()
	defer mg.mu.RUnlock()

	out := make([]Node, 0, len(mg.nodes))
	for _, n := range mg.nodes {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Edges returns copies of all edges ordered by endpoints
func (mg *MemoryGraph) Edges() []Edge {
	mg.mu.RLock()
	defer mg.mu.RUnlock()

	out := make([]Edge, 0, len(mg.edges))
	for _, e := range mg.edges {
		out = append(out, copyEdge(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

// GetStats returns current graph statistics
func (mg *MemoryGraph) GetStats() (nodeCount, edgeCount int) {
	mg.mu.RLock()
	defer mg.mu.RUnlock()

	return len(mg.nodes), len(mg.edges)
}

// Merge returns a new graph holding the union of mg and other.
// Placeholders are filled from either side, and titles of shared edges are
// concatenated with mg's titles first. The result keeps mg's title policy.
func (mg *MemoryGraph) Merge(other *MemoryGraph) *MemoryGraph {
	merged := NewMemoryGraph()
	merged.keepDuplicates = mg.keepDuplicates

	for _, src := range []*MemoryGraph{mg, other} {
		if src == nil {
			continue
		}
		src.mu.RLock()
		for _, id := range sortedNodeIDs(src.nodes) {
			n := src.nodes[id]
			merged.upsertNodeLocked(n.ID, n.Name, n.Image)
		}
		for _, e := range sortedEdges(src.edges) {
			merged.mergeEdgeLocked(e.A, e.B, e.Titles)
		}
		src.mu.RUnlock()
	}

	return merged
}

func copyEdge(e *Edge) Edge {
	titles := make([]string, len(e.Titles))
	copy(titles, e.Titles)
	return Edge{A: e.A, B: e.B, Titles: titles}
}

func sortedNodeIDs(nodes map[int]*Node) []int {
	ids := make([]int, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func sortedEdges(edges map[edgeKey]*Edge) []*Edge {
	out := make([]*Edge, 0, len(edges))
	for _, e := range edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}
