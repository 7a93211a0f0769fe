package memory

// ShortestPath returns the fewest-hop sequence of actor ids from a to b,
// or nil when either endpoint is missing or no path exists.
// Neighbors are visited in id order so equal-length paths resolve the same way every run.
func ShortestPath(g *MemoryGraph, a, b int) []int {
	if g == nil {
		return nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[a]; !ok {
		return nil
	}
	if _, ok := g.nodes[b]; !ok {
		return nil
	}
	if a == b {
		return []int{a}
	}

	parent := map[int]int{a: a}
	queue := []int{a}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, next := range g.sortedNeighborsLocked(cur) {
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = cur
			if next == b {
				return tracePath(parent, a, b)
			}
			queue = append(queue, next)
		}
	}

	return nil
}

func tracePath(parent map[int]int, a, b int) []int {
	var reversed []int
	for cur := b; cur != a; cur = parent[cur] {
		reversed = append(reversed, cur)
	}
	reversed = append(reversed, a)

	path := make([]int, len(reversed))
	for i, id := range reversed {
		path[len(reversed)-1-i] = id
	}
	return path
}

// Degrees returns the hop count of path, or -1 when there is no path
func Degrees(path []int) int {
	if len(path) == 0 {
		return -1
	}
	return len(path) - 1
}
