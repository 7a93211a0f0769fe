package crawler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/alvmarrod/actor-weaver/internal/config"
	"github.com/alvmarrod/actor-weaver/internal/memory"
	"github.com/alvmarrod/actor-weaver/internal/tmdb"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Bridger synthesizes edges between the neighborhoods of two actors that
// the crawl left disconnected, by comparing the neighbors' filmographies
type Bridger struct {
	cfg      *config.Config
	provider Provider
	recorder Recorder
	log      *logrus.Entry
}

// NewBridger creates a bridger. recorder may be nil.
func NewBridger(cfg *config.Config, provider Provider, recorder Recorder) *Bridger {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Bridger{
		cfg:      cfg,
		provider: provider,
		recorder: recorder,
		log:      logrus.WithField("component", "bridger"),
	}
}

// WithLogger returns a copy of the bridger that logs through entry
func (b *Bridger) WithLogger(entry *logrus.Entry) *Bridger {
	cp := *b
	cp.log = entry.WithField("component", "bridger")
	return &cp
}

type bridgeCandidate struct {
	n1, n2  int
	movieID int
	title   string
}

// Bridge adds bridge edges to g between neighbors of actor1 and neighbors
// of actor2 that share a movie. Returns the number of edges added, which
// never exceeds the configured budget.
func (b *Bridger) Bridge(ctx context.Context, g *memory.MemoryGraph, actor1, actor2 int) int {
	left := b.pickNeighbors(g, actor1)
	right := b.pickNeighbors(g, actor2)
	log := b.log.WithFields(logrus.Fields{"actor1": actor1, "actor2": actor2})

	if len(left) == 0 || len(right) == 0 {
		log.Debug("Nothing to bridge, one side has no neighbors")
		return 0
	}

	credits := b.fetchCredits(ctx, union(left, right))
	candidates := b.candidates(left, right, credits)
	log.Debugf("Comparing %dx%d neighbors: %d shared movies", len(left), len(right), len(candidates))

	budget := NewBudget(b.cfg.BridgeBudget)
	added := 0

	// Each round resolves at most as many titles as the budget still allows
	for len(candidates) > 0 && !budget.Exhausted() {
		if ctx.Err() != nil {
			break
		}

		n := min(budget.Remaining(), len(candidates))
		round := candidates[:n]
		candidates = candidates[n:]

		b.resolveTitles(ctx, round)

		for _, cand := range round {
			if cand.title == "" {
				continue
			}
			if edge, ok := g.Edge(cand.n1, cand.n2); ok && edge.HasTitle(cand.title) {
				continue
			}
			if !budget.TryTake() {
				break
			}
			g.AddOrMergeEdge(cand.n1, cand.n2, cand.title)
			b.recorder.IncrementBridgeEdges()
			added++
			log.WithField("movie", cand.movieID).Debugf("Bridged %d and %d via '%s'", cand.n1, cand.n2, cand.title)
		}
	}

	if added > 0 {
		log.Infof("Added %d bridge edges (budget %d)", added, b.cfg.BridgeBudget)
	}
	return added
}

// pickNeighbors returns up to fanout neighbors of id, strongest collaborations first
func (b *Bridger) pickNeighbors(g *memory.MemoryGraph, id int) []int {
	neighbors := g.Neighbors(id)
	weight := make(map[int]int, len(neighbors))
	for _, n := range neighbors {
		if edge, ok := g.Edge(id, n); ok {
			weight[n] = len(edge.Titles)
		}
	}

	sort.Slice(neighbors, func(i, j int) bool {
		wi, wj := weight[neighbors[i]], weight[neighbors[j]]
		if wi != wj {
			return wi > wj
		}
		return neighbors[i] < neighbors[j]
	})

	if len(neighbors) > b.cfg.BridgeFanout {
		neighbors = neighbors[:b.cfg.BridgeFanout]
	}
	return neighbors
}

// fetchCredits loads the compared filmography of every actor in ids once.
// Actors whose credits cannot be fetched are left out.
func (b *Bridger) fetchCredits(ctx context.Context, ids []int) map[int][]tmdb.MovieCredit {
	results := make([][]tmdb.MovieCredit, len(ids))

	var group errgroup.Group
	group.SetLimit(b.cfg.ConcurrentWorkers)

	for i, id := range ids {
		group.Go(func() error {
			start := time.Now()
			credits, err := b.provider.MovieCredits(ctx, id)
			b.recorder.RecordFetchTime(time.Since(start))
			if err != nil {
				b.recorder.IncrementFetchesFailed()
				b.log.WithField("actor", id).Warnf("Bridge credits unavailable: %v", err)
				return nil
			}
			b.recorder.IncrementFetchesOK()
			results[i] = b.selectCredits(credits)
			return nil
		})
	}
	_ = group.Wait()

	out := make(map[int][]tmdb.MovieCredit, len(ids))
	for i, id := range ids {
		if results[i] != nil {
			out[id] = results[i]
		}
	}
	return out
}

func (b *Bridger) selectCredits(credits []tmdb.MovieCredit) []tmdb.MovieCredit {
	if b.cfg.BridgeSortByPopularity {
		return TopMoviesByPopularity(credits, b.cfg.BridgeCreditsPerActor)
	}
	return TopCredits(credits, b.cfg.BridgeCreditsPerActor)
}

// candidates lists every (pair, shared movie) once, pairs in neighborhood
// order and movies in the left actor's credit order
func (b *Bridger) candidates(left, right []int, credits map[int][]tmdb.MovieCredit) []bridgeCandidate {
	var out []bridgeCandidate
	seen := make(map[[3]int]bool)

	for _, n1 := range left {
		for _, n2 := range right {
			if n1 == n2 {
				continue
			}

			other := make(map[int]string, len(credits[n2]))
			for _, c := range credits[n2] {
				other[c.ID] = c.Title
			}

			for _, c := range credits[n1] {
				otherTitle, shared := other[c.ID]
				if !shared {
					continue
				}

				lo, hi := min(n1, n2), max(n1, n2)
				key := [3]int{lo, hi, c.ID}
				if seen[key] {
					continue
				}
				seen[key] = true

				title := c.Title
				if title == "" {
					title = otherTitle
				}
				out = append(out, bridgeCandidate{n1: n1, n2: n2, movieID: c.ID, title: title})
			}
		}
	}
	return out
}

// resolveTitles fetches the titles the credit records did not carry
func (b *Bridger) resolveTitles(ctx context.Context, round []bridgeCandidate) {
	var missing []int
	wanted := make(map[int]bool)
	for _, cand := range round {
		if cand.title == "" && !wanted[cand.movieID] {
			wanted[cand.movieID] = true
			missing = append(missing, cand.movieID)
		}
	}
	if len(missing) == 0 {
		return
	}

	var mu sync.Mutex
	titles := make(map[int]string, len(missing))

	var group errgroup.Group
	group.SetLimit(b.cfg.ConcurrentWorkers)

	for _, movieID := range missing {
		group.Go(func() error {
			start := time.Now()
			title, err := b.provider.MovieTitle(ctx, movieID)
			b.recorder.RecordFetchTime(time.Since(start))
			if err != nil {
				b.recorder.IncrementFetchesFailed()
				b.log.WithField("movie", movieID).Warnf("Bridge title unavailable: %v", err)
				return nil
			}
			b.recorder.IncrementFetchesOK()

			mu.Lock()
			titles[movieID] = title
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	for i := range round {
		if round[i].title == "" {
			round[i].title = titles[round[i].movieID]
		}
	}
}

func union(a, b []int) []int {
	seen := make(map[int]bool, len(a)+len(b))
	out := make([]int, 0, len(a)+len(b))
	for _, list := range [][]int{a, b} {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}
