package crawler

import (
	"context"
	"time"

	"github.com/alvmarrod/actor-weaver/internal/config"
	"github.com/alvmarrod/actor-weaver/internal/memory"
	"github.com/alvmarrod/actor-weaver/internal/tmdb"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Provider is the slice of the metadata provider the crawler depends on
type Provider interface {
	MovieCredits(ctx context.Context, actorID int) ([]tmdb.MovieCredit, error)
	MovieCast(ctx context.Context, movieID int) ([]tmdb.CastMember, error)
	MovieTitle(ctx context.Context, movieID int) (string, error)
	ImageURL(profilePath string) string
}

// Recorder receives crawl progress events
type Recorder interface {
	IncrementActorsDiscovered()
	IncrementActorsExpanded()
	IncrementEdgesRecorded()
	IncrementBridgeEdges()
	IncrementFetchesOK()
	IncrementFetchesFailed()
	RecordFetchTime(duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) IncrementActorsDiscovered()    {}
func (nopRecorder) IncrementActorsExpanded()      {}
func (nopRecorder) IncrementEdgesRecorded()       {}
func (nopRecorder) IncrementBridgeEdges()         {}
func (nopRecorder) IncrementFetchesOK()           {}
func (nopRecorder) IncrementFetchesFailed()       {}
func (nopRecorder) RecordFetchTime(time.Duration) {}

// Crawler expands the collaboration graph breadth-first from one seed actor
type Crawler struct {
	cfg      *config.Config
	provider Provider
	recorder Recorder
	log      *logrus.Entry
}

// NewCrawler creates a new crawler instance. recorder may be nil.
func NewCrawler(cfg *config.Config, provider Provider, recorder Recorder) *Crawler {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Crawler{
		cfg:      cfg,
		provider: provider,
		recorder: recorder,
		log:      logrus.WithField("component", "crawler"),
	}
}

// WithLogger returns a copy of the crawler that logs through entry
func (c *Crawler) WithLogger(entry *logrus.Entry) *Crawler {
	cp := *c
	cp.log = entry.WithField("component", "crawler")
	return &cp
}

// NewGraph creates an empty graph using the configured title policy
func NewGraph(cfg *config.Config) *memory.MemoryGraph {
	if cfg.KeepDuplicateTitles {
		return memory.NewMemoryGraph(memory.KeepDuplicateTitles())
	}
	return memory.NewMemoryGraph()
}

// Crawl builds the collaboration graph around seedID.
// On cancellation it returns the partial graph, which stays well-formed, with ctx.Err().
func (c *Crawler) Crawl(ctx context.Context, seedID int) (*memory.MemoryGraph, error) {
	g := NewGraph(c.cfg)
	g.AddOrGetNode(seedID, "", "")

	queue := NewQueue(c.cfg.MaxDepth)
	actors := make(visitSet)
	movies := make(visitSet)

	queue.Push(Entry{ActorID: seedID, Depth: 0})
	log := c.log.WithField("seed", seedID)
	start := time.Now()

	for {
		if err := ctx.Err(); err != nil {
			nodes, edges := g.GetStats()
			log.Warnf("Crawl abandoned with %d queued: %d actors, %d collaborations kept", queue.Size(), nodes, edges)
			return g, err
		}

		entry, ok := queue.Pop()
		if !ok {
			break
		}

		if !actors.markVisited(entry.ActorID) {
			continue
		}

		// Reached the hop bound: keep the node, skip its credits
		if entry.Depth >= c.cfg.MaxDepth {
			continue
		}

		c.expand(ctx, g, entry, queue, actors, movies)
	}

	nodes, edges := g.GetStats()
	log.Infof("Crawl complete: %d actors, %d collaborations, %d actors visited in %v",
		nodes, edges, len(actors), time.Since(start).Round(time.Millisecond))
	return g, nil
}

// expand fetches one actor's top movies and their casts, then records
// every collaboration found. Fetch failures drop only the affected item.
func (c *Crawler) expand(ctx context.Context, g *memory.MemoryGraph, entry Entry, queue *Queue, actors, movies visitSet) {
	log := c.log.WithFields(logrus.Fields{"actor": entry.ActorID, "depth": entry.Depth})

	credits, err := c.movieCredits(ctx, entry.ActorID)
	if err != nil {
		log.Warnf("Skipping actor, credits unavailable: %v", err)
		return
	}
	c.recorder.IncrementActorsExpanded()

	var pending []tmdb.MovieCredit
	for _, movie := range TopMoviesByPopularity(credits, c.cfg.MaxMoviesPerActor) {
		if movies.markVisited(movie.ID) {
			pending = append(pending, movie)
		}
	}
	if len(pending) == 0 {
		return
	}

	// Fetch all casts first; mutate the graph only after the join
	casts := make([][]tmdb.CastMember, len(pending))
	var group errgroup.Group
	group.SetLimit(c.cfg.ConcurrentWorkers)

	for i, movie := range pending {
		group.Go(func() error {
			cast, err := c.movieCast(ctx, movie.ID)
			if err != nil {
				log.WithField("movie", movie.ID).Warnf("Skipping movie, cast unavailable: %v", err)
				return nil
			}
			casts[i] = TopCast(cast, c.cfg.MaxCastPerMovie)
			return nil
		})
	}
	_ = group.Wait()

	for i, movie := range pending {
		c.record(g, entry, movie, casts[i], queue, actors)
	}
	log.Debugf("Expanded %d movies", len(pending))
}

// record adds the cast of one movie to the graph and extends the frontier
func (c *Crawler) record(g *memory.MemoryGraph, entry Entry, movie tmdb.MovieCredit, cast []tmdb.CastMember, queue *Queue, actors visitSet) {
	for i, member := range cast {
		if !g.HasNode(member.ID) {
			c.recorder.IncrementActorsDiscovered()
		}
		g.AddOrGetNode(member.ID, member.Name, c.provider.ImageURL(member.ProfilePath))

		c.link(g, entry.ActorID, member.ID, movie.Title)
		if !c.cfg.ExpandingActorEdgesOnly && member.ID != entry.ActorID {
			for _, costar := range cast[:i] {
				if costar.ID == entry.ActorID {
					continue
				}
				c.link(g, costar.ID, member.ID, movie.Title)
			}
		}

		if !actors.has(member.ID) {
			queue.Push(Entry{ActorID: member.ID, Depth: entry.Depth + 1})
		}
	}
}

func (c *Crawler) link(g *memory.MemoryGraph, a, b int, title string) {
	if g.AddOrMergeEdge(a, b, title) {
		c.recorder.IncrementEdgesRecorded()
	}
}

func (c *Crawler) movieCredits(ctx context.Context, actorID int) ([]tmdb.MovieCredit, error) {
	start := time.Now()
	credits, err := c.provider.MovieCredits(ctx, actorID)
	c.observe(start, err)
	return credits, err
}

func (c *Crawler) movieCast(ctx context.Context, movieID int) ([]tmdb.CastMember, error) {
	start := time.Now()
	cast, err := c.provider.MovieCast(ctx, movieID)
	c.observe(start, err)
	return cast, err
}

func (c *Crawler) observe(start time.Time, err error) {
	c.recorder.RecordFetchTime(time.Since(start))
	if err != nil {
		c.recorder.IncrementFetchesFailed()
		return
	}
	c.recorder.IncrementFetchesOK()
}
