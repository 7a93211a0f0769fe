package degrees

import (
	"context"
	"errors"
	"fmt"

	"github.com/alvmarrod/actor-weaver/internal/config"
	"github.com/alvmarrod/actor-weaver/internal/crawler"
	"github.com/alvmarrod/actor-weaver/internal/memory"
	"github.com/alvmarrod/actor-weaver/internal/tmdb"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrActorNotFound is returned when a name search has no match
var ErrActorNotFound = errors.New("actor not found")

// Provider is everything a search needs from the metadata provider
type Provider interface {
	crawler.Provider
	SearchActor(ctx context.Context, name string) (*tmdb.Actor, error)
}

// Hop is one step of a connection path
type Hop struct {
	From   memory.Node
	To     memory.Node
	Titles []string
}

// Result is the outcome of one search. Graph is always set, even when
// no path was found or the search was cut short.
type Result struct {
	Session     string
	Actor1      int
	Actor2      int
	Graph       *memory.MemoryGraph
	Path        []int
	Crawls      int
	BridgeEdges int
}

// Found reports whether the two actors are connected within bounds
func (r *Result) Found() bool {
	return r.Path != nil
}

// Degrees returns the number of hops between the actors, -1 if not found
func (r *Result) Degrees() int {
	return memory.Degrees(r.Path)
}

// Bridged reports whether bridging added any edge
func (r *Result) Bridged() bool {
	return r.BridgeEdges > 0
}

// Hops expands the path into node pairs with their shared titles
func (r *Result) Hops() []Hop {
	if len(r.Path) < 2 {
		return nil
	}

	hops := make([]Hop, 0, len(r.Path)-1)
	for i := 0; i+1 < len(r.Path); i++ {
		from, _ := r.Graph.Node(r.Path[i])
		to, _ := r.Graph.Node(r.Path[i+1])
		edge, _ := r.Graph.Edge(r.Path[i], r.Path[i+1])
		hops = append(hops, Hop{From: from, To: to, Titles: edge.Titles})
	}
	return hops
}

// Finder connects two actors by crawling, merging and bridging
type Finder struct {
	cfg      *config.Config
	provider Provider
	recorder crawler.Recorder
}

// NewFinder creates a finder. recorder may be nil.
func NewFinder(cfg *config.Config, provider Provider, recorder crawler.Recorder) *Finder {
	return &Finder{cfg: cfg, provider: provider, recorder: recorder}
}

// Find resolves both names and connects the actors. No crawl happens
// unless both searches match.
func (f *Finder) Find(ctx context.Context, name1, name2 string) (*Result, error) {
	actor1, err := f.search(ctx, name1)
	if err != nil {
		return nil, err
	}
	actor2, err := f.search(ctx, name2)
	if err != nil {
		return nil, err
	}

	logrus.Infof("Searching connection between %s (%d) and %s (%d)", actor1.Name, actor1.ID, actor2.Name, actor2.ID)

	res, err := f.Connect(ctx, actor1.ID, actor2.ID)
	if res != nil {
		res.Graph.AddOrGetNode(actor1.ID, actor1.Name, f.provider.ImageURL(actor1.ProfilePath))
		res.Graph.AddOrGetNode(actor2.ID, actor2.Name, f.provider.ImageURL(actor2.ProfilePath))
	}
	return res, err
}

func (f *Finder) search(ctx context.Context, name string) (*tmdb.Actor, error) {
	actor, err := f.provider.SearchActor(ctx, name)
	if errors.Is(err, tmdb.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrActorNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to search %q: %w", name, err)
	}
	return actor, nil
}

// Connect crawls around actor1 and, when that does not reach actor2,
// around actor2 too, then merges both graphs and bridges their
// neighborhoods. A canceled ctx returns the result reached so far.
func (f *Finder) Connect(ctx context.Context, actor1, actor2 int) (*Result, error) {
	res := &Result{
		Session: uuid.NewString(),
		Actor1:  actor1,
		Actor2:  actor2,
	}
	log := logrus.WithField("session", res.Session)
	c := crawler.NewCrawler(f.cfg, f.provider, f.recorder).WithLogger(log)

	graphA, err := c.Crawl(ctx, actor1)
	res.Crawls++
	res.Graph = graphA
	if err != nil {
		return f.finish(log, res), err
	}

	if graphA.HasNode(actor2) {
		log.Debugf("Actor %d reached from %d, skipping second crawl", actor2, actor1)
		return f.finish(log, res), nil
	}

	graphB, err := c.Crawl(ctx, actor2)
	res.Crawls++
	res.Graph = graphA.Merge(graphB)
	if err != nil {
		return f.finish(log, res), err
	}

	// A bridge may shorten a path the merge already found
	bridger := crawler.NewBridger(f.cfg, f.provider, f.recorder).WithLogger(log)
	res.BridgeEdges = bridger.Bridge(ctx, res.Graph, actor1, actor2)

	return f.finish(log, res), ctx.Err()
}

func (f *Finder) finish(log *logrus.Entry, res *Result) *Result {
	res.Path = memory.ShortestPath(res.Graph, res.Actor1, res.Actor2)

	nodes, edges := res.Graph.GetStats()
	if res.Found() {
		log.Infof("Connected in %d degrees (%d actors, %d collaborations searched)", res.Degrees(), nodes, edges)
	} else {
		log.Infof("No connection within bounds: searched %d actors and %d collaborations", nodes, edges)
	}
	return res
}
