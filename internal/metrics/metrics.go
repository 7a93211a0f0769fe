package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/alvmarrod/actor-weaver/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tracker holds and manages search metrics
type Tracker struct {
	mu               sync.Mutex
	data             storage.Metrics
	totalFetchTimeMs int64
	fetchCount       int

	registry         *prometheus.Registry
	actorsDiscovered prometheus.Counter
	actorsExpanded   prometheus.Counter
	edgesRecorded    prometheus.Counter
	bridgeEdges      prometheus.Counter
	fetches          *prometheus.CounterVec
	fetchDuration    prometheus.Histogram
}

// NewTracker creates a new metrics tracker with its own Prometheus registry
func NewTracker() *Tracker {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Tracker{
		data: storage.Metrics{
			StartTime: time.Now(),
			Degrees:   -1,
		},
		registry: reg,
		actorsDiscovered: factory.NewCounter(prometheus.CounterOpts{
			Name: "weaver_actors_discovered_total",
			Help: "Actors added to a collaboration graph",
		}),
		actorsExpanded: factory.NewCounter(prometheus.CounterOpts{
			Name: "weaver_actors_expanded_total",
			Help: "Actors whose filmography was crawled",
		}),
		edgesRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "weaver_edges_recorded_total",
			Help: "Collaboration edges created by crawling",
		}),
		bridgeEdges: factory.NewCounter(prometheus.CounterOpts{
			Name: "weaver_bridge_edges_total",
			Help: "Edges synthesized by bridging",
		}),
		fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "weaver_provider_fetches_total",
			Help: "Provider fetches by result",
		}, []string{"result"}),
		fetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "weaver_provider_fetch_duration_seconds",
			Help:    "Provider fetch latency, cache hits included",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
	}
}

// Registry exposes the tracker's Prometheus registry
func (t *Tracker) Registry() *prometheus.Registry {
	return t.registry
}

// SetSession tags the exported metrics with a search session id
func (t *Tracker) SetSession(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.Session = id
}

// IncrementActorsDiscovered increments the discovered actors counter
func (t *Tracker) IncrementActorsDiscovered() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ActorsDiscovered++
	t.actorsDiscovered.Inc()
}

// IncrementActorsExpanded increments the expanded actors counter
func (t *Tracker) IncrementActorsExpanded() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.ActorsExpanded++
	t.actorsExpanded.Inc()
}

// IncrementEdgesRecorded increments the edges counter
func (t *Tracker) IncrementEdgesRecorded() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.EdgesRecorded++
	t.edgesRecorded.Inc()
}

// IncrementBridgeEdges increments the bridge edges counter
func (t *Tracker) IncrementBridgeEdges() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.BridgeEdges++
	t.bridgeEdges.Inc()
}

// IncrementFetchesOK increments the successful fetch counter
func (t *Tracker) IncrementFetchesOK() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.FetchesOK++
	t.fetches.WithLabelValues("ok").Inc()
}

// IncrementFetchesFailed increments the failed fetch counter
func (t *Tracker) IncrementFetchesFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.FetchesFailed++
	t.fetches.WithLabelValues("failed").Inc()
}

// RecordFetchTime records a provider fetch duration
func (t *Tracker) RecordFetchTime(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalFetchTimeMs += duration.Milliseconds()
	t.fetchCount++
	t.fetchDuration.Observe(duration.Seconds())
}

// SetCacheStats records the response cache hit ratio
func (t *Tracker) SetCacheStats(hits, misses int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.CacheHits = hits
	t.data.CacheMisses = misses
}

// SetDegrees records the length of the path found, -1 for none
func (t *Tracker) SetDegrees(degrees int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.Degrees = degrees
}

// GetSnapshot returns a copy of current metrics
func (t *Tracker) GetSnapshot() storage.Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := t.data
	snapshot.TotalFetchTimeMs = t.totalFetchTimeMs
	if t.fetchCount > 0 {
		snapshot.AvgFetchTimeMs = t.totalFetchTimeMs / int64(t.fetchCount)
	}
	return snapshot
}

// WriteToFile exports metrics to a JSON file
func (t *Tracker) WriteToFile(path, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Finalize metrics
	t.data.EndTime = time.Now()
	t.data.TerminationReason = reason
	t.data.TotalFetchTimeMs = t.totalFetchTimeMs
	if t.fetchCount > 0 {
		t.data.AvgFetchTimeMs = t.totalFetchTimeMs / int64(t.fetchCount)
	}

	jsonData, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}

	return nil
}

// WriteTextfile exports the Prometheus counters in the node_exporter textfile format
func (t *Tracker) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, t.registry); err != nil {
		return fmt.Errorf("failed to write prometheus textfile: %w", err)
	}
	return nil
}

// LogProgress formats current metrics for the console
func (t *Tracker) LogProgress() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return fmt.Sprintf("Actors: %d discovered, %d expanded | Edges: %d (+%d bridged) | Fetches: %d ok, %d failed",
		t.data.ActorsDiscovered,
		t.data.ActorsExpanded,
		t.data.EdgesRecorded,
		t.data.BridgeEdges,
		t.data.FetchesOK,
		t.data.FetchesFailed,
	)
}
