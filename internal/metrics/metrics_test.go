package metrics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alvmarrod/actor-weaver/internal/storage"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerCountsEvents(t *testing.T) {
	tr := NewTracker()
	tr.IncrementActorsDiscovered()
	tr.IncrementActorsDiscovered()
	tr.IncrementActorsExpanded()
	tr.IncrementEdgesRecorded()
	tr.IncrementBridgeEdges()
	tr.IncrementFetchesOK()
	tr.IncrementFetchesOK()
	tr.IncrementFetchesFailed()

	snap := tr.GetSnapshot()
	assert.Equal(t, 2, snap.ActorsDiscovered)
	assert.Equal(t, 1, snap.ActorsExpanded)
	assert.Equal(t, 1, snap.EdgesRecorded)
	assert.Equal(t, 1, snap.BridgeEdges)
	assert.Equal(t, 2, snap.FetchesOK)
	assert.Equal(t, 1, snap.FetchesFailed)
	assert.Equal(t, -1, snap.Degrees)

	assert.Equal(t, 2.0, testutil.ToFloat64(tr.actorsDiscovered))
	assert.Equal(t, 1.0, testutil.ToFloat64(tr.bridgeEdges))
	assert.Equal(t, 2.0, testutil.ToFloat64(tr.fetches.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(tr.fetches.WithLabelValues("failed")))
}

func TestTrackerRegistryGathersCounters(t *testing.T) {
	tr := NewTracker()
	tr.IncrementBridgeEdges()
	tr.IncrementBridgeEdges()
	tr.IncrementFetchesOK()
	tr.IncrementFetchesFailed()

	expected := `
# HELP weaver_bridge_edges_total Edges synthesized by bridging
# TYPE weaver_bridge_edges_total counter
weaver_bridge_edges_total 2
`
	require.NoError(t, testutil.GatherAndCompare(tr.Registry(), strings.NewReader(expected), "weaver_bridge_edges_total"))

	count, err := testutil.GatherAndCount(tr.Registry(), "weaver_provider_fetches_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series per fetch result")
}

func TestTrackerAveragesFetchTime(t *testing.T) {
	tr := NewTracker()
	tr.RecordFetchTime(10 * time.Millisecond)
	tr.RecordFetchTime(30 * time.Millisecond)

	snap := tr.GetSnapshot()
	assert.Equal(t, int64(40), snap.TotalFetchTimeMs)
	assert.Equal(t, int64(20), snap.AvgFetchTimeMs)
}

func TestTrackerWritesJSON(t *testing.T) {
	tr := NewTracker()
	tr.SetSession("abc")
	tr.SetDegrees(3)
	tr.SetCacheStats(4, 6)
	tr.IncrementEdgesRecorded()

	path := filepath.Join(t.TempDir(), "metrics.json")
	require.NoError(t, tr.WriteToFile(path, "path_found"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got storage.Metrics
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "abc", got.Session)
	assert.Equal(t, 3, got.Degrees)
	assert.Equal(t, int64(4), got.CacheHits)
	assert.Equal(t, int64(6), got.CacheMisses)
	assert.Equal(t, "path_found", got.TerminationReason)
	assert.False(t, got.EndTime.Before(got.StartTime))
}

func TestTrackerWriteToFileBadPath(t *testing.T) {
	tr := NewTracker()
	err := tr.WriteToFile(filepath.Join(t.TempDir(), "missing", "metrics.json"), "x")
	assert.Error(t, err)
}

func TestTrackerWritesTextfile(t *testing.T) {
	tr := NewTracker()
	tr.IncrementActorsExpanded()
	tr.RecordFetchTime(time.Millisecond)

	path := filepath.Join(t.TempDir(), "weaver.prom")
	require.NoError(t, tr.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "weaver_actors_expanded_total 1")
	assert.Contains(t, text, "weaver_provider_fetch_duration_seconds_count 1")
}

func TestLogProgress(t *testing.T) {
	tr := NewTracker()
	tr.IncrementActorsDiscovered()
	tr.IncrementBridgeEdges()

	line := tr.LogProgress()
	assert.True(t, strings.HasPrefix(line, "Actors: 1 discovered, 0 expanded"))
	assert.Contains(t, line, "(+1 bridged)")
}
