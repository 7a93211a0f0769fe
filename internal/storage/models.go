package storage

import "time"

// Response is a cached provider payload
type Response struct {
	Key       string
	Payload   []byte
	ExpiresAt time.Time
}

// Metrics tracks search statistics for export on exit
type Metrics struct {
	Session           string    `json:"session"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	ActorsDiscovered  int       `json:"actors_discovered"`
	ActorsExpanded    int       `json:"actors_expanded"`
	EdgesRecorded     int       `json:"edges_recorded"`
	BridgeEdges       int       `json:"bridge_edges"`
	FetchesOK         int       `json:"fetches_ok"`
	FetchesFailed     int       `json:"fetches_failed"`
	CacheHits         int64     `json:"cache_hits"`
	CacheMisses       int64     `json:"cache_misses"`
	TotalFetchTimeMs  int64     `json:"total_fetch_time_ms"`
	AvgFetchTimeMs    int64     `json:"avg_fetch_time_ms"`
	Degrees           int       `json:"degrees"`
	TerminationReason string    `json:"termination_reason"`
}
