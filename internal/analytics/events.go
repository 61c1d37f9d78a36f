package analytics

import "time"

type EventType string

const (
	EventLookup     EventType = "lookup"
	EventCacheHit   EventType = "cache_hit"
	EventCacheMiss  EventType = "cache_miss"
	EventZeroResult EventType = "zero_result"
	EventIndexLine  EventType = "index_line"
)

type LookupEvent struct {
	Type      EventType `json:"type"`
	Word      string    `json:"word"`
	Hits      int       `json:"hits"`
	CacheHit  bool      `json:"cache_hit"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

type IndexEvent struct {
	Type      EventType `json:"type"`
	Source    string    `json:"source"`
	Lines     int       `json:"lines"`
	Words     int64     `json:"words"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}
