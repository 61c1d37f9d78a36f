package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// AggregatedStats is the rolling summary of lookup traffic since startup.
type AggregatedStats struct {
	TotalLookups int64     `json:"total_lookups"`
	Hits         int64     `json:"hits"`
	ZeroResults  int64     `json:"zero_results"`
	CacheHits    int64     `json:"cache_hits"`
	CacheMisses  int64     `json:"cache_misses"`
	CapturedAt   time.Time `json:"captured_at"`
}

// Aggregator keeps in-memory lookup counters and periodically persists
// snapshots through a Store.
type Aggregator struct {
	mu     sync.Mutex
	stats  AggregatedStats
	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		logger: slog.Default().With("component", "analytics-aggregator"),
	}
}

// Record folds a lookup event into the aggregate.
func (a *Aggregator) Record(ev LookupEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.TotalLookups++
	if ev.Hits > 0 {
		a.stats.Hits++
	} else {
		a.stats.ZeroResults++
	}
	if ev.CacheHit {
		a.stats.CacheHits++
	} else {
		a.stats.CacheMisses++
	}
}

// Stats returns a copy of the current aggregate.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	stats := a.stats
	stats.CapturedAt = time.Now().UTC()
	return stats
}

// StartSnapshotLoop persists the aggregate to store every interval until
// ctx is cancelled, writing a final snapshot on shutdown.
func (a *Aggregator) StartSnapshotLoop(ctx context.Context, store *Store, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				if err := store.SaveSnapshot(context.Background(), a.Stats()); err != nil {
					a.logger.Error("final snapshot failed", "error", err)
				}
				return
			case <-ticker.C:
				if err := store.SaveSnapshot(ctx, a.Stats()); err != nil {
					a.logger.Error("periodic snapshot failed", "error", err)
				}
			}
		}
	}()
	a.logger.Info("snapshot loop started", "interval", interval)
}
