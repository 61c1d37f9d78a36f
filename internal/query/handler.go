// Package query serves exact-word lookups and full concordance dumps over
// HTTP, with optional Redis result caching and lookup analytics.
package query

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/concord-index/concord/internal/analytics"
	"github.com/concord-index/concord/internal/index"
	"github.com/concord-index/concord/internal/indexer"
	"github.com/concord-index/concord/internal/tokenizer"
	apperrors "github.com/concord-index/concord/pkg/errors"
	"github.com/concord-index/concord/pkg/logger"
	"github.com/concord-index/concord/pkg/metrics"
	"github.com/concord-index/concord/pkg/middleware"
)

// Index is the slice of the engine the handlers need.
type Index interface {
	Lookup(word string) []int
	Entries() []index.Entry
	Stats() indexer.Stats
}

// LookupResult is the response body for a single word lookup.
type LookupResult struct {
	Word  string `json:"word"`
	Lines []int  `json:"lines"`
	Count int    `json:"count"`
}

type Handler struct {
	index      Index
	cache      *LookupCache
	collector  *analytics.Collector
	aggregator *analytics.Aggregator
	store      *analytics.Store
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New creates a query Handler. cache, collector, aggregator, store, and m
// may each be nil when the corresponding subsystem is disabled.
func New(idx Index, cache *LookupCache, collector *analytics.Collector, aggregator *analytics.Aggregator, store *analytics.Store, m *metrics.Metrics) *Handler {
	return &Handler{
		index:      idx,
		cache:      cache,
		collector:  collector,
		aggregator: aggregator,
		store:      store,
		metrics:    m,
		logger:     slog.Default().With("component", "query-handler"),
	}
}

// Register installs the handler's routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/lookup", h.Lookup)
	mux.HandleFunc("GET /v1/index", h.Dump)
	mux.HandleFunc("GET /v1/stats", h.Stats)
	if h.store != nil {
		mux.HandleFunc("GET /v1/stats/history", h.StatsHistory)
	}
}

func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	raw := r.URL.Query().Get("word")
	if raw == "" {
		h.writeAppError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'word' is required"))
		return
	}
	word := tokenizer.Normalize(raw)
	if word == "" {
		h.writeAppError(w, apperrors.Newf(apperrors.ErrEmptyWord, http.StatusBadRequest, "word %q is empty after normalization", raw))
		return
	}

	var result *LookupResult
	var err error
	cacheHit := false

	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, word, func() (*LookupResult, error) {
			return h.lookup(word), nil
		})
		if err != nil {
			log.Error("lookup failed", "word", word, "error", err)
			h.observeLookup("error", cacheHit, start)
			h.writeError(w, http.StatusInternalServerError, "lookup failed")
			return
		}
	} else {
		result = h.lookup(word)
	}

	latency := time.Since(start)
	outcome := "hit"
	eventType := analytics.EventLookup
	if result.Count == 0 {
		outcome = "miss"
		eventType = analytics.EventZeroResult
	}
	h.observeLookup(outcome, cacheHit, start)

	log.Info("lookup completed",
		"word", word,
		"lines", result.Count,
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)

	event := analytics.LookupEvent{
		Type:      eventType,
		Word:      word,
		Hits:      result.Count,
		CacheHit:  cacheHit,
		LatencyMs: latency.Milliseconds(),
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(ctx),
	}
	if h.collector != nil {
		h.collector.Track(event)
	}
	if h.aggregator != nil {
		h.aggregator.Record(event)
	}

	h.writeJSON(w, http.StatusOK, result)
}

// Dump writes the full concordance in ascending word order.
func (h *Handler) Dump(w http.ResponseWriter, r *http.Request) {
	entries := h.index.Entries()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"words":   len(entries),
		"entries": entries,
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"index": h.index.Stats(),
	}
	if h.cache != nil {
		hits, misses := h.cache.Stats()
		total := hits + misses
		var hitRate float64
		if total > 0 {
			hitRate = float64(hits) / float64(total) * 100
		}
		body["cache"] = map[string]any{
			"hits":     hits,
			"misses":   misses,
			"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		}
	}
	if h.aggregator != nil {
		body["lookups"] = h.aggregator.Stats()
	}
	h.writeJSON(w, http.StatusOK, body)
}

// StatsHistory returns persisted aggregate snapshots, newest first.
// Registered only when a snapshot store is configured.
func (h *Handler) StatsHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			h.writeAppError(w, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit %q must be an integer in [1,1000]", raw))
			return
		}
		limit = n
	}
	snapshots, err := h.store.ListSnapshots(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list snapshots", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to load snapshot history")
		return
	}
	if snapshots == nil {
		snapshots = []analytics.AggregatedStats{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"count":     len(snapshots),
		"snapshots": snapshots,
	})
}

func (h *Handler) lookup(word string) *LookupResult {
	lines := h.index.Lookup(word)
	if lines == nil {
		lines = []int{}
	}
	return &LookupResult{Word: word, Lines: lines, Count: len(lines)}
}

func (h *Handler) observeLookup(result string, cacheHit bool, start time.Time) {
	if h.metrics == nil {
		return
	}
	h.metrics.LookupsTotal.WithLabelValues(result).Inc()
	status := "miss"
	if cacheHit {
		status = "hit"
	}
	if h.cache == nil {
		status = "disabled"
	}
	h.metrics.LookupLatency.WithLabelValues(status).Observe(time.Since(start).Seconds())
	if h.cache != nil {
		if cacheHit {
			h.metrics.CacheHitsTotal.Inc()
		} else {
			h.metrics.CacheMissesTotal.Inc()
		}
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{"error": err.Error()})
}
