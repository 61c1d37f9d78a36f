// Package indexer owns the word-occurrence tree and feeds it from text
// sources. The tree itself has no locking; the Engine is the single
// serialization point for all access to it.
package indexer

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"sync"

	"github.com/concord-index/concord/internal/index"
	"github.com/concord-index/concord/internal/tokenizer"
	"github.com/concord-index/concord/pkg/config"
	"github.com/concord-index/concord/pkg/metrics"
)

const defaultMaxLineLength = 1 << 20

// Stats is a point-in-time summary of the engine's index.
type Stats struct {
	Lines         int64 `json:"lines"`
	Words         int64 `json:"words"`
	DistinctWords int   `json:"distinct_words"`
	TreeHeight    int   `json:"tree_height"`
	Rotations     int   `json:"rotations"`
}

// Engine serializes access to a single index.Tree and runs the
// line-supplier/tokenizer pipeline in front of it.
type Engine struct {
	mu            sync.RWMutex
	tree          *index.Tree
	lines         int64
	words         int64
	lastRotations int
	cfg           config.IndexerConfig
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

// New creates an Engine. m may be nil when metrics are disabled.
func New(cfg config.IndexerConfig, m *metrics.Metrics) *Engine {
	if cfg.MaxLineLength <= 0 {
		cfg.MaxLineLength = defaultMaxLineLength
	}
	return &Engine{
		tree:    index.New(),
		cfg:     cfg,
		logger:  slog.Default().With("component", "indexer"),
		metrics: m,
	}
}

// IndexLine tokenizes text and records every resulting word against
// lineNo. Returns the number of word occurrences indexed. A line that
// tokenizes to nothing indexes zero words and is not an error.
func (e *Engine) IndexLine(text string, lineNo int) (int, error) {
	words := tokenizer.Tokenize(text)

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, w := range words {
		if err := e.tree.Insert(w, lineNo); err != nil {
			return 0, fmt.Errorf("indexing word %q at line %d: %w", w, lineNo, err)
		}
	}
	e.lines++
	e.words += int64(len(words))
	e.observeTree(len(words))
	return len(words), nil
}

// IndexReader reads r line by line (1-indexed) and indexes every line.
// Returns the number of lines consumed. source is used only for logging.
func (e *Engine) IndexReader(r io.Reader, source string) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), e.cfg.MaxLineLength)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if _, err := e.IndexLine(scanner.Text(), lineNo); err != nil {
			return lineNo, err
		}
	}
	if err := scanner.Err(); err != nil {
		return lineNo, fmt.Errorf("reading %s at line %d: %w", source, lineNo+1, err)
	}
	e.logger.Info("source indexed",
		"source", source,
		"lines", lineNo,
		"distinct_words", e.DistinctWords(),
	)
	return lineNo, nil
}

// IndexFile opens path and indexes its contents. I/O failures are
// reported to the caller; the tree is never left partially rebalanced by
// them since the core performs no I/O.
func (e *Engine) IndexFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening source file: %w", err)
	}
	defer f.Close()
	return e.IndexReader(f, path)
}

// Lookup normalizes word the same way indexing does, then returns the
// line numbers it appears on. Nil when absent or when word normalizes to
// nothing.
func (e *Engine) Lookup(word string) []int {
	normalized := tokenizer.Normalize(word)
	if normalized == "" {
		return nil
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tree.Lookup(normalized)
}

// Entries returns the full concordance in ascending word order.
func (e *Engine) Entries() []index.Entry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tree.Snapshot()
}

// All returns a lazy in-order traversal of the index. The read lock is
// held for the duration of the iteration, so callers must not insert from
// within the loop; use Entries when that matters.
func (e *Engine) All() iter.Seq2[string, []int] {
	return func(yield func(string, []int) bool) {
		e.mu.RLock()
		defer e.mu.RUnlock()
		for word, lines := range e.tree.All() {
			if !yield(word, lines) {
				return
			}
		}
	}
}

// DistinctWords returns the number of distinct indexed words.
func (e *Engine) DistinctWords() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tree.Len()
}

// Stats returns a snapshot of indexing counters and tree shape.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Stats{
		Lines:         e.lines,
		Words:         e.words,
		DistinctWords: e.tree.Len(),
		TreeHeight:    e.tree.Height(),
		Rotations:     e.tree.Rotations(),
	}
}

// observeTree updates Prometheus gauges. Caller holds e.mu.
func (e *Engine) observeTree(wordCount int) {
	if e.metrics == nil {
		return
	}
	e.metrics.LinesIndexedTotal.Inc()
	e.metrics.WordsIndexedTotal.Add(float64(wordCount))
	e.metrics.DistinctWords.Set(float64(e.tree.Len()))
	e.metrics.TreeHeight.Set(float64(e.tree.Height()))
	rotations := e.tree.Rotations()
	if delta := rotations - e.lastRotations; delta > 0 {
		e.metrics.TreeRotationsTotal.Add(float64(delta))
	}
	e.lastRotations = rotations
}
