// Package benchmark contains Go benchmarks for the word-occurrence tree
// and the indexing engine, measuring throughput and allocation behaviour.
package benchmark

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/concord-index/concord/internal/index"
	"github.com/concord-index/concord/internal/indexer"
	"github.com/concord-index/concord/pkg/config"
)

// BenchmarkTreeInsert measures insert throughput with random keys.
func BenchmarkTreeInsert(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	words := make([]string, 10000)
	for i := range words {
		words[i] = fmt.Sprintf("word%05d", rng.Intn(5000))
	}
	tr := index.New()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := tr.Insert(words[i%len(words)], i%1000+1); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkTreeInsertAscending measures the rotation-heavy worst case of
// strictly ascending keys.
func BenchmarkTreeInsertAscending(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		tr := index.New()
		for j := 0; j < 1000; j++ {
			if err := tr.Insert(fmt.Sprintf("word%05d", j), j+1); err != nil {
				b.Fatal(err)
			}
		}
	}
}

// BenchmarkTreeLookup measures exact-word lookup latency over 10 000
// distinct keys.
func BenchmarkTreeLookup(b *testing.B) {
	tr := index.New()
	for i := 0; i < 10000; i++ {
		if err := tr.Insert(fmt.Sprintf("word%05d", i), i%500+1); err != nil {
			b.Fatal(err)
		}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		lines := tr.Lookup(fmt.Sprintf("word%05d", i%10000))
		_ = lines
	}
}

// BenchmarkTreeSnapshot measures the cost of materializing the full
// concordance.
func BenchmarkTreeSnapshot(b *testing.B) {
	tr := index.New()
	for i := 0; i < 5000; i++ {
		if err := tr.Insert(fmt.Sprintf("word%05d", i), i%200+1); err != nil {
			b.Fatal(err)
		}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		snapshot := tr.Snapshot()
		_ = snapshot
	}
}

// BenchmarkEngineIndexLine measures full pipeline throughput (tokenize,
// normalize, insert) per line of text.
func BenchmarkEngineIndexLine(b *testing.B) {
	engine := indexer.New(config.IndexerConfig{}, nil)
	line := "The quick brown fox, jumped over the lazy dog; again and again!"
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.IndexLine(line, i+1); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkEngineIndexReader measures end-to-end indexing of a 1000-line
// document.
func BenchmarkEngineIndexReader(b *testing.B) {
	var sb strings.Builder
	for i := 0; i < 1000; i++ {
		fmt.Fprintf(&sb, "line %d has some repeated words and some word%d\n", i, i%97)
	}
	doc := sb.String()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine := indexer.New(config.IndexerConfig{}, nil)
		if _, err := engine.IndexReader(strings.NewReader(doc), "bench"); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkEngineLookup measures lookup latency through the engine,
// including query normalization.
func BenchmarkEngineLookup(b *testing.B) {
	engine := indexer.New(config.IndexerConfig{}, nil)
	for i := 0; i < 1000; i++ {
		if _, err := engine.IndexLine(fmt.Sprintf("word%d appears here", i), i+1); err != nil {
			b.Fatal(err)
		}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		lines := engine.Lookup(fmt.Sprintf("word%d", i%1000))
		_ = lines
	}
}
