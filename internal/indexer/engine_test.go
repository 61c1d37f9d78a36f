package indexer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/concord-index/concord/pkg/config"
)

func newTestEngine() *Engine {
	return New(config.IndexerConfig{}, nil)
}

const poem = `The cat sat on the mat.
A CAT, a hat!
...
the end`

func TestIndexReader(t *testing.T) {
	e := newTestEngine()
	lines, err := e.IndexReader(strings.NewReader(poem), "poem")
	if err != nil {
		t.Fatalf("IndexReader: %v", err)
	}
	if lines != 4 {
		t.Fatalf("lines = %d, want 4", lines)
	}

	// "cat" appears on lines 1 and 2, case-folded; punctuation stripped.
	if got := e.Lookup("cat"); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("Lookup(cat) = %v, want [1 2]", got)
	}
	if got := e.Lookup("hat"); !reflect.DeepEqual(got, []int{2}) {
		t.Fatalf("Lookup(hat) = %v, want [2]", got)
	}
	if got := e.Lookup("dog"); len(got) != 0 {
		t.Fatalf("Lookup(dog) = %v, want empty", got)
	}
}

func TestLookupNormalizesArgument(t *testing.T) {
	e := newTestEngine()
	if _, err := e.IndexLine("Hello world", 1); err != nil {
		t.Fatal(err)
	}
	if got := e.Lookup("HELLO!"); !reflect.DeepEqual(got, []int{1}) {
		t.Fatalf("Lookup(HELLO!) = %v, want [1]", got)
	}
	if got := e.Lookup("..."); got != nil {
		t.Fatalf("Lookup(punctuation only) = %v, want nil", got)
	}
}

func TestIndexLineDuplicateWordOnOneLine(t *testing.T) {
	e := newTestEngine()
	words, err := e.IndexLine("tick tock tick", 3)
	if err != nil {
		t.Fatal(err)
	}
	// Three occurrences feed the tree, but the same line is recorded once.
	if words != 3 {
		t.Fatalf("words = %d, want 3", words)
	}
	if got := e.Lookup("tick"); !reflect.DeepEqual(got, []int{3}) {
		t.Fatalf("Lookup(tick) = %v, want [3]", got)
	}
}

func TestIndexLineBlankLine(t *testing.T) {
	e := newTestEngine()
	words, err := e.IndexLine("   ", 1)
	if err != nil {
		t.Fatalf("blank line: %v", err)
	}
	if words != 0 {
		t.Fatalf("words = %d, want 0", words)
	}
	stats := e.Stats()
	if stats.Lines != 1 || stats.Words != 0 {
		t.Fatalf("stats = %+v, want 1 line, 0 words", stats)
	}
}

func TestIndexFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "source.txt")
	if err := os.WriteFile(path, []byte("alpha beta\ngamma alpha\n"), 0644); err != nil {
		t.Fatal(err)
	}

	e := newTestEngine()
	lines, err := e.IndexFile(path)
	if err != nil {
		t.Fatalf("IndexFile: %v", err)
	}
	if lines != 2 {
		t.Fatalf("lines = %d, want 2", lines)
	}
	if got := e.Lookup("alpha"); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("Lookup(alpha) = %v, want [1 2]", got)
	}
}

func TestIndexFileMissing(t *testing.T) {
	e := newTestEngine()
	if _, err := e.IndexFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatal("IndexFile on missing file: want error")
	}
	// An external I/O failure must not leave the engine unusable.
	if _, err := e.IndexLine("still works", 1); err != nil {
		t.Fatalf("engine unusable after failed IndexFile: %v", err)
	}
}

func TestEntriesOrdered(t *testing.T) {
	e := newTestEngine()
	if _, err := e.IndexReader(strings.NewReader("cherry apple\nbanana apple"), "fruit"); err != nil {
		t.Fatal(err)
	}
	entries := e.Entries()
	words := make([]string, 0, len(entries))
	for _, en := range entries {
		words = append(words, en.Word)
	}
	if !reflect.DeepEqual(words, []string{"apple", "banana", "cherry"}) {
		t.Fatalf("entry order = %v", words)
	}
}

func TestStats(t *testing.T) {
	e := newTestEngine()
	if _, err := e.IndexReader(strings.NewReader("a b c\nd e f g"), "letters"); err != nil {
		t.Fatal(err)
	}
	stats := e.Stats()
	if stats.Lines != 2 || stats.Words != 7 || stats.DistinctWords != 7 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.TreeHeight < 2 || stats.TreeHeight > 3 {
		t.Fatalf("tree height = %d for 7 keys, want 2 or 3", stats.TreeHeight)
	}
}

func TestHandleLineMessage(t *testing.T) {
	e := newTestEngine()
	handler := HandleLineMessage(e)

	value, _ := json.Marshal(LineMessage{Source: "feed", LineNumber: 5, Text: "streamed words"})
	if err := handler(context.Background(), []byte("feed"), value); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if got := e.Lookup("streamed"); !reflect.DeepEqual(got, []int{5}) {
		t.Fatalf("Lookup(streamed) = %v, want [5]", got)
	}

	// Garbage payloads are skipped, not fatal.
	if err := handler(context.Background(), nil, []byte("{not json")); err != nil {
		t.Fatalf("handler on bad payload: %v", err)
	}
}
