package index

import (
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	pkgerrors "github.com/concord-index/concord/pkg/errors"
)

// checkInvariants walks the subtree rooted at n and fails the test if BST
// ordering, the AVL balance bound, or the cached heights are violated.
// Returns the actual height of the subtree.
func checkInvariants(t *testing.T, n *node, lo, hi string) int {
	t.Helper()
	if n == nil {
		return -1
	}
	if lo != "" && n.word <= lo {
		t.Fatalf("BST violation: %q is not greater than lower bound %q", n.word, lo)
	}
	if hi != "" && n.word >= hi {
		t.Fatalf("BST violation: %q is not less than upper bound %q", n.word, hi)
	}
	lh := checkInvariants(t, n.left, lo, n.word)
	rh := checkInvariants(t, n.right, n.word, hi)
	if diff := lh - rh; diff < -1 || diff > 1 {
		t.Fatalf("AVL violation at %q: left height %d, right height %d", n.word, lh, rh)
	}
	want := 1 + max(lh, rh)
	if n.height != want {
		t.Fatalf("stale height at %q: cached %d, actual %d", n.word, n.height, want)
	}
	return want
}

func mustInsert(t *testing.T, tr *Tree, word string, line int) {
	t.Helper()
	if err := tr.Insert(word, line); err != nil {
		t.Fatalf("Insert(%q, %d): %v", word, line, err)
	}
}

func TestInsertAndTraverseInOrder(t *testing.T) {
	tr := New()
	mustInsert(t, tr, "cat", 1)
	mustInsert(t, tr, "ant", 2)
	mustInsert(t, tr, "cat", 3)
	mustInsert(t, tr, "bee", 4)

	want := []Entry{
		{Word: "ant", Lines: []int{2}},
		{Word: "bee", Lines: []int{4}},
		{Word: "cat", Lines: []int{1, 3}},
	}
	got := tr.Snapshot()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Snapshot() = %v, want %v", got, want)
	}
	if tr.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", tr.Len())
	}
	checkInvariants(t, tr.root, "", "")
}

func TestAscendingInsertStaysBalanced(t *testing.T) {
	tr := New()
	for i, w := range []string{"a", "b", "c", "d", "e"} {
		mustInsert(t, tr, w, i+1)
	}
	// Five keys inserted in ascending order collapse to height 2, not a
	// height-4 right spine.
	if tr.Height() != 2 {
		t.Fatalf("Height() = %d, want 2", tr.Height())
	}
	if tr.Rotations() == 0 {
		t.Fatal("expected rotations for ascending insertion order")
	}
	checkInvariants(t, tr.root, "", "")
}

func TestLookup(t *testing.T) {
	tr := New()
	mustInsert(t, tr, "cat", 1)
	mustInsert(t, tr, "ant", 2)

	if got := tr.Lookup("cat"); !reflect.DeepEqual(got, []int{1}) {
		t.Fatalf("Lookup(cat) = %v, want [1]", got)
	}
	if got := tr.Lookup("zzz"); len(got) != 0 {
		t.Fatalf("Lookup(zzz) = %v, want empty", got)
	}
}

func TestLookupReturnsCopy(t *testing.T) {
	tr := New()
	mustInsert(t, tr, "cat", 1)
	lines := tr.Lookup("cat")
	lines[0] = 99
	if got := tr.Lookup("cat"); !reflect.DeepEqual(got, []int{1}) {
		t.Fatalf("tree mutated through Lookup result: %v", got)
	}
}

func TestDuplicatePairIsIdempotent(t *testing.T) {
	tr := New()
	mustInsert(t, tr, "cat", 7)
	mustInsert(t, tr, "cat", 7)
	mustInsert(t, tr, "cat", 9)
	mustInsert(t, tr, "cat", 7)

	if got := tr.Lookup("cat"); !reflect.DeepEqual(got, []int{7, 9}) {
		t.Fatalf("Lookup(cat) = %v, want [7 9]", got)
	}
	if tr.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tr.Len())
	}
}

func TestInsertRejectsInvalidInput(t *testing.T) {
	tr := New()
	if err := tr.Insert("", 1); !errors.Is(err, pkgerrors.ErrEmptyWord) {
		t.Fatalf("Insert empty word: err = %v, want ErrEmptyWord", err)
	}
	if err := tr.Insert("cat", 0); !errors.Is(err, pkgerrors.ErrInvalidLineNumber) {
		t.Fatalf("Insert line 0: err = %v, want ErrInvalidLineNumber", err)
	}
	if err := tr.Insert("cat", -3); !errors.Is(err, pkgerrors.ErrInvalidLineNumber) {
		t.Fatalf("Insert line -3: err = %v, want ErrInvalidLineNumber", err)
	}
	// Rejected inserts must not mutate the tree.
	if tr.Len() != 0 || tr.Height() != -1 {
		t.Fatalf("tree mutated by rejected insert: len=%d height=%d", tr.Len(), tr.Height())
	}
}

func TestRandomInsertionsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tr := New()
	for i := 0; i < 2000; i++ {
		word := fmt.Sprintf("w%04d", rng.Intn(500))
		mustInsert(t, tr, word, rng.Intn(300)+1)
		if i%97 == 0 {
			checkInvariants(t, tr.root, "", "")
		}
	}
	checkInvariants(t, tr.root, "", "")

	prev := ""
	for word := range tr.All() {
		if prev != "" && word <= prev {
			t.Fatalf("in-order traversal not strictly ascending: %q after %q", word, prev)
		}
		prev = word
	}
}

func TestOrderIndependence(t *testing.T) {
	pairs := [][2]any{}
	words := []string{"delta", "alpha", "echo", "bravo", "charlie", "alpha", "delta", "foxtrot"}
	for i, w := range words {
		pairs = append(pairs, [2]any{w, i + 1})
	}

	rng := rand.New(rand.NewSource(7))
	var baseline []Entry
	for trial := 0; trial < 10; trial++ {
		perm := rng.Perm(len(pairs))
		tr := New()
		for _, i := range perm {
			mustInsert(t, tr, pairs[i][0].(string), pairs[i][1].(int))
		}
		snap := tr.Snapshot()
		// Occurrence order differs across permutations, only the sets must
		// match; compare words and line sets.
		normalized := make(map[string]map[int]bool)
		for _, e := range snap {
			set := make(map[int]bool)
			for _, l := range e.Lines {
				set[l] = true
			}
			normalized[e.Word] = set
		}
		if trial == 0 {
			baseline = snap
			continue
		}
		if len(snap) != len(baseline) {
			t.Fatalf("permutation %d: %d entries, want %d", trial, len(snap), len(baseline))
		}
		for i, e := range snap {
			if e.Word != baseline[i].Word {
				t.Fatalf("permutation %d: word %q at %d, want %q", trial, e.Word, i, baseline[i].Word)
			}
			if len(e.Lines) != len(baseline[i].Lines) {
				t.Fatalf("permutation %d: %q has lines %v, want same set as %v",
					trial, e.Word, e.Lines, baseline[i].Lines)
			}
			for _, l := range baseline[i].Lines {
				if !normalized[e.Word][l] {
					t.Fatalf("permutation %d: %q missing line %d", trial, e.Word, l)
				}
			}
		}
	}
}

func TestAllIsRestartableAndStoppable(t *testing.T) {
	tr := New()
	for i, w := range []string{"c", "a", "d", "b", "e"} {
		mustInsert(t, tr, w, i+1)
	}

	first := ""
	for word := range tr.All() {
		first = word
		break
	}
	if first != "a" {
		t.Fatalf("first yielded word = %q, want %q", first, "a")
	}

	// A fresh traversal starts over from the smallest key.
	count := 0
	for range tr.All() {
		count++
	}
	if count != 5 {
		t.Fatalf("second traversal yielded %d entries, want 5", count)
	}
}

func TestEmptyTree(t *testing.T) {
	tr := New()
	if tr.Height() != -1 {
		t.Fatalf("empty Height() = %d, want -1", tr.Height())
	}
	if got := tr.Lookup("anything"); got != nil {
		t.Fatalf("empty Lookup = %v, want nil", got)
	}
	if snap := tr.Snapshot(); len(snap) != 0 {
		t.Fatalf("empty Snapshot = %v, want empty", snap)
	}
}
