// Package index implements the balanced word-occurrence index: a
// height-balanced (AVL) binary search tree keyed by word, where each node
// records the line numbers on which its word appears.
//
// The tree is not safe for concurrent use by multiple goroutines. If
// multiple goroutines access a tree concurrently, and at least one of them
// inserts, access must be synchronized externally.
package index

import (
	"iter"

	"github.com/concord-index/concord/pkg/errors"
)

const allowedImbalance = 1

// node is one entry in the tree. Height is cached: -1 for a nil subtree,
// 0 for a leaf.
type node struct {
	word   string
	lines  OccurrenceList
	left   *node
	right  *node
	height int
}

// Entry is one word with its recorded line numbers, as produced by
// Snapshot.
type Entry struct {
	Word  string `json:"word"`
	Lines []int  `json:"lines"`
}

// Tree maps words to their line occurrences. Keys are compared
// lexicographically; each distinct word occupies exactly one node.
type Tree struct {
	root      *node
	size      int
	rotations int
}

// New returns an empty Tree.
func New() *Tree {
	return &Tree{}
}

// Insert records that word appears on line. A previously unseen word gets
// a new leaf; an existing word has line appended to its occurrence list
// unless that exact line is already recorded. The path from the insertion
// point back to the root is rebalanced on unwind, so both BST ordering and
// the AVL height invariant hold when Insert returns. An empty word or a
// line below 1 is rejected before any mutation.
func (t *Tree) Insert(word string, line int) error {
	if word == "" {
		return errors.ErrEmptyWord
	}
	if line < 1 {
		return errors.ErrInvalidLineNumber
	}
	t.root = t.insert(t.root, word, line)
	return nil
}

func (t *Tree) insert(n *node, word string, line int) *node {
	if n == nil {
		t.size++
		return &node{word: word, lines: OccurrenceList{line}}
	}
	switch {
	case word < n.word:
		n.left = t.insert(n.left, word, line)
	case word > n.word:
		n.right = t.insert(n.right, word, line)
	default:
		if !n.lines.Contains(line) {
			n.lines.Append(line)
		}
	}
	return t.balance(n)
}

// balance restores the AVL invariant at n and recomputes its height.
// Assumes n is either balanced or within one insertion of balanced, so a
// single or double rotation always suffices.
func (t *Tree) balance(n *node) *node {
	if height(n.left)-height(n.right) > allowedImbalance {
		if height(n.left.left) >= height(n.left.right) {
			n = t.rotateRight(n)
		} else {
			n.left = t.rotateLeft(n.left)
			n = t.rotateRight(n)
		}
	} else if height(n.right)-height(n.left) > allowedImbalance {
		if height(n.right.right) >= height(n.right.left) {
			n = t.rotateLeft(n)
		} else {
			n.right = t.rotateRight(n.right)
			n = t.rotateLeft(n)
		}
	}
	n.height = 1 + max(height(n.left), height(n.right))
	return n
}

// rotateRight rotates k2 with its left child and returns the new subtree
// root. Heights of the two moved nodes are recomputed bottom-up.
func (t *Tree) rotateRight(k2 *node) *node {
	k1 := k2.left
	k2.left = k1.right
	k1.right = k2
	k2.height = 1 + max(height(k2.left), height(k2.right))
	k1.height = 1 + max(height(k1.left), k2.height)
	t.rotations++
	return k1
}

// rotateLeft is the mirror of rotateRight.
func (t *Tree) rotateLeft(k1 *node) *node {
	k2 := k1.right
	k1.right = k2.left
	k2.left = k1
	k1.height = 1 + max(height(k1.left), height(k1.right))
	k2.height = 1 + max(height(k2.right), k1.height)
	t.rotations++
	return k2
}

func height(n *node) int {
	if n == nil {
		return -1
	}
	return n.height
}

// Lookup returns a copy of the occurrence list for word, or nil when the
// word was never indexed. The tree is not modified.
func (t *Tree) Lookup(word string) []int {
	n := t.root
	for n != nil {
		switch {
		case word < n.word:
			n = n.left
		case word > n.word:
			n = n.right
		default:
			out := make([]int, len(n.lines))
			copy(out, n.lines)
			return out
		}
	}
	return nil
}

// Len returns the number of distinct words in the tree.
func (t *Tree) Len() int {
	return t.size
}

// Height returns the height of the tree, -1 when empty.
func (t *Tree) Height() int {
	return height(t.root)
}

// Rotations returns the cumulative number of single rotations performed
// while rebalancing (a double rotation counts as two).
func (t *Tree) Rotations() int {
	return t.rotations
}

// All returns an in-order iterator over (word, lines) pairs in ascending
// lexicographic order. Each call starts a fresh traversal. The yielded
// slice aliases the tree's storage and must not be modified or retained;
// use Snapshot for a stable copy.
func (t *Tree) All() iter.Seq2[string, []int] {
	return func(yield func(string, []int) bool) {
		inorder(t.root, yield)
	}
}

func inorder(n *node, yield func(string, []int) bool) bool {
	if n == nil {
		return true
	}
	return inorder(n.left, yield) && yield(n.word, n.lines) && inorder(n.right, yield)
}

// Snapshot materializes the full index in ascending key order. The line
// slices are copies and safe to retain.
func (t *Tree) Snapshot() []Entry {
	entries := make([]Entry, 0, t.size)
	for word, lines := range t.All() {
		out := make([]int, len(lines))
		copy(out, lines)
		entries = append(entries, Entry{Word: word, Lines: out})
	}
	return entries
}
