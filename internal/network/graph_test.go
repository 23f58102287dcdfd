package network

import (
	"errors"
	"math"
	"testing"

	"github.com/kestrel-insar/ifgram.network/internal/ifgram"
)

func mustPair(t *testing.T, s string) ifgram.Pair {
	t.Helper()
	p, err := ifgram.ParsePair(s)
	if err != nil {
		t.Fatalf("ParsePair(%q) failed: %v", s, err)
	}
	return p
}

func mustPairs(t *testing.T, ss ...string) []ifgram.Pair {
	t.Helper()
	pairs := make([]ifgram.Pair, len(ss))
	for i, s := range ss {
		pairs[i] = mustPair(t, s)
	}
	return pairs
}

func TestMinSpanTree_Empty(t *testing.T) {
	tree, err := MinSpanTree(nil, nil)
	if err != nil {
		t.Fatalf("MinSpanTree failed: %v", err)
	}
	if len(tree) != 0 {
		t.Errorf("expected empty tree, got %v", tree)
	}
}

func TestMinSpanTree_SingleDatePair(t *testing.T) {
	// One pair over two dates: the tree is that single edge.
	pairs := mustPairs(t, "20080101_20080201")
	tree, err := MinSpanTree(pairs, []float64{0.5})
	if err != nil {
		t.Fatalf("MinSpanTree failed: %v", err)
	}
	if len(tree) != 1 || !tree[pairs[0]] {
		t.Errorf("expected the single edge in the tree, got %v", tree)
	}
}

func TestMinSpanTree_PrefersHighCoherence(t *testing.T) {
	// Triangle over three dates:
	//   A 20080101_20080201 coh 0.9 (weight 0.1)
	//   B 20080201_20080301 coh 0.4 (weight 0.6)
	//   C 20080101_20080301 coh 0.3 (weight 0.7)
	// The tree takes A and B; C closes the cycle and is left out.
	pairs := mustPairs(t, "20080101_20080201", "20080201_20080301", "20080101_20080301")
	tree, err := MinSpanTree(pairs, []float64{0.9, 0.4, 0.3})
	if err != nil {
		t.Fatalf("MinSpanTree failed: %v", err)
	}
	if len(tree) != 2 {
		t.Fatalf("expected 2 tree edges, got %d: %v", len(tree), tree)
	}
	if !tree[pairs[0]] || !tree[pairs[1]] {
		t.Errorf("expected {A, B} in the tree, got %v", tree)
	}
	if tree[pairs[2]] {
		t.Errorf("cycle-closing edge C should not be in the tree")
	}
}

func TestMinSpanTree_TieBreaksOnPairOrder(t *testing.T) {
	// Both candidate edges for the cycle carry the same weight; the
	// earlier stack position must win, every time.
	pairs := mustPairs(t, "20080101_20080201", "20080201_20080301", "20080101_20080301")
	coh := []float64{0.5, 0.5, 0.5}
	for run := 0; run < 20; run++ {
		tree, err := MinSpanTree(pairs, coh)
		if err != nil {
			t.Fatalf("MinSpanTree failed: %v", err)
		}
		if !tree[pairs[0]] || !tree[pairs[1]] || tree[pairs[2]] {
			t.Fatalf("run %d: tie-break not deterministic, got %v", run, tree)
		}
	}
}

func TestMinSpanTree_ConnectedEdgeCount(t *testing.T) {
	// Dense network over five dates: tree must have exactly 4 edges.
	pairs := mustPairs(t,
		"20080101_20080201",
		"20080101_20080301",
		"20080201_20080301",
		"20080201_20080401",
		"20080301_20080401",
		"20080301_20080501",
		"20080401_20080501",
	)
	coh := []float64{0.8, 0.3, 0.7, 0.9, 0.2, 0.6, 0.5}
	tree, err := MinSpanTree(pairs, coh)
	if err != nil {
		t.Fatalf("MinSpanTree failed: %v", err)
	}
	if len(tree) != 4 {
		t.Errorf("expected |V|-1 = 4 edges, got %d: %v", len(tree), tree)
	}
	// All five dates must be reachable inside the tree.
	var treePairs []ifgram.Pair
	for p := range tree {
		treePairs = append(treePairs, p)
	}
	if got := len(ifgram.DatesOf(treePairs)); got != 5 {
		t.Errorf("tree touches %d dates, want 5", got)
	}
}

func TestMinSpanTree_DisconnectedSpanningForest(t *testing.T) {
	// Two islands: {0101, 0201, 0301} and {0601, 0701}. The forest has
	// |V| - |components| = 5 - 2 = 3 edges.
	pairs := mustPairs(t,
		"20080101_20080201",
		"20080201_20080301",
		"20080101_20080301",
		"20080601_20080701",
	)
	coh := []float64{0.9, 0.8, 0.7, 0.6}
	tree, err := MinSpanTree(pairs, coh)
	if err != nil {
		t.Fatalf("MinSpanTree failed: %v", err)
	}
	if len(tree) != 3 {
		t.Errorf("expected spanning forest with 3 edges, got %d: %v", len(tree), tree)
	}
	if !tree[pairs[3]] {
		t.Errorf("the island's only edge must be in the forest")
	}
}

func TestMinSpanTree_MissingCoherence(t *testing.T) {
	pairs := mustPairs(t, "20080101_20080201", "20080201_20080301")

	if _, err := MinSpanTree(pairs, []float64{0.8}); !errors.Is(err, ErrMissingCoherence) {
		t.Errorf("short coherence list: got %v, want ErrMissingCoherence", err)
	}
	if _, err := MinSpanTree(pairs, []float64{0.8, math.NaN()}); !errors.Is(err, ErrMissingCoherence) {
		t.Errorf("NaN coherence: got %v, want ErrMissingCoherence", err)
	}
}

func TestDisjointSet_Union(t *testing.T) {
	ds := newDisjointSet(4)
	if !ds.union(0, 1) {
		t.Error("first union of 0,1 should merge")
	}
	if ds.union(1, 0) {
		t.Error("repeat union of merged vertices should report false")
	}
	if !ds.union(2, 3) {
		t.Error("first union of 2,3 should merge")
	}
	if ds.find(0) == ds.find(2) {
		t.Error("separate components should have distinct roots")
	}
	if !ds.union(1, 3) {
		t.Error("joining the two components should merge")
	}
	if ds.find(0) != ds.find(2) {
		t.Error("all vertices should share a root after the final union")
	}
}
