package network

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/kestrel-insar/ifgram.network/internal/ifgram"
)

// MinSpanTree computes the pairs lying on a minimum spanning tree of
// the date graph using Kruskal's algorithm. Edge weight is inverse
// coherence (1 - coherence), so high-coherence pairs are preferred.
// coherence runs parallel to pairs in stack order.
//
// Ties in weight break on the original pair index, which keeps the
// selection deterministic across platforms and sort implementations.
//
// A disconnected date graph degrades to a spanning forest covering each
// component; that is accepted, not an error. A graph with at most one
// date yields an empty tree. A missing coherence value (short list or
// NaN entry) violates the caller contract and fails with
// ErrMissingCoherence.
func MinSpanTree(pairs []ifgram.Pair, coherence []float64) (map[ifgram.Pair]bool, error) {
	if len(coherence) != len(pairs) {
		return nil, fmt.Errorf("%w: have %d values for %d pairs", ErrMissingCoherence, len(coherence), len(pairs))
	}
	for i, c := range coherence {
		if math.IsNaN(c) {
			return nil, fmt.Errorf("%w: pair %s", ErrMissingCoherence, pairs[i])
		}
	}

	dates := ifgram.DatesOf(pairs)
	tree := make(map[ifgram.Pair]bool)
	if len(dates) <= 1 {
		return tree, nil
	}
	vertex := make(map[ifgram.Date]int, len(dates))
	for i, d := range dates {
		vertex[d] = i
	}

	edges := make([]int, len(pairs))
	for i := range edges {
		edges[i] = i
	}
	sort.Slice(edges, func(a, b int) bool {
		i, j := edges[a], edges[b]
		wi, wj := 1-coherence[i], 1-coherence[j]
		if wi != wj {
			return wi < wj
		}
		return i < j
	})

	ds := newDisjointSet(len(dates))
	for _, i := range edges {
		p := pairs[i]
		if ds.union(vertex[p.Master], vertex[p.Slave]) {
			tree[p] = true
			if len(tree) == len(dates)-1 {
				break
			}
		}
	}
	return tree, nil
}

// ErrMissingCoherence reports a pair with no coherence value supplied
// to a spanning-tree computation.
var ErrMissingCoherence = errors.New("missing coherence value")

// disjointSet is a union-find structure over integer vertices with
// union by rank and path halving.
type disjointSet struct {
	parent []int
	rank   []int
}

func newDisjointSet(n int) *disjointSet {
	ds := &disjointSet{parent: make([]int, n), rank: make([]int, n)}
	for i := range ds.parent {
		ds.parent[i] = i
	}
	return ds
}

func (ds *disjointSet) find(x int) int {
	for ds.parent[x] != x {
		ds.parent[x] = ds.parent[ds.parent[x]]
		x = ds.parent[x]
	}
	return x
}

// union merges the components of a and b. It reports false if they
// were already in the same component.
func (ds *disjointSet) union(a, b int) bool {
	ra, rb := ds.find(a), ds.find(b)
	if ra == rb {
		return false
	}
	if ds.rank[ra] < ds.rank[rb] {
		ra, rb = rb, ra
	}
	ds.parent[rb] = ra
	if ds.rank[ra] == ds.rank[rb] {
		ds.rank[ra]++
	}
	return true
}
