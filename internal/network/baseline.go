package network

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/kestrel-insar/ifgram.network/internal/ifgram"
)

// PerpBaselineSeries recovers a per-date perpendicular baseline from
// the per-pair baselines by least squares over the network's incidence
// matrix. Each pair constrains pbase(slave) - pbase(master); the
// earliest date of every connected component anchors that component at
// zero. Redundant networks resolve to the least-squares fit, so small
// inconsistencies between pairs average out instead of accumulating
// along one path.
func PerpBaselineSeries(pairs []ifgram.Pair, pbase map[ifgram.Pair]float64) (map[ifgram.Date]float64, error) {
	dates := ifgram.DatesOf(pairs)
	series := make(map[ifgram.Date]float64, len(dates))
	if len(dates) == 0 {
		return series, nil
	}
	for _, p := range pairs {
		if _, ok := pbase[p]; !ok {
			return nil, fmt.Errorf("no perpendicular baseline for pair %s", p)
		}
	}

	vertex := make(map[ifgram.Date]int, len(dates))
	for i, d := range dates {
		vertex[d] = i
	}

	ds := newDisjointSet(len(dates))
	for _, p := range pairs {
		ds.union(vertex[p.Master], vertex[p.Slave])
	}
	// Vertices group by component root in ascending date order, so the
	// first member of each group is the component's earliest date.
	compVerts := make(map[int][]int)
	for i := range dates {
		root := ds.find(i)
		compVerts[root] = append(compVerts[root], i)
	}
	compEdges := make(map[int][]ifgram.Pair)
	for _, p := range pairs {
		root := ds.find(vertex[p.Master])
		compEdges[root] = append(compEdges[root], p)
	}

	for root, verts := range compVerts {
		series[dates[verts[0]]] = 0
		if len(verts) == 1 {
			continue
		}
		// Column k solves for verts[k+1]; the reference date has no column.
		col := make(map[int]int, len(verts)-1)
		for k, v := range verts[1:] {
			col[v] = k
		}

		edges := compEdges[root]
		a := mat.NewDense(len(edges), len(verts)-1, nil)
		b := mat.NewVecDense(len(edges), nil)
		for r, p := range edges {
			if c, ok := col[vertex[p.Master]]; ok {
				a.Set(r, c, -1)
			}
			if c, ok := col[vertex[p.Slave]]; ok {
				a.Set(r, c, 1)
			}
			b.SetVec(r, pbase[p])
		}

		var x mat.VecDense
		if err := x.SolveVec(a, b); err != nil {
			if _, ok := err.(mat.Condition); !ok {
				return nil, fmt.Errorf("failed to solve baseline series: %w", err)
			}
		}
		for v, c := range col {
			series[dates[v]] = x.AtVec(c)
		}
	}
	return series, nil
}
