package network

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-insar/ifgram.network/internal/ifgram"
)

func f64(v float64) *float64 { return &v }

// testSnapshot builds the canonical three-date triangle:
//
//	A 20080101_20080201  coh 0.9  tb 31  pb  10
//	B 20080201_20080301  coh 0.4  tb 29  pb -30
//	C 20080101_20080301  coh 0.3  tb 60  pb -20
func testSnapshot(t *testing.T) (*Snapshot, []float64) {
	t.Helper()
	pairs := mustPairs(t, "20080101_20080201", "20080201_20080301", "20080101_20080301")
	snap := &Snapshot{
		Pairs:   pairs,
		TBase:   map[ifgram.Pair]int{pairs[0]: 31, pairs[1]: 29, pairs[2]: 60},
		PBase:   map[ifgram.Pair]float64{pairs[0]: 10, pairs[1]: -30, pairs[2]: -20},
		Dropped: map[ifgram.Pair]bool{},
	}
	return snap, []float64{0.9, 0.4, 0.3}
}

func dropStrings(pairs []ifgram.Pair) []string {
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.String()
	}
	return out
}

func TestComputeDropSet_NoRules(t *testing.T) {
	snap, _ := testSnapshot(t)
	drop, ok, err := ComputeDropSet(snap, Criteria{})
	require.NoError(t, err)
	assert.False(t, ok, "no rules and no persisted drops means no change")
	assert.Nil(t, drop)
}

func TestComputeDropSet_ReferenceRule(t *testing.T) {
	snap, _ := testSnapshot(t)
	crit := Criteria{Reference: &ReferenceRule{
		Keep: mustPairs(t, "20080101_20080201", "20080201_20080301"),
	}}
	drop, ok, err := ComputeDropSet(snap, crit)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"20080101_20080301"}, dropStrings(drop))
}

func TestComputeDropSet_CoherenceThreshold(t *testing.T) {
	snap, coh := testSnapshot(t)
	crit := Criteria{Coherence: &CoherenceRule{MinCoherence: 0.7, Coherence: coh}}
	drop, ok, err := ComputeDropSet(snap, crit)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"20080101_20080301", "20080201_20080301"}, dropStrings(drop),
		"without tree protection both low-coherence pairs go")
}

func TestComputeDropSet_CoherenceKeepsSpanningTree(t *testing.T) {
	snap, coh := testSnapshot(t)
	crit := Criteria{Coherence: &CoherenceRule{
		MinCoherence:    0.7,
		KeepMinSpanTree: true,
		Coherence:       coh,
	}}
	drop, ok, err := ComputeDropSet(snap, crit)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"20080101_20080301"}, dropStrings(drop),
		"B fails the threshold but the tree needs it to reach 20080301")
}

func TestComputeDropSet_CoherenceMissingValues(t *testing.T) {
	snap, _ := testSnapshot(t)
	crit := Criteria{Coherence: &CoherenceRule{MinCoherence: 0.7, Coherence: []float64{0.9}}}
	_, _, err := ComputeDropSet(snap, crit)
	assert.ErrorIs(t, err, ErrMissingCoherence)
}

func TestComputeDropSet_TemporalBaseline(t *testing.T) {
	snap, _ := testSnapshot(t)
	drop, ok, err := ComputeDropSet(snap, Criteria{TempBaseMax: f64(35)})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"20080101_20080301"}, dropStrings(drop),
		"only tb 60 exceeds a 35-day cutoff")
}

func TestComputeDropSet_TemporalBaselineBoundary(t *testing.T) {
	snap, _ := testSnapshot(t)

	// The cutoff is exclusive: tb 31 survives a 31-day limit.
	drop, ok, err := ComputeDropSet(snap, Criteria{TempBaseMax: f64(31)})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"20080101_20080301"}, dropStrings(drop))

	// One day tighter and the 31-day pair goes too.
	drop, ok, err = ComputeDropSet(snap, Criteria{TempBaseMax: f64(30)})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"20080101_20080201", "20080101_20080301"}, dropStrings(drop))
}

func TestComputeDropSet_PerpendicularBaseline(t *testing.T) {
	snap, _ := testSnapshot(t)
	drop, ok, err := ComputeDropSet(snap, Criteria{PerpBaseMax: f64(25)})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"20080201_20080301"}, dropStrings(drop),
		"the comparison uses the absolute baseline, so -30 m exceeds 25 m")
}

func TestComputeDropSet_IndexExclusion(t *testing.T) {
	snap, _ := testSnapshot(t)
	drop, ok, err := ComputeDropSet(snap, Criteria{ExcludeIndex: []int{0, 2, 99, -1}})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"20080101_20080201", "20080101_20080301"}, dropStrings(drop),
		"out-of-range positions are ignored, never an error")
}

func TestComputeDropSet_DateExclusion(t *testing.T) {
	snap, _ := testSnapshot(t)
	drop, ok, err := ComputeDropSet(snap, Criteria{ExcludeDates: []ifgram.Date{"20080201"}})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"20080101_20080201", "20080201_20080301"}, dropStrings(drop),
		"every pair touching the excluded date goes")
}

func TestComputeDropSet_DateBounds(t *testing.T) {
	t.Run("start date", func(t *testing.T) {
		snap, _ := testSnapshot(t)
		drop, ok, err := ComputeDropSet(snap, Criteria{StartDate: "20080201"})
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []string{"20080101_20080201", "20080101_20080301"}, dropStrings(drop),
			"pairs reaching before the start bound go")
	})
	t.Run("end date", func(t *testing.T) {
		snap, _ := testSnapshot(t)
		drop, ok, err := ComputeDropSet(snap, Criteria{EndDate: "20080201"})
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []string{"20080101_20080301", "20080201_20080301"}, dropStrings(drop),
			"pairs reaching past the end bound go")
	})
	t.Run("bound on an endpoint keeps the pair", func(t *testing.T) {
		snap, _ := testSnapshot(t)
		drop, ok, err := ComputeDropSet(snap, Criteria{StartDate: "20080101", EndDate: "20080301"})
		require.NoError(t, err)
		assert.False(t, ok, "bounds covering the whole span drop nothing")
		assert.Nil(t, drop)
	})
}

func TestComputeDropSet_RulesUnion(t *testing.T) {
	snap, coh := testSnapshot(t)

	// Coherence with tree protection alone drops only C.
	cohOnly := Criteria{Coherence: &CoherenceRule{MinCoherence: 0.7, KeepMinSpanTree: true, Coherence: coh}}
	dropCoh, ok, err := ComputeDropSet(snap, cohOnly)
	require.NoError(t, err)
	require.True(t, ok)

	// Date exclusion alone drops A and B.
	dateOnly := Criteria{ExcludeDates: []ifgram.Date{"20080201"}}
	dropDate, ok, err := ComputeDropSet(snap, dateOnly)
	require.NoError(t, err)
	require.True(t, ok)

	// Together they drop the union of both contributions.
	both := cohOnly
	both.ExcludeDates = dateOnly.ExcludeDates
	dropBoth, ok, err := ComputeDropSet(snap, both)
	require.NoError(t, err)
	require.True(t, ok)

	assert.GreaterOrEqual(t, len(dropBoth), len(dropCoh))
	assert.GreaterOrEqual(t, len(dropBoth), len(dropDate))
	assert.Equal(t, []string{"20080101_20080201", "20080101_20080301", "20080201_20080301"},
		dropStrings(dropBoth))
}

func TestComputeDropSet_NoChangeShortCircuit(t *testing.T) {
	snap, _ := testSnapshot(t)
	snap.Dropped[snap.Pairs[2]] = true

	// The rule reproduces exactly the persisted drop state.
	drop, ok, err := ComputeDropSet(snap, Criteria{TempBaseMax: f64(35)})
	require.NoError(t, err)
	assert.False(t, ok, "identical drop set must signal no-change")
	assert.Nil(t, drop)

	// A rule that diverges from the persisted state still reports a change.
	drop, ok, err = ComputeDropSet(snap, Criteria{TempBaseMax: f64(29)})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"20080101_20080201", "20080101_20080301"}, dropStrings(drop))
}

// scriptedSelector is a canned PairSelector for tests.
type scriptedSelector struct {
	drop []ifgram.Pair
	ok   bool
	err  error

	gotPairs []ifgram.Pair
	gotDates []ifgram.Date
	gotBase  map[ifgram.Date]float64
}

func (s *scriptedSelector) Select(pairs []ifgram.Pair, dates []ifgram.Date, perpBase map[ifgram.Date]float64) ([]ifgram.Pair, bool, error) {
	s.gotPairs = pairs
	s.gotDates = dates
	s.gotBase = perpBase
	return s.drop, s.ok, s.err
}

func TestComputeDropSet_ManualSelection(t *testing.T) {
	t.Run("selection applies", func(t *testing.T) {
		snap, _ := testSnapshot(t)
		sel := &scriptedSelector{drop: mustPairs(t, "20080201_20080301"), ok: true}
		drop, ok, err := ComputeDropSet(snap, Criteria{Selector: sel})
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []string{"20080201_20080301"}, dropStrings(drop))
		assert.Len(t, sel.gotPairs, 3)
		assert.Equal(t, []ifgram.Date{"20080101", "20080201", "20080301"}, sel.gotDates)
		assert.Len(t, sel.gotBase, 3, "selector sees the per-date baseline series")
	})

	t.Run("unknown pairs are filtered out", func(t *testing.T) {
		snap, _ := testSnapshot(t)
		sel := &scriptedSelector{drop: mustPairs(t, "20080201_20080301", "19990101_19990201"), ok: true}
		drop, ok, err := ComputeDropSet(snap, Criteria{Selector: sel})
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []string{"20080201_20080301"}, dropStrings(drop))
	})

	t.Run("abort leaves the network unchanged", func(t *testing.T) {
		snap, _ := testSnapshot(t)
		snap.Dropped[snap.Pairs[0]] = true
		sel := &scriptedSelector{ok: false}
		// Another rule would have produced a change, but the abort wins.
		drop, ok, err := ComputeDropSet(snap, Criteria{TempBaseMax: f64(30), Selector: sel})
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, drop)
	})

	t.Run("empty selection is not an abort", func(t *testing.T) {
		snap, _ := testSnapshot(t)
		sel := &scriptedSelector{drop: nil, ok: true}
		drop, ok, err := ComputeDropSet(snap, Criteria{ExcludeIndex: []int{1}, Selector: sel})
		require.NoError(t, err)
		require.True(t, ok, "an intentional empty selection still applies the other rules")
		assert.Equal(t, []string{"20080201_20080301"}, dropStrings(drop))
	})

	t.Run("selector error aborts the run", func(t *testing.T) {
		snap, _ := testSnapshot(t)
		boom := errors.New("terminal gone")
		sel := &scriptedSelector{err: boom}
		_, _, err := ComputeDropSet(snap, Criteria{Selector: sel})
		assert.ErrorIs(t, err, boom)
	})
}

func TestCriteria_Enabled(t *testing.T) {
	assert.False(t, Criteria{}.Enabled())
	assert.True(t, Criteria{TempBaseMax: f64(365)}.Enabled())
	assert.True(t, Criteria{StartDate: "20080101"}.Enabled())
	assert.True(t, Criteria{ExcludeIndex: []int{1}}.Enabled())
	assert.True(t, Criteria{Selector: &scriptedSelector{}}.Enabled())
}
