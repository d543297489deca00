package impulse

import (
	"math/rand/v2"
	"slices"
	"testing"

	"gonum.org/v1/gonum/stat"
)

// newTestTracker builds a standalone tracker for numTaps slots.
func newTestTracker(t *testing.T, numTaps int) *medianTracker {
	t.Helper()
	tr := newMedianTracker(
		make([]heapNode, numTaps),
		make([]heapNode, numTaps),
		make([]uint32, numTaps),
	)
	return &tr
}

// sortedColumn is the straightforward O(numTaps) running median: one sorted
// array per offset, with the departing value removed and the arriving value
// inserted in place. Used only to cross-check the heap tracker.
type sortedColumn struct {
	window []int16 // ring of raw values, by slot
	sorted []int16
	filled int
}

func newSortedColumn(numTaps int) *sortedColumn {
	return &sortedColumn{window: make([]int16, numTaps)}
}

func (c *sortedColumn) update(value int16, slot int) {
	if c.filled > slot {
		old := c.window[slot]
		i, _ := slices.BinarySearch(c.sorted, old)
		c.sorted = slices.Delete(c.sorted, i, i+1)
	} else {
		c.filled++
	}
	c.window[slot] = value
	i, _ := slices.BinarySearch(c.sorted, value)
	c.sorted = slices.Insert(c.sorted, i, value)
}

// median returns the lower median, matching the tracker's max-heap top.
func (c *sortedColumn) median() int16 {
	if len(c.sorted) == 0 {
		return 0
	}
	return c.sorted[(len(c.sorted)-1)/2]
}

func TestMedianTracker_EmptyReturnsFallback(t *testing.T) {
	tr := newTestTracker(t, 5)
	if got := tr.median(-3); got != -3 {
		t.Errorf("median(-3) on empty tracker = %d, want -3", got)
	}
	if got := tr.live(); got != 0 {
		t.Errorf("live() on empty tracker = %d, want 0", got)
	}
}

func TestMedianTracker_OddAndEvenCounts(t *testing.T) {
	testCases := []struct {
		name   string
		values []int16
		want   int16
	}{
		{"single", []int16{42}, 42},
		{"two takes lower", []int16{10, 2}, 2},
		{"three", []int16{5, -1, 9}, 5},
		{"four takes lower", []int16{8, 1, 4, 6}, 4},
		{"duplicates", []int16{3, 3, 3, 1, 9}, 3},
		{"negative", []int16{-100, -50, -75}, -75},
		{"extremes", []int16{-32768, 32767, 0}, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tr := newTestTracker(t, len(tc.values))
			for slot, v := range tc.values {
				tr.update(v, slot, uint32(slot+2))
			}
			if got := tr.median(0); got != tc.want {
				t.Errorf("median() = %d, want %d", got, tc.want)
			}
			if got := tr.live(); got != len(tc.values) {
				t.Errorf("live() = %d, want %d", got, len(tc.values))
			}
		})
	}
}

func TestMedianTracker_OverwriteMarksOldEntryStale(t *testing.T) {
	tr := newTestTracker(t, 3)
	tr.update(1, 0, 2)
	tr.update(2, 1, 3)
	tr.update(3, 2, 4)
	if got := tr.median(0); got != 2 {
		t.Fatalf("median() = %d, want 2", got)
	}

	// slot 1 now holds 100; the old 2 must no longer count
	tr.update(100, 1, 5)
	if got := tr.median(0); got != 3 {
		t.Errorf("median() after overwrite = %d, want 3", got)
	}
	if got := tr.live(); got != 3 {
		t.Errorf("live() after overwrite = %d, want 3", got)
	}
}

func TestMedianTracker_HeapBalance(t *testing.T) {
	const numTaps = 9
	tr := newTestTracker(t, numTaps)
	rng := rand.New(rand.NewPCG(1, 2))

	gen := uint32(1)
	for i := 0; i < 500; i++ {
		gen++
		tr.update(int16(rng.IntN(200)-100), i%numTaps, gen)

		diff := tr.lo.n - tr.hi.n
		if diff != 0 && diff != 1 {
			t.Fatalf("step %d: size(lo)-size(hi) = %d, want 0 or 1", i, diff)
		}
		if tr.lo.n > numTaps || tr.hi.n > numTaps {
			t.Fatalf("step %d: heap sizes %d/%d exceed capacity %d", i, tr.lo.n, tr.hi.n, numTaps)
		}
		if lo, ok := tr.lo.top(); ok {
			if hi, ok := tr.hi.top(); ok && lo.value > hi.value {
				t.Fatalf("step %d: lo top %d above hi top %d", i, lo.value, hi.value)
			}
		}
	}
}

func TestMedianTracker_TwoSlotsOrderAcrossHeaps(t *testing.T) {
	tr := newTestTracker(t, 2)
	tr.update(1, 0, 2)
	tr.update(5, 1, 3)
	// slot 0 is superseded while it is the only value in lo
	tr.update(9, 0, 4)

	if got := tr.median(0); got != 5 {
		t.Errorf("median() = %d, want 5", got)
	}
	lo, _ := tr.lo.top()
	hi, _ := tr.hi.top()
	if lo.value > hi.value {
		t.Errorf("lo top %d above hi top %d", lo.value, hi.value)
	}

	tr.update(3, 1, 5)
	if got := tr.median(0); got != 3 {
		t.Errorf("median() after second overwrite = %d, want 3", got)
	}
}

func TestMedianTracker_MatchesSortedColumn(t *testing.T) {
	for _, numTaps := range []int{1, 2, 3, 4, 7, 11, 25} {
		tr := newTestTracker(t, numTaps)
		ref := newSortedColumn(numTaps)
		rng := rand.New(rand.NewPCG(uint64(numTaps), 7))

		gen := uint32(1)
		for i := 0; i < 40*numTaps; i++ {
			// narrow range forces plenty of ties
			v := int16(rng.IntN(21) - 10)
			slot := i % numTaps
			gen++
			tr.update(v, slot, gen)
			ref.update(v, slot)

			if got, want := tr.median(0), ref.median(); got != want {
				t.Fatalf("num_taps=%d step %d: median() = %d, sorted reference = %d", numTaps, i, got, want)
			}
		}
	}
}

func TestMedianTracker_MatchesEmpiricalQuantile(t *testing.T) {
	const numTaps = 15
	tr := newTestTracker(t, numTaps)
	window := make([]float64, numTaps)
	rng := rand.New(rand.NewPCG(99, 100))

	gen := uint32(1)
	for i := 0; i < 300; i++ {
		v := int16(rng.IntN(65536) - 32768)
		slot := i % numTaps
		gen++
		tr.update(v, slot, gen)
		window[slot] = float64(v)

		if i < numTaps-1 {
			continue
		}
		sorted := slices.Clone(window)
		slices.Sort(sorted)
		want := stat.Quantile(0.5, stat.Empirical, sorted, nil)
		if got := tr.median(0); float64(got) != want {
			t.Fatalf("step %d: median() = %d, empirical quantile = %v", i, got, want)
		}
	}
}

func TestMedianTracker_Reset(t *testing.T) {
	tr := newTestTracker(t, 3)
	tr.update(5, 0, 2)
	tr.update(6, 1, 3)
	tr.reset()

	if got := tr.median(-1); got != -1 {
		t.Errorf("median() after reset = %d, want fallback -1", got)
	}
}

func TestNodeHeap_TieBreakByGeneration(t *testing.T) {
	gens := []uint32{2, 3, 4}

	maxHeap := nodeHeap{nodes: make([]heapNode, 3), max: true}
	minHeap := nodeHeap{nodes: make([]heapNode, 3)}
	for slot, gen := range gens {
		n := heapNode{value: 7, slot: uint16(slot), gen: gen}
		maxHeap.push(n)
		minHeap.push(n)
	}

	if top, _ := maxHeap.top(); top.gen != 4 {
		t.Errorf("max-heap top gen = %d, want newest 4", top.gen)
	}
	if top, _ := minHeap.top(); top.gen != 2 {
		t.Errorf("min-heap top gen = %d, want oldest 2", top.gen)
	}
}

func TestNodeHeap_CompactDropsStale(t *testing.T) {
	gens := []uint32{2, 3, 4, 5}
	h := nodeHeap{nodes: make([]heapNode, 4), max: true}
	for slot, gen := range gens {
		h.push(heapNode{value: int16(slot * 10), slot: uint16(slot), gen: gen})
	}

	gens[3] = 9 // slot 3 overwritten; its value 30 was on top
	h.compact(gens)

	if h.n != 3 {
		t.Fatalf("n after compact = %d, want 3", h.n)
	}
	if top, _ := h.top(); top.value != 20 {
		t.Errorf("top after compact = %d, want 20", top.value)
	}

	var popped []int16
	for h.n > 0 {
		popped = append(popped, h.pop().value)
	}
	if !slices.Equal(popped, []int16{20, 10, 0}) {
		t.Errorf("pop order = %v, want [20 10 0]", popped)
	}
}
