// internal/impulse/median.go
package impulse

// heapNode is one value in a median heap, stamped with the generation of the
// tap slot it came from. The node is stale once gens[slot] moves past gen.
type heapNode struct {
	value int16
	slot  uint16
	gen   uint32
}

func (n heapNode) stale(gens []uint32) bool {
	return n.gen != gens[n.slot]
}

// nodeHeap is a binary heap over a fixed-capacity slice. With max set the
// largest value sits on top, otherwise the smallest. Equal values are ordered
// by generation (newer above older in the max-heap, older above newer in the
// min-heap) so the layout is reproducible for identical input.
type nodeHeap struct {
	nodes []heapNode
	n     int
	max   bool
}

// above reports whether a belongs closer to the top than b.
func (h *nodeHeap) above(a, b heapNode) bool {
	if a.value != b.value {
		if h.max {
			return a.value > b.value
		}
		return a.value < b.value
	}
	if h.max {
		return a.gen > b.gen
	}
	return a.gen < b.gen
}

func (h *nodeHeap) top() (heapNode, bool) {
	if h.n == 0 {
		return heapNode{}, false
	}
	return h.nodes[0], true
}

func (h *nodeHeap) push(node heapNode) {
	h.nodes[h.n] = node
	h.n++
	h.siftUp(h.n - 1)
}

func (h *nodeHeap) pop() heapNode {
	top := h.nodes[0]
	h.n--
	if h.n > 0 {
		h.nodes[0] = h.nodes[h.n]
		h.siftDown(0)
	}
	return top
}

func (h *nodeHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.above(h.nodes[i], h.nodes[parent]) {
			return
		}
		h.nodes[i], h.nodes[parent] = h.nodes[parent], h.nodes[i]
		i = parent
	}
}

func (h *nodeHeap) siftDown(i int) {
	for {
		best := i
		left := 2*i + 1
		right := left + 1
		if left < h.n && h.above(h.nodes[left], h.nodes[best]) {
			best = left
		}
		if right < h.n && h.above(h.nodes[right], h.nodes[best]) {
			best = right
		}
		if best == i {
			return
		}
		h.nodes[i], h.nodes[best] = h.nodes[best], h.nodes[i]
		i = best
	}
}

func (h *nodeHeap) heapify() {
	for i := h.n/2 - 1; i >= 0; i-- {
		h.siftDown(i)
	}
}

// compact drops stale nodes and rebuilds the heap from the survivors.
func (h *nodeHeap) compact(gens []uint32) {
	w := 0
	for r := 0; r < h.n; r++ {
		if h.nodes[r].stale(gens) {
			continue
		}
		h.nodes[w] = h.nodes[r]
		w++
	}
	h.n = w
	h.heapify()
}

// medianTracker keeps the running median of the values seen at one offset
// across every live tap. lo is a max-heap of values at or below the median,
// hi a min-heap of values above it. Superseded values are not removed when a
// slot is overwritten; they go stale and are purged on the next compaction.
//
// Each heap holds at most one live node per slot plus the one node being
// inserted, so a capacity of numTaps per heap is never exceeded.
type medianTracker struct {
	lo   nodeHeap
	hi   nodeHeap
	gens []uint32
}

func newMedianTracker(lo, hi []heapNode, gens []uint32) medianTracker {
	return medianTracker{
		lo:   nodeHeap{nodes: lo, max: true},
		hi:   nodeHeap{nodes: hi},
		gens: gens,
	}
}

// update records value as the current entry for slot, superseding whatever
// the slot held before.
func (t *medianTracker) update(value int16, slot int, gen uint32) {
	t.gens[slot] = gen
	t.insert(heapNode{value: value, slot: uint16(slot), gen: gen})
	t.rebalance()
}

func (t *medianTracker) insert(node heapNode) {
	t.lo.compact(t.gens)
	if top, ok := t.lo.top(); ok {
		if node.value <= top.value {
			t.lo.push(node)
		} else {
			t.hi.push(node)
		}
		return
	}

	// lo emptied by compaction; order against hi instead
	t.hi.compact(t.gens)
	if top, ok := t.hi.top(); ok && node.value > top.value {
		t.hi.push(node)
		return
	}
	t.lo.push(node)
}

// rebalance purges stale nodes, evens the heap sizes so lo holds the extra
// value, and restores max(lo) <= min(hi).
func (t *medianTracker) rebalance() {
	t.lo.compact(t.gens)
	t.hi.compact(t.gens)

	for t.lo.n < t.hi.n {
		t.lo.push(t.hi.pop())
	}
	for t.lo.n > t.hi.n+1 {
		t.hi.push(t.lo.pop())
	}

	for t.lo.n > 0 && t.hi.n > 0 && t.lo.nodes[0].value > t.hi.nodes[0].value {
		a, b := t.lo.pop(), t.hi.pop()
		t.lo.push(b)
		t.hi.push(a)
	}
}

// median returns the median across live taps, or fallback while no tap has
// contributed a value at this offset yet.
func (t *medianTracker) median(fallback int16) int16 {
	t.rebalance()
	top, ok := t.lo.top()
	if !ok {
		return fallback
	}
	return top.value
}

// live returns the number of non-stale values held.
func (t *medianTracker) live() int {
	t.rebalance()
	return t.lo.n + t.hi.n
}

func (t *medianTracker) reset() {
	t.lo.n = 0
	t.hi.n = 0
}
