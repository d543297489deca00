// internal/impulse/ring.go
package impulse

// tapRing stores the last numTaps taps, one slot per tap. write is the next
// slot to overwrite, which is also the oldest slot once the ring has wrapped.
type tapRing struct {
	samples []int16  // numTaps * tapSize, slot-major
	gens    []uint32 // current generation per slot
	numTaps int
	tapSize int
	write   int
	gen     uint32
}

func (r *tapRing) slot(i int) []int16 {
	base := i * r.tapSize
	return r.samples[base : base+r.tapSize]
}

// claim bumps the generation counter and stamps it onto the slot about to be
// overwritten. Heap entries carrying the slot's previous generation become
// stale from this point.
func (r *tapRing) claim() (slot int, gen uint32) {
	r.gen++
	r.gens[r.write] = r.gen
	return r.write, r.gen
}

func (r *tapRing) advance() {
	r.write = (r.write + 1) % r.numTaps
}

// newest returns the slot written by the most recent claim.
func (r *tapRing) newest() int {
	return (r.write + r.numTaps - 1) % r.numTaps
}

// middle returns the slot numTaps/2 taps newer than the oldest.
func (r *tapRing) middle() int {
	return (r.write + r.numTaps/2) % r.numTaps
}

// at reads the sample at logical position pos of the window, counted from
// the first sample of the oldest slot.
func (r *tapRing) at(pos int) int16 {
	slot := (r.write + pos/r.tapSize) % r.numTaps
	return r.samples[slot*r.tapSize+pos%r.tapSize]
}

func (r *tapRing) reset() {
	clear(r.samples)
	clear(r.gens)
	r.write = 0
	r.gen = 1
}
