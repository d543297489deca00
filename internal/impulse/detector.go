// internal/impulse/detector.go
package impulse

// State is the lifecycle phase of a Detector.
type State int

const (
	// StateWarming means fewer than a full window of samples has been fed
	StateWarming State = iota
	// StateActive means the window is full and every block is evaluated
	StateActive
)

func (s State) String() string {
	switch s {
	case StateWarming:
		return "warming"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// Result is the verdict for one fed block. PeakIndex is the absolute logical
// sample index of the detected peak, or -1 when Hit is false.
type Result struct {
	Hit       bool
	PeakIndex int64
}

var noHit = Result{PeakIndex: -1}

// Detector flags transient impulses in a stream of fixed-size taps.
//
// All sample, heap and generation storage lives in the memory passed to Init;
// FeedBlock and Reset never allocate. A Detector has no internal locking and
// must be driven by a single writer.
type Detector struct {
	cfg      Config
	ring     tapRing
	trackers []medianTracker
	energy   energyAccumulator
	scratch  []int16
	ingested int
}

// stateLayout is every arena-backed slice of a detector.
type stateLayout struct {
	samples []int16
	gens    []uint32
	lo      []heapNode
	hi      []heapNode
	scratch []int16
}

// layoutState carves the detector state from a. Sizing and initialisation
// share this walk so RequiredSize always matches what Init carves.
func layoutState(a *arena, cfg *Config) (stateLayout, error) {
	var (
		l   stateLayout
		err error
	)
	n := cfg.WindowLen()
	if l.samples, err = carve[int16](a, n); err != nil {
		return l, err
	}
	if l.gens, err = carve[uint32](a, int(cfg.NumTaps)); err != nil {
		return l, err
	}
	if l.lo, err = carve[heapNode](a, n); err != nil {
		return l, err
	}
	if l.hi, err = carve[heapNode](a, n); err != nil {
		return l, err
	}
	if l.scratch, err = carve[int16](a, int(cfg.TapSize)); err != nil {
		return l, err
	}
	return l, nil
}

// Init lays out a detector inside mem, which must hold at least
// RequiredSize(cfg) bytes. The caller keeps ownership of mem and must keep it
// alive, and unshared, for as long as the detector is used.
func Init(mem []byte, cfg *Config) (*Detector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	needed, err := RequiredSize(cfg)
	if err != nil {
		return nil, err
	}
	if len(mem) < needed {
		return nil, ErrBufferTooSmall
	}
	clear(mem[:needed])

	l, err := layoutState(newArena(mem), cfg)
	if err != nil {
		return nil, err
	}

	numTaps := int(cfg.NumTaps)
	tapSize := int(cfg.TapSize)
	d := &Detector{
		cfg: *cfg,
		ring: tapRing{
			samples: l.samples,
			gens:    l.gens,
			numTaps: numTaps,
			tapSize: tapSize,
			gen:     1,
		},
		trackers: make([]medianTracker, tapSize),
		energy:   energyAccumulator{windowLen: cfg.WindowLen()},
		scratch:  l.scratch,
	}
	for i := range d.trackers {
		base := i * numTaps
		d.trackers[i] = newMedianTracker(
			l.lo[base:base+numTaps:base+numTaps],
			l.hi[base:base+numTaps:base+numTaps],
			l.gens,
		)
	}
	return d, nil
}

// FeedBlock ingests one tap of exactly TapSize samples whose first sample sits
// at logical index start, and evaluates the middle tap once the window is
// full. Blocks must arrive in increasing logical order.
func (d *Detector) FeedBlock(block []int16, start int64) (Result, error) {
	if d == nil || block == nil || len(block) != int(d.cfg.TapSize) {
		return noHit, ErrInvalidArgument
	}

	slot, gen := d.ring.claim()
	dst := d.ring.slot(slot)
	for i, val := range block {
		d.energy.replace(dst[i], val)
		dst[i] = val
		d.trackers[i].update(val, slot, gen)
	}
	d.ring.advance()
	d.ingested += len(block)

	if d.State() != StateActive {
		return noHit, nil
	}
	return d.evaluate(start), nil
}

// Reset returns the detector to StateWarming. The backing memory is cleared
// and reused, never released.
func (d *Detector) Reset() {
	d.ring.reset()
	for i := range d.trackers {
		d.trackers[i].reset()
	}
	d.energy.reset()
	clear(d.scratch)
	d.ingested = 0
}

// Deinit exists for symmetry with Init. The detector never owned its memory,
// so there is nothing to release.
func (d *Detector) Deinit() {}

// State returns the current lifecycle phase.
func (d *Detector) State() State {
	if d.ingested < d.cfg.WindowLen() {
		return StateWarming
	}
	return StateActive
}

// Config returns the configuration the detector was initialised with.
func (d *Detector) Config() Config {
	return d.cfg
}

// Ingested returns the number of samples fed since Init or the last Reset.
func (d *Detector) Ingested() int {
	return d.ingested
}

// Median returns the running median at offset across the live taps. It
// returns 0 before any tap has been fed or when offset lies outside
// [0, TapSize).
func (d *Detector) Median(offset int) int16 {
	if offset < 0 || offset >= len(d.trackers) {
		return 0
	}
	return d.trackers[offset].median(0)
}

// SumOfSquares returns the energy accumulator over the current window.
func (d *Detector) SumOfSquares() uint64 {
	return d.energy.sum
}

// RMS returns the root-mean-square level over the full window length.
func (d *Detector) RMS() float64 {
	return d.energy.rms()
}

// CopyWindow copies the window, oldest sample first, into dst and returns
// the number of samples copied.
func (d *Detector) CopyWindow(dst []int16) int {
	n := min(len(dst), d.cfg.WindowLen())
	for i := 0; i < n; i++ {
		dst[i] = d.ring.at(i)
	}
	return n
}
