// internal/impulse/energy.go
package impulse

import "math"

// energyAccumulator keeps the sum of squares over the whole window. Each
// update swaps one departing sample for one arriving sample.
type energyAccumulator struct {
	sum       uint64
	windowLen int
}

func square(v int16) uint64 {
	x := int64(v)
	return uint64(x * x)
}

func (e *energyAccumulator) replace(old, val int16) {
	e.sum -= square(old)
	e.sum += square(val)
}

func (e *energyAccumulator) rms() float64 {
	if e.sum == 0 || e.windowLen == 0 {
		return 0
	}
	return math.Sqrt(float64(e.sum) / float64(e.windowLen))
}

func (e *energyAccumulator) reset() {
	e.sum = 0
}
