// internal/impulse/evaluate.go
package impulse

import (
	"math"
	"slices"
)

// evaluate runs the level, RMS and energy-ratio tests against the middle tap.
// start is the logical index of the first sample of the newest tap.
func (d *Detector) evaluate(start int64) Result {
	middle := d.ring.middle()
	tap := d.ring.slot(middle)

	peakVal := int32(math.MinInt32)
	peakPos := -1
	for i, sample := range tap {
		noise := d.trackers[i].median(0)
		if dev := int32(sample) - int32(noise); dev > peakVal {
			peakVal = dev
			peakPos = i
		}
	}
	if peakPos < 0 {
		return noHit
	}

	lv := d.cfg.Levels
	if peakVal <= int32(lv.DetLevel) {
		return noHit
	}
	if peakVal <= int32(lv.DetRMS)*int32(d.energy.rms()) {
		return noHit
	}

	// The names count back from the newest sample: before is the median
	// from the peak to the end of the tap, after the median of the samples
	// preceding the peak. In time order the test asks that the signal from
	// the peak onward stays above det_energy times the lead-in.
	before := d.sliceMedian(tap[peakPos:min(peakPos+len(tap), len(tap))])
	after := d.sliceMedian(tap[max(peakPos-len(tap), 0):peakPos])
	if int64(before) <= int64(after)*int64(lv.DetEnergy) {
		return noHit
	}

	delta := (d.ring.newest() + d.ring.numTaps - middle) % d.ring.numTaps
	middleStart := start - int64(delta*d.ring.tapSize)
	return Result{Hit: true, PeakIndex: middleStart + int64(peakPos)}
}

// sliceMedian returns the upper median of s (element len/2 after sorting),
// or 0 for an empty slice. s is sorted in the detector's scratch buffer.
func (d *Detector) sliceMedian(s []int16) int16 {
	if len(s) == 0 {
		return 0
	}
	tmp := d.scratch[:len(s)]
	copy(tmp, s)
	slices.Sort(tmp)
	return tmp[len(tmp)/2]
}
