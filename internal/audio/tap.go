// internal/audio/tap.go
package audio

import "errors"

// ErrInvalidTapSize indicates a tap size below one sample
var ErrInvalidTapSize = errors.New("tap size must be positive")

// TapFunc receives one complete tap per channel. start is the logical index
// of the first sample of both taps. The slices are reused after the call
// returns and must be copied to be retained.
type TapFunc func(left, right []int16, start int64)

// TapAssembler splits interleaved stereo frames into fixed-size per-channel
// taps. Chunk boundaries from the device do not need to line up with taps;
// a partial tap carries over to the next Write.
type TapAssembler struct {
	tapSize int
	left    []int16
	right   []int16
	fill    int
	start   int64
	onTap   TapFunc

	// pending holds the left sample of a frame split across writes
	pending    int16
	hasPending bool
}

// NewTapAssembler creates an assembler emitting taps of tapSize samples.
func NewTapAssembler(tapSize int, onTap TapFunc) (*TapAssembler, error) {
	if tapSize <= 0 {
		return nil, ErrInvalidTapSize
	}
	return &TapAssembler{
		tapSize: tapSize,
		left:    make([]int16, tapSize),
		right:   make([]int16, tapSize),
		onTap:   onTap,
	}, nil
}

// Write consumes interleaved left/right samples.
func (a *TapAssembler) Write(frames []int16) {
	i := 0
	if a.hasPending && len(frames) > 0 {
		a.push(a.pending, frames[0])
		a.hasPending = false
		i = 1
	}
	for ; i+1 < len(frames); i += 2 {
		a.push(frames[i], frames[i+1])
	}
	if i < len(frames) {
		a.pending = frames[i]
		a.hasPending = true
	}
}

func (a *TapAssembler) push(l, r int16) {
	a.left[a.fill] = l
	a.right[a.fill] = r
	a.fill++
	if a.fill < a.tapSize {
		return
	}
	if a.onTap != nil {
		a.onTap(a.left, a.right, a.start)
	}
	a.start += int64(a.tapSize)
	a.fill = 0
}

// Offset returns the logical index of the next tap to be emitted.
func (a *TapAssembler) Offset() int64 {
	return a.start
}

// Reset drops any partial tap and restarts logical offsets at zero.
func (a *TapAssembler) Reset() {
	a.fill = 0
	a.start = 0
	a.hasPending = false
}
