// internal/impulse/errors.go
package impulse

import "errors"

var (
	// ErrConfigUninitialized indicates a missing config or a zero num_taps/tap_size
	ErrConfigUninitialized = errors.New("detector config uninitialized")
	// ErrBufferTooSmall indicates the backing memory is smaller than RequiredSize
	ErrBufferTooSmall = errors.New("detector buffer too small")
	// ErrInvalidArgument indicates a nil detector, a nil block or a block of the wrong length
	ErrInvalidArgument = errors.New("invalid detector argument")
)

// Status is the numeric form of the detector error taxonomy, for callers that
// report results as integer codes.
type Status int

const (
	StatusOK                  Status = 0
	StatusConfigUninitialized Status = -200
	StatusBufferTooSmall      Status = -201
	StatusInvalidArgument     Status = -202
)

// StatusOf maps an error returned by this package to its Status code.
// Errors from outside the taxonomy map to StatusInvalidArgument.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrConfigUninitialized):
		return StatusConfigUninitialized
	case errors.Is(err, ErrBufferTooSmall):
		return StatusBufferTooSmall
	default:
		return StatusInvalidArgument
	}
}

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusConfigUninitialized:
		return "config uninitialized"
	case StatusBufferTooSmall:
		return "buffer too small"
	case StatusInvalidArgument:
		return "invalid argument"
	default:
		return "unknown"
	}
}
