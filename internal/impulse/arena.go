// internal/impulse/arena.go
package impulse

import "unsafe"

// arenaAlign is the alignment every arena starts from. It is at least the
// alignment of every element type carved from an arena.
const arenaAlign = 8

// arena hands out fixed-capacity typed slices from one caller-owned byte
// buffer. A nil buf puts the arena in measuring mode, where carve only
// accumulates the size a real layout would need.
//
// Element types must not contain pointers: the garbage collector sees the
// backing store as plain bytes.
type arena struct {
	buf []byte
	// origin is the first arenaAlign-aligned index of buf; off counts from it
	origin  int
	off     int
	aligned bool
}

func measuringArena() *arena {
	return &arena{}
}

func newArena(buf []byte) *arena {
	return &arena{buf: buf}
}

// size reports the bytes consumed so far, plus the worst-case padding needed
// to align an arbitrary base address.
func (a *arena) size() int {
	return a.off + arenaAlign - 1
}

func (a *arena) measuring() bool {
	return a.buf == nil
}

func carve[T any](a *arena, n int) ([]T, error) {
	var zero T
	elem := int(unsafe.Sizeof(zero))
	align := int(unsafe.Alignof(zero))

	if a.measuring() {
		a.off = alignUp(a.off, align) + n*elem
		return nil, nil
	}

	if !a.aligned {
		base := uintptr(unsafe.Pointer(unsafe.SliceData(a.buf)))
		a.origin = int(alignUpPtr(base, arenaAlign) - base)
		a.aligned = true
	}
	start := alignUp(a.off, align)
	end := start + n*elem
	if a.origin+end > len(a.buf) {
		return nil, ErrBufferTooSmall
	}
	a.off = end
	if n == 0 {
		return []T{}, nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&a.buf[a.origin+start])), n), nil
}

func alignUp(v, a int) int {
	return (v + a - 1) &^ (a - 1)
}

func alignUpPtr(v uintptr, a uintptr) uintptr {
	return (v + a - 1) &^ (a - 1)
}
