// internal/audio/history.go
package audio

// History is a fixed-capacity ring of the most recent samples of one channel.
type History struct {
	data []int16
	head int
}

// NewHistory creates a history holding up to size samples.
func NewHistory(size int) *History {
	return &History{data: make([]int16, max(size, 1))}
}

// HistorySize returns the capacity used for an event window of preMs+postMs
// milliseconds, leaving room for four windows.
func HistorySize(sampleRate, preMs, postMs int) int {
	return sampleRate * 4 * (preMs + postMs) / 1000
}

// Len returns the capacity of the ring.
func (h *History) Len() int {
	return len(h.data)
}

// Push appends samples, overwriting the oldest.
func (h *History) Push(samples ...int16) {
	for _, s := range samples {
		h.data[h.head] = s
		h.head++
		if h.head == len(h.data) {
			h.head = 0
		}
	}
}

// CopyTail copies the count samples that end offset samples before the
// newest one into dst, oldest first. It returns the number copied, bounded by
// len(dst) and the ring capacity.
func (h *History) CopyTail(dst []int16, offset, count int) int {
	size := len(h.data)
	count = min(count, len(dst), size)
	if count <= 0 {
		return 0
	}
	start := ((h.head-offset-count)%size + size) % size
	for i := 0; i < count; i++ {
		dst[i] = h.data[(start+i)%size]
	}
	return count
}
