// internal/events/event.go
package events

import (
	"time"

	"github.com/google/uuid"
)

// Channel names the microphone an event is attributed to
type Channel string

const (
	ChannelLeft  Channel = "left"
	ChannelRight Channel = "right"
)

// Event is a confirmed impulse with the audio captured around it.
type Event struct {
	ID         uuid.UUID `json:"id" yaml:"id"`
	Channel    Channel   `json:"channel" yaml:"channel"`
	PeakIndex  int64     `json:"peak_index" yaml:"peak_index"`
	PeakTimeMs float64   `json:"peak_time_ms" yaml:"peak_time_ms"`
	DetectedAt time.Time `json:"detected_at" yaml:"detected_at"`
	SampleRate int       `json:"sample_rate" yaml:"sample_rate"`

	// Snapshot of both channels, oldest sample first
	Left  []int16 `json:"-" yaml:"-"`
	Right []int16 `json:"-" yaml:"-"`
}

// New creates an event with a fresh random ID.
func New(channel Channel, peakIndex int64, sampleRate int, detectedAt time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Channel:    channel,
		PeakIndex:  peakIndex,
		PeakTimeMs: PeakTimeMs(peakIndex, sampleRate),
		DetectedAt: detectedAt,
		SampleRate: sampleRate,
	}
}

// PeakTimeMs converts a sample index to milliseconds from stream start.
func PeakTimeMs(peakIndex int64, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(peakIndex) * 1000 / float64(sampleRate)
}

// Sink receives events from the monitor. Handle is called from the monitor
// goroutine and should return promptly.
type Sink interface {
	Handle(e Event) error
	Close() error
}
