// internal/monitor/monitor.go
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ColonelBlimp/bomnode/internal/audio"
	"github.com/ColonelBlimp/bomnode/internal/events"
	"github.com/ColonelBlimp/bomnode/internal/impulse"
	"github.com/rs/zerolog"
)

// ErrInvalidConfig indicates a monitor configuration that cannot run
var ErrInvalidConfig = errors.New("invalid monitor config")

// Config describes the two-channel node
type Config struct {
	Detector    impulse.Config
	SampleRate  int
	PreEventMs  int
	PostEventMs int
}

func (c Config) preSamples() int {
	return c.SampleRate * c.PreEventMs / 1000
}

func (c Config) postSamples() int {
	return c.SampleRate * c.PostEventMs / 1000
}

// Stats counts what the monitor has seen since creation
type Stats struct {
	Taps    int64
	Events  int64
	Dropped int64 // hits while another event was still collecting audio
	Failed  int64 // sink deliveries that returned an error
}

// pending is a detected event waiting for its post-event audio
type pending struct {
	event events.Event
	end   int64 // logical index one past the last sample of the snapshot
}

// Monitor runs one impulse detector per microphone over a stereo frame
// stream and turns hits into events.
//
// A Monitor is not safe for concurrent use; Run or Write must be driven by a
// single goroutine, which keeps each detector to one writer.
type Monitor struct {
	cfg   Config
	log   zerolog.Logger
	sinks []events.Sink
	now   func() time.Time

	left, right       *impulse.Detector
	leftMem, rightMem []byte
	leftHist          *audio.History
	rightHist         *audio.History
	taps              *audio.TapAssembler

	pending *pending
	stats   Stats
}

// New allocates both detectors and their history rings.
func New(cfg Config, log zerolog.Logger, sinks ...events.Sink) (*Monitor, error) {
	if cfg.SampleRate <= 0 || cfg.PreEventMs < 0 || cfg.PostEventMs < 0 {
		return nil, fmt.Errorf("%w: sample_rate=%d pre=%dms post=%dms",
			ErrInvalidConfig, cfg.SampleRate, cfg.PreEventMs, cfg.PostEventMs)
	}

	size, err := impulse.RequiredSize(&cfg.Detector)
	if err != nil {
		return nil, fmt.Errorf("size detector: %w", err)
	}

	m := &Monitor{
		cfg:      cfg,
		log:      log,
		sinks:    sinks,
		now:      time.Now,
		leftMem:  make([]byte, size),
		rightMem: make([]byte, size),
	}
	if m.left, err = impulse.Init(m.leftMem, &cfg.Detector); err != nil {
		return nil, fmt.Errorf("init left detector: %w", err)
	}
	if m.right, err = impulse.Init(m.rightMem, &cfg.Detector); err != nil {
		return nil, fmt.Errorf("init right detector: %w", err)
	}

	histSize := audio.HistorySize(cfg.SampleRate, cfg.PreEventMs, cfg.PostEventMs)
	histSize = max(histSize, cfg.Detector.WindowLen())
	m.leftHist = audio.NewHistory(histSize)
	m.rightHist = audio.NewHistory(histSize)

	m.taps, err = audio.NewTapAssembler(int(cfg.Detector.TapSize), m.onTap)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int("detector_bytes", size).
		Int("history_samples", histSize).
		Int("window", cfg.Detector.WindowLen()).
		Msg("monitor ready")
	return m, nil
}

// Run consumes interleaved stereo frames until ctx is done or frames is
// closed. A pending event is delivered with whatever audio is available
// before Run returns.
func (m *Monitor) Run(ctx context.Context, frames <-chan []int16) error {
	defer m.Flush()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-frames:
			if !ok {
				return nil
			}
			m.Write(f)
		}
	}
}

// Write feeds interleaved stereo frames of any length.
func (m *Monitor) Write(frames []int16) {
	m.taps.Write(frames)
}

// Flush delivers a pending event immediately, ending its snapshot at the
// newest sample received.
func (m *Monitor) Flush() {
	if m.pending == nil {
		return
	}
	p := m.pending
	m.pending = nil
	m.deliver(p, 0)
}

// Stats returns the running counters.
func (m *Monitor) Stats() Stats {
	return m.stats
}

// Close closes every sink.
func (m *Monitor) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	m.left.Deinit()
	m.right.Deinit()
	return errors.Join(errs...)
}

func (m *Monitor) onTap(left, right []int16, start int64) {
	m.stats.Taps++
	m.leftHist.Push(left...)
	m.rightHist.Push(right...)

	resL, errL := m.left.FeedBlock(left, start)
	resR, errR := m.right.FeedBlock(right, start)
	if err := errors.Join(errL, errR); err != nil {
		m.log.Error().Err(err).Int64("start", start).Msg("feed detector")
		return
	}

	switch {
	case resL.Hit:
		m.hit(events.ChannelLeft, resL.PeakIndex)
	case resR.Hit:
		m.hit(events.ChannelRight, resR.PeakIndex)
	}

	if m.pending != nil {
		if received := start + int64(len(left)); received >= m.pending.end {
			p := m.pending
			m.pending = nil
			m.deliver(p, int(received-p.end))
		}
	}
}

func (m *Monitor) hit(ch events.Channel, peak int64) {
	if m.pending != nil {
		m.stats.Dropped++
		m.log.Debug().Str("channel", string(ch)).Int64("peak_index", peak).
			Msg("impulse while event pending, dropped")
		return
	}
	e := events.New(ch, peak, m.cfg.SampleRate, m.now())
	m.pending = &pending{event: e, end: peak + int64(m.cfg.postSamples())}
	m.log.Info().
		Str("channel", string(ch)).
		Int64("peak_index", peak).
		Float64("peak_time_ms", e.PeakTimeMs).
		Msg(">>> impulse detected <<<")
}

// deliver snapshots both histories ending offset samples before the newest
// and hands the event to every sink.
func (m *Monitor) deliver(p *pending, offset int) {
	count := m.cfg.preSamples() + m.cfg.postSamples()
	e := p.event
	e.Left = make([]int16, count)
	e.Right = make([]int16, count)
	n := m.leftHist.CopyTail(e.Left, offset, count)
	m.rightHist.CopyTail(e.Right, offset, count)
	e.Left, e.Right = e.Left[:n], e.Right[:n]

	m.stats.Events++
	for _, s := range m.sinks {
		if err := s.Handle(e); err != nil {
			m.stats.Failed++
			m.log.Error().Err(err).Str("id", e.ID.String()).Msg("event sink failed")
		}
	}
}
