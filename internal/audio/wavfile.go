// internal/audio/wavfile.go
package audio

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
)

// ErrChannelMismatch indicates left and right sample counts differ
var ErrChannelMismatch = errors.New("left and right channel lengths differ")

const wavChunkFrames = 4096

// Recording is a decoded two-channel recording. Mono sources appear with the
// same samples on both channels.
type Recording struct {
	SampleRate int
	Channels   int
	Left       []int16
	Right      []int16
}

// Duration returns the recording length in seconds.
func (r *Recording) Duration() float64 {
	if r.SampleRate == 0 {
		return 0
	}
	return float64(len(r.Left)) / float64(r.SampleRate)
}

// ReadWAV decodes a whole WAV stream into signed 16-bit samples.
func ReadWAV(r io.Reader) (*Recording, error) {
	stream, format, err := wav.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	defer stream.Close()

	rec := &Recording{
		SampleRate: int(format.SampleRate),
		Channels:   format.NumChannels,
	}
	if n := stream.Len(); n > 0 {
		rec.Left = make([]int16, 0, n)
		rec.Right = make([]int16, 0, n)
	}

	buf := make([][2]float64, wavChunkFrames)
	for {
		n, ok := stream.Stream(buf)
		for _, frame := range buf[:n] {
			rec.Left = append(rec.Left, floatToS16(frame[0]))
			rec.Right = append(rec.Right, floatToS16(frame[1]))
		}
		if !ok {
			break
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("read wav samples: %w", err)
	}
	return rec, nil
}

// WriteWAV encodes a stereo 16-bit PCM WAV file.
func WriteWAV(w io.WriteSeeker, sampleRate int, left, right []int16) error {
	if len(left) != len(right) {
		return ErrChannelMismatch
	}
	format := beep.Format{
		SampleRate:  beep.SampleRate(sampleRate),
		NumChannels: 2,
		Precision:   2,
	}
	if err := wav.Encode(w, &pcmStreamer{left: left, right: right}, format); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return nil
}

// pcmStreamer feeds int16 channel pairs to a beep encoder.
type pcmStreamer struct {
	left, right []int16
	pos         int
}

func (s *pcmStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.pos >= len(s.left) {
		return 0, false
	}
	n := 0
	for n < len(samples) && s.pos < len(s.left) {
		samples[n][0] = s16ToFloat(s.left[s.pos])
		samples[n][1] = s16ToFloat(s.right[s.pos])
		n++
		s.pos++
	}
	return n, true
}

func (s *pcmStreamer) Err() error {
	return nil
}

// s16Scale matches the 16-bit PCM scaling beep applies on both encode and
// decode, so int16 samples survive a write and read unchanged.
const s16Scale = 1 << 15

func floatToS16(v float64) int16 {
	x := math.Round(v * s16Scale)
	if x > math.MaxInt16 {
		return math.MaxInt16
	}
	if x < math.MinInt16 {
		return math.MinInt16
	}
	return int16(x)
}

func s16ToFloat(v int16) float64 {
	return float64(v) / s16Scale
}
