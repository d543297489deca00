package audio

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteReadWAV_RoundTrip(t *testing.T) {
	left := []int16{0, 1, -1, 1000, -1000, 32767, -32768, 12345, 20000}
	right := []int16{5, 4, 3, 2, 1, 0, -1, -2, -20000}

	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := WriteWAV(f, 16000, left, right); err != nil {
		t.Fatalf("WriteWAV() error = %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	in, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer in.Close()

	rec, err := ReadWAV(in)
	if err != nil {
		t.Fatalf("ReadWAV() error = %v", err)
	}
	if rec.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", rec.SampleRate)
	}
	if rec.Channels != 2 {
		t.Errorf("Channels = %d, want 2", rec.Channels)
	}
	if len(rec.Left) != len(left) || len(rec.Right) != len(right) {
		t.Fatalf("decoded %d/%d samples, want %d", len(rec.Left), len(rec.Right), len(left))
	}
	for i := range left {
		if rec.Left[i] != left[i] {
			t.Errorf("Left[%d] = %d, want %d", i, rec.Left[i], left[i])
		}
		if rec.Right[i] != right[i] {
			t.Errorf("Right[%d] = %d, want %d", i, rec.Right[i], right[i])
		}
	}

	wantDur := float64(len(left)) / 16000
	if rec.Duration() != wantDur {
		t.Errorf("Duration() = %v, want %v", rec.Duration(), wantDur)
	}
}

// monoWAV assembles a 16-bit mono PCM file by hand.
func monoWAV(t *testing.T, sampleRate uint32, samples []int16) []byte {
	t.Helper()
	dataLen := uint32(2 * len(samples))
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, 36+dataLen)
	buf.WriteString("WAVEfmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // channels
	binary.Write(&buf, binary.LittleEndian, sampleRate)
	binary.Write(&buf, binary.LittleEndian, 2*sampleRate)
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataLen)
	if err := binary.Write(&buf, binary.LittleEndian, samples); err != nil {
		t.Fatalf("write samples: %v", err)
	}
	return buf.Bytes()
}

func TestReadWAV_ExactSamples(t *testing.T) {
	samples := []int16{0, 1, -1, 20000, -20000, 32767, -32768, 12345}

	rec, err := ReadWAV(bytes.NewReader(monoWAV(t, 8000, samples)))
	if err != nil {
		t.Fatalf("ReadWAV() error = %v", err)
	}
	if rec.Channels != 1 {
		t.Errorf("Channels = %d, want 1", rec.Channels)
	}
	if len(rec.Left) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(rec.Left), len(samples))
	}
	for i, want := range samples {
		if rec.Left[i] != want || rec.Right[i] != want {
			t.Errorf("sample %d = %d/%d, want %d", i, rec.Left[i], rec.Right[i], want)
		}
	}
}

func TestWriteWAV_ChannelMismatch(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "bad.wav"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	if err := WriteWAV(f, 8000, []int16{1, 2}, []int16{1}); err != ErrChannelMismatch {
		t.Errorf("WriteWAV() error = %v, want ErrChannelMismatch", err)
	}
}

func TestReadWAV_NotWAV(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "noise.wav"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.WriteString("definitely not a riff header"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		t.Fatalf("seek: %v", err)
	}
	defer f.Close()

	if _, err := ReadWAV(f); err == nil {
		t.Error("ReadWAV() on garbage returned nil error")
	}
}

func TestSampleConversion(t *testing.T) {
	for _, v := range []int16{0, 1, -1, 100, -100, 20000, 32767, -32767, -32768} {
		if got := floatToS16(s16ToFloat(v)); got != v {
			t.Errorf("floatToS16(s16ToFloat(%d)) = %d", v, got)
		}
	}
	if got := floatToS16(2.5); got != 32767 {
		t.Errorf("floatToS16(2.5) = %d, want 32767", got)
	}
	if got := s16ToFloat(-32768); got != -1 {
		t.Errorf("s16ToFloat(-32768) = %v, want -1", got)
	}
	if got := floatToS16(-2.5); got != -32768 {
		t.Errorf("floatToS16(-2.5) = %d, want -32768", got)
	}
}
