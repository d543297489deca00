// internal/events/clip.go
package events

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ColonelBlimp/bomnode/internal/audio"
)

// clipTimeFormat keeps file names sortable and free of path separators
const clipTimeFormat = "20060102T150405.000Z"

// ClipWriter stores each event's snapshot as a stereo WAV file.
type ClipWriter struct {
	dir string
}

// NewClipWriter creates dir if needed.
func NewClipWriter(dir string) (*ClipWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create clip dir: %w", err)
	}
	return &ClipWriter{dir: dir}, nil
}

// Path returns the file an event is written to.
func (w *ClipWriter) Path(e Event) string {
	name := fmt.Sprintf("%s_%s.wav", e.DetectedAt.UTC().Format(clipTimeFormat), e.ID)
	return filepath.Join(w.dir, name)
}

func (w *ClipWriter) Handle(e Event) (err error) {
	f, err := os.Create(w.Path(e))
	if err != nil {
		return fmt.Errorf("create clip: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close clip: %w", cerr)
		}
	}()

	if err := audio.WriteWAV(f, e.SampleRate, e.Left, e.Right); err != nil {
		return fmt.Errorf("write clip: %w", err)
	}
	return nil
}

func (w *ClipWriter) Close() error {
	return nil
}
