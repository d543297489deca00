// cmd/detect.go
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ColonelBlimp/bomnode/internal/audio"
	"github.com/ColonelBlimp/bomnode/internal/events"
	"github.com/ColonelBlimp/bomnode/internal/impulse"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned for an unsupported --format value
var ErrUnknownFormat = errors.New("unknown output format")

var detectCmd = &cobra.Command{
	Use:   "detect <file.wav>",
	Short: "Find impulses in a recorded WAV file",
	Long: `Runs the detector over one channel of a WAV recording and lists the
sample index and time of every impulse found. Detection levels and window
size come from the configuration file and global flags; the sample rate is
taken from the recording.`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().StringP("channel", "c", "left", "channel to analyse (left or right)")
	detectCmd.Flags().StringP("format", "f", "text", "output format (text, json, yaml)")
	detectCmd.Flags().IntP("max-hits", "m", 1024, "maximum number of hit positions to report")
	rootCmd.AddCommand(detectCmd)
}

// Hit is one detected impulse in a report
type Hit struct {
	Index  int64   `json:"index" yaml:"index"`
	TimeMs float64 `json:"time_ms" yaml:"time_ms"`
}

// DetectorSettings echoes the detector configuration in a report
type DetectorSettings struct {
	NumTaps   int `json:"num_taps" yaml:"num_taps"`
	TapSize   int `json:"tap_size" yaml:"tap_size"`
	DetLevel  int `json:"det_level" yaml:"det_level"`
	DetRMS    int `json:"det_rms" yaml:"det_rms"`
	DetEnergy int `json:"det_energy" yaml:"det_energy"`
}

// Report is the result of analysing one recording
type Report struct {
	File       string           `json:"file" yaml:"file"`
	Channel    string           `json:"channel" yaml:"channel"`
	SampleRate int              `json:"sample_rate" yaml:"sample_rate"`
	Samples    int              `json:"samples" yaml:"samples"`
	Detector   DetectorSettings `json:"detector" yaml:"detector"`
	Total      int              `json:"total" yaml:"total"`
	Truncated  bool             `json:"truncated" yaml:"truncated"`
	Hits       []Hit            `json:"hits" yaml:"hits"`
}

func runDetect(cmd *cobra.Command, args []string) error {
	channel, _ := cmd.Flags().GetString("channel")
	format, _ := cmd.Flags().GetString("format")
	maxHits, _ := cmd.Flags().GetInt("max-hits")

	if channel != string(events.ChannelLeft) && channel != string(events.ChannelRight) {
		return fmt.Errorf("--channel must be left or right, got %q", channel)
	}
	if maxHits < 0 {
		return fmt.Errorf("--max-hits must not be negative, got %d", maxHits)
	}
	switch format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	settings, log, closeLog, err := loadSettings()
	if err != nil {
		return err
	}
	defer closeLog()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	rec, err := audio.ReadWAV(f)
	if err != nil {
		return err
	}
	log.Debug().
		Str("file", args[0]).
		Int("sample_rate", rec.SampleRate).
		Int("channels", rec.Channels).
		Float64("duration_s", rec.Duration()).
		Msg("recording loaded")

	samples := rec.Left
	if channel == string(events.ChannelRight) {
		samples = rec.Right
	}
	if len(samples) == 0 {
		return fmt.Errorf("%s: recording has no samples", args[0])
	}

	report, err := analyse(samples, settings.DetectorConfig(), rec.SampleRate, maxHits)
	if err != nil {
		return err
	}
	report.File = args[0]
	report.Channel = channel

	return writeReport(cmd.OutOrStdout(), report, format)
}

// analyse runs the batch detector and converts positions to a report
func analyse(samples []int16, cfg impulse.Config, sampleRate, maxHits int) (*Report, error) {
	positions := make([]int64, maxHits)
	total, err := impulse.DetectRecording(samples, &cfg, positions)
	if err != nil {
		return nil, fmt.Errorf("detect (status %d): %w", impulse.StatusOf(err), err)
	}

	n := min(total, maxHits)
	hits := make([]Hit, n)
	for i, p := range positions[:n] {
		hits[i] = Hit{Index: p, TimeMs: events.PeakTimeMs(p, sampleRate)}
	}
	return &Report{
		SampleRate: sampleRate,
		Samples:    len(samples),
		Detector: DetectorSettings{
			NumTaps:   int(cfg.NumTaps),
			TapSize:   int(cfg.TapSize),
			DetLevel:  int(cfg.Levels.DetLevel),
			DetRMS:    int(cfg.Levels.DetRMS),
			DetEnergy: int(cfg.Levels.DetEnergy),
		},
		Total:     total,
		Truncated: total > maxHits,
		Hits:      hits,
	}, nil
}

func writeReport(w io.Writer, r *Report, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case "text":
		return writeText(w, r)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func writeText(w io.Writer, r *Report) error {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	bold.Fprintf(w, "%s (%s channel, %d Hz, %d samples)\n", r.File, r.Channel, r.SampleRate, r.Samples)
	fmt.Fprintf(w, "window: %d taps x %d samples, levels %d/%d/%d\n",
		r.Detector.NumTaps, r.Detector.TapSize,
		r.Detector.DetLevel, r.Detector.DetRMS, r.Detector.DetEnergy)

	if r.Total == 0 {
		yellow.Fprintln(w, "no impulses detected")
		return nil
	}
	for i, h := range r.Hits {
		green.Fprintf(w, "%4d", i+1)
		fmt.Fprintf(w, "  sample %-10d %10.3f ms\n", h.Index, h.TimeMs)
	}
	if r.Truncated {
		yellow.Fprintf(w, "... %d more not shown (raise --max-hits)\n", r.Total-len(r.Hits))
	}
	_, err := bold.Fprintf(w, "%d impulse(s)\n", r.Total)
	return err
}
