// cmd/root.go
package cmd

import (
	"fmt"
	"os"

	"github.com/ColonelBlimp/bomnode/internal/config"
	"github.com/ColonelBlimp/bomnode/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "bomnode",
	Short: "Acoustic impulse detector for a two-microphone node",
	Long: `bomnode listens to a stereo microphone pair and flags sharp transient
impulses using a per-offset running median, an adaptive RMS gate and a
before/after energy test. Events are logged, saved as WAV clips and
published over MQTT. Recorded WAV files can be analysed offline.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags (override config file)
	rootCmd.PersistentFlags().IntP("device", "d", -1, "audio device index (-1 for default)")
	rootCmd.PersistentFlags().IntP("num-taps", "n", 11, "number of taps in the detection window")
	rootCmd.PersistentFlags().IntP("tap-size", "t", 250, "samples per tap")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "append logs to this file instead of stderr")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "enable debug output")

	// Bind flags to viper
	viper.BindPFlag("device_index", rootCmd.PersistentFlags().Lookup("device"))
	viper.BindPFlag("num_taps", rootCmd.PersistentFlags().Lookup("num-taps"))
	viper.BindPFlag("tap_size", rootCmd.PersistentFlags().Lookup("tap-size"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
}

// loadSettings returns validated settings and a logger configured from them.
// closeLog releases the log file, if any, and is always non-nil.
func loadSettings() (s *config.Settings, log zerolog.Logger, closeLog func(), err error) {
	closeLog = func() {}
	s, err = config.Get()
	if err != nil {
		return nil, zerolog.Nop(), closeLog, err
	}
	level, err := logging.ParseLevel(s.EffectiveLogLevel())
	if err != nil {
		return nil, zerolog.Nop(), closeLog, fmt.Errorf("config: %w", err)
	}
	if s.LogFile == "" {
		return s, logging.New(os.Stderr, level), closeLog, nil
	}

	log, f, err := logging.NewFile(s.LogFile, level)
	if err != nil {
		return nil, zerolog.Nop(), closeLog, err
	}
	return s, log, func() { _ = f.Close() }, nil
}
