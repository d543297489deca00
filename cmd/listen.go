// cmd/listen.go
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ColonelBlimp/bomnode/internal/audio"
	"github.com/ColonelBlimp/bomnode/internal/config"
	"github.com/ColonelBlimp/bomnode/internal/events"
	"github.com/ColonelBlimp/bomnode/internal/monitor"
	"github.com/ColonelBlimp/bomnode/internal/recovery"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Detect impulses from the live microphone pair",
	Long: `Captures stereo audio from the configured device and runs one detector
per channel until interrupted. Each event is logged and, when configured,
written to clip_dir and published to the MQTT broker.`,
	RunE: runListen,
}

func init() {
	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, args []string) error {
	settings, log, closeLog, err := loadSettings()
	if err != nil {
		return err
	}
	defer closeLog()

	sinks, err := buildSinks(settings, log)
	if err != nil {
		return err
	}

	mon, err := monitor.New(monitor.Config{
		Detector:    settings.DetectorConfig(),
		SampleRate:  settings.SampleRate,
		PreEventMs:  settings.PreEventMs,
		PostEventMs: settings.PostEventMs,
	}, log, sinks...)
	if err != nil {
		closeSinks(sinks, log)
		return err
	}
	defer func() {
		if err := mon.Close(); err != nil {
			log.Warn().Err(err).Msg("close sinks")
		}
	}()

	capture := audio.New(audio.Config{
		DeviceIndex: settings.DeviceIndex,
		SampleRate:  uint32(settings.SampleRate),
		Channels:    2,
		BufferSize:  uint32(settings.BufferSize),
	})
	if err := capture.Init(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	defer capture.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := capture.Start(ctx); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	log.Info().
		Int("device", settings.DeviceIndex).
		Int("sample_rate", settings.SampleRate).
		Int("num_taps", settings.NumTaps).
		Int("tap_size", settings.TapSize).
		Msg("listening, press Ctrl+C to stop")

	done := make(chan error, 1)
	go func() {
		defer recovery.LogPanic(log, func() { _ = capture.Close() })
		done <- mon.Run(ctx, capture.Frames)
	}()

	err = <-done
	st := mon.Stats()
	log.Info().
		Int64("taps", st.Taps).
		Int64("events", st.Events).
		Int64("dropped", st.Dropped).
		Int64("sink_failures", st.Failed).
		Msg("stopped")

	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// buildSinks creates the event sinks enabled in settings
func buildSinks(s *config.Settings, log zerolog.Logger) ([]events.Sink, error) {
	var sinks []events.Sink

	if s.ClipDir != "" {
		clips, err := events.NewClipWriter(s.ClipDir)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, clips)
		log.Info().Str("dir", s.ClipDir).Msg("writing event clips")
	}

	if s.MQTTBroker != "" {
		pub, err := events.DialMQTT(events.MQTTConfig{
			Broker:   s.MQTTBroker,
			Topic:    s.MQTTTopic,
			ClientID: s.MQTTClientID,
			Username: s.MQTTUsername,
			Password: s.MQTTPassword,
			QoS:      1,
			Timeout:  10 * time.Second,
		}, log)
		if err != nil {
			closeSinks(sinks, log)
			return nil, err
		}
		sinks = append(sinks, pub)
		log.Info().Str("broker", s.MQTTBroker).Str("topic", s.MQTTTopic).Msg("publishing events")
	}

	return sinks, nil
}

func closeSinks(sinks []events.Sink, log zerolog.Logger) {
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			log.Warn().Err(err).Msg("close sink")
		}
	}
}
