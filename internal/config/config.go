// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"

	"github.com/ColonelBlimp/bomnode/internal/impulse"
	"github.com/ColonelBlimp/bomnode/internal/logging"
	"github.com/spf13/viper"
)

const (
	AppName       = "bomnode"
	ConfigType    = "yaml"
	DefaultConfig = `# bomnode configuration

# Audio device settings
device_index: -1        # -1 for default device
sample_rate: 48000      # Audio sample rate in Hz
buffer_size: 512        # Frames per device callback (power of 2)

# Detector window: num_taps taps of tap_size samples per channel
num_taps: 11            # 1-255, odd values give a true middle tap
tap_size: 250           # 1-4096 samples

# Detection levels (integers)
det_level: 10000        # Peak must rise this far above the per-offset median
det_rms: 2              # Peak must exceed det_rms * window RMS
det_energy: 0           # Median from the peak onward must exceed det_energy * median of the samples before it

# Event capture around each impulse
pre_event_ms: 50
post_event_ms: 200
clip_dir: ""            # Write WAV clips here; empty disables clips

# MQTT event publishing; empty broker disables it
mqtt_broker: ""         # e.g. tcp://localhost:1883
mqtt_topic: "bomnode/events"
mqtt_client_id: "bomnode"
mqtt_username: ""
mqtt_password: ""

# Output
log_level: "info"       # debug, info, warn, error
log_file: ""            # Append logs here instead of stderr
debug: false            # Force debug logging
`
)

// Settings holds all application configuration
type Settings struct {
	// Audio device settings
	DeviceIndex int `mapstructure:"device_index"`
	SampleRate  int `mapstructure:"sample_rate"`
	BufferSize  int `mapstructure:"buffer_size"`

	// Detector window
	NumTaps int `mapstructure:"num_taps"`
	TapSize int `mapstructure:"tap_size"`

	// Detection levels
	DetLevel  int `mapstructure:"det_level"`
	DetRMS    int `mapstructure:"det_rms"`
	DetEnergy int `mapstructure:"det_energy"`

	// Event capture
	PreEventMs  int    `mapstructure:"pre_event_ms"`
	PostEventMs int    `mapstructure:"post_event_ms"`
	ClipDir     string `mapstructure:"clip_dir"`

	// MQTT
	MQTTBroker   string `mapstructure:"mqtt_broker"`
	MQTTTopic    string `mapstructure:"mqtt_topic"`
	MQTTClientID string `mapstructure:"mqtt_client_id"`
	MQTTUsername string `mapstructure:"mqtt_username"`
	MQTTPassword string `mapstructure:"mqtt_password"`

	// Output
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
	Debug    bool   `mapstructure:"debug"`
}

// SetDefaults registers the default value of every key
func SetDefaults() {
	viper.SetDefault("device_index", -1)
	viper.SetDefault("sample_rate", 48000)
	viper.SetDefault("buffer_size", 512)
	viper.SetDefault("num_taps", 11)
	viper.SetDefault("tap_size", 250)
	viper.SetDefault("det_level", 10000)
	viper.SetDefault("det_rms", 2)
	viper.SetDefault("det_energy", 0)
	viper.SetDefault("pre_event_ms", 50)
	viper.SetDefault("post_event_ms", 200)
	viper.SetDefault("clip_dir", "")
	viper.SetDefault("mqtt_broker", "")
	viper.SetDefault("mqtt_topic", "bomnode/events")
	viper.SetDefault("mqtt_client_id", "bomnode")
	viper.SetDefault("mqtt_username", "")
	viper.SetDefault("mqtt_password", "")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_file", "")
	viper.SetDefault("debug", false)
}

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/bomnode/
func Init() error {
	SetDefaults()

	// Support both config.yaml and .config.yaml
	viper.SetConfigType(ConfigType)

	// Priority order: current directory first, then XDG config
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	// Try .config.yaml first (hidden file), then config.yaml
	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	// Read config file - if not found, create default in XDG config dir
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			xdgConfigPath := filepath.Join(configDir, AppName)
			if err = ensureConfigExists(xdgConfigPath); err != nil {
				return err
			}
			if err = viper.ReadInConfig(); err != nil {
				return fmt.Errorf("read config: %w", err)
			}
		} else {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Validate checks that all settings are within acceptable ranges
func (s *Settings) Validate() error {
	var errs []error

	// Audio device settings
	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %d", s.SampleRate))
	}
	if s.BufferSize < 64 || s.BufferSize > 8192 {
		errs = append(errs, fmt.Errorf("buffer_size must be between 64 and 8192, got %d", s.BufferSize))
	}
	if s.BufferSize&(s.BufferSize-1) != 0 {
		errs = append(errs, fmt.Errorf("buffer_size should be a power of 2, got %d", s.BufferSize))
	}

	// Detector window
	if s.NumTaps < 1 || s.NumTaps > math.MaxUint8 {
		errs = append(errs, fmt.Errorf("num_taps must be between 1 and 255, got %d", s.NumTaps))
	}
	if s.TapSize < 1 || s.TapSize > 4096 {
		errs = append(errs, fmt.Errorf("tap_size must be between 1 and 4096, got %d", s.TapSize))
	}

	// Detection levels
	if s.DetLevel < math.MinInt16 || s.DetLevel > math.MaxInt16 {
		errs = append(errs, fmt.Errorf("det_level must fit a 16-bit sample, got %d", s.DetLevel))
	}
	if s.DetRMS < 0 || s.DetRMS > math.MaxInt16 {
		errs = append(errs, fmt.Errorf("det_rms must be between 0 and 32767, got %d", s.DetRMS))
	}
	if s.DetEnergy < 0 || s.DetEnergy > math.MaxInt16 {
		errs = append(errs, fmt.Errorf("det_energy must be between 0 and 32767, got %d", s.DetEnergy))
	}

	// Event capture
	if s.PreEventMs < 0 || s.PreEventMs > 5000 {
		errs = append(errs, fmt.Errorf("pre_event_ms must be between 0 and 5000, got %d", s.PreEventMs))
	}
	if s.PostEventMs < 0 || s.PostEventMs > 5000 {
		errs = append(errs, fmt.Errorf("post_event_ms must be between 0 and 5000, got %d", s.PostEventMs))
	}

	// MQTT
	if s.MQTTBroker != "" && s.MQTTTopic == "" {
		errs = append(errs, errors.New("mqtt_topic is required when mqtt_broker is set"))
	}

	// Output
	if !slices.Contains(logging.Levels, s.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", s.LogLevel))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// DetectorConfig returns the per-channel detector configuration. Call only
// on validated settings.
func (s *Settings) DetectorConfig() impulse.Config {
	return impulse.Config{
		NumTaps: uint8(s.NumTaps),
		TapSize: uint16(s.TapSize),
		Levels: impulse.Levels{
			DetLevel:  int16(s.DetLevel),
			DetRMS:    int16(s.DetRMS),
			DetEnergy: int16(s.DetEnergy),
		},
	}
}

// EffectiveLogLevel is log_level, or debug when the debug flag is set
func (s *Settings) EffectiveLogLevel() string {
	if s.Debug {
		return "debug"
	}
	return s.LogLevel
}
