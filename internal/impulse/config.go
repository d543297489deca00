// internal/impulse/config.go
package impulse

// Levels holds the three detection thresholds.
type Levels struct {
	// DetLevel is the absolute deviation a peak must exceed above the noise median
	DetLevel int16
	// DetRMS multiplies the window RMS to form the adaptive threshold
	DetRMS int16
	// DetEnergy scales the after-peak median in the energy-ratio test
	DetEnergy int16
}

// Config sizes and tunes a Detector.
type Config struct {
	// NumTaps is the number of taps in the sliding window
	NumTaps uint8
	// TapSize is the number of samples per tap (one FeedBlock call)
	TapSize uint16
	Levels  Levels
}

// WindowLen returns the number of samples covered by a full window.
func (c Config) WindowLen() int {
	return int(c.NumTaps) * int(c.TapSize)
}

func (c *Config) validate() error {
	if c == nil || c.NumTaps == 0 || c.TapSize == 0 {
		return ErrConfigUninitialized
	}
	return nil
}

// RequiredSize returns the number of bytes of backing memory Init needs for cfg.
// The result is a pure function of NumTaps and TapSize.
func RequiredSize(cfg *Config) (int, error) {
	if err := cfg.validate(); err != nil {
		return 0, err
	}
	a := measuringArena()
	if _, err := layoutState(a, cfg); err != nil {
		return 0, err
	}
	return a.size(), nil
}
