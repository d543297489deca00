// internal/impulse/batch.go
package impulse

// DetectRecording runs a fresh detector over samples in consecutive TapSize
// chunks, dropping any shorter trailing remainder. Hit indices are written to
// positions until it is full; further hits are still counted in the returned
// total.
func DetectRecording(samples []int16, cfg *Config, positions []int64) (int, error) {
	if samples == nil {
		return 0, ErrInvalidArgument
	}
	needed, err := RequiredSize(cfg)
	if err != nil {
		return 0, err
	}
	d, err := Init(make([]byte, needed), cfg)
	if err != nil {
		return 0, err
	}
	defer d.Deinit()

	tapSize := int(cfg.TapSize)
	hits := 0
	for i := 0; i+tapSize <= len(samples); i += tapSize {
		res, err := d.FeedBlock(samples[i:i+tapSize], int64(i))
		if err != nil {
			return hits, err
		}
		if !res.Hit {
			continue
		}
		if hits < len(positions) {
			positions[hits] = res.PeakIndex
		}
		hits++
	}
	return hits, nil
}
