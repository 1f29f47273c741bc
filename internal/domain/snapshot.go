package domain

import "time"

// Well-known oscillator keys. The snapshot builder populates these; the
// scoring and gating components look them up by name and fall back to a
// neutral default when a key is absent.
const (
	OscRSI          = "rsi_14"
	OscRSIFast      = "rsi_7"
	OscStochK       = "stoch_k"
	OscStochD       = "stoch_d"
	OscBandWidth    = "band_width"
	OscBandPosition = "band_position"
	OscVolumeRatio  = "volume_ratio"
)

// RibbonLine is one moving-average line of the ribbon, tagged with its
// smoothing period and a color derived from price position.
type RibbonLine struct {
	Period int
	Value  float64
	Color  RibbonColor
}

// Snapshot is the immutable per-candle record the engine consumes: OHLCV,
// precomputed oscillator/band values, a volume classification and the
// ribbon-line list. It is produced once per time step by the snapshot
// builder (or an external provider) and never mutated afterwards.
type Snapshot struct {
	Timestamp    time.Time
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       float64
	Oscillators  map[string]float64
	VolumeStatus VolumeStatus
	Ribbon       []RibbonLine
}

// Oscillator looks up a named oscillator/band value. The second return
// reports whether the value is present; callers degrade to their neutral
// default when it is not.
func (s *Snapshot) Oscillator(name string) (float64, bool) {
	if s.Oscillators == nil {
		return 0, false
	}
	v, ok := s.Oscillators[name]
	return v, ok
}

// OscillatorOr returns the named value or the given default when absent.
func (s *Snapshot) OscillatorOr(name string, def float64) float64 {
	if v, ok := s.Oscillator(name); ok {
		return v
	}
	return def
}
