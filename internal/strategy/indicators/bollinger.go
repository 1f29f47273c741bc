package indicators

import "math"

// BollingerSeries computes band width and band position series from closes.
// Width is (upper-lower)/middle expressed in percent; position is where the
// close sits between the bands, 0 at the lower band and 1 at the upper
// (values outside [0,1] mean the close escaped the bands).
func BollingerSeries(closes []float64, period int, stdDevs float64) (width, position []float64, err error) {
	if err := checkPeriod(len(closes), period, "bollinger"); err != nil {
		return nil, nil, err
	}
	if stdDevs <= 0 {
		stdDevs = 2
	}

	width = nanSeries(len(closes))
	position = nanSeries(len(closes))

	for i := period - 1; i < len(closes); i++ {
		var sum float64
		for j := i - period + 1; j <= i; j++ {
			sum += closes[j]
		}
		mean := sum / float64(period)

		var variance float64
		for j := i - period + 1; j <= i; j++ {
			d := closes[j] - mean
			variance += d * d
		}
		sd := math.Sqrt(variance / float64(period))

		upper := mean + stdDevs*sd
		lower := mean - stdDevs*sd
		if mean != 0 {
			width[i] = (upper - lower) / mean * 100
		}
		if upper != lower {
			position[i] = (closes[i] - lower) / (upper - lower)
		} else {
			position[i] = 0.5 // zero-variance window, neutral
		}
	}
	return width, position, nil
}
