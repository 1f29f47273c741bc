package indicators

import "math"

// StochasticSeries computes the stochastic oscillator %K and %D series.
// %K = 100 * (close - lowestLow) / (highestHigh - lowestLow) over period,
// smoothed by smoothK; %D is the smoothD-period SMA of %K.
func StochasticSeries(highs, lows, closes []float64, period, smoothK, smoothD int) (k, d []float64, err error) {
	if err := checkPeriod(len(closes), period, "stochastic"); err != nil {
		return nil, nil, err
	}
	if len(highs) != len(closes) || len(lows) != len(closes) {
		return nil, nil, errNotEnoughData("stochastic", len(highs), period)
	}
	if smoothK <= 0 {
		smoothK = 1
	}
	if smoothD <= 0 {
		smoothD = 3
	}

	raw := nanSeries(len(closes))
	for i := period - 1; i < len(closes); i++ {
		hh := math.Inf(-1)
		ll := math.Inf(1)
		for j := i - period + 1; j <= i; j++ {
			if highs[j] > hh {
				hh = highs[j]
			}
			if lows[j] < ll {
				ll = lows[j]
			}
		}
		if hh == ll {
			raw[i] = 50 // flat window, neutral
			continue
		}
		raw[i] = 100 * (closes[i] - ll) / (hh - ll)
	}

	k = smoothNaN(raw, smoothK)
	d = smoothNaN(k, smoothD)
	return k, d, nil
}

// smoothNaN applies an SMA over a series that may lead with NaNs, producing
// output only once the full window is valid.
func smoothNaN(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period == 1 {
		copy(out, values)
		return out
	}
	for i := period - 1; i < len(values); i++ {
		sum := 0.0
		ok := true
		for j := i - period + 1; j <= i; j++ {
			if !Valid(values[j]) {
				ok = false
				break
			}
			sum += values[j]
		}
		if ok {
			out[i] = sum / float64(period)
		}
	}
	return out
}
