package indicators

// SMASeries computes the simple moving average of values for the given
// period. Entries before index period-1 are NaN.
func SMASeries(values []float64, period int) ([]float64, error) {
	if err := checkPeriod(len(values), period, "SMA"); err != nil {
		return nil, err
	}
	out := nanSeries(len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out, nil
}

// EMASeries computes the exponential moving average of values for the given
// period, seeded with the SMA of the first period values. Entries before
// index period-1 are NaN.
func EMASeries(values []float64, period int) ([]float64, error) {
	if err := checkPeriod(len(values), period, "EMA"); err != nil {
		return nil, err
	}
	out := nanSeries(len(values))
	if len(values) < period {
		return out, nil
	}

	var seed float64
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	ema := seed / float64(period)
	out[period-1] = ema

	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		out[i] = ema
	}
	return out, nil
}

// SMA returns the latest simple moving average value of the series.
func SMA(values []float64, period int) (float64, error) {
	s, err := SMASeries(values, period)
	if err != nil {
		return 0, err
	}
	last := s[len(s)-1]
	if !Valid(last) {
		return 0, errNotEnoughData("SMA", len(values), period)
	}
	return last, nil
}

// EMA returns the latest exponential moving average value of the series.
func EMA(values []float64, period int) (float64, error) {
	s, err := EMASeries(values, period)
	if err != nil {
		return 0, err
	}
	last := s[len(s)-1]
	if !Valid(last) {
		return 0, errNotEnoughData("EMA", len(values), period)
	}
	return last, nil
}
