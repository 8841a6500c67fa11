package analytics

// DailyWork turns a burndown curve into per-day deltas of remaining work.
// A curve of n points yields n-1 deltas.
func DailyWork(points []BurndownPoint) []float64 {
	if len(points) < 2 {
		return nil
	}
	work := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		work = append(work, points[i-1].Remaining-points[i].Remaining)
	}
	return work
}

// ClassifyPattern labels daily work using the default thresholds.
func ClassifyPattern(dailyWork []float64) Pattern {
	return DefaultPolicy().ClassifyPattern(dailyWork)
}

// ClassifyPattern labels daily work. Rules are tested in order:
// low variance, a dominant peak, then the trend between first and last day.
func (p Policy) ClassifyPattern(dailyWork []float64) Pattern {
	n := len(dailyWork)
	if n == 0 {
		return PatternConsistent
	}

	var sum, peak float64
	for i, w := range dailyWork {
		sum += w
		if i == 0 || w > peak {
			peak = w
		}
	}
	mean := sum / float64(n)

	var variance float64
	for _, w := range dailyWork {
		d := w - mean
		variance += d * d
	}
	variance /= float64(n)

	first, last := dailyWork[0], dailyWork[n-1]
	switch {
	case variance < p.ConsistentVarianceRatio*mean:
		return PatternConsistent
	case peak > p.BurstyPeakRatio*mean:
		return PatternBursty
	case last > first:
		return PatternAccelerating
	case last < first:
		return PatternDecelerating
	default:
		return PatternConsistent
	}
}
