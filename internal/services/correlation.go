package services

import (
	"fmt"
	"math"

	"github.com/hydrosense/analytics/internal/domain/analytics"
)

// minCorrelationSamples is the smallest number of aligned pairs worth
// correlating; anything below reports no correlation.
const minCorrelationSamples = 3

// CorrelationEngine computes pairwise Pearson correlations between metric
// series aligned on exact timestamps.
type CorrelationEngine struct{}

// NewCorrelationEngine returns a ready engine.
func NewCorrelationEngine() *CorrelationEngine {
	return &CorrelationEngine{}
}

// Correlate aligns the two series on matching timestamps and returns the
// Pearson correlation. Degenerate inputs (too few pairs, zero variance)
// produce a zero coefficient with a descriptive label, never an error.
func (e *CorrelationEngine) Correlate(x, y *analytics.TimeSeries) analytics.Correlation {
	result := analytics.Correlation{
		MetricX: x.Metric,
		MetricY: y.Metric,
	}

	xs, ys := alignSeries(x, y)
	result.SampleSize = len(xs)

	if len(xs) < minCorrelationSamples {
		result.Description = "insufficient data for correlation"
		return result
	}

	r, ok := pearson(xs, ys)
	if !ok {
		result.Description = "insufficient variance for correlation"
		return result
	}

	result.Coefficient = r
	result.PValue, result.IsSignificant = approxSignificance(r, len(xs))
	result.Description = describeCorrelation(r)
	return result
}

// CorrelatePairs runs Correlate over every unordered pair of series, in
// metric-slice order so output is deterministic.
func (e *CorrelationEngine) CorrelatePairs(order []analytics.Metric, series map[analytics.Metric]*analytics.TimeSeries) []analytics.Correlation {
	var out []analytics.Correlation
	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			sx, okX := series[order[i]]
			sy, okY := series[order[j]]
			if !okX || !okY {
				continue
			}
			out = append(out, e.Correlate(sx, sy))
		}
	}
	return out
}

// alignSeries pairs values whose timestamps match the same instant. Keys
// are Unix nanoseconds so the location a timestamp carries cannot break
// equality.
func alignSeries(x, y *analytics.TimeSeries) ([]float64, []float64) {
	byTime := make(map[int64]float64, len(y.DataPoints))
	for _, dp := range y.DataPoints {
		byTime[dp.Timestamp.UnixNano()] = dp.Value
	}

	var xs, ys []float64
	for _, dp := range x.DataPoints {
		if v, ok := byTime[dp.Timestamp.UnixNano()]; ok {
			xs = append(xs, dp.Value)
			ys = append(ys, v)
		}
	}
	return xs, ys
}

// pearson returns the correlation coefficient, clamped to [-1, 1].
// ok is false when either side has zero variance.
func pearson(xs, ys []float64) (float64, bool) {
	n := float64(len(xs))
	var sumX, sumY, sumXY, sumXX, sumYY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
		sumYY += ys[i] * ys[i]
	}

	varX := n*sumXX - sumX*sumX
	varY := n*sumYY - sumY*sumY
	if varX <= 0 || varY <= 0 {
		return 0, false
	}

	r := (n*sumXY - sumX*sumY) / math.Sqrt(varX*varY)
	return math.Max(-1, math.Min(1, r)), true
}

// approxSignificance derives a rough two-sided p-value from the t-statistic.
// This is a heuristic flag, not a rigorous test; perfect correlation is
// treated as significant outright.
func approxSignificance(r float64, n int) (float64, bool) {
	denom := 1 - r*r
	if denom <= 0 {
		return 0, true
	}

	t := math.Abs(r) * math.Sqrt(float64(n-2)/denom)
	p := 2 * (1 - t/math.Sqrt(float64(n-2)+t*t))
	if p < 0 {
		p = 0
	}
	return p, p < 0.05
}

func describeCorrelation(r float64) string {
	abs := math.Abs(r)
	strength := "weak"
	switch {
	case abs > 0.8:
		strength = "strong"
	case abs > 0.5:
		strength = "moderate"
	}

	direction := "positive"
	if r < 0 {
		direction = "negative"
	}

	return fmt.Sprintf("%s %s correlation", strength, direction)
}
