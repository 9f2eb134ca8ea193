package services

import (
	"math"

	"github.com/hydrosense/analytics/internal/domain/analytics"
)

// TrendAnalyzer classifies a series' movement from a least-squares slope,
// with a volatility override for noisy series.
type TrendAnalyzer struct {
	// Sensitivity is the minimum absolute slope treated as a trend.
	Sensitivity float64
	// VolatilityThreshold is the coefficient-of-variation cutoff.
	VolatilityThreshold float64
}

// NewTrendAnalyzer returns an analyzer with the given thresholds.
func NewTrendAnalyzer(sensitivity, volatilityThreshold float64) *TrendAnalyzer {
	return &TrendAnalyzer{
		Sensitivity:         sensitivity,
		VolatilityThreshold: volatilityThreshold,
	}
}

// Analyze returns the trend direction and the percentage change from the
// first to the last value. Fewer than two points is stable with 0 change.
func (a *TrendAnalyzer) Analyze(values []float64) (analytics.TrendDirection, float64) {
	if len(values) < 2 {
		return analytics.TrendStable, 0
	}

	first := values[0]
	last := values[len(values)-1]
	pct := 0.0
	if first != 0 {
		pct = (last - first) / first * 100
	}

	slope := regressionSlope(values)

	// Stable only when |slope| is strictly below the sensitivity cutoff.
	direction := analytics.TrendStable
	switch {
	case slope >= a.Sensitivity:
		direction = analytics.TrendIncreasing
	case slope <= -a.Sensitivity:
		direction = analytics.TrendDecreasing
	}

	// Noisy series override the slope classification.
	if len(values) >= 5 {
		mean, stddev := meanStddev(values)
		if mean > 0 && stddev/mean > a.VolatilityThreshold {
			direction = analytics.TrendVolatile
		}
	}

	return direction, pct
}

// regressionSlope fits value against point index by ordinary least squares.
func regressionSlope(values []float64) float64 {
	n := float64(len(values))
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// meanStddev returns the mean and sample standard deviation.
func meanStddev(values []float64) (float64, float64) {
	n := float64(len(values))
	if n == 0 {
		return 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n

	if n < 2 {
		return mean, 0
	}

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / (n - 1))
}
