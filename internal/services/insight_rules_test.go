package services

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydrosense/analytics/internal/domain/analytics"
)

// fullSeries builds a daily series with aggregates and trend populated, the
// way the aggregator would.
func fullSeries(metric analytics.Metric, base time.Time, values []float64) *analytics.TimeSeries {
	s := seriesFrom(metric, base, values)
	if len(values) == 0 {
		return s
	}

	min := math.Inf(1)
	max := math.Inf(-1)
	var total float64
	for _, v := range values {
		total += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	s.TotalValue = total
	s.AverageValue = total / float64(len(values))
	s.MinValue = min
	s.MaxValue = max
	s.TrendDirection, s.TrendPercentage = newTestAnalyzer().Analyze(values)
	return s
}

func ruleInput(series ...*analytics.TimeSeries) RuleInput {
	in := RuleInput{
		Series: make(map[analytics.Metric]*analytics.TimeSeries),
		Now:    time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
	}
	for _, s := range series {
		in.Metrics = append(in.Metrics, s.Metric)
		in.Series[s.Metric] = s
	}
	return in
}

func TestTrendRule_PositiveTrend(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s := fullSeries(analytics.MetricWaterIntake, base, []float64{1000, 1100, 1200, 1300})

	out := trendRule{}.Evaluate(ruleInput(s))

	require.Len(t, out, 1)
	assert.Equal(t, analytics.InsightPositive, out[0].Type)
	assert.Equal(t, 0.9, out[0].Confidence)
	assert.Equal(t, analytics.MetricWaterIntake, out[0].Metric)
}

func TestTrendRule_DecliningTrend(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s := fullSeries(analytics.MetricWaterIntake, base, []float64{2000, 1800, 1600, 1400})

	out := trendRule{}.Evaluate(ruleInput(s))

	require.Len(t, out, 1)
	assert.Equal(t, analytics.InsightWarning, out[0].Type)
	assert.Equal(t, 0.85, out[0].Confidence)
	assert.NotEmpty(t, out[0].ActionItems)
}

func TestTrendRule_SmallChangeIgnored(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s := fullSeries(analytics.MetricWaterIntake, base, []float64{1000, 1020, 1050})

	out := trendRule{}.Evaluate(ruleInput(s))

	assert.Empty(t, out)
}

func TestConsistencyRule(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	steady := fullSeries(analytics.MetricWaterIntake, base,
		[]float64{2000, 2050, 1980, 2020, 2000, 1990, 2030})

	out := consistencyRule{}.Evaluate(ruleInput(steady))

	require.Len(t, out, 1)
	assert.Equal(t, 0.8, out[0].Confidence)
}

func TestConsistencyRule_TooFewPoints(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s := fullSeries(analytics.MetricWaterIntake, base, []float64{2000, 2000, 2000})

	out := consistencyRule{}.Evaluate(ruleInput(s))

	assert.Empty(t, out)
}

func TestGoalGapRule_HighCompletion(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s := fullSeries(analytics.MetricGoalCompletion, base, []float64{95, 92, 98})

	out := goalGapRule{}.Evaluate(ruleInput(s))

	require.Len(t, out, 1)
	assert.Equal(t, analytics.InsightAchievement, out[0].Type)
	assert.Equal(t, 0.95, out[0].Confidence)
}

func TestGoalGapRule_LowCompletion(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s := fullSeries(analytics.MetricGoalCompletion, base, []float64{60, 55, 65})

	out := goalGapRule{}.Evaluate(ruleInput(s))

	require.Len(t, out, 1)
	assert.Equal(t, analytics.InsightRecommendation, out[0].Type)
	assert.Equal(t, 0.8, out[0].Confidence)
	assert.NotEmpty(t, out[0].ActionItems)
}

func TestGoalGapRule_MiddlingCompletionProducesNothing(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s := fullSeries(analytics.MetricGoalCompletion, base, []float64{80, 78, 82})

	out := goalGapRule{}.Evaluate(ruleInput(s))

	assert.Empty(t, out)
}

func TestEngagementRule(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	high := fullSeries(analytics.MetricSocialEngagement, base, []float64{25, 30, 22})
	out := engagementRule{}.Evaluate(ruleInput(high))
	require.Len(t, out, 1)
	assert.Equal(t, analytics.InsightPositive, out[0].Type)

	low := fullSeries(analytics.MetricSocialEngagement, base, []float64{1, 2, 3})
	out = engagementRule{}.Evaluate(ruleInput(low))
	require.Len(t, out, 1)
	assert.Equal(t, analytics.InsightRecommendation, out[0].Type)
	assert.Equal(t, 0.7, out[0].Confidence)

	mid := fullSeries(analytics.MetricSocialEngagement, base, []float64{10, 12, 8})
	assert.Empty(t, engagementRule{}.Evaluate(ruleInput(mid)))
}

func TestCrossMetricRule(t *testing.T) {
	in := ruleInput()
	in.Correlations = []analytics.Correlation{
		{
			MetricX:     analytics.MetricWaterIntake,
			MetricY:     analytics.MetricGoalCompletion,
			Coefficient: 0.9,
			Description: "strong positive correlation",
		},
		{
			MetricX:     analytics.MetricWaterIntake,
			MetricY:     analytics.MetricCaffeineIntake,
			Coefficient: 0.2,
			Description: "weak positive correlation",
		},
	}

	out := crossMetricRule{}.Evaluate(in)

	require.Len(t, out, 1)
	assert.Equal(t, analytics.InsightNeutral, out[0].Type)
	assert.Equal(t, 0.75, out[0].Confidence)
}

func TestWeekdayPatternRule(t *testing.T) {
	// Two full weeks starting Monday 2026-08-03, Fridays clearly strongest.
	base := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	values := []float64{
		1000, 1000, 1000, 1000, 2000, 1000, 1000,
		1000, 1000, 1000, 1000, 2000, 1000, 1000,
	}
	s := fullSeries(analytics.MetricWaterIntake, base, values)

	out := weekdayPatternRule{}.Evaluate(ruleInput(s))

	require.Len(t, out, 1)
	assert.Equal(t, analytics.InsightNeutral, out[0].Type)
	assert.Equal(t, "Friday", out[0].RelatedData["best_day"])
}

func TestWeekdayPatternRule_UnderSevenPoints(t *testing.T) {
	// Five weekdays with a clear standout is still too little data.
	base := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	values := []float64{2000, 1000, 1000, 1000, 1000}
	s := fullSeries(analytics.MetricWaterIntake, base, values)

	out := weekdayPatternRule{}.Evaluate(ruleInput(s))

	assert.Empty(t, out)
}

func TestWeekdayPatternRule_NoStandout(t *testing.T) {
	base := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	values := []float64{1000, 1010, 990, 1000, 1005, 995, 1000}
	s := fullSeries(analytics.MetricWaterIntake, base, values)

	out := weekdayPatternRule{}.Evaluate(ruleInput(s))

	assert.Empty(t, out)
}
