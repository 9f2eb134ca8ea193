package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hydrosense/analytics/internal/domain/analytics"
)

// RuleInput is everything a rule may inspect: the computed series keyed by
// metric, the order metrics were requested in, and pairwise correlations.
type RuleInput struct {
	Metrics      []analytics.Metric
	Series       map[analytics.Metric]*analytics.TimeSeries
	Correlations []analytics.Correlation
	Now          time.Time
}

// InsightRule produces zero or more insights from the rule input. Rules are
// independent; registration order fixes evaluation order.
type InsightRule interface {
	Name() string
	Evaluate(input RuleInput) []analytics.Insight
}

// DefaultRules is the standard rule set in its fixed evaluation order.
func DefaultRules() []InsightRule {
	return []InsightRule{
		trendRule{},
		consistencyRule{},
		goalGapRule{},
		engagementRule{},
		crossMetricRule{},
		weekdayPatternRule{},
	}
}

func metricTitle(m analytics.Metric) string {
	parts := strings.Split(string(m), "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

func newInsight(t analytics.InsightType, metric analytics.Metric, title, description string, confidence float64, now time.Time) analytics.Insight {
	return analytics.Insight{
		ID:          uuid.New(),
		Type:        t,
		Title:       title,
		Description: description,
		Metric:      metric,
		Confidence:  confidence,
		CreatedAt:   now,
	}
}

// trendRule flags strong movement in either direction.
type trendRule struct{}

func (trendRule) Name() string { return "trend" }

func (trendRule) Evaluate(in RuleInput) []analytics.Insight {
	var out []analytics.Insight
	for _, m := range in.Metrics {
		s, ok := in.Series[m]
		if !ok || len(s.DataPoints) == 0 {
			continue
		}
		switch {
		case s.TrendPercentage > 10:
			ins := newInsight(analytics.InsightPositive, m,
				fmt.Sprintf("%s Trending Up", metricTitle(m)),
				fmt.Sprintf("Your %s has increased by %.1f%% over this period. Keep up the great work!",
					strings.ReplaceAll(string(m), "_", " "), s.TrendPercentage),
				0.9, in.Now)
			ins.RelatedData = map[string]interface{}{"trend_percentage": s.TrendPercentage}
			out = append(out, ins)
		case s.TrendPercentage < -10:
			ins := newInsight(analytics.InsightWarning, m,
				fmt.Sprintf("%s Declining", metricTitle(m)),
				fmt.Sprintf("Your %s has decreased by %.1f%% over this period. Consider setting reminders to stay on track.",
					strings.ReplaceAll(string(m), "_", " "), math.Abs(s.TrendPercentage)),
				0.85, in.Now)
			ins.RelatedData = map[string]interface{}{"trend_percentage": s.TrendPercentage}
			ins.ActionItems = []string{"Set daily reminders", "Review your recent routine"}
			out = append(out, ins)
		}
	}
	return out
}

// consistencyRule rewards low day-to-day variation.
type consistencyRule struct{}

func (consistencyRule) Name() string { return "consistency" }

func (consistencyRule) Evaluate(in RuleInput) []analytics.Insight {
	var out []analytics.Insight
	for _, m := range in.Metrics {
		s, ok := in.Series[m]
		if !ok || len(s.DataPoints) < 7 {
			continue
		}
		mean, stddev := meanStddev(s.Values())
		if mean <= 0 {
			continue
		}
		consistency := 1 - stddev/mean
		if consistency > 0.8 {
			ins := newInsight(analytics.InsightPositive, m,
				fmt.Sprintf("Consistent %s", metricTitle(m)),
				fmt.Sprintf("Your %s has been remarkably consistent. Consistency is key to building lasting habits.",
					strings.ReplaceAll(string(m), "_", " ")),
				0.8, in.Now)
			ins.RelatedData = map[string]interface{}{"consistency_score": consistency}
			out = append(out, ins)
		}
	}
	return out
}

// goalGapRule reacts to goal completion at the extremes only; middling
// completion produces nothing.
type goalGapRule struct{}

func (goalGapRule) Name() string { return "goal_gap" }

func (goalGapRule) Evaluate(in RuleInput) []analytics.Insight {
	s, ok := in.Series[analytics.MetricGoalCompletion]
	if !ok || len(s.DataPoints) == 0 {
		return nil
	}

	avg := s.AverageValue
	switch {
	case avg >= 90:
		ins := newInsight(analytics.InsightAchievement, analytics.MetricGoalCompletion,
			"Hydration Goal Champion",
			fmt.Sprintf("You've met %.0f%% of your hydration goal on average. Outstanding commitment!", avg),
			0.95, in.Now)
		ins.RelatedData = map[string]interface{}{"average_completion": avg}
		return []analytics.Insight{ins}
	case avg < 70:
		ins := newInsight(analytics.InsightRecommendation, analytics.MetricGoalCompletion,
			"Room to Improve Hydration",
			fmt.Sprintf("You're averaging %.0f%% of your hydration goal. Small, regular sips throughout the day add up.", avg),
			0.8, in.Now)
		ins.RelatedData = map[string]interface{}{"average_completion": avg}
		ins.ActionItems = []string{"Keep a water bottle within reach", "Drink a glass of water with each meal"}
		return []analytics.Insight{ins}
	}
	return nil
}

// engagementRule reacts to social activity levels.
type engagementRule struct{}

func (engagementRule) Name() string { return "engagement" }

func (engagementRule) Evaluate(in RuleInput) []analytics.Insight {
	s, ok := in.Series[analytics.MetricSocialEngagement]
	if !ok || len(s.DataPoints) == 0 {
		return nil
	}

	avg := s.AverageValue
	switch {
	case avg > 20:
		ins := newInsight(analytics.InsightPositive, analytics.MetricSocialEngagement,
			"Community Star",
			"You're highly engaged with the community. Social support makes habits stick.",
			0.85, in.Now)
		ins.RelatedData = map[string]interface{}{"average_engagement": avg}
		return []analytics.Insight{ins}
	case avg < 5:
		ins := newInsight(analytics.InsightRecommendation, analytics.MetricSocialEngagement,
			"Connect With Others",
			"Joining challenges and cheering on friends can boost your own consistency.",
			0.7, in.Now)
		ins.RelatedData = map[string]interface{}{"average_engagement": avg}
		ins.ActionItems = []string{"Join an active challenge", "React to a friend's progress"}
		return []analytics.Insight{ins}
	}
	return nil
}

// crossMetricRule surfaces notable correlations between metric pairs.
type crossMetricRule struct{}

func (crossMetricRule) Name() string { return "cross_metric" }

func (crossMetricRule) Evaluate(in RuleInput) []analytics.Insight {
	var out []analytics.Insight
	for _, c := range in.Correlations {
		if math.Abs(c.Coefficient) <= 0.6 {
			continue
		}
		relation := "rises"
		if c.Coefficient < 0 {
			relation = "falls"
		}
		ins := newInsight(analytics.InsightNeutral, c.MetricX,
			"Connected Habits",
			fmt.Sprintf("When your %s goes up, your %s %s too (%s).",
				strings.ReplaceAll(string(c.MetricX), "_", " "),
				strings.ReplaceAll(string(c.MetricY), "_", " "),
				relation, c.Description),
			0.75, in.Now)
		ins.RelatedData = map[string]interface{}{
			"metric_x":    string(c.MetricX),
			"metric_y":    string(c.MetricY),
			"coefficient": c.Coefficient,
		}
		out = append(out, ins)
	}
	return out
}

// weekdayPatternRule finds a standout weekday when enough distinct weekdays
// are represented and the best clearly beats the worst.
type weekdayPatternRule struct{}

func (weekdayPatternRule) Name() string { return "weekday_pattern" }

func (weekdayPatternRule) Evaluate(in RuleInput) []analytics.Insight {
	var out []analytics.Insight
	for _, m := range in.Metrics {
		s, ok := in.Series[m]
		if !ok || s.Period != analytics.PeriodDaily || len(s.DataPoints) < 7 {
			continue
		}

		sums := make(map[time.Weekday]float64)
		counts := make(map[time.Weekday]int)
		for _, dp := range s.DataPoints {
			wd := dp.Timestamp.Weekday()
			sums[wd] += dp.Value
			counts[wd]++
		}
		if len(counts) < 5 {
			continue
		}

		var bestDay, worstDay time.Weekday
		best := math.Inf(-1)
		worst := math.Inf(1)
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			n, ok := counts[wd]
			if !ok {
				continue
			}
			avg := sums[wd] / float64(n)
			if avg > best {
				best, bestDay = avg, wd
			}
			if avg < worst {
				worst, worstDay = avg, wd
			}
		}

		if worst > 0 && best >= 1.3*worst {
			ins := newInsight(analytics.InsightNeutral, m,
				fmt.Sprintf("%s Peaks on %s", metricTitle(m), bestDay.String()),
				fmt.Sprintf("Your %s is strongest on %ss and weakest on %ss.",
					strings.ReplaceAll(string(m), "_", " "), bestDay.String(), worstDay.String()),
				0.7, in.Now)
			ins.RelatedData = map[string]interface{}{
				"best_day":  bestDay.String(),
				"worst_day": worstDay.String(),
			}
			out = append(out, ins)
		}
	}
	return out
}
