package services

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hydrosense/analytics/internal/config"
	"github.com/hydrosense/analytics/internal/domain/analytics"
)

// TimeSeriesService aggregates raw events from the collaborating sources
// into per-period series. Source failures degrade to empty series so one
// broken store never fails a whole request.
type TimeSeriesService struct {
	waterSource analytics.EventSource
	drinkSource analytics.EventSource
	goals       analytics.GoalService
	social      analytics.SocialService
	trend       *TrendAnalyzer
	cfg         config.AnalyticsConfig
	logger      *zap.Logger
}

// NewTimeSeriesService creates the aggregator.
func NewTimeSeriesService(
	waterSource analytics.EventSource,
	drinkSource analytics.EventSource,
	goals analytics.GoalService,
	social analytics.SocialService,
	trend *TrendAnalyzer,
	cfg config.AnalyticsConfig,
	logger *zap.Logger,
) *TimeSeriesService {
	return &TimeSeriesService{
		waterSource: waterSource,
		drinkSource: drinkSource,
		goals:       goals,
		social:      social,
		trend:       trend,
		cfg:         cfg,
		logger:      logger,
	}
}

// GenerateTimeSeries builds the aggregated series for one metric.
// Returns analytics.ErrInvalidTimeRange when start is after end; any other
// problem yields an empty series, never an error.
func (s *TimeSeriesService) GenerateTimeSeries(ctx context.Context, userID uuid.UUID, metric analytics.Metric, period analytics.Period, start, end time.Time) (*analytics.TimeSeries, error) {
	if start.After(end) {
		return nil, analytics.ErrInvalidTimeRange
	}

	var (
		points []analytics.DataPoint
		err    error
	)

	switch metric {
	case analytics.MetricWaterIntake:
		points, err = s.sumSeries(ctx, s.waterSource, userID, period, start, end)
	case analytics.MetricCaffeineIntake:
		points, err = s.sumSeries(ctx, s.drinkSource, userID, period, start, end)
	case analytics.MetricDrinkVariety:
		points, err = s.varietySeries(ctx, userID, period, start, end)
	case analytics.MetricGoalCompletion:
		points, err = s.goalCompletionSeries(ctx, userID, start, end)
	case analytics.MetricStreakPerformance:
		points, err = s.streakSeries(ctx, userID, start, end)
	case analytics.MetricSocialEngagement:
		points, err = s.engagementSeries(ctx, userID, start, end)
	default:
		s.logger.Warn("unknown metric requested",
			zap.String("metric", string(metric)),
			zap.String("user_id", userID.String()))
	}

	if err != nil {
		s.logger.Warn("event source failed, returning empty series",
			zap.String("metric", string(metric)),
			zap.String("user_id", userID.String()),
			zap.Error(err))
		points = nil
	}

	return s.buildSeries(metric, period, start, end, points), nil
}

// buildSeries computes whole-range statistics and the trend annotation.
func (s *TimeSeriesService) buildSeries(metric analytics.Metric, period analytics.Period, start, end time.Time, points []analytics.DataPoint) *analytics.TimeSeries {
	series := &analytics.TimeSeries{
		Metric:         metric,
		Period:         period,
		DataPoints:     points,
		StartDate:      start,
		EndDate:        end,
		TrendDirection: analytics.TrendStable,
	}

	if len(points) == 0 {
		return series
	}

	min := math.Inf(1)
	max := math.Inf(-1)
	var total float64
	for _, dp := range points {
		total += dp.Value
		if dp.Value < min {
			min = dp.Value
		}
		if dp.Value > max {
			max = dp.Value
		}
	}

	series.TotalValue = total
	series.AverageValue = total / float64(len(points))
	series.MinValue = min
	series.MaxValue = max
	series.TrendDirection, series.TrendPercentage = s.trend.Analyze(series.Values())
	return series
}

// sumSeries buckets event values by period and sums each bucket.
func (s *TimeSeriesService) sumSeries(ctx context.Context, source analytics.EventSource, userID uuid.UUID, period analytics.Period, start, end time.Time) ([]analytics.DataPoint, error) {
	events, err := s.fetchEvents(ctx, source, userID, start, end)
	if err != nil {
		return nil, err
	}

	sums := make(map[time.Time]float64)
	for _, ev := range events {
		sums[bucketStart(ev.Timestamp, period)] += ev.Value
	}
	return sortedPoints(sums), nil
}

// varietySeries counts distinct drink types per bucket.
func (s *TimeSeriesService) varietySeries(ctx context.Context, userID uuid.UUID, period analytics.Period, start, end time.Time) ([]analytics.DataPoint, error) {
	events, err := s.fetchEvents(ctx, s.drinkSource, userID, start, end)
	if err != nil {
		return nil, err
	}

	types := make(map[time.Time]map[string]struct{})
	for _, ev := range events {
		drinkType, _ := ev.Metadata["drink_type"].(string)
		if drinkType == "" {
			continue
		}
		bucket := bucketStart(ev.Timestamp, period)
		if types[bucket] == nil {
			types[bucket] = make(map[string]struct{})
		}
		types[bucket][drinkType] = struct{}{}
	}

	counts := make(map[time.Time]float64, len(types))
	for bucket, set := range types {
		counts[bucket] = float64(len(set))
	}
	return sortedPoints(counts), nil
}

// goalCompletionSeries is a dense daily series of intake versus the active
// daily goal, capped at 100%.
func (s *TimeSeriesService) goalCompletionSeries(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]analytics.DataPoint, error) {
	daily, err := s.dailyIntake(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	goal := s.dailyGoal(ctx, userID)

	var points []analytics.DataPoint
	for day := dayStart(start); !day.After(dayStart(end)); day = day.AddDate(0, 0, 1) {
		completion := math.Min(daily[day]/goal*100, 100)
		points = append(points, analytics.DataPoint{
			Timestamp: day,
			Value:     completion,
			Label:     day.Format("2006-01-02"),
		})
	}
	return points, nil
}

// streakSeries counts, for each day, the run of consecutive days up to and
// including it on which the daily goal was met.
func (s *TimeSeriesService) streakSeries(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]analytics.DataPoint, error) {
	daily, err := s.dailyIntake(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	goal := s.dailyGoal(ctx, userID)

	var points []analytics.DataPoint
	streak := 0.0
	for day := dayStart(start); !day.After(dayStart(end)); day = day.AddDate(0, 0, 1) {
		if daily[day] >= goal {
			streak++
		} else {
			streak = 0
		}
		points = append(points, analytics.DataPoint{
			Timestamp: day,
			Value:     streak,
			Label:     day.Format("2006-01-02"),
		})
	}
	return points, nil
}

// engagementSeries scores daily social activity: reactions x2, comments x3,
// own activity x5.
func (s *TimeSeriesService) engagementSeries(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]analytics.DataPoint, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SourceTimeout)
	defer cancel()

	events, err := s.social.ActivityEvents(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	scores := make(map[time.Time]float64)
	for _, ev := range events {
		day := dayStart(ev.CreatedAt)
		scores[day] += float64(ev.ReactionCnt)*2 + float64(ev.CommentCnt)*3
		if ev.ActorID == userID {
			scores[day] += 5
		}
	}

	var points []analytics.DataPoint
	for day := dayStart(start); !day.After(dayStart(end)); day = day.AddDate(0, 0, 1) {
		points = append(points, analytics.DataPoint{
			Timestamp: day,
			Value:     scores[day],
			Label:     day.Format("2006-01-02"),
		})
	}
	return points, nil
}

// dailyIntake sums water events per calendar day.
func (s *TimeSeriesService) dailyIntake(ctx context.Context, userID uuid.UUID, start, end time.Time) (map[time.Time]float64, error) {
	events, err := s.fetchEvents(ctx, s.waterSource, userID, start, end)
	if err != nil {
		return nil, err
	}

	daily := make(map[time.Time]float64)
	for _, ev := range events {
		daily[dayStart(ev.Timestamp)] += ev.Value
	}
	return daily, nil
}

// dailyGoal resolves the user's active daily water goal, falling back to the
// configured default when the goal service has none or fails.
func (s *TimeSeriesService) dailyGoal(ctx context.Context, userID uuid.UUID) float64 {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SourceTimeout)
	defer cancel()

	goal, err := s.goals.ActiveGoal(ctx, userID, "daily_water")
	if err != nil {
		s.logger.Warn("goal lookup failed, using default goal",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return s.cfg.DefaultDailyGoalML
	}
	if goal == nil || !goal.IsActive || goal.TargetValue <= 0 {
		return s.cfg.DefaultDailyGoalML
	}
	return goal.TargetValue
}

func (s *TimeSeriesService) fetchEvents(ctx context.Context, source analytics.EventSource, userID uuid.UUID, start, end time.Time) ([]analytics.MetricEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SourceTimeout)
	defer cancel()
	return source.Events(ctx, userID, start, end)
}

// bucketStart maps a timestamp to its period bucket in UTC. Weekly buckets
// are Monday-aligned; quarterly and yearly reuse monthly buckets to keep
// point counts manageable over long ranges.
func bucketStart(t time.Time, period analytics.Period) time.Time {
	switch period {
	case analytics.PeriodWeekly:
		day := dayStart(t)
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case analytics.PeriodMonthly, analytics.PeriodQuarterly, analytics.PeriodYearly:
		t = t.UTC()
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return dayStart(t)
	}
}

// dayStart truncates to the UTC calendar day. Sources may report timestamps
// in any zone; normalizing here keeps bucket keys comparable with the UTC
// request range.
func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// sortedPoints converts a bucket map into ascending data points.
func sortedPoints(buckets map[time.Time]float64) []analytics.DataPoint {
	keys := make([]time.Time, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	points := make([]analytics.DataPoint, 0, len(keys))
	for _, k := range keys {
		points = append(points, analytics.DataPoint{
			Timestamp: k,
			Value:     buckets[k],
			Label:     k.Format("2006-01-02"),
		})
	}
	return points
}
