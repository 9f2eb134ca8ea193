package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/hydrosense/analytics/internal/config"
	"github.com/hydrosense/analytics/internal/domain/analytics"
)

var (
	dashboardsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hydrosense_dashboards_generated_total",
		Help: "Number of dashboards composed (cache misses).",
	})
	dashboardCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hydrosense_dashboard_cache_hits_total",
		Help: "Number of dashboard requests served from cache.",
	})
	insightsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hydrosense_insights_emitted_total",
		Help: "Number of insights returned to callers.",
	})
	seriesFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hydrosense_series_failures_total",
		Help: "Number of per-metric series computations dropped from a request.",
	})
)

var chartColors = map[analytics.Metric]string{
	analytics.MetricWaterIntake:       "#2196F3",
	analytics.MetricGoalCompletion:    "#4CAF50",
	analytics.MetricStreakPerformance: "#FF9800",
	analytics.MetricCaffeineIntake:    "#795548",
	analytics.MetricDrinkVariety:      "#9C27B0",
	analytics.MetricSocialEngagement:  "#E91E63",
}

// AnalyticsService orchestrates aggregation, correlation, insight synthesis
// and dashboard composition behind the analytics.Service interface.
type AnalyticsService struct {
	timeseries   *TimeSeriesService
	correlations *CorrelationEngine
	insights     *InsightService
	insightLog   analytics.InsightLog
	cache        analytics.DashboardCache
	social       analytics.SocialService
	cfg          config.AnalyticsConfig
	logger       *zap.Logger
	now          func() time.Time
}

// NewAnalyticsService wires the orchestrator.
func NewAnalyticsService(
	timeseries *TimeSeriesService,
	correlations *CorrelationEngine,
	insights *InsightService,
	insightLog analytics.InsightLog,
	cache analytics.DashboardCache,
	social analytics.SocialService,
	cfg config.AnalyticsConfig,
	logger *zap.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		timeseries:   timeseries,
		correlations: correlations,
		insights:     insights,
		insightLog:   insightLog,
		cache:        cache,
		social:       social,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// GenerateTimeSeries exposes the aggregator directly.
func (s *AnalyticsService) GenerateTimeSeries(ctx context.Context, userID uuid.UUID, metric analytics.Metric, period analytics.Period, start, end time.Time) (*analytics.TimeSeries, error) {
	return s.timeseries.GenerateTimeSeries(ctx, userID, metric, period, start, end)
}

// GenerateAnalytics computes series for every requested metric, plus
// correlations and, when asked, comparisons and insights.
func (s *AnalyticsService) GenerateAnalytics(ctx context.Context, userID uuid.UUID, req analytics.AnalyticsRequest) (*analytics.AnalyticsResponse, error) {
	start, end := analytics.DefaultRange(req.Period, req.StartDate, req.EndDate, s.now().UTC())
	if start.After(end) {
		return nil, analytics.ErrInvalidTimeRange
	}

	metrics := req.Metrics
	if len(metrics) == 0 {
		return nil, analytics.ErrInvalidMetric
	}

	series, ordered := s.computeSeries(ctx, userID, metrics, req.Period, start, end)

	resp := &analytics.AnalyticsResponse{
		RequestID:   uuid.New(),
		UserID:      userID,
		TimeSeries:  ordered,
		GeneratedAt: s.now().UTC(),
	}

	resp.Correlations = s.correlations.CorrelatePairs(metrics, series)

	if req.IncludeComparisons {
		for _, m := range metrics {
			if ts, ok := series[m]; ok && len(ts.DataPoints) > 0 {
				resp.Comparisons = append(resp.Comparisons, syntheticComparison(ts))
			}
		}
	}

	if req.IncludeInsights {
		insights, err := s.insights.GenerateInsights(ctx, userID, series, resp.Correlations)
		if err != nil {
			return nil, fmt.Errorf("failed to generate insights: %w", err)
		}
		resp.Insights = insights
		insightsEmitted.Add(float64(len(insights)))
	}

	return resp, nil
}

// GenerateDashboard composes (or fetches from cache) the full dashboard.
func (s *AnalyticsService) GenerateDashboard(ctx context.Context, userID uuid.UUID, req analytics.DashboardRequest) (*analytics.Dashboard, error) {
	start, end := analytics.DefaultRange(req.Period, req.StartDate, req.EndDate, s.now().UTC())
	if start.After(end) {
		return nil, analytics.ErrInvalidTimeRange
	}

	metrics := req.Metrics
	if len(metrics) == 0 {
		metrics = analytics.DefaultDashboardMetrics
	}

	var cacheKey string
	if s.cache != nil {
		cacheKey = s.cache.Key(userID, req, start, end)
		if cached, ok := s.cache.Get(ctx, cacheKey); ok {
			dashboardCacheHits.Inc()
			return cached, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestDeadline)
	defer cancel()

	series, _ := s.computeSeries(ctx, userID, metrics, req.Period, start, end)

	correlations := s.correlations.CorrelatePairs(metrics, series)
	insights, err := s.insights.GenerateInsights(ctx, userID, series, correlations)
	if err != nil {
		return nil, fmt.Errorf("failed to generate insights: %w", err)
	}
	insightsEmitted.Add(float64(len(insights)))

	dashboard := &analytics.Dashboard{
		UserID:      userID,
		DashboardID: uuid.New(),
		Title:       "Hydration Analytics",
		Description: fmt.Sprintf("Your %s hydration overview", req.Period),
		Period:      req.Period,
		StartDate:   start,
		EndDate:     end,
		KeyMetrics:  make(map[analytics.Metric]float64, len(metrics)),
		GeneratedAt: s.now().UTC(),
	}

	for _, m := range metrics {
		if ts, ok := series[m]; ok {
			dashboard.KeyMetrics[m] = ts.AverageValue
		}
	}

	dashboard.Sections = append(dashboard.Sections, s.overviewSection(metrics, series, insights))
	dashboard.Sections = append(dashboard.Sections, s.chartsSection(metrics, series))

	if req.IncludeSocialComparison && s.social != nil {
		if section, ok := s.socialSection(ctx, userID, start, end); ok {
			dashboard.Sections = append(dashboard.Sections, section)
		}
	}

	dashboard.Sections = append(dashboard.Sections, insightsSection(insights))
	dashboard.SummaryInsights = topInsights(insights, 3)

	dashboardsGenerated.Inc()

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, dashboard, s.cfg.DashboardCacheTTL); err != nil {
			s.logger.Warn("failed to cache dashboard",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
	}

	return dashboard, nil
}

// InvalidateDashboards drops every cached dashboard for the user.
func (s *AnalyticsService) InvalidateDashboards(ctx context.Context, userID uuid.UUID) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.InvalidateUser(ctx, userID)
}

// GenerateInsightReport computes fresh insights over all metrics for the
// period's default range.
func (s *AnalyticsService) GenerateInsightReport(ctx context.Context, userID uuid.UUID, period analytics.Period) ([]analytics.Insight, error) {
	start, end := analytics.DefaultRange(period, nil, nil, s.now().UTC())

	metrics := []analytics.Metric{
		analytics.MetricWaterIntake,
		analytics.MetricGoalCompletion,
		analytics.MetricStreakPerformance,
		analytics.MetricCaffeineIntake,
		analytics.MetricDrinkVariety,
		analytics.MetricSocialEngagement,
	}

	series, _ := s.computeSeries(ctx, userID, metrics, period, start, end)
	correlations := s.correlations.CorrelatePairs(metrics, series)

	insights, err := s.insights.GenerateInsights(ctx, userID, series, correlations)
	if err != nil {
		return nil, err
	}
	insightsEmitted.Add(float64(len(insights)))
	return insights, nil
}

// ListInsights reads the insight log.
func (s *AnalyticsService) ListInsights(ctx context.Context, userID uuid.UUID, filter analytics.InsightFilter) ([]analytics.Insight, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, analytics.ErrInvalidFilter
	}
	if s.insightLog == nil {
		return nil, nil
	}
	return s.insightLog.Query(ctx, userID, filter)
}

// computeSeries builds every metric's series in parallel. A metric whose
// computation errors is omitted rather than failing the request; the map
// and the request-ordered slice only hold successes.
func (s *AnalyticsService) computeSeries(ctx context.Context, userID uuid.UUID, metrics []analytics.Metric, period analytics.Period, start, end time.Time) (map[analytics.Metric]*analytics.TimeSeries, []*analytics.TimeSeries) {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		series = make(map[analytics.Metric]*analytics.TimeSeries, len(metrics))
	)

	for _, metric := range metrics {
		wg.Add(1)
		go func(m analytics.Metric) {
			defer wg.Done()
			ts, err := s.timeseries.GenerateTimeSeries(ctx, userID, m, period, start, end)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					s.logger.Warn("metric series computation failed",
						zap.String("metric", string(m)),
						zap.String("user_id", userID.String()),
						zap.Error(err))
				}
				seriesFailures.Inc()
				return
			}
			mu.Lock()
			series[m] = ts
			mu.Unlock()
		}(metric)
	}
	wg.Wait()

	ordered := make([]*analytics.TimeSeries, 0, len(series))
	for _, m := range metrics {
		if ts, ok := series[m]; ok {
			ordered = append(ordered, ts)
		}
	}
	return series, ordered
}

// overviewSection builds one summary card per metric with a synthetic
// previous-period comparison (90% of the current average) and the top two
// insights about that metric.
func (s *AnalyticsService) overviewSection(metrics []analytics.Metric, series map[analytics.Metric]*analytics.TimeSeries, insights []analytics.Insight) analytics.DashboardSection {
	section := analytics.DashboardSection{
		SectionID: "overview",
		Title:     "Overview",
		Order:     1,
	}

	for _, m := range metrics {
		ts, ok := series[m]
		if !ok {
			continue
		}

		card := analytics.MetricCard{
			Metric:       m,
			Title:        metricTitle(m),
			CurrentValue: ts.AverageValue,
			DisplayValue: fmt.Sprintf("%.1f %s", ts.AverageValue, m.Unit()),
			Unit:         m.Unit(),
			Trend:        ts,
		}
		if len(ts.DataPoints) > 0 {
			cmp := syntheticComparison(ts)
			card.Comparison = &cmp
		}
		// Insights are already sorted by confidence.
		for _, ins := range insights {
			if ins.Metric != m {
				continue
			}
			card.Insights = append(card.Insights, ins)
			if len(card.Insights) == 2 {
				break
			}
		}
		section.MetricCards = append(section.MetricCards, card)
	}
	return section
}

// chartsSection builds one line chart per metric.
func (s *AnalyticsService) chartsSection(metrics []analytics.Metric, series map[analytics.Metric]*analytics.TimeSeries) analytics.DashboardSection {
	section := analytics.DashboardSection{
		SectionID: "metrics",
		Title:     "Detailed Metrics",
		Order:     2,
	}

	for _, m := range metrics {
		ts, ok := series[m]
		if !ok {
			continue
		}
		section.Charts = append(section.Charts, analytics.Chart{
			ChartID:   fmt.Sprintf("chart_%s", m),
			ChartType: "line",
			Title:     fmt.Sprintf("%s Over Time", metricTitle(m)),
			Data:      ts,
			Config: map[string]interface{}{
				"color":             chartColors[m],
				"show_trend_line":   true,
				"show_average_line": true,
			},
		})
	}
	return section
}

// socialSection fetches the peer comparison; a failed social service means
// the section is simply omitted.
func (s *AnalyticsService) socialSection(ctx context.Context, userID uuid.UUID, start, end time.Time) (analytics.DashboardSection, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SourceTimeout)
	defer cancel()

	comparison, err := s.social.Comparison(ctx, userID, start, end)
	if err != nil || comparison == nil {
		if err != nil {
			s.logger.Warn("social comparison unavailable",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
		return analytics.DashboardSection{}, false
	}

	return analytics.DashboardSection{
		SectionID: "social",
		Title:     "Social Comparison",
		Order:     3,
		Social:    comparison,
	}, true
}

func insightsSection(insights []analytics.Insight) analytics.DashboardSection {
	return analytics.DashboardSection{
		SectionID: "insights",
		Title:     "Insights",
		Order:     4,
		Insights:  topInsights(insights, 5),
	}
}

func topInsights(insights []analytics.Insight, n int) []analytics.Insight {
	if len(insights) <= n {
		return insights
	}
	return insights[:n]
}

// syntheticComparison contrasts the current average with a synthetic
// previous-period baseline of 90% of the average.
func syntheticComparison(ts *analytics.TimeSeries) analytics.Comparison {
	current := ts.AverageValue
	baseline := current * 0.9
	diff := current - baseline

	pct := 0.0
	if baseline != 0 {
		pct = diff / baseline * 100
	}

	return analytics.Comparison{
		ComparisonType:   "previous_period",
		CurrentValue:     current,
		ComparisonValue:  baseline,
		Difference:       diff,
		PercentageChange: pct,
		IsImprovement:    diff >= 0,
		Description:      fmt.Sprintf("Compared to the previous %s", ts.Period),
	}
}
