package analytics

import (
	"time"

	"github.com/google/uuid"
)

// Period represents the bucket width used to aggregate raw events.
type Period string

const (
	PeriodDaily     Period = "daily"
	PeriodWeekly    Period = "weekly"
	PeriodMonthly   Period = "monthly"
	PeriodQuarterly Period = "quarterly"
	PeriodYearly    Period = "yearly"
)

// Metric represents a named, per-user observable tracked over time.
type Metric string

const (
	MetricWaterIntake       Metric = "water_intake"
	MetricGoalCompletion    Metric = "goal_completion"
	MetricStreakPerformance Metric = "streak_performance"
	MetricCaffeineIntake    Metric = "caffeine_intake"
	MetricDrinkVariety      Metric = "drink_variety"
	MetricSocialEngagement  Metric = "social_engagement"
)

// DefaultDashboardMetrics is the metric set used when a dashboard request
// does not name its own.
var DefaultDashboardMetrics = []Metric{
	MetricWaterIntake,
	MetricGoalCompletion,
	MetricStreakPerformance,
	MetricSocialEngagement,
}

// Unit returns the display unit for a metric.
func (m Metric) Unit() string {
	switch m {
	case MetricWaterIntake:
		return "ml"
	case MetricGoalCompletion:
		return "%"
	case MetricStreakPerformance:
		return "days"
	case MetricCaffeineIntake:
		return "mg"
	case MetricDrinkVariety:
		return "types"
	case MetricSocialEngagement:
		return "points"
	default:
		return ""
	}
}

// TrendDirection is a categorical summary of a series' movement.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
	TrendVolatile   TrendDirection = "volatile"
)

// InsightType classifies generated insights.
type InsightType string

const (
	InsightPositive       InsightType = "positive"
	InsightNegative       InsightType = "negative"
	InsightNeutral        InsightType = "neutral"
	InsightWarning        InsightType = "warning"
	InsightAchievement    InsightType = "achievement"
	InsightRecommendation InsightType = "recommendation"
)

// MetricEvent is one raw observation supplied by an event source.
// Immutable; the engine never mutates upstream event data.
type MetricEvent struct {
	UserID    uuid.UUID              `json:"user_id"`
	Metric    Metric                 `json:"metric"`
	Timestamp time.Time              `json:"timestamp"`
	Value     float64                `json:"value"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// DataPoint is one aggregated bucket within a time series.
type DataPoint struct {
	Timestamp time.Time              `json:"timestamp"`
	Value     float64                `json:"value"`
	Label     string                 `json:"label,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// TimeSeries holds the aggregated data points for one metric over a range,
// plus whole-range statistics and the trend annotation. Data points are
// strictly ascending by timestamp, one per period bucket.
type TimeSeries struct {
	Metric          Metric         `json:"metric"`
	Period          Period         `json:"period"`
	DataPoints      []DataPoint    `json:"data_points"`
	StartDate       time.Time      `json:"start_date"`
	EndDate         time.Time      `json:"end_date"`
	TotalValue      float64        `json:"total_value"`
	AverageValue    float64        `json:"average_value"`
	MinValue        float64        `json:"min_value"`
	MaxValue        float64        `json:"max_value"`
	TrendDirection  TrendDirection `json:"trend_direction"`
	TrendPercentage float64        `json:"trend_percentage"`
}

// Values returns the point values in series order.
func (ts *TimeSeries) Values() []float64 {
	values := make([]float64, len(ts.DataPoints))
	for i, dp := range ts.DataPoints {
		values[i] = dp.Value
	}
	return values
}

// Correlation is the pairwise association between two metrics.
// PValue is a rough t-statistic approximation, kept as a heuristic flag
// only; it is not a rigorous statistical test.
type Correlation struct {
	MetricX       Metric  `json:"metric_x"`
	MetricY       Metric  `json:"metric_y"`
	Coefficient   float64 `json:"correlation_coefficient"`
	PValue        float64 `json:"p_value"`
	IsSignificant bool    `json:"is_significant"`
	SampleSize    int     `json:"sample_size"`
	Description   string  `json:"description"`
}

// Insight is a synthesized, human-readable observation. Insights are never
// mutated after creation; accepted insights are appended to the insight log.
type Insight struct {
	ID          uuid.UUID              `json:"id"`
	Type        InsightType            `json:"insight_type"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Metric      Metric                 `json:"metric"`
	Confidence  float64                `json:"confidence_score"`
	ActionItems []string               `json:"action_items,omitempty"`
	RelatedData map[string]interface{} `json:"related_data,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// Comparison contrasts a current value with a baseline.
type Comparison struct {
	ComparisonType   string  `json:"comparison_type"`
	CurrentValue     float64 `json:"current_value"`
	ComparisonValue  float64 `json:"comparison_value"`
	Difference       float64 `json:"difference"`
	PercentageChange float64 `json:"percentage_change"`
	IsImprovement    bool    `json:"is_improvement"`
	Description      string  `json:"description"`
}

// MetricCard is one summary card in the dashboard overview section.
type MetricCard struct {
	Metric       Metric      `json:"metric"`
	Title        string      `json:"title"`
	CurrentValue float64     `json:"current_value"`
	DisplayValue string      `json:"display_value"`
	Unit         string      `json:"unit"`
	Comparison   *Comparison `json:"comparison,omitempty"`
	Trend        *TimeSeries `json:"trend,omitempty"`
	Insights     []Insight   `json:"insights,omitempty"`
}

// Chart is a renderable chart descriptor for one series.
type Chart struct {
	ChartID     string                 `json:"chart_id"`
	ChartType   string                 `json:"chart_type"`
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	Data        *TimeSeries            `json:"data"`
	Config      map[string]interface{} `json:"config,omitempty"`
}

// DashboardSection groups cards, charts and insights under one heading.
type DashboardSection struct {
	SectionID   string            `json:"section_id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	MetricCards []MetricCard      `json:"metric_cards,omitempty"`
	Charts      []Chart           `json:"charts,omitempty"`
	Insights    []Insight         `json:"insights,omitempty"`
	Social      *SocialComparison `json:"social_comparison,omitempty"`
	Order       int               `json:"order"`
}

// Dashboard is the composed, read-only aggregate for one request.
type Dashboard struct {
	UserID          uuid.UUID          `json:"user_id"`
	DashboardID     uuid.UUID          `json:"dashboard_id"`
	Title           string             `json:"title"`
	Description     string             `json:"description,omitempty"`
	Period          Period             `json:"period"`
	StartDate       time.Time          `json:"start_date"`
	EndDate         time.Time          `json:"end_date"`
	Sections        []DashboardSection `json:"sections"`
	SummaryInsights []Insight          `json:"summary_insights"`
	KeyMetrics      map[Metric]float64 `json:"key_metrics"`
	GeneratedAt     time.Time          `json:"generated_at"`
}

// Goal is an active user goal supplied by the goal service.
type Goal struct {
	Type        string  `json:"goal_type"`
	TargetValue float64 `json:"target_value"`
	IsActive    bool    `json:"is_active"`
}

// ActivityEvent is one social activity supplied by the social service.
type ActivityEvent struct {
	UserID       uuid.UUID `json:"user_id"`
	ActorID      uuid.UUID `json:"actor_id"`
	CreatedAt    time.Time `json:"created_at"`
	ReactionCnt  int       `json:"reaction_count"`
	CommentCnt   int       `json:"comment_count"`
	ActivityType string    `json:"activity_type"`
}

// SocialComparison summarizes the user's standing among peers; supplied by
// the social service and passed through to the dashboard unmodified.
type SocialComparison struct {
	UserPercentile   float64 `json:"user_percentile"`
	PeerGroupAverage float64 `json:"peer_group_average"`
	GlobalAverage    float64 `json:"global_average"`
	RankInPeerGroup  int     `json:"rank_in_peer_group"`
	TotalPeers       int     `json:"total_peers"`
}

// TimeSeriesRequest asks for one metric's aggregated series.
type TimeSeriesRequest struct {
	Metric    Metric     `json:"metric" binding:"required"`
	Period    Period     `json:"period" binding:"required"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// DashboardRequest asks for a composed dashboard.
type DashboardRequest struct {
	Period                  Period     `json:"period"`
	StartDate               *time.Time `json:"start_date,omitempty"`
	EndDate                 *time.Time `json:"end_date,omitempty"`
	Metrics                 []Metric   `json:"metrics,omitempty"`
	IncludeSocialComparison bool       `json:"include_social_comparison"`
}

// AnalyticsRequest asks for series, comparisons and insights over a metric set.
type AnalyticsRequest struct {
	Metrics            []Metric   `json:"metrics" binding:"required"`
	Period             Period     `json:"period" binding:"required"`
	StartDate          *time.Time `json:"start_date,omitempty"`
	EndDate            *time.Time `json:"end_date,omitempty"`
	IncludeComparisons bool       `json:"include_comparisons"`
	IncludeInsights    bool       `json:"include_insights"`
}

// AnalyticsResponse bundles the outputs of an analytics query.
type AnalyticsResponse struct {
	RequestID    uuid.UUID     `json:"request_id"`
	UserID       uuid.UUID     `json:"user_id"`
	TimeSeries   []*TimeSeries `json:"time_series"`
	Comparisons  []Comparison  `json:"comparisons"`
	Insights     []Insight     `json:"insights"`
	Correlations []Correlation `json:"correlations"`
	GeneratedAt  time.Time     `json:"generated_at"`
}

// InsightFilter selects entries from the insight log.
type InsightFilter struct {
	Types  []InsightType `json:"types,omitempty"`
	Metric *Metric       `json:"metric,omitempty"`
	Since  *time.Time    `json:"since,omitempty"`
	Limit  int           `json:"limit,omitempty"`
	Offset int           `json:"offset,omitempty"`
}

// DefaultRange resolves the date range for a request: an explicit range wins,
// otherwise the window implied by the period, ending at now.
func DefaultRange(period Period, start, end *time.Time, now time.Time) (time.Time, time.Time) {
	endDate := now
	if end != nil {
		endDate = *end
	}

	if start != nil {
		return *start, endDate
	}

	var days int
	switch period {
	case PeriodWeekly:
		days = 7
	case PeriodMonthly:
		days = 30
	case PeriodQuarterly:
		days = 90
	case PeriodYearly:
		days = 365
	default:
		days = 30
	}

	return endDate.AddDate(0, 0, -days), endDate
}
