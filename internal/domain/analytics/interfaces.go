package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventSource supplies raw metric events for one backing store. Implementations
// must honor ctx cancellation; a failed source is degraded to an empty series
// by the caller, never retried inline.
type EventSource interface {
	// Events returns the user's raw events between start and end, ascending
	// by timestamp.
	Events(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]MetricEvent, error)
}

// GoalService exposes the user's active goals to the aggregator.
type GoalService interface {
	// ActiveGoal returns the user's active goal of the given type, or nil
	// when none is set.
	ActiveGoal(ctx context.Context, userID uuid.UUID, goalType string) (*Goal, error)
}

// SocialService exposes social activity and peer standing.
type SocialService interface {
	// ActivityEvents returns activity involving the user between start and end.
	ActivityEvents(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]ActivityEvent, error)

	// Comparison returns the user's standing among peers for the range.
	Comparison(ctx context.Context, userID uuid.UUID, start, end time.Time) (*SocialComparison, error)
}

// InsightLog is the append-only store of accepted insights. Entries are never
// updated; retention is enforced by DeleteOlderThan.
type InsightLog interface {
	Append(ctx context.Context, userID uuid.UUID, insights []Insight) error
	Query(ctx context.Context, userID uuid.UUID, filter InsightFilter) ([]Insight, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// DashboardCache caches composed dashboards by request shape.
type DashboardCache interface {
	Key(userID uuid.UUID, req DashboardRequest, start, end time.Time) string
	Get(ctx context.Context, key string) (*Dashboard, bool)
	Set(ctx context.Context, key string, dashboard *Dashboard, ttl time.Duration) error
	InvalidateUser(ctx context.Context, userID uuid.UUID) error
}

// TimeSeriesGenerator produces aggregated series for one metric.
type TimeSeriesGenerator interface {
	GenerateTimeSeries(ctx context.Context, userID uuid.UUID, metric Metric, period Period, start, end time.Time) (*TimeSeries, error)
}

// InsightGenerator synthesizes insights from computed series and correlations.
type InsightGenerator interface {
	GenerateInsights(ctx context.Context, userID uuid.UUID, series map[Metric]*TimeSeries, correlations []Correlation) ([]Insight, error)
}

// Service is the full analytics surface exposed to transport handlers.
type Service interface {
	TimeSeriesGenerator
	GenerateAnalytics(ctx context.Context, userID uuid.UUID, req AnalyticsRequest) (*AnalyticsResponse, error)
	GenerateDashboard(ctx context.Context, userID uuid.UUID, req DashboardRequest) (*Dashboard, error)
	InvalidateDashboards(ctx context.Context, userID uuid.UUID) error
	GenerateInsightReport(ctx context.Context, userID uuid.UUID, period Period) ([]Insight, error)
	ListInsights(ctx context.Context, userID uuid.UUID, filter InsightFilter) ([]Insight, error)
}
