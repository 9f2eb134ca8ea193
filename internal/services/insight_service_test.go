package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hydrosense/analytics/internal/domain/analytics"
)

type MockInsightLog struct {
	mock.Mock
}

func (m *MockInsightLog) Append(ctx context.Context, userID uuid.UUID, insights []analytics.Insight) error {
	args := m.Called(ctx, userID, insights)
	return args.Error(0)
}

func (m *MockInsightLog) Query(ctx context.Context, userID uuid.UUID, filter analytics.InsightFilter) ([]analytics.Insight, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]analytics.Insight), args.Error(1)
}

func (m *MockInsightLog) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func newTestInsightService(log analytics.InsightLog) *InsightService {
	cfg := testAnalyticsConfig()
	svc := NewInsightService(log, cfg, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestGenerateInsights_SortedByConfidenceDescending(t *testing.T) {
	log := new(MockInsightLog)
	log.On("Append", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := newTestInsightService(log)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	series := map[analytics.Metric]*analytics.TimeSeries{
		// Strong upward trend: positive insight at 0.9.
		analytics.MetricWaterIntake: fullSeries(analytics.MetricWaterIntake, base,
			[]float64{1000, 1200, 1400, 1600}),
		// High goal completion: achievement at 0.95.
		analytics.MetricGoalCompletion: fullSeries(analytics.MetricGoalCompletion, base,
			[]float64{95, 94, 96}),
	}

	insights, err := svc.GenerateInsights(context.Background(), uuid.New(), series, nil)

	require.NoError(t, err)
	require.NotEmpty(t, insights)
	for i := 1; i < len(insights); i++ {
		assert.GreaterOrEqual(t, insights[i-1].Confidence, insights[i].Confidence)
	}
	assert.Equal(t, analytics.InsightAchievement, insights[0].Type)
	log.AssertCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateInsights_CapAppliesAfterSort(t *testing.T) {
	log := new(MockInsightLog)
	log.On("Append", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := newTestInsightService(log)
	svc.cfg.MaxInsights = 2

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	series := map[analytics.Metric]*analytics.TimeSeries{
		analytics.MetricWaterIntake: fullSeries(analytics.MetricWaterIntake, base,
			[]float64{1000, 1200, 1400, 1600}),
		analytics.MetricGoalCompletion: fullSeries(analytics.MetricGoalCompletion, base,
			[]float64{95, 94, 96}),
		analytics.MetricSocialEngagement: fullSeries(analytics.MetricSocialEngagement, base,
			[]float64{1, 2, 1}),
	}

	insights, err := svc.GenerateInsights(context.Background(), uuid.New(), series, nil)

	require.NoError(t, err)
	require.Len(t, insights, 2)
	assert.Equal(t, 0.95, insights[0].Confidence)
	assert.Equal(t, 0.9, insights[1].Confidence)
}

func TestGenerateInsights_LogFailureDoesNotFailGeneration(t *testing.T) {
	log := new(MockInsightLog)
	log.On("Append", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("insert failed"))

	svc := newTestInsightService(log)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	series := map[analytics.Metric]*analytics.TimeSeries{
		analytics.MetricGoalCompletion: fullSeries(analytics.MetricGoalCompletion, base,
			[]float64{95, 94, 96}),
	}

	insights, err := svc.GenerateInsights(context.Background(), uuid.New(), series, nil)

	require.NoError(t, err)
	assert.NotEmpty(t, insights)
}

func TestGenerateInsights_EmptySeriesProducesNothing(t *testing.T) {
	log := new(MockInsightLog)
	svc := newTestInsightService(log)

	insights, err := svc.GenerateInsights(context.Background(), uuid.New(),
		map[analytics.Metric]*analytics.TimeSeries{}, nil)

	require.NoError(t, err)
	assert.Empty(t, insights)
	log.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateInsights_Deterministic(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	series := map[analytics.Metric]*analytics.TimeSeries{
		analytics.MetricWaterIntake: fullSeries(analytics.MetricWaterIntake, base,
			[]float64{1000, 1200, 1400, 1600}),
		analytics.MetricGoalCompletion: fullSeries(analytics.MetricGoalCompletion, base,
			[]float64{60, 55, 65}),
	}

	run := func() []analytics.Insight {
		log := new(MockInsightLog)
		log.On("Append", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		out, err := newTestInsightService(log).GenerateInsights(context.Background(), uuid.New(), series, nil)
		require.NoError(t, err)
		return out
	}

	a := run()
	b := run()

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Type, b[i].Type)
		assert.Equal(t, a[i].Title, b[i].Title)
		assert.Equal(t, a[i].Confidence, b[i].Confidence)
	}
}
