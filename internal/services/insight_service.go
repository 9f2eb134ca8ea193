package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hydrosense/analytics/internal/config"
	"github.com/hydrosense/analytics/internal/domain/analytics"
)

// InsightService runs the rule registry over computed series and records the
// accepted insights in the append-only log.
type InsightService struct {
	rules  []InsightRule
	log    analytics.InsightLog
	cfg    config.AnalyticsConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewInsightService wires the synthesizer with the standard rule set.
func NewInsightService(log analytics.InsightLog, cfg config.AnalyticsConfig, logger *zap.Logger) *InsightService {
	return &InsightService{
		rules:  DefaultRules(),
		log:    log,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// GenerateInsights evaluates every rule in registration order, sorts the
// results by confidence (stable, so equal confidences keep rule order), caps
// the list and appends the survivors to the insight log. Log failures are
// logged and swallowed; insight generation still succeeds.
func (s *InsightService) GenerateInsights(ctx context.Context, userID uuid.UUID, series map[analytics.Metric]*analytics.TimeSeries, correlations []analytics.Correlation) ([]analytics.Insight, error) {
	metrics := make([]analytics.Metric, 0, len(series))
	for m := range series {
		metrics = append(metrics, m)
	}
	sort.Slice(metrics, func(i, j int) bool { return metrics[i] < metrics[j] })

	input := RuleInput{
		Metrics:      metrics,
		Series:       series,
		Correlations: correlations,
		Now:          s.now().UTC(),
	}

	var insights []analytics.Insight
	for _, rule := range s.rules {
		insights = append(insights, rule.Evaluate(input)...)
	}

	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].Confidence > insights[j].Confidence
	})

	max := s.cfg.MaxInsights
	if max > 0 && len(insights) > max {
		insights = insights[:max]
	}

	if len(insights) > 0 && s.log != nil {
		if err := s.log.Append(ctx, userID, insights); err != nil {
			s.logger.Warn("failed to append insights to log",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
	}

	return insights, nil
}
