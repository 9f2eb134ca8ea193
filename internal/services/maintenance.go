package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hydrosense/analytics/internal/domain/analytics"
)

// MaintenanceScheduler runs periodic housekeeping jobs, currently the
// insight-log retention prune.
type MaintenanceScheduler struct {
	cron      *cron.Cron
	log       analytics.InsightLog
	retention time.Duration
	logger    *zap.Logger
}

// NewMaintenanceScheduler creates the scheduler; call Start to begin.
func NewMaintenanceScheduler(log analytics.InsightLog, retention time.Duration, logger *zap.Logger) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		cron:      cron.New(),
		log:       log,
		retention: retention,
		logger:    logger,
	}
}

// Start registers the daily prune job and starts the cron loop.
func (m *MaintenanceScheduler) Start() error {
	_, err := m.cron.AddFunc("@daily", m.pruneInsights)
	if err != nil {
		return err
	}
	m.cron.Start()
	m.logger.Info("maintenance scheduler started",
		zap.Duration("insight_retention", m.retention))
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (m *MaintenanceScheduler) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
}

func (m *MaintenanceScheduler) pruneInsights() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-m.retention)
	deleted, err := m.log.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		m.logger.Error("insight retention prune failed", zap.Error(err))
		return
	}
	m.logger.Info("insight retention prune completed",
		zap.Int64("deleted", deleted),
		zap.Time("cutoff", cutoff))
}
