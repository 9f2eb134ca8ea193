package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hydrosense/analytics/internal/cache"
	"github.com/hydrosense/analytics/internal/config"
	"github.com/hydrosense/analytics/internal/handlers"
	"github.com/hydrosense/analytics/internal/infrastructure/postgres"
	"github.com/hydrosense/analytics/internal/logging"
	"github.com/hydrosense/analytics/internal/server"
	"github.com/hydrosense/analytics/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()

	poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.URL)
	if err != nil {
		logger.Fatal("invalid postgres url", zap.Error(err))
	}
	poolCfg.MaxConns = cfg.Postgres.MaxConns
	poolCfg.MaxConnLifetime = cfg.Postgres.ConnLifetime

	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Fatal("failed to create postgres pool", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		logger.Fatal("failed to ping postgres", zap.Error(err))
	}

	if err := runMigrations(ctx, db); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database ready")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, dashboard caching degraded", zap.Error(err))
	}
	defer redisClient.Close()

	waterSource := postgres.NewWaterLogSource(db)
	drinkSource := postgres.NewDrinkLogSource(db)
	goalRepo := postgres.NewGoalRepository(db)
	activityRepo := postgres.NewActivityRepository(db)
	insightLog := postgres.NewInsightLogRepository(db)
	dashboardCache := cache.NewDashboardCache(redisClient, logger)

	trend := services.NewTrendAnalyzer(cfg.Analytics.TrendSensitivity, cfg.Analytics.VolatilityThreshold)
	timeseries := services.NewTimeSeriesService(waterSource, drinkSource, goalRepo, activityRepo, trend, cfg.Analytics, logger)
	correlations := services.NewCorrelationEngine()
	insights := services.NewInsightService(insightLog, cfg.Analytics, logger)
	analyticsService := services.NewAnalyticsService(
		timeseries, correlations, insights, insightLog, dashboardCache, activityRepo, cfg.Analytics, logger)

	maintenance := services.NewMaintenanceScheduler(insightLog, cfg.Analytics.InsightRetention, logger)
	if err := maintenance.Start(); err != nil {
		logger.Fatal("failed to start maintenance scheduler", zap.Error(err))
	}
	defer maintenance.Stop()

	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService, logger)
	srv := server.New(cfg.Server, analyticsHandler, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}
}

func runMigrations(ctx context.Context, db *pgxpool.Pool) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS water_logs (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL,
			amount_ml DOUBLE PRECISION NOT NULL,
			logged_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_water_logs_user_time
			ON water_logs (user_id, logged_at)`,
		`CREATE TABLE IF NOT EXISTS drink_logs (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL,
			drink_type VARCHAR(64) NOT NULL,
			caffeine_mg DOUBLE PRECISION NOT NULL DEFAULT 0,
			logged_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_drink_logs_user_time
			ON drink_logs (user_id, logged_at)`,
		`CREATE TABLE IF NOT EXISTS goals (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL,
			goal_type VARCHAR(64) NOT NULL,
			target_value DOUBLE PRECISION NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_goals_user_type
			ON goals (user_id, goal_type) WHERE is_active`,
		`CREATE TABLE IF NOT EXISTS activity_events (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL,
			actor_id UUID NOT NULL,
			activity_type VARCHAR(64) NOT NULL,
			reaction_count INTEGER NOT NULL DEFAULT 0,
			comment_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_events_user_time
			ON activity_events (user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS analytics_insights (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			insight_type VARCHAR(32) NOT NULL,
			metric VARCHAR(64) NOT NULL,
			title VARCHAR(255) NOT NULL,
			description TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			action_items JSONB,
			related_data JSONB,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_insights_user_time
			ON analytics_insights (user_id, created_at DESC)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(ctx, migration); err != nil {
			return err
		}
	}
	return nil
}
