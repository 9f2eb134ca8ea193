package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hydrosense/analytics/internal/domain/analytics"
)

// WaterLogSource reads water intake events from the water_logs table.
type WaterLogSource struct {
	db *pgxpool.Pool
}

// NewWaterLogSource creates the source.
func NewWaterLogSource(db *pgxpool.Pool) *WaterLogSource {
	return &WaterLogSource{db: db}
}

// Events returns water intake events in ascending timestamp order.
func (s *WaterLogSource) Events(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]analytics.MetricEvent, error) {
	query := `
		SELECT logged_at, amount_ml
		FROM water_logs
		WHERE user_id = $1 AND logged_at >= $2 AND logged_at <= $3
		ORDER BY logged_at ASC`

	rows, err := s.db.Query(ctx, query, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: water logs query: %v", analytics.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var events []analytics.MetricEvent
	for rows.Next() {
		ev := analytics.MetricEvent{UserID: userID, Metric: analytics.MetricWaterIntake}
		if err := rows.Scan(&ev.Timestamp, &ev.Value); err != nil {
			return nil, fmt.Errorf("failed to scan water log: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: water logs rows: %v", analytics.ErrSourceUnavailable, err)
	}
	return events, nil
}

// DrinkLogSource reads caffeine and drink-type events from the drink_logs
// table. Event values carry caffeine mg; the drink type rides in metadata.
type DrinkLogSource struct {
	db *pgxpool.Pool
}

// NewDrinkLogSource creates the source.
func NewDrinkLogSource(db *pgxpool.Pool) *DrinkLogSource {
	return &DrinkLogSource{db: db}
}

// Events returns drink events in ascending timestamp order.
func (s *DrinkLogSource) Events(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]analytics.MetricEvent, error) {
	query := `
		SELECT logged_at, caffeine_mg, drink_type
		FROM drink_logs
		WHERE user_id = $1 AND logged_at >= $2 AND logged_at <= $3
		ORDER BY logged_at ASC`

	rows, err := s.db.Query(ctx, query, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: drink logs query: %v", analytics.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var events []analytics.MetricEvent
	for rows.Next() {
		var drinkType string
		ev := analytics.MetricEvent{UserID: userID, Metric: analytics.MetricCaffeineIntake}
		if err := rows.Scan(&ev.Timestamp, &ev.Value, &drinkType); err != nil {
			return nil, fmt.Errorf("failed to scan drink log: %w", err)
		}
		ev.Metadata = map[string]interface{}{"drink_type": drinkType}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: drink logs rows: %v", analytics.ErrSourceUnavailable, err)
	}
	return events, nil
}

// GoalRepository resolves active goals from the goals table.
type GoalRepository struct {
	db *pgxpool.Pool
}

// NewGoalRepository creates the repository.
func NewGoalRepository(db *pgxpool.Pool) *GoalRepository {
	return &GoalRepository{db: db}
}

// ActiveGoal returns the user's active goal of the given type, or nil when
// none exists.
func (r *GoalRepository) ActiveGoal(ctx context.Context, userID uuid.UUID, goalType string) (*analytics.Goal, error) {
	query := `
		SELECT goal_type, target_value, is_active
		FROM goals
		WHERE user_id = $1 AND goal_type = $2 AND is_active = TRUE
		ORDER BY created_at DESC
		LIMIT 1`

	goal := &analytics.Goal{}
	err := r.db.QueryRow(ctx, query, userID, goalType).Scan(&goal.Type, &goal.TargetValue, &goal.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: goal query: %v", analytics.ErrSourceUnavailable, err)
	}
	return goal, nil
}

// ActivityRepository reads social activity from the activity_events table.
type ActivityRepository struct {
	db *pgxpool.Pool
}

// NewActivityRepository creates the repository.
func NewActivityRepository(db *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// ActivityEvents returns activity involving the user in the range.
func (r *ActivityRepository) ActivityEvents(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]analytics.ActivityEvent, error) {
	query := `
		SELECT user_id, actor_id, created_at, reaction_count, comment_count, activity_type
		FROM activity_events
		WHERE user_id = $1 AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: activity query: %v", analytics.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var events []analytics.ActivityEvent
	for rows.Next() {
		var ev analytics.ActivityEvent
		if err := rows.Scan(&ev.UserID, &ev.ActorID, &ev.CreatedAt, &ev.ReactionCnt, &ev.CommentCnt, &ev.ActivityType); err != nil {
			return nil, fmt.Errorf("failed to scan activity event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: activity rows: %v", analytics.ErrSourceUnavailable, err)
	}
	return events, nil
}

// Comparison computes the user's standing against peers from daily water
// totals over the range.
func (r *ActivityRepository) Comparison(ctx context.Context, userID uuid.UUID, start, end time.Time) (*analytics.SocialComparison, error) {
	query := `
		WITH totals AS (
			SELECT user_id, SUM(amount_ml) AS total
			FROM water_logs
			WHERE logged_at >= $2 AND logged_at <= $3
			GROUP BY user_id
		)
		SELECT
			COALESCE((SELECT total FROM totals WHERE user_id = $1), 0),
			COALESCE(AVG(total), 0),
			COUNT(*),
			COALESCE((SELECT COUNT(*) + 1 FROM totals t2
				WHERE t2.total > COALESCE((SELECT total FROM totals WHERE user_id = $1), 0)), 1)
		FROM totals`

	var userTotal, avg float64
	var total, rank int
	err := r.db.QueryRow(ctx, query, userID, start, end).Scan(&userTotal, &avg, &total, &rank)
	if err != nil {
		return nil, fmt.Errorf("%w: comparison query: %v", analytics.ErrSourceUnavailable, err)
	}

	comparison := &analytics.SocialComparison{
		PeerGroupAverage: avg,
		GlobalAverage:    avg,
		RankInPeerGroup:  rank,
		TotalPeers:       total,
	}
	if total > 0 {
		comparison.UserPercentile = float64(total-rank+1) / float64(total) * 100
	}
	return comparison, nil
}
