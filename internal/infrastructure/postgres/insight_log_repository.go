package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hydrosense/analytics/internal/domain/analytics"
)

// InsightLogRepository is the append-only store for accepted insights.
// Rows are inserted once and never updated; DeleteOlderThan enforces
// retention.
type InsightLogRepository struct {
	db *pgxpool.Pool
}

// NewInsightLogRepository creates the repository.
func NewInsightLogRepository(db *pgxpool.Pool) *InsightLogRepository {
	return &InsightLogRepository{db: db}
}

// Append inserts the insights for the user. Action items and related data
// are stored as JSON.
func (r *InsightLogRepository) Append(ctx context.Context, userID uuid.UUID, insights []analytics.Insight) error {
	query := `
		INSERT INTO analytics_insights
			(id, user_id, insight_type, metric, title, description,
			 confidence, action_items, related_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	for _, ins := range insights {
		actionItems, err := json.Marshal(ins.ActionItems)
		if err != nil {
			return fmt.Errorf("failed to marshal action items: %w", err)
		}
		relatedData, err := json.Marshal(ins.RelatedData)
		if err != nil {
			return fmt.Errorf("failed to marshal related data: %w", err)
		}

		_, err = r.db.Exec(ctx, query,
			ins.ID, userID, ins.Type, ins.Metric, ins.Title, ins.Description,
			ins.Confidence, actionItems, relatedData, ins.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to append insight: %w", err)
		}
	}
	return nil
}

// Query returns the user's logged insights, newest first, honoring the
// filter's type, metric, since and paging fields.
func (r *InsightLogRepository) Query(ctx context.Context, userID uuid.UUID, filter analytics.InsightFilter) ([]analytics.Insight, error) {
	query := `
		SELECT id, insight_type, metric, title, description,
		       confidence, action_items, related_data, created_at
		FROM analytics_insights
		WHERE user_id = $1`
	args := []interface{}{userID}
	argIdx := 2

	if len(filter.Types) > 0 {
		query += fmt.Sprintf(" AND insight_type = ANY($%d)", argIdx)
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		args = append(args, types)
		argIdx++
	}
	if filter.Metric != nil {
		query += fmt.Sprintf(" AND metric = $%d", argIdx)
		args = append(args, string(*filter.Metric))
		argIdx++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *filter.Since)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query insights: %w", err)
	}
	defer rows.Close()

	var insights []analytics.Insight
	for rows.Next() {
		var ins analytics.Insight
		var actionItems, relatedData []byte
		if err := rows.Scan(&ins.ID, &ins.Type, &ins.Metric, &ins.Title, &ins.Description,
			&ins.Confidence, &actionItems, &relatedData, &ins.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		if len(actionItems) > 0 {
			if err := json.Unmarshal(actionItems, &ins.ActionItems); err != nil {
				return nil, fmt.Errorf("failed to unmarshal action items: %w", err)
			}
		}
		if len(relatedData) > 0 {
			if err := json.Unmarshal(relatedData, &ins.RelatedData); err != nil {
				return nil, fmt.Errorf("failed to unmarshal related data: %w", err)
			}
		}
		insights = append(insights, ins)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("insight rows: %w", err)
	}
	return insights, nil
}

// DeleteOlderThan removes log entries created before cutoff and returns the
// number of rows deleted.
func (r *InsightLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM analytics_insights WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune insights: %w", err)
	}
	return tag.RowsAffected(), nil
}
