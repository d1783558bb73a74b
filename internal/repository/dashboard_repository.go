package repository

import (
	"context"
	"fmt"
	"time"

	"jobshop/internal/model"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type dashboardRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewDashboardRepository creates a new PostgreSQL-backed dashboard repository.
func NewDashboardRepository(pool *pgxpool.Pool, logger zerolog.Logger) DashboardRepository {
	return &dashboardRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "dashboard").Logger(),
	}
}

func (r *dashboardRepository) CountSearches(ctx context.Context, userID int64, status model.JobSearchStatus, since *time.Time) (int, error) {
	builder := psql.Select("COUNT(*)").
		From("job_searches").
		Where(sq.Eq{"user_id": userID, "status": string(status)})
	if since != nil {
		builder = builder.Where(sq.GtOrEq{"created_at": *since})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build search count query: %w", err)
	}

	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Str("status", string(status)).Msg("failed to count searches")
		return 0, fmt.Errorf("failed to count searches: %w", err)
	}

	return count, nil
}

func (r *dashboardRepository) ApplicationsPerDay(ctx context.Context, userID int64, since time.Time) ([]model.DayCount, error) {
	query, args, err := psql.Select("date_trunc('day', applied_at AT TIME ZONE 'UTC') AS day", "COUNT(*)").
		From("job_applications").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"applied_at": since}).
		GroupBy("day").
		OrderBy("day").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build applications query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to query applications per day")
		return nil, fmt.Errorf("failed to query applications per day: %w", err)
	}
	defer rows.Close()

	counts := []model.DayCount{}
	for rows.Next() {
		var c model.DayCount
		if err := rows.Scan(&c.Day, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan applications per day: %w", err)
		}
		c.Day = c.Day.UTC()
		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating applications per day: %w", err)
	}

	return counts, nil
}
