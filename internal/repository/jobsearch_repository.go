package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jobshop/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type jobSearchRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewJobSearchRepository creates a new PostgreSQL-backed job search repository.
func NewJobSearchRepository(pool *pgxpool.Pool, logger zerolog.Logger) JobSearchRepository {
	return &jobSearchRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "job_search").Logger(),
	}
}

// CreatePending locks the user row so that concurrent requests of the same
// user see each other's pending searches.
func (r *jobSearchRepository) CreatePending(ctx context.Context, search *model.JobSearch, limit int) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var userID int64
	if err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, search.UserID).Scan(&userID); err != nil {
		r.logger.Error().Err(err).Int64("user_id", search.UserID).Msg("failed to lock user")
		return false, fmt.Errorf("failed to lock user %d: %w", search.UserID, err)
	}

	if limit > 0 {
		var pending int
		err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM job_searches WHERE user_id = $1 AND status = $2`,
			search.UserID, model.JobSearchStatusPending,
		).Scan(&pending)
		if err != nil {
			r.logger.Error().Err(err).Int64("user_id", search.UserID).Msg("failed to count pending searches")
			return false, fmt.Errorf("failed to count pending searches: %w", err)
		}
		if pending >= limit {
			return false, nil
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO job_searches (id, user_id, keywords, location, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		search.ID,
		search.UserID,
		search.Keywords,
		search.Location,
		search.Status,
		search.CreatedAt,
		search.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("search_id", search.ID.String()).Msg("failed to create job search")
		return false, fmt.Errorf("failed to create job search: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, nil
}

func (r *jobSearchRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.JobSearch, error) {
	query := `
		SELECT id, user_id, keywords, location, status, offers_found, failure_reason, created_at, updated_at
		FROM job_searches
		WHERE id = $1
	`

	var s model.JobSearch
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.UserID,
		&s.Keywords,
		&s.Location,
		&s.Status,
		&s.OffersFound,
		&s.FailureReason,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("search_id", id.String()).Msg("failed to query job search")
		return nil, fmt.Errorf("failed to query job search: %w", err)
	}

	return &s, nil
}

// Complete updates the search and inserts its applications in one transaction.
// Duplicate offers of the same search are ignored so redelivered results are harmless.
func (r *jobSearchRepository) Complete(ctx context.Context, result model.JobSearchResult) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	now := time.Now().UTC()

	var userID int64
	err = tx.QueryRow(ctx, `
		UPDATE job_searches
		SET status = $2, offers_found = $3, failure_reason = $4, updated_at = $5
		WHERE id = $1 AND status = 'PENDING'
		RETURNING user_id
	`, result.SearchID, result.Status, result.OffersFound, result.FailureReason, now).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		r.logger.Error().Err(err).Str("search_id", result.SearchID.String()).Msg("failed to complete job search")
		return false, fmt.Errorf("failed to complete job search: %w", err)
	}

	if len(result.Applications) > 0 {
		batch := &pgx.Batch{}
		for _, a := range result.Applications {
			id := a.ID
			if id == uuid.Nil {
				id = uuid.New()
			}
			appliedAt := a.AppliedAt
			if appliedAt.IsZero() {
				appliedAt = now
			}
			batch.Queue(`
				INSERT INTO job_applications (id, search_id, user_id, offer_id, applied_at)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (search_id, offer_id) DO NOTHING
			`, id, result.SearchID, userID, a.OfferID, appliedAt)
		}

		results := tx.SendBatch(ctx, batch)
		for range result.Applications {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				r.logger.Error().Err(err).Str("search_id", result.SearchID.String()).Msg("failed to insert job application")
				return false, fmt.Errorf("failed to insert job application: %w", err)
			}
		}
		if err := results.Close(); err != nil {
			return false, fmt.Errorf("failed to insert job applications: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Debug().
		Str("search_id", result.SearchID.String()).
		Str("status", string(result.Status)).
		Int("applications", len(result.Applications)).
		Msg("job search completed")

	return true, nil
}

func (r *jobSearchRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE job_searches
		SET status = $2, failure_reason = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
	`, id, model.JobSearchStatusFailed, reason)
	if err != nil {
		r.logger.Error().Err(err).Str("search_id", id.String()).Msg("failed to mark job search failed")
		return fmt.Errorf("failed to mark job search failed: %w", err)
	}
	return nil
}
