package repository

import (
	"context"
	"errors"
	"fmt"

	"jobshop/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const userSelect = `
	SELECT id, email, password_hash, account_type, points, pending_points, created_at
	FROM users
`

type userRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(pool *pgxpool.Pool, logger zerolog.Logger) UserRepository {
	return &userRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "user").Logger(),
	}
}

func (r *userRepository) get(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx, userSelect+where, arg).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.AccountType,
		&u.Points,
		&u.PendingPoints,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to query user")
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.get(ctx, "WHERE id = $1", id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.get(ctx, "WHERE lower(email) = lower($1)", email)
}

// AddPoints increases the balance within the caller's transaction. The row
// lock taken by the update serializes concurrent grants to the same user.
func (r *userRepository) AddPoints(ctx context.Context, tx pgx.Tx, userID, points, maxPoints int64) error {
	query := `
		UPDATE users
		SET points = points + $2
		WHERE id = $1
		RETURNING points + pending_points
	`

	var balance int64
	err := tx.QueryRow(ctx, query, userID, points).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("failed to add points: user %d not found", userID)
		}
		r.logger.Error().
			Err(err).
			Int64("user_id", userID).
			Int64("points", points).
			Msg("failed to add points")
		return fmt.Errorf("failed to add points: %w", err)
	}

	if maxPoints > 0 && balance > maxPoints {
		r.logger.Debug().
			Int64("user_id", userID).
			Int64("balance", balance).
			Int64("max", maxPoints).
			Msg("points limit exceeded")
		return model.ErrPointsLimitExceeded
	}

	r.logger.Debug().Int64("user_id", userID).Int64("points", points).Msg("points added")

	return nil
}
