package repository

import (
	"context"
	"time"

	"jobshop/internal/model"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// psql builds PostgreSQL statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// List retrieves purchasable and inactive products that are not soft-deleted.
	List(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by its ID, including soft-deleted ones.
	// Returns nil when the product does not exist.
	GetByID(ctx context.Context, id int64) (*model.Product, error)

	// Create inserts a new product and sets its ID and creation time.
	Create(ctx context.Context, product *model.Product) error

	// SoftDelete marks the product as deleted. Returns false if it did not exist.
	SoftDelete(ctx context.Context, id int64) (bool, error)
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts the order with its cost and snapshots within the provided transaction.
	// Returns model.ErrPaymentFinalized when a paid order already uses the payment reference.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// GetPaidByReference retrieves the paid order recorded for a payment reference.
	// Returns nil when there is none.
	GetPaidByReference(ctx context.Context, reference string) (*model.Order, error)

	// GetByID retrieves an order by its ID along with its cost and snapshots.
	// Returns nil when the order does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// MarkTransferred records that the order was forwarded to the finance hub.
	MarkTransferred(ctx context.Context, id uuid.UUID, at time.Time) error

	// FindStuck returns orders created before the given time that were never
	// forwarded to the finance hub and did not fail.
	FindStuck(ctx context.Context, before time.Time) ([]model.Order, error)
}

// UserRepository defines the interface for user data access operations.
type UserRepository interface {
	// GetByID retrieves a user by ID. Returns nil when the user does not exist.
	GetByID(ctx context.Context, id int64) (*model.User, error)

	// GetByEmail retrieves a user by email. Returns nil when the user does not exist.
	GetByEmail(ctx context.Context, email string) (*model.User, error)

	// AddPoints increases the point balance of the user within the provided transaction.
	// Returns model.ErrPointsLimitExceeded when the new balance would pass maxPoints.
	// A maxPoints of zero means unlimited.
	AddPoints(ctx context.Context, tx pgx.Tx, userID, points, maxPoints int64) error
}

// JobSearchRepository defines the interface for job search data access operations.
type JobSearchRepository interface {
	// CreatePending inserts a pending search unless the user already has limit
	// pending searches. A limit of zero means unlimited. Returns false when the
	// limit was reached.
	CreatePending(ctx context.Context, search *model.JobSearch, limit int) (bool, error)

	// GetByID retrieves a job search. Returns nil when it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.JobSearch, error)

	// Complete stores the result of a pending search and its applications.
	// Returns false when no pending search with that ID exists.
	Complete(ctx context.Context, result model.JobSearchResult) (bool, error)

	// MarkFailed fails a pending search with the given reason.
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// DashboardRepository defines read-only reporting queries.
type DashboardRepository interface {
	// CountSearches counts searches of the user in a status, optionally only those created since a time.
	CountSearches(ctx context.Context, userID int64, status model.JobSearchStatus, since *time.Time) (int, error)

	// ApplicationsPerDay counts applications of the user per UTC day since the given time.
	ApplicationsPerDay(ctx context.Context, userID int64, since time.Time) ([]model.DayCount, error)
}
