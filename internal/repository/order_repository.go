package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jobshop/internal/model"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	uniqueViolation         = "23505"
	paidReferenceConstraint = "uq_orders_paid_payment_reference"
)

var orderColumns = []string{
	"o.id", "o.user_id", "o.status", "o.currency_code", "o.payment_tool", "o.payment_reference",
	"o.transferred_at", "o.created_at", "o.updated_at",
	"c.total_without_tax", "c.total_with_tax", "c.used_tax_value", "c.currency_code",
}

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

func selectOrders() sq.SelectBuilder {
	return psql.Select(orderColumns...).
		From("orders o").
		LeftJoin("order_costs c ON c.order_id = o.id")
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var (
		o            model.Order
		withoutTax   decimal.NullDecimal
		withTax      decimal.NullDecimal
		usedTax      decimal.NullDecimal
		costCurrency *string
	)
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.Status,
		&o.CurrencyCode,
		&o.PaymentTool,
		&o.PaymentReference,
		&o.TransferredAt,
		&o.CreatedAt,
		&o.UpdatedAt,
		&withoutTax,
		&withTax,
		&usedTax,
		&costCurrency,
	)
	if err != nil {
		return nil, err
	}
	if costCurrency != nil {
		o.Cost = &model.Cost{
			TotalWithoutTax: withoutTax.Decimal,
			TotalWithTax:    withTax.Decimal,
			UsedTaxValue:    usedTax.Decimal,
			CurrencyCode:    *costCurrency,
		}
	}
	return &o, nil
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateOrder inserts the order, its cost and its snapshots as one batch.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	batch := &pgx.Batch{}

	batch.Queue(`
		INSERT INTO orders (id, user_id, status, currency_code, payment_tool, payment_reference, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, order.ID, order.UserID, order.Status, order.CurrencyCode, order.PaymentTool,
		order.PaymentReference, order.CreatedAt, order.UpdatedAt)

	if order.Cost != nil {
		batch.Queue(`
			INSERT INTO order_costs (order_id, total_without_tax, total_with_tax, used_tax_value, currency_code)
			VALUES ($1, $2, $3, $4, $5)
		`, order.ID, order.Cost.TotalWithoutTax, order.Cost.TotalWithTax,
			order.Cost.UsedTaxValue, order.Cost.CurrencyCode)
	}

	for _, s := range order.Snapshots {
		var pointAmount *int64
		if s.Points != nil {
			amount := s.Points.Amount
			pointAmount = &amount
		}
		batch.Queue(`
			INSERT INTO order_product_snapshots
				(id, order_id, product_id, kind, name, price, price_with_tax, tax_percentage, quantity, point_amount, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, s.ID, order.ID, s.ProductID, s.Kind, s.Name, s.Price, s.PriceWithTax,
			s.TaxPercentage, s.Quantity, pointAmount, s.CreatedAt)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == paidReferenceConstraint {
				r.logger.Warn().
					Str("order_id", order.ID.String()).
					Str("payment_reference", order.PaymentReference).
					Msg("payment reference already finalized")
				return model.ErrPaymentFinalized
			}
			r.logger.Error().
				Err(err).
				Str("order_id", order.ID.String()).
				Int("statement", i).
				Msg("failed to create order")
			return fmt.Errorf("failed to create order: %w", err)
		}
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Int("snapshots", len(order.Snapshots)).
		Msg("order created successfully")

	return nil
}

// GetByID retrieves an order by its ID along with its cost and snapshots.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query, args, err := selectOrders().Where(sq.Eq{"o.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build order query: %w", err)
	}

	order, err := scanOrder(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	snapshotsQuery := `
		SELECT id, order_id, product_id, kind, name, price, price_with_tax, tax_percentage, quantity, point_amount, created_at
		FROM order_product_snapshots
		WHERE order_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, snapshotsQuery, id)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Msg("failed to query order snapshots")
		return nil, fmt.Errorf("failed to query order snapshots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			s           model.OrderProductSnapshot
			pointAmount *int64
		)
		err := rows.Scan(&s.ID, &s.OrderID, &s.ProductID, &s.Kind, &s.Name, &s.Price,
			&s.PriceWithTax, &s.TaxPercentage, &s.Quantity, &pointAmount, &s.CreatedAt)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order snapshot row")
			return nil, fmt.Errorf("failed to scan order snapshot: %w", err)
		}
		if pointAmount != nil {
			s.Points = &model.PointDetails{Amount: *pointAmount}
		}
		order.Snapshots = append(order.Snapshots, s)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order snapshot rows")
		return nil, fmt.Errorf("error iterating order snapshots: %w", err)
	}

	return order, nil
}

// GetPaidByReference retrieves the paid order recorded for a payment reference.
func (r *orderRepository) GetPaidByReference(ctx context.Context, reference string) (*model.Order, error) {
	query, args, err := selectOrders().
		Where(sq.Eq{"o.payment_reference": reference, "o.status": string(model.OrderStatusPaid)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build order query: %w", err)
	}

	order, err := scanOrder(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("payment_reference", reference).Msg("failed to query order by reference")
		return nil, fmt.Errorf("failed to query order by reference: %w", err)
	}

	return order, nil
}

// MarkTransferred records that the order was forwarded to the finance hub.
func (r *orderRepository) MarkTransferred(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE orders
		SET transferred_at = $2, updated_at = $2
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to mark order transferred")
		return fmt.Errorf("failed to mark order transferred: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	return nil
}

// FindStuck returns untransferred, non-failed orders created before the given time.
func (r *orderRepository) FindStuck(ctx context.Context, before time.Time) ([]model.Order, error) {
	query, args, err := selectOrders().
		Where(sq.Eq{"o.transferred_at": nil}).
		Where(sq.NotEq{"o.status": string(model.OrderStatusFailed)}).
		Where(sq.Lt{"o.created_at": before}).
		OrderBy("o.created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build stuck orders query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Time("before", before).Msg("failed to query stuck orders")
		return nil, fmt.Errorf("failed to query stuck orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}
