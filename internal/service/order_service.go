package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"jobshop/internal/financehub"
	"jobshop/internal/invoice"
	"jobshop/internal/model"
	"jobshop/internal/repository"
	"jobshop/internal/snapshot"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// orderService implements OrderService.
type orderService struct {
	payments  PaymentService
	orderRepo repository.OrderRepository
	userRepo  repository.UserRepository
	invoices  invoice.Store
	hub       financehub.Client
	now       func() time.Time
	logger    zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	payments PaymentService,
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
	invoices invoice.Store,
	hub financehub.Client,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		payments:  payments,
		orderRepo: orderRepo,
		userRepo:  userRepo,
		invoices:  invoices,
		hub:       hub,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger.With().Str("service", "order").Logger(),
	}
}

// Finalize persists the order of a processed payment. A PAID outcome is only
// accepted once the finance hub confirms a captured payment matching the
// order total under a reference no other paid order uses.
func (s *orderService) Finalize(ctx context.Context, rc model.RequestContext, raw []byte) (*model.Order, error) {
	var confirmation model.PaymentConfirmation
	if err := DecodeJSON(raw, &confirmation); err != nil {
		return nil, err
	}
	if err := validateStruct(&confirmation); err != nil {
		return nil, err
	}
	status, ok := model.ParseOrderStatus(confirmation.PaymentStatus)
	if !ok {
		return nil, model.NewValidationError("paymentStatus", "must be one of: PAID FAILED")
	}

	prepared, err := s.payments.Reprice(ctx, rc, raw, status)
	if err != nil {
		return nil, err
	}

	order := prepared.Order
	order.PaymentReference = confirmation.PaymentReference
	if err := order.TransitionTo(status); err != nil {
		return nil, err
	}

	if status == model.OrderStatusPaid {
		if err := s.verifyPayment(ctx, rc, order); err != nil {
			return nil, err
		}
	}

	snapshot.ForOrder(prepared)

	maxPoints := rc.User.AccountType.Limits().MaxPoints
	if err := s.persist(ctx, order, maxPoints); err != nil {
		switch {
		case errors.Is(err, model.ErrPaymentFinalized):
			s.logger.Warn().
				Str("request_id", rc.RequestID).
				Int64("user_id", order.UserID).
				Str("payment_reference", order.PaymentReference).
				Msg("payment reference already finalized")
			return nil, model.ErrPaymentFinalized
		case errors.Is(err, model.ErrPointsLimitExceeded):
			critical(s.logger).
				Str("request_id", rc.RequestID).
				Str("order_id", order.ID.String()).
				Int64("user_id", order.UserID).
				Str("payment_reference", order.PaymentReference).
				Msg("captured payment would exceed points limit")
			return nil, model.ErrPointsLimitExceeded
		}
		critical(s.logger).
			Err(err).
			Str("request_id", rc.RequestID).
			Str("order_id", order.ID.String()).
			Int64("user_id", order.UserID).
			Str("payment_reference", order.PaymentReference).
			Msg("failed to persist finalized order")
		return nil, model.ErrInternal
	}

	s.logger.Info().
		Str("request_id", rc.RequestID).
		Str("order_id", order.ID.String()).
		Str("status", string(order.Status)).
		Int64("granted_points", s.grantedPoints(order)).
		Msg("order finalized")

	if order.Status == model.OrderStatusPaid {
		s.issueInvoice(ctx, order)
		s.transfer(ctx, order)
	}

	return order, nil
}

// verifyPayment checks the reported reference against the finance hub and
// against orders already paid with it.
func (s *orderService) verifyPayment(ctx context.Context, rc model.RequestContext, order *model.Order) error {
	existing, err := s.orderRepo.GetPaidByReference(ctx, order.PaymentReference)
	if err != nil {
		critical(s.logger).
			Err(err).
			Str("request_id", rc.RequestID).
			Str("payment_reference", order.PaymentReference).
			Msg("failed to look up payment reference")
		return model.ErrInternal
	}
	if existing != nil {
		s.logger.Warn().
			Str("request_id", rc.RequestID).
			Int64("user_id", order.UserID).
			Str("payment_reference", order.PaymentReference).
			Str("existing_order_id", existing.ID.String()).
			Msg("payment reference already finalized")
		return model.ErrPaymentFinalized
	}

	res := s.hub.ConfirmPayment(ctx, order.PaymentTool, order.PaymentReference)
	if res.Outcome == financehub.ServerError {
		critical(s.logger).
			Str("request_id", rc.RequestID).
			Str("payment_reference", order.PaymentReference).
			Int("status", res.StatusCode).
			Str("message", res.Message).
			Msg("finance hub failed to confirm payment")
		return model.ErrInternal
	}

	total := order.Cost.TotalWithTax
	if !res.Paid() || !res.Amount.Equal(total) || !strings.EqualFold(res.Currency, order.Cost.CurrencyCode) {
		s.logger.Warn().
			Str("request_id", rc.RequestID).
			Int64("user_id", order.UserID).
			Str("payment_reference", order.PaymentReference).
			Str("outcome", res.Outcome.String()).
			Str("payment_status", res.PaymentStatus).
			Str("amount", res.Amount.String()).
			Str("currency", res.Currency).
			Str("expected_amount", total.String()).
			Str("expected_currency", order.Cost.CurrencyCode).
			Msg("payment not confirmed by finance hub")
		return model.ErrPaymentNotConfirmed
	}

	return nil
}

func (s *orderService) grantedPoints(order *model.Order) int64 {
	if order.Status != model.OrderStatusPaid {
		return 0
	}
	return order.GrantedPoints()
}

// persist writes order, cost and snapshots and grants points in one
// transaction. The balance is checked against maxPoints under the row lock.
func (s *orderService) persist(ctx context.Context, order *model.Order, maxPoints int64) (err error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	if points := s.grantedPoints(order); points > 0 {
		if err = s.userRepo.AddPoints(ctx, tx, order.UserID, points, maxPoints); err != nil {
			return fmt.Errorf("failed to grant points: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *orderService) issueInvoice(ctx context.Context, order *model.Order) {
	inv, err := invoice.New(order, s.now())
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to issue invoice")
		return
	}
	if err := s.invoices.Save(ctx, inv); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Str("invoice", inv.Number).
			Msg("failed to store invoice")
		return
	}
	s.logger.Info().Str("order_id", order.ID.String()).Str("invoice", inv.Number).Msg("invoice issued")
}

// transfer forwards the order to the finance hub. Failures leave the order
// untransferred so the stuck order monitor reports it.
func (s *orderService) transfer(ctx context.Context, order *model.Order) {
	res := s.hub.TransferOrder(ctx, order)
	if !res.OK() {
		s.logger.Error().
			Str("order_id", order.ID.String()).
			Str("outcome", res.Outcome.String()).
			Int("status", res.StatusCode).
			Str("message", res.Message).
			Msg("failed to transfer order to finance hub")
		return
	}

	at := s.now()
	if err := s.orderRepo.MarkTransferred(ctx, order.ID, at); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to mark order transferred")
		return
	}
	order.TransferredAt = &at
}

// GetByID returns the order if the caller owns it.
func (s *orderService) GetByID(ctx context.Context, rc model.RequestContext, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order == nil || order.UserID != rc.UserID() {
		s.logger.Debug().Str("order_id", id.String()).Int64("user_id", rc.UserID()).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}

	return order, nil
}

// Invoice returns the stored invoice of an order owned by the caller.
func (s *orderService) Invoice(ctx context.Context, rc model.RequestContext, id uuid.UUID) (*invoice.Invoice, error) {
	if _, err := s.GetByID(ctx, rc, id); err != nil {
		return nil, err
	}

	inv, err := s.invoices.Load(ctx, id)
	if err != nil {
		if errors.Is(err, invoice.ErrNotFound) {
			return nil, model.ErrInvoiceNotFound
		}
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to load invoice")
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}

	return inv, nil
}

// ListStuck returns orders older than olderThan that were never transferred.
func (s *orderService) ListStuck(ctx context.Context, olderThan time.Duration) ([]model.Order, error) {
	orders, err := s.orderRepo.FindStuck(ctx, s.now().Add(-olderThan))
	if err != nil {
		return nil, fmt.Errorf("failed to list stuck orders: %w", err)
	}
	return orders, nil
}
