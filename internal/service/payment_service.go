package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jobshop/internal/config"
	"jobshop/internal/financehub"
	"jobshop/internal/model"
	"jobshop/internal/pricing"
	"jobshop/internal/repository"

	"github.com/rs/zerolog"
)

// paymentService implements PaymentService.
type paymentService struct {
	productRepo repository.ProductRepository
	hub         financehub.Client
	currencies  map[string]struct{}
	maxQuantity int
	now         func() time.Time
	logger      zerolog.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	productRepo repository.ProductRepository,
	hub financehub.Client,
	cfg config.PaymentConfig,
	logger zerolog.Logger,
) PaymentService {
	currencies := make(map[string]struct{}, len(cfg.SupportedCurrencies))
	for _, c := range cfg.SupportedCurrencies {
		currencies[strings.ToUpper(c)] = struct{}{}
	}

	return &paymentService{
		productRepo: productRepo,
		hub:         hub,
		currencies:  currencies,
		maxQuantity: cfg.MaxQuantity,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger.With().Str("service", "payment").Logger(),
	}
}

// Prepare validates the request, resolves and prices the product and builds the order in memory.
// Client errors are returned as is; anything else is logged as critical and hidden behind ErrInternal.
func (s *paymentService) Prepare(ctx context.Context, rc model.RequestContext, raw []byte) (*model.PreparedOrder, error) {
	return s.guardedPrepare(ctx, rc, raw, true)
}

// Reprice prepares the purchase again for a reported payment outcome. The
// points limit only applies when the outcome is PAID.
func (s *paymentService) Reprice(ctx context.Context, rc model.RequestContext, raw []byte, outcome model.OrderStatus) (*model.PreparedOrder, error) {
	return s.guardedPrepare(ctx, rc, raw, outcome == model.OrderStatusPaid)
}

func (s *paymentService) guardedPrepare(ctx context.Context, rc model.RequestContext, raw []byte, grantsPoints bool) (prepared *model.PreparedOrder, err error) {
	defer func() {
		if r := recover(); r != nil {
			critical(s.logger).
				Str("request_id", rc.RequestID).
				Int64("user_id", rc.UserID()).
				Bytes("payload", raw).
				Interface("panic", r).
				Msg("payment preparation panicked")
			prepared, err = nil, model.ErrInternal
		}
	}()

	prepared, err = s.prepare(ctx, rc, raw, grantsPoints)
	if err == nil {
		return prepared, nil
	}
	if isClientError(err) {
		s.logger.Debug().
			Err(err).
			Str("request_id", rc.RequestID).
			Int64("user_id", rc.UserID()).
			Msg("payment request rejected")
		return nil, err
	}

	critical(s.logger).
		Err(err).
		Str("request_id", rc.RequestID).
		Int64("user_id", rc.UserID()).
		Bytes("payload", raw).
		Msg("payment preparation failed")
	return nil, model.ErrInternal
}

func (s *paymentService) prepare(ctx context.Context, rc model.RequestContext, raw []byte, grantsPoints bool) (*model.PreparedOrder, error) {
	if rc.User == nil {
		return nil, model.ErrUnauthorised
	}

	var req model.PaymentRequest
	if err := DecodeJSON(raw, &req); err != nil {
		return nil, err
	}
	if err := validateStruct(&req); err != nil {
		return nil, err
	}
	if s.maxQuantity > 0 && req.Quantity > s.maxQuantity {
		return nil, model.NewValidationError("quantity", fmt.Sprintf("must be at most %d", s.maxQuantity))
	}

	tool, err := model.ParsePaymentTool(req.PaymentTool)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(req.CurrencyCode)
	if _, ok := s.currencies[currency]; !ok {
		return nil, model.ErrUnsupportedCurrency
	}

	product, err := s.productRepo.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve product %d: %w", req.ProductID, err)
	}
	if product == nil {
		return nil, model.ErrUnknownProduct
	}
	if !product.Purchasable() {
		return nil, model.ErrProductNotPurchasable
	}

	quote, err := pricing.ForProduct(product, req.Quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to price product %d: %w", product.ID, err)
	}

	if grantsPoints {
		points, ok := product.PointsFor(req.Quantity)
		if !ok || (points > 0 && !rc.User.CanReceivePoints(points)) {
			return nil, model.ErrPointsLimitExceeded
		}
	}

	data := &model.PaymentProcessData{
		ProductID:        product.ID,
		Quantity:         req.Quantity,
		CurrencyCode:     currency,
		PaymentTool:      tool,
		PaymentToolData:  req.PaymentToolData,
		UnitPrice:        quote.UnitPrice,
		UnitPriceWithTax: quote.UnitPriceWithTax,
	}

	order := buildOrder(rc, data, quote, s.now())
	if !order.Priced() {
		return nil, fmt.Errorf("order %s built without a positive total", order.ID)
	}

	return &model.PreparedOrder{
		Order:   order,
		Cost:    order.Cost,
		Product: product,
		Data:    data,
	}, nil
}

// PaymentIntentToken prepares the purchase and asks the finance hub for a payment intent.
func (s *paymentService) PaymentIntentToken(ctx context.Context, rc model.RequestContext, raw []byte) (string, error) {
	prepared, err := s.Prepare(ctx, rc, raw)
	if err != nil {
		return "", err
	}

	res := s.hub.PaymentIntentToken(ctx, prepared.Cost.TotalWithTax, prepared.Cost.CurrencyCode)
	switch res.Outcome {
	case financehub.Success:
		s.logger.Info().
			Str("request_id", rc.RequestID).
			Int64("user_id", rc.UserID()).
			Int64("product_id", prepared.Product.ID).
			Str("total", prepared.Cost.TotalWithTax.StringFixed(pricing.Scale)).
			Str("currency", prepared.Cost.CurrencyCode).
			Msg("payment intent created")
		return res.Token, nil
	case financehub.ClientError:
		s.logger.Warn().
			Str("request_id", rc.RequestID).
			Int("status", res.StatusCode).
			Str("message", res.Message).
			Msg("finance hub rejected payment intent")
		return "", model.NewDomainError(model.ErrCodeRemoteClientError, res.Message)
	default:
		critical(s.logger).
			Str("request_id", rc.RequestID).
			Int64("user_id", rc.UserID()).
			Int("status", res.StatusCode).
			Str("message", res.Message).
			Msg("finance hub failed to create payment intent")
		return "", model.ErrInternal
	}
}
