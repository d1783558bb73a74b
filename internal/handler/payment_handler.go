package handler

import (
	"net/http"

	"jobshop/internal/service"

	"github.com/rs/zerolog"
)

// PaymentHandler handles the Stripe payment flow.
type PaymentHandler struct {
	payments service.PaymentService
	orders   service.OrderService
	logger   zerolog.Logger
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(payments service.PaymentService, orders service.OrderService, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		orders:   orders,
		logger:   logger.With().Str("handler", "payment").Logger(),
	}
}

// IntentToken handles POST /payment/stripe/get-payment-intent-token requests.
func (h *PaymentHandler) IntentToken(w http.ResponseWriter, r *http.Request) {
	rc, ok := requestContext(w, r, h.logger)
	if !ok {
		return
	}

	raw, err := readBody(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	token, err := h.payments.PaymentIntentToken(r.Context(), rc, raw)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"intentToken": token})
}

// Finalize handles POST /payment/stripe/finalize requests.
func (h *PaymentHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	rc, ok := requestContext(w, r, h.logger)
	if !ok {
		return
	}

	raw, err := readBody(r)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	order, err := h.orders.Finalize(r.Context(), rc, raw)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"order": order})
}
