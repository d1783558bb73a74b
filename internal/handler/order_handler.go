package handler

import (
	"net/http"
	"time"

	"jobshop/internal/model"
	"jobshop/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service    service.OrderService
	stuckHours int
	logger     zerolog.Logger
}

// NewOrderHandler creates a new order handler. stuckHours is the default
// threshold of the stuck order listing.
func NewOrderHandler(service service.OrderService, stuckHours int, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service:    service,
		stuckHours: stuckHours,
		logger:     logger.With().Str("handler", "order").Logger(),
	}
}

// GetByID handles GET /orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	rc, ok := requestContext(w, r, h.logger)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, model.ErrOrderNotFound, h.logger)
		return
	}

	order, err := h.service.GetByID(r.Context(), rc, orderID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"order": order})
}

// Invoice handles GET /orders/{id}/invoice requests.
func (h *OrderHandler) Invoice(w http.ResponseWriter, r *http.Request) {
	rc, ok := requestContext(w, r, h.logger)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, model.ErrOrderNotFound, h.logger)
		return
	}

	inv, err := h.service.Invoice(r.Context(), rc, orderID)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"invoice": inv})
}

// ListStuck handles GET /admin/orders/stuck requests.
func (h *OrderHandler) ListStuck(w http.ResponseWriter, r *http.Request) {
	hours, err := intQuery(r, "hours", h.stuckHours)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	if hours < 1 {
		WriteError(w, model.NewValidationError("hours", "must be at least 1"), h.logger)
		return
	}

	orders, err := h.service.ListStuck(r.Context(), time.Duration(hours)*time.Hour)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{"orders": orders})
}
