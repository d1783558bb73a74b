package service

import (
	"time"

	"jobshop/internal/model"
	"jobshop/internal/pricing"

	"github.com/google/uuid"
)

// buildOrder creates the in-memory order of a priced purchase.
// The order has a cost and no snapshots; nothing is written to the database.
func buildOrder(rc model.RequestContext, data *model.PaymentProcessData, quote pricing.Quote, now time.Time) *model.Order {
	cost := quote.Cost(data.CurrencyCode)
	return &model.Order{
		ID:           uuid.New(),
		UserID:       rc.UserID(),
		Status:       model.OrderStatusPrepared,
		CurrencyCode: data.CurrencyCode,
		PaymentTool:  data.PaymentTool,
		Cost:         cost,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
