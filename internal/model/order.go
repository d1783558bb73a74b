package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPrepared OrderStatus = "PREPARED"
	OrderStatusPaid     OrderStatus = "PAID"
	OrderStatusFailed   OrderStatus = "FAILED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPrepared: {OrderStatusPaid, OrderStatusFailed},
}

// ParseOrderStatus converts a payment outcome reported by the client into a status.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case OrderStatusPrepared, OrderStatusPaid, OrderStatusFailed:
		return OrderStatus(s), true
	default:
		return "", false
	}
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusPaid || s == OrderStatusFailed
}

// Cost is the priced total of an order. It is set once per order.
type Cost struct {
	TotalWithoutTax decimal.Decimal `json:"totalWithoutTax" db:"total_without_tax"`
	TotalWithTax    decimal.Decimal `json:"totalWithTax" db:"total_with_tax"`
	UsedTaxValue    decimal.Decimal `json:"usedTaxValue" db:"used_tax_value"`
	CurrencyCode    string          `json:"currencyCode" db:"currency_code"`
}

// Order is a purchase made by a user.
type Order struct {
	ID               uuid.UUID              `json:"id" db:"id"`
	UserID           int64                  `json:"userId" db:"user_id"`
	Status           OrderStatus            `json:"status" db:"status"`
	CurrencyCode     string                 `json:"currencyCode" db:"currency_code"`
	PaymentTool      PaymentTool            `json:"paymentTool" db:"payment_tool"`
	PaymentReference string                 `json:"paymentReference,omitempty" db:"payment_reference"`
	Cost             *Cost                  `json:"cost,omitempty"`
	Snapshots        []OrderProductSnapshot `json:"snapshots,omitempty"`
	TransferredAt    *time.Time             `json:"transferredAt,omitempty" db:"transferred_at"`
	CreatedAt        time.Time              `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time              `json:"updatedAt" db:"updated_at"`
}

// TransitionTo moves the order to the next status if the state machine allows it.
func (o *Order) TransitionTo(next OrderStatus) error {
	if o.Status.Terminal() {
		return ErrInvalidTransition
	}
	for _, allowed := range orderTransitions[o.Status] {
		if allowed == next {
			o.Status = next
			o.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrInvalidTransition
}

// Priced reports whether the order carries a cost with a total.
func (o *Order) Priced() bool {
	return o.Cost != nil && o.Cost.TotalWithTax.IsPositive()
}

// GrantedPoints returns the points the order adds to the buyer's balance.
func (o *Order) GrantedPoints() int64 {
	var total int64
	for _, s := range o.Snapshots {
		if s.Points != nil {
			total += s.Points.Amount * int64(s.Quantity)
		}
	}
	return total
}

// OrderProductSnapshot is an immutable copy of a product taken when the order is confirmed.
// Points is set if and only if Kind is ProductKindPoint.
type OrderProductSnapshot struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	OrderID       uuid.UUID       `json:"-" db:"order_id"`
	ProductID     int64           `json:"productId" db:"product_id"`
	Kind          ProductKind     `json:"kind" db:"kind"`
	Name          string          `json:"name" db:"name"`
	Price         decimal.Decimal `json:"price" db:"price"`
	PriceWithTax  decimal.Decimal `json:"priceWithTax" db:"price_with_tax"`
	TaxPercentage decimal.Decimal `json:"taxPercentage" db:"tax_percentage"`
	Quantity      int             `json:"quantity" db:"quantity"`
	Points        *PointDetails   `json:"points,omitempty"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
}
