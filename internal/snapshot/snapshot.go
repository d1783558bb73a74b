// Package snapshot freezes catalog products into order snapshots.
package snapshot

import (
	"time"

	"jobshop/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Build returns an immutable copy of the product as sold. Point products keep
// their point amount; base products carry no payload.
func Build(product *model.Product, taxPercentage decimal.Decimal, quantity int, priceWithTax decimal.Decimal) model.OrderProductSnapshot {
	s := model.OrderProductSnapshot{
		ID:            uuid.New(),
		ProductID:     product.ID,
		Kind:          model.ProductKindBase,
		Name:          product.Name,
		Price:         product.Price,
		PriceWithTax:  priceWithTax,
		TaxPercentage: taxPercentage,
		Quantity:      quantity,
		CreatedAt:     time.Now().UTC(),
	}

	if product.Kind == model.ProductKindPoint && product.Points != nil {
		s.Kind = model.ProductKindPoint
		s.Points = &model.PointDetails{Amount: product.Points.Amount}
	}

	return s
}

// ForOrder builds the snapshot of a prepared order and attaches it to the order.
func ForOrder(prepared *model.PreparedOrder) model.OrderProductSnapshot {
	s := Build(
		prepared.Product,
		prepared.Cost.UsedTaxValue,
		prepared.Data.Quantity,
		prepared.Data.UnitPriceWithTax,
	)
	s.OrderID = prepared.Order.ID
	prepared.Order.Snapshots = append(prepared.Order.Snapshots, s)
	return s
}
