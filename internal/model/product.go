package model

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// ProductKind discriminates catalog product variants.
type ProductKind string

const (
	ProductKindBase  ProductKind = "BASE"
	ProductKindPoint ProductKind = "POINT"
)

// Valid reports whether k is a known product kind.
func (k ProductKind) Valid() bool {
	return k == ProductKindBase || k == ProductKindPoint
}

// MaxPointAmount caps the points a single product unit may grant.
const MaxPointAmount = 1_000_000

// PointDetails is the payload of point products and their snapshots.
type PointDetails struct {
	Amount int64 `json:"amount"`
}

// Product represents a purchasable catalog item.
// Points is set if and only if Kind is ProductKindPoint.
type Product struct {
	ID            int64           `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	Kind          ProductKind     `json:"kind" db:"kind"`
	Price         decimal.Decimal `json:"price" db:"price"`
	TaxPercentage decimal.Decimal `json:"taxPercentage" db:"tax_percentage"`
	Active        bool            `json:"active" db:"active"`
	Points        *PointDetails   `json:"points,omitempty"`
	DeletedAt     *time.Time      `json:"-" db:"deleted_at"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
}

// Purchasable reports whether the product may be sold.
func (p *Product) Purchasable() bool {
	return p.Active && p.DeletedAt == nil
}

// PointsPerUnit returns the points granted for one unit, zero for base products.
func (p *Product) PointsPerUnit() int64 {
	if p.Kind != ProductKindPoint || p.Points == nil {
		return 0
	}
	return p.Points.Amount
}

// PointsFor returns the points granted for quantity units. ok is false when
// the total does not fit in an int64.
func (p *Product) PointsFor(quantity int) (points int64, ok bool) {
	per := p.PointsPerUnit()
	if per <= 0 || quantity <= 0 {
		return 0, true
	}
	if int64(quantity) > math.MaxInt64/per {
		return 0, false
	}
	return per * int64(quantity), true
}

// CreateProductRequest is the admin payload for adding a product.
type CreateProductRequest struct {
	Name          string          `json:"name" validate:"required,max=255"`
	Kind          ProductKind     `json:"kind" validate:"required"`
	Price         decimal.Decimal `json:"price"`
	TaxPercentage decimal.Decimal `json:"taxPercentage"`
	Active        bool            `json:"active"`
	PointAmount   int64           `json:"pointAmount" validate:"gte=0"`
}
