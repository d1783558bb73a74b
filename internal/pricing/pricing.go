// Package pricing computes tax-inclusive prices and order totals.
package pricing

import (
	"errors"

	"jobshop/internal/model"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits of monetary amounts.
const Scale = 2

var (
	hundred = decimal.NewFromInt(100)

	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrInvalidPrice    = errors.New("price must be greater than zero")
	ErrInvalidTax      = errors.New("tax percentage must be between 0 and 100")
)

// Quote is the priced result for a quantity of a single product.
type Quote struct {
	UnitPrice        decimal.Decimal
	UnitPriceWithTax decimal.Decimal
	TaxPercentage    decimal.Decimal
	Quantity         int
	TotalWithoutTax  decimal.Decimal
	TotalWithTax     decimal.Decimal
}

// PriceWithTax returns price * (1 + taxPercentage/100) rounded to cents.
func PriceWithTax(price, taxPercentage decimal.Decimal) decimal.Decimal {
	multiplier := decimal.NewFromInt(1).Add(taxPercentage.Div(hundred))
	return price.Mul(multiplier).Round(Scale)
}

// Compute prices quantity units of a product. Totals are derived from the rounded
// unit prices so that totalWithTax always equals quantity * priceWithTax.
func Compute(price, taxPercentage decimal.Decimal, quantity int) (Quote, error) {
	if quantity <= 0 {
		return Quote{}, ErrInvalidQuantity
	}
	if !price.IsPositive() {
		return Quote{}, ErrInvalidPrice
	}
	if taxPercentage.IsNegative() || taxPercentage.GreaterThan(hundred) {
		return Quote{}, ErrInvalidTax
	}

	unit := price.Round(Scale)
	unitWithTax := PriceWithTax(unit, taxPercentage)
	qty := decimal.NewFromInt(int64(quantity))

	return Quote{
		UnitPrice:        unit,
		UnitPriceWithTax: unitWithTax,
		TaxPercentage:    taxPercentage,
		Quantity:         quantity,
		TotalWithoutTax:  unit.Mul(qty),
		TotalWithTax:     unitWithTax.Mul(qty),
	}, nil
}

// ForProduct prices quantity units of the given catalog product.
func ForProduct(product *model.Product, quantity int) (Quote, error) {
	return Compute(product.Price, product.TaxPercentage, quantity)
}

// Cost converts the quote into an order cost in the given currency.
func (q Quote) Cost(currencyCode string) *model.Cost {
	return &model.Cost{
		TotalWithoutTax: q.TotalWithoutTax,
		TotalWithTax:    q.TotalWithTax,
		UsedTaxValue:    q.TaxPercentage,
		CurrencyCode:    currencyCode,
	}
}
