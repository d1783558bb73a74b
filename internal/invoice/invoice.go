// Package invoice issues invoices for paid orders and stores them as
// gzip-compressed JSON documents, in S3 with a local-file fallback.
package invoice

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"jobshop/internal/model"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// NumberPrefix starts every invoice number.
const NumberPrefix = "INV-"

// ErrNotFound is returned when no invoice is stored for an order.
var ErrNotFound = errors.New("invoice not found")

// Line is one invoiced order snapshot.
type Line struct {
	ProductID        int64           `json:"productId"`
	Name             string          `json:"name"`
	Kind             string          `json:"kind"`
	Quantity         int             `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unitPrice"`
	UnitPriceWithTax decimal.Decimal `json:"unitPriceWithTax"`
	TaxPercentage    decimal.Decimal `json:"taxPercentage"`
	Total            decimal.Decimal `json:"total"`
	Points           int64           `json:"points,omitempty"`
}

// Invoice is the billing document of a paid order.
type Invoice struct {
	Number          string          `json:"number"`
	OrderID         uuid.UUID       `json:"orderId"`
	UserID          int64           `json:"userId"`
	IssuedAt        time.Time       `json:"issuedAt"`
	CurrencyCode    string          `json:"currencyCode"`
	PaymentTool     string          `json:"paymentTool"`
	Lines           []Line          `json:"lines"`
	TotalWithoutTax decimal.Decimal `json:"totalWithoutTax"`
	TotalWithTax    decimal.Decimal `json:"totalWithTax"`
	TaxAmount       decimal.Decimal `json:"taxAmount"`
}

// New issues an invoice for a priced order.
func New(order *model.Order, issuedAt time.Time) (*Invoice, error) {
	if !order.Priced() {
		return nil, fmt.Errorf("order %s has no cost", order.ID)
	}

	inv := &Invoice{
		Number:          NumberPrefix + ulid.Make().String(),
		OrderID:         order.ID,
		UserID:          order.UserID,
		IssuedAt:        issuedAt.UTC(),
		CurrencyCode:    order.Cost.CurrencyCode,
		PaymentTool:     string(order.PaymentTool),
		TotalWithoutTax: order.Cost.TotalWithoutTax,
		TotalWithTax:    order.Cost.TotalWithTax,
		TaxAmount:       order.Cost.TotalWithTax.Sub(order.Cost.TotalWithoutTax),
	}

	for _, s := range order.Snapshots {
		line := Line{
			ProductID:        s.ProductID,
			Name:             s.Name,
			Kind:             string(s.Kind),
			Quantity:         s.Quantity,
			UnitPrice:        s.Price,
			UnitPriceWithTax: s.PriceWithTax,
			TaxPercentage:    s.TaxPercentage,
			Total:            s.PriceWithTax.Mul(decimal.NewFromInt(int64(s.Quantity))),
		}
		if s.Points != nil {
			line.Points = s.Points.Amount * int64(s.Quantity)
		}
		inv.Lines = append(inv.Lines, line)
	}

	return inv, nil
}

// Encode writes the invoice as gzip-compressed JSON.
func Encode(w io.Writer, inv *Invoice) error {
	gz := gzip.NewWriter(w)
	if err := json.NewEncoder(gz).Encode(inv); err != nil {
		_ = gz.Close()
		return fmt.Errorf("failed to encode invoice: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to compress invoice: %w", err)
	}
	return nil
}

// Decode reads an invoice written by Encode.
func Decode(r io.Reader) (*Invoice, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	var inv Invoice
	if err := json.NewDecoder(gz).Decode(&inv); err != nil {
		return nil, fmt.Errorf("failed to decode invoice: %w", err)
	}
	return &inv, nil
}

// objectName is the file or object name of the invoice of an order.
func objectName(orderID uuid.UUID) string {
	return orderID.String() + ".json.gz"
}
