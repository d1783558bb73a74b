package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentTool is the payment method chosen by the client.
type PaymentTool string

const (
	PaymentToolStripe PaymentTool = "STRIPE"
	PaymentToolPaypal PaymentTool = "PAYPAL"
)

// ParsePaymentTool validates a client-supplied payment tool against the fixed set.
func ParsePaymentTool(s string) (PaymentTool, error) {
	switch PaymentTool(strings.ToUpper(strings.TrimSpace(s))) {
	case PaymentToolStripe:
		return PaymentToolStripe, nil
	case PaymentToolPaypal:
		return PaymentToolPaypal, nil
	default:
		return "", ErrUnsupportedPaymentTool
	}
}

// PaymentRequest is the payload submitted by the client to price a purchase.
type PaymentRequest struct {
	ProductID       int64          `json:"productId" validate:"required,gt=0"`
	Quantity        int            `json:"quantity" validate:"required,gt=0"`
	CurrencyCode    string         `json:"currencyCode" validate:"required,len=3,alpha"`
	PaymentTool     string         `json:"paymentTool" validate:"required"`
	PaymentToolData map[string]any `json:"paymentToolData"`
}

// PaymentConfirmation is the outcome reported once the provider has processed the payment.
// A PAID outcome must name the provider reference so it can be verified.
type PaymentConfirmation struct {
	PaymentStatus    string `json:"paymentStatus" validate:"required,oneof=PAID FAILED"`
	PaymentReference string `json:"paymentReference" validate:"required_if=PaymentStatus PAID,max=255"`
}

// PaymentProcessData carries a validated payment request through preparation.
type PaymentProcessData struct {
	ProductID        int64
	Quantity         int
	CurrencyCode     string
	PaymentTool      PaymentTool
	PaymentToolData  map[string]any
	UnitPrice        decimal.Decimal
	UnitPriceWithTax decimal.Decimal
}

// PreparedOrder is the transient result of preparing a purchase. Nothing in it is persisted.
type PreparedOrder struct {
	Order   *Order
	Cost    *Cost
	Product *Product
	Data    *PaymentProcessData
}
