package model

import "strings"

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON            = "INVALID_JSON"
	ErrCodeValidation             = "VALIDATION_FAILED"
	ErrCodeProductNotFound        = "PRODUCT_NOT_FOUND"
	ErrCodeUnknownProduct         = "UNKNOWN_PRODUCT"
	ErrCodeProductNotPurchasable  = "PRODUCT_NOT_PURCHASABLE"
	ErrCodeUnsupportedPaymentTool = "UNSUPPORTED_PAYMENT_TOOL"
	ErrCodeUnsupportedCurrency    = "UNSUPPORTED_CURRENCY"
	ErrCodePointsLimitExceeded    = "POINTS_LIMIT_EXCEEDED"
	ErrCodeInvalidTransition      = "INVALID_STATUS_TRANSITION"
	ErrCodeRemoteClientError      = "REMOTE_CLIENT_ERROR"
	ErrCodePaymentNotConfirmed    = "PAYMENT_NOT_CONFIRMED"
	ErrCodePaymentFinalized       = "PAYMENT_ALREADY_FINALIZED"
	ErrCodeOrderNotFound          = "ORDER_NOT_FOUND"
	ErrCodeInvoiceNotFound        = "INVOICE_NOT_FOUND"
	ErrCodeJobSearchNotFound      = "JOB_SEARCH_NOT_FOUND"
	ErrCodeTooManySearches        = "TOO_MANY_PARALLEL_SEARCHES"
	ErrCodeInvalidCredentials     = "INVALID_CREDENTIALS"
	ErrCodeUnauthorised           = "UNAUTHORIZED"
	ErrCodeForbidden              = "FORBIDDEN"
	ErrCodeMaintenance            = "MAINTENANCE"
	ErrCodeNotFound               = "NOT_FOUND"
	ErrCodeMethodNotAllowed       = "METHOD_NOT_ALLOWED"
	ErrCodeInternalError          = "INTERNAL_ERROR"
)

// DomainError is a business rule failure carrying an API error code.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so that errors created per call (for
// example remote client errors carrying the hub message) still match the
// sentinel of the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrInvalidJSON            = NewDomainError(ErrCodeInvalidJSON, "Request body is not valid JSON")
	ErrProductNotFound        = NewDomainError(ErrCodeProductNotFound, "Product not found")
	ErrUnknownProduct         = NewDomainError(ErrCodeUnknownProduct, "Product does not exist")
	ErrProductNotPurchasable  = NewDomainError(ErrCodeProductNotPurchasable, "Product is not available for purchase")
	ErrUnsupportedPaymentTool = NewDomainError(ErrCodeUnsupportedPaymentTool, "Payment tool is not supported")
	ErrUnsupportedCurrency    = NewDomainError(ErrCodeUnsupportedCurrency, "Currency is not supported")
	ErrPointsLimitExceeded    = NewDomainError(ErrCodePointsLimitExceeded, "Purchase would exceed the points limit of the account")
	ErrInvalidTransition      = NewDomainError(ErrCodeInvalidTransition, "Order status transition is not allowed")
	ErrRemoteClient           = NewDomainError(ErrCodeRemoteClientError, "Payment provider rejected the request")
	ErrPaymentNotConfirmed    = NewDomainError(ErrCodePaymentNotConfirmed, "Payment was not confirmed by the payment provider")
	ErrPaymentFinalized       = NewDomainError(ErrCodePaymentFinalized, "Payment has already been finalized")
	ErrOrderNotFound          = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrInvoiceNotFound        = NewDomainError(ErrCodeInvoiceNotFound, "Invoice not found")
	ErrJobSearchNotFound      = NewDomainError(ErrCodeJobSearchNotFound, "Job search not found")
	ErrTooManySearches        = NewDomainError(ErrCodeTooManySearches, "Maximum number of parallel job searches reached")
	ErrInvalidCredentials     = NewDomainError(ErrCodeInvalidCredentials, "Invalid email or password")
	ErrUnauthorised           = NewDomainError(ErrCodeUnauthorised, "Authentication required")
	ErrForbidden              = NewDomainError(ErrCodeForbidden, "Access denied")
	ErrMaintenance            = NewDomainError(ErrCodeMaintenance, "Service is under maintenance")
	ErrNotFound               = NewDomainError(ErrCodeNotFound, "Resource not found")
	ErrMethodNotAllowed       = NewDomainError(ErrCodeMethodNotAllowed, "Method not allowed")
	ErrInternal               = NewDomainError(ErrCodeInternalError, "Internal server error")
)

// Violation describes a single invalid field of a request.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when a request payload fails field validation.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Violations: []Violation{{Field: field, Message: message}}}
}
