// Package financehub is the HTTP adapter for the external finance hub.
//
// Every call returns a Result describing how the remote side answered.
// Transport failures and undecodable replies are reported as ServerError
// results, never as panics or bare errors.
package financehub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jobshop/internal/config"
	"jobshop/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	paymentIntentPath = "/api/payments/stripe/intents"
	paymentPath       = "/api/payments/"
	transferOrderPath = "/api/orders"

	tokenHeader = "X-Hub-Token"

	// maxBodySize bounds how much of a reply is read.
	maxBodySize = 1 << 20
)

// Outcome classifies a finance hub reply.
type Outcome int

const (
	Success Outcome = iota
	ClientError
	ServerError
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case ClientError:
		return "client_error"
	default:
		return "server_error"
	}
}

// Result is the explicit outcome of a finance hub call. Payment fields are
// only set by ConfirmPayment.
type Result struct {
	Outcome       Outcome
	StatusCode    int
	Message       string
	Token         string
	PaymentStatus string
	Amount        decimal.Decimal
	Currency      string
}

// Paid reports whether the hub confirmed a captured payment.
func (r Result) Paid() bool {
	return r.OK() && strings.EqualFold(r.PaymentStatus, "PAID")
}

// OK reports whether the call succeeded.
func (r Result) OK() bool {
	return r.Outcome == Success
}

// Client defines the finance hub operations used by the platform.
type Client interface {
	// PaymentIntentToken asks the hub for a payment intent covering the total.
	PaymentIntentToken(ctx context.Context, total decimal.Decimal, currency string) Result

	// ConfirmPayment looks up the payment the provider recorded under reference.
	ConfirmPayment(ctx context.Context, tool model.PaymentTool, reference string) Result

	// TransferOrder forwards a finalized order to the hub for bookkeeping.
	TransferOrder(ctx context.Context, order *model.Order) Result
}

type intentRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type transferLine struct {
	ProductID     int64           `json:"productId"`
	Name          string          `json:"name"`
	Kind          string          `json:"kind"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	PriceWithTax  decimal.Decimal `json:"priceWithTax"`
	TaxPercentage decimal.Decimal `json:"taxPercentage"`
}

type transferRequest struct {
	OrderID          uuid.UUID       `json:"orderId"`
	UserID           int64           `json:"userId"`
	Status           string          `json:"status"`
	PaymentTool      string          `json:"paymentTool"`
	PaymentReference string          `json:"paymentReference"`
	CurrencyCode     string          `json:"currencyCode"`
	TotalWithoutTax  decimal.Decimal `json:"totalWithoutTax"`
	TotalWithTax     decimal.Decimal `json:"totalWithTax"`
	Lines            []transferLine  `json:"lines"`
	CreatedAt        time.Time       `json:"createdAt"`
}

type hubResponse struct {
	Token    string          `json:"token"`
	Message  string          `json:"message"`
	Status   string          `json:"status"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type httpClient struct {
	baseURL string
	token   string
	client  *http.Client
	logger  zerolog.Logger
}

// NewClient creates a finance hub client from configuration.
func NewClient(cfg config.FinanceHubConfig, logger zerolog.Logger) Client {
	return NewClientWithHTTP(cfg, &http.Client{Timeout: cfg.Timeout}, logger)
}

// NewClientWithHTTP creates a finance hub client using the given HTTP client.
func NewClientWithHTTP(cfg config.FinanceHubConfig, client *http.Client, logger zerolog.Logger) Client {
	return &httpClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  client,
		logger:  logger.With().Str("component", "financehub").Logger(),
	}
}

func (c *httpClient) PaymentIntentToken(ctx context.Context, total decimal.Decimal, currency string) Result {
	res := c.do(ctx, http.MethodPost, paymentIntentPath, intentRequest{
		Amount:   total.Round(2),
		Currency: strings.ToUpper(currency),
	})
	if res.OK() && res.Token == "" {
		c.logger.Error().Int("status", res.StatusCode).Msg("payment intent reply carried no token")
		return Result{Outcome: ServerError, StatusCode: res.StatusCode, Message: "empty payment intent token"}
	}
	return res
}

func (c *httpClient) ConfirmPayment(ctx context.Context, tool model.PaymentTool, reference string) Result {
	path := paymentPath + url.PathEscape(reference) + "?tool=" + url.QueryEscape(string(tool))
	res := c.do(ctx, http.MethodGet, path, nil)
	if res.OK() && res.PaymentStatus == "" {
		c.logger.Error().Int("status", res.StatusCode).Msg("payment reply carried no status")
		return Result{Outcome: ServerError, StatusCode: res.StatusCode, Message: "empty payment status"}
	}
	return res
}

func (c *httpClient) TransferOrder(ctx context.Context, order *model.Order) Result {
	req := transferRequest{
		OrderID:          order.ID,
		UserID:           order.UserID,
		Status:           string(order.Status),
		PaymentTool:      string(order.PaymentTool),
		PaymentReference: order.PaymentReference,
		CurrencyCode:     order.CurrencyCode,
		CreatedAt:        order.CreatedAt,
	}
	if order.Cost != nil {
		req.TotalWithoutTax = order.Cost.TotalWithoutTax
		req.TotalWithTax = order.Cost.TotalWithTax
	}
	for _, s := range order.Snapshots {
		req.Lines = append(req.Lines, transferLine{
			ProductID:     s.ProductID,
			Name:          s.Name,
			Kind:          string(s.Kind),
			Quantity:      s.Quantity,
			Price:         s.Price,
			PriceWithTax:  s.PriceWithTax,
			TaxPercentage: s.TaxPercentage,
		})
	}
	return c.do(ctx, http.MethodPost, transferOrderPath, req)
}

// do sends payload as JSON, or no body when payload is nil.
func (c *httpClient) do(ctx context.Context, method, path string, payload any) Result {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return c.serverError(path, 0, fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return c.serverError(path, 0, fmt.Errorf("build request: %w", err))
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set(tokenHeader, c.token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return c.serverError(path, 0, fmt.Errorf("call finance hub: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return c.serverError(path, resp.StatusCode, fmt.Errorf("read reply: %w", err))
	}

	c.logger.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("finance hub replied")

	var decoded hubResponse
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return c.serverError(path, resp.StatusCode, fmt.Errorf("decode reply: %w", err))
			}
			decoded.Message = strings.TrimSpace(string(raw))
		}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return Result{
			Outcome:       Success,
			StatusCode:    resp.StatusCode,
			Message:       decoded.Message,
			Token:         decoded.Token,
			PaymentStatus: decoded.Status,
			Amount:        decoded.Amount,
			Currency:      decoded.Currency,
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		msg := decoded.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		c.logger.Warn().Str("path", path).Int("status", resp.StatusCode).Str("message", msg).Msg("finance hub rejected request")
		return Result{Outcome: ClientError, StatusCode: resp.StatusCode, Message: msg}
	default:
		return c.serverError(path, resp.StatusCode, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, decoded.Message))
	}
}

func (c *httpClient) serverError(path string, status int, err error) Result {
	c.logger.Error().Err(err).Str("path", path).Int("status", status).Msg("finance hub call failed")
	return Result{Outcome: ServerError, StatusCode: status, Message: err.Error()}
}
