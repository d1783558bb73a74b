package service

import (
	"context"
	"time"

	"jobshop/internal/invoice"
	"jobshop/internal/model"

	"github.com/google/uuid"
)

// ProductService defines operations for catalog management.
type ProductService interface {
	// List retrieves products with pagination.
	List(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a product that has not been deleted.
	GetByID(ctx context.Context, id int64) (*model.Product, error)

	// Create validates and adds a product to the catalog.
	Create(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error)

	// Delete soft-deletes a product.
	Delete(ctx context.Context, id int64) error
}

// PaymentService prepares purchases and talks to the finance hub on their behalf.
type PaymentService interface {
	// Prepare validates a raw payment request, resolves and prices the product and
	// returns an in-memory order. It never persists anything.
	Prepare(ctx context.Context, rc model.RequestContext, raw []byte) (*model.PreparedOrder, error)

	// Reprice prepares the purchase again for a reported payment outcome.
	// The points limit is only enforced for PAID outcomes.
	Reprice(ctx context.Context, rc model.RequestContext, raw []byte, outcome model.OrderStatus) (*model.PreparedOrder, error)

	// PaymentIntentToken prepares the purchase and requests a payment intent for its total.
	PaymentIntentToken(ctx context.Context, rc model.RequestContext, raw []byte) (string, error)
}

// OrderService defines operations on persisted orders.
type OrderService interface {
	// Finalize re-prepares the purchase, applies the reported payment outcome and persists the order.
	Finalize(ctx context.Context, rc model.RequestContext, raw []byte) (*model.Order, error)

	// GetByID retrieves an order owned by the caller.
	GetByID(ctx context.Context, rc model.RequestContext, id uuid.UUID) (*model.Order, error)

	// Invoice retrieves the invoice of an order owned by the caller.
	Invoice(ctx context.Context, rc model.RequestContext, id uuid.UUID) (*invoice.Invoice, error)

	// ListStuck returns orders older than olderThan that never reached the finance hub.
	ListStuck(ctx context.Context, olderThan time.Duration) ([]model.Order, error)
}

// AuthService authenticates users.
type AuthService interface {
	// Login checks credentials and returns an access token.
	Login(ctx context.Context, req *model.LoginRequest) (string, error)

	// Authenticate resolves the user behind an access token.
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// JobSearchService delegates job searches to the job searcher hub.
type JobSearchService interface {
	// Request starts a new search for the caller.
	Request(ctx context.Context, rc model.RequestContext, req *model.JobSearchRequest) (*model.JobSearch, error)

	// GetByID retrieves a search owned by the caller.
	GetByID(ctx context.Context, rc model.RequestContext, id uuid.UUID) (*model.JobSearch, error)

	// HandleResult records the outcome of a search reported by the hub.
	HandleResult(ctx context.Context, result model.JobSearchResult) error
}

// DashboardService aggregates user activity.
type DashboardService interface {
	// Get builds the dashboard of the caller covering the last days of applications.
	Get(ctx context.Context, rc model.RequestContext, days int) (*model.Dashboard, error)
}

// JobSearchPublisher sends search requests to the job searcher hub.
type JobSearchPublisher interface {
	PublishJobSearch(ctx context.Context, msg model.JobSearchMessage) error
}
