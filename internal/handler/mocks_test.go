package handler

import (
	"context"
	"net/http"
	"time"

	"jobshop/internal/auth"
	"jobshop/internal/invoice"
	"jobshop/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockProductService is a mock implementation of service.ProductService.
type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) List(ctx context.Context, limit, offset int) ([]model.Product, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductService) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductService) Create(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductService) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockPaymentService is a mock implementation of service.PaymentService.
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) Prepare(ctx context.Context, rc model.RequestContext, raw []byte) (*model.PreparedOrder, error) {
	args := m.Called(ctx, rc, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PreparedOrder), args.Error(1)
}

func (m *MockPaymentService) Reprice(ctx context.Context, rc model.RequestContext, raw []byte, outcome model.OrderStatus) (*model.PreparedOrder, error) {
	args := m.Called(ctx, rc, raw, outcome)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PreparedOrder), args.Error(1)
}

func (m *MockPaymentService) PaymentIntentToken(ctx context.Context, rc model.RequestContext, raw []byte) (string, error) {
	args := m.Called(ctx, rc, raw)
	return args.String(0), args.Error(1)
}

// MockOrderService is a mock implementation of service.OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Finalize(ctx context.Context, rc model.RequestContext, raw []byte) (*model.Order, error) {
	args := m.Called(ctx, rc, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) GetByID(ctx context.Context, rc model.RequestContext, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, rc, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) Invoice(ctx context.Context, rc model.RequestContext, id uuid.UUID) (*invoice.Invoice, error) {
	args := m.Called(ctx, rc, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoice.Invoice), args.Error(1)
}

func (m *MockOrderService) ListStuck(ctx context.Context, olderThan time.Duration) ([]model.Order, error) {
	args := m.Called(ctx, olderThan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

// MockAuthService is a mock implementation of service.AuthService.
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, req *model.LoginRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// MockJobSearchService is a mock implementation of service.JobSearchService.
type MockJobSearchService struct {
	mock.Mock
}

func (m *MockJobSearchService) Request(ctx context.Context, rc model.RequestContext, req *model.JobSearchRequest) (*model.JobSearch, error) {
	args := m.Called(ctx, rc, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.JobSearch), args.Error(1)
}

func (m *MockJobSearchService) GetByID(ctx context.Context, rc model.RequestContext, id uuid.UUID) (*model.JobSearch, error) {
	args := m.Called(ctx, rc, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.JobSearch), args.Error(1)
}

func (m *MockJobSearchService) HandleResult(ctx context.Context, result model.JobSearchResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

// MockDashboardService is a mock implementation of service.DashboardService.
type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) Get(ctx context.Context, rc model.RequestContext, days int) (*model.Dashboard, error) {
	args := m.Called(ctx, rc, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Dashboard), args.Error(1)
}

var testUser = &model.User{ID: 42, Email: "ann@example.com", AccountType: model.AccountTypeFree}

func testRequestContext() model.RequestContext {
	return model.RequestContext{User: testUser, RequestID: "req-1"}
}

// withUser attaches the authenticated test user to the request.
func withUser(r *http.Request) *http.Request {
	return r.WithContext(auth.WithRequestContext(r.Context(), testRequestContext()))
}

// withURLParam sets a chi path parameter on the request.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
