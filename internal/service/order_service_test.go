package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"jobshop/internal/financehub"
	"jobshop/internal/invoice"
	"jobshop/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const paidPayment = `{"productId":5,"quantity":2,"currencyCode":"EUR","paymentTool":"PAYPAL","paymentStatus":"PAID","paymentReference":"pp_123"}`

type orderServiceMocks struct {
	productRepo *MockProductRepository
	orderRepo   *MockOrderRepository
	userRepo    *MockUserRepository
	invoices    *MockInvoiceStore
	hub         *MockHubClient
	tx          *MockTx
}

func newOrderServiceUnderTest() (OrderService, *orderServiceMocks) {
	m := &orderServiceMocks{
		productRepo: new(MockProductRepository),
		orderRepo:   new(MockOrderRepository),
		userRepo:    new(MockUserRepository),
		invoices:    new(MockInvoiceStore),
		hub:         new(MockHubClient),
		tx:          new(MockTx),
	}
	logger := zerolog.Nop()
	payments := NewPaymentService(m.productRepo, m.hub, testPaymentConfig(), logger)
	svc := NewOrderService(payments, m.orderRepo, m.userRepo, m.invoices, m.hub, logger)
	return svc, m
}

// expectConfirmedPayment makes pp_123 an unused reference the hub reports as
// captured for the 23.00 EUR total of two pointProduct units.
func expectConfirmedPayment(m *orderServiceMocks) {
	m.orderRepo.On("GetPaidByReference", mock.Anything, "pp_123").Return(nil, nil)
	m.hub.On("ConfirmPayment", mock.Anything, model.PaymentToolPaypal, "pp_123").Return(financehub.Result{
		Outcome:       financehub.Success,
		StatusCode:    200,
		PaymentStatus: "PAID",
		Amount:        decimal.RequireFromString("23.00"),
		Currency:      "EUR",
	})
}

func TestOrderService_Finalize_Paid(t *testing.T) {
	ctx := context.Background()
	svc, m := newOrderServiceUnderTest()

	expectConfirmedPayment(m)
	m.productRepo.On("GetByID", ctx, int64(5)).Return(pointProduct(), nil)
	m.orderRepo.On("BeginTx", ctx).Return(m.tx, nil)
	m.orderRepo.On("CreateOrder", ctx, m.tx, mock.MatchedBy(func(o *model.Order) bool {
		return o.Status == model.OrderStatusPaid &&
			o.PaymentReference == "pp_123" &&
			len(o.Snapshots) == 1 &&
			o.Snapshots[0].OrderID == o.ID &&
			o.Snapshots[0].Points != nil &&
			o.Snapshots[0].Points.Amount == 100
	})).Return(nil)
	m.userRepo.On("AddPoints", ctx, m.tx, int64(42), int64(200), int64(1_000)).Return(nil)
	m.tx.On("Commit", ctx).Return(nil)
	m.invoices.On("Save", ctx, mock.MatchedBy(func(inv *invoice.Invoice) bool {
		return inv.TotalWithTax.Equal(decimal.RequireFromString("23.00"))
	})).Return(nil)
	m.hub.On("TransferOrder", ctx, mock.AnythingOfType("*model.Order")).
		Return(financehub.Result{Outcome: financehub.Success, StatusCode: 201})
	m.orderRepo.On("MarkTransferred", ctx, mock.AnythingOfType("uuid.UUID"), mock.AnythingOfType("time.Time")).Return(nil)

	order, err := svc.Finalize(ctx, freeUserContext(), []byte(paidPayment))

	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, model.OrderStatusPaid, order.Status)
	assert.NotNil(t, order.TransferredAt)
	assert.Equal(t, int64(200), order.GrantedPoints())
	assert.True(t, m.tx.committed)
	assert.False(t, m.tx.rolledBack)

	m.productRepo.AssertExpectations(t)
	m.orderRepo.AssertExpectations(t)
	m.userRepo.AssertExpectations(t)
	m.invoices.AssertExpectations(t)
	m.hub.AssertExpectations(t)
	m.tx.AssertExpectations(t)
}

func TestOrderService_Finalize_FailedPayment(t *testing.T) {
	ctx := context.Background()
	svc, m := newOrderServiceUnderTest()

	payload := `{"productId":5,"quantity":2,"currencyCode":"EUR","paymentTool":"PAYPAL","paymentStatus":"FAILED"}`

	m.productRepo.On("GetByID", ctx, int64(5)).Return(pointProduct(), nil)
	m.orderRepo.On("BeginTx", ctx).Return(m.tx, nil)
	m.orderRepo.On("CreateOrder", ctx, m.tx, mock.AnythingOfType("*model.Order")).Return(nil)
	m.tx.On("Commit", ctx).Return(nil)

	order, err := svc.Finalize(ctx, freeUserContext(), []byte(payload))

	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusFailed, order.Status)
	assert.Nil(t, order.TransferredAt)

	m.userRepo.AssertNotCalled(t, "AddPoints", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.invoices.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	m.hub.AssertNotCalled(t, "TransferOrder", mock.Anything, mock.Anything)
	m.hub.AssertNotCalled(t, "ConfirmPayment", mock.Anything, mock.Anything, mock.Anything)
	m.orderRepo.AssertNotCalled(t, "GetPaidByReference", mock.Anything, mock.Anything)
}

func TestOrderService_Finalize_FailedPaymentIgnoresPointsLimit(t *testing.T) {
	ctx := context.Background()
	svc, m := newOrderServiceUnderTest()

	// 11 units grant 1100 points, above the free account limit.
	payload := `{"productId":5,"quantity":11,"currencyCode":"EUR","paymentTool":"PAYPAL","paymentStatus":"FAILED"}`
	rc := freeUserContext()
	rc.User.Points = 900

	m.productRepo.On("GetByID", ctx, int64(5)).Return(pointProduct(), nil)
	m.orderRepo.On("BeginTx", ctx).Return(m.tx, nil)
	m.orderRepo.On("CreateOrder", ctx, m.tx, mock.MatchedBy(func(o *model.Order) bool {
		return o.Status == model.OrderStatusFailed && o.Snapshots[0].Quantity == 11
	})).Return(nil)
	m.tx.On("Commit", ctx).Return(nil)

	order, err := svc.Finalize(ctx, rc, []byte(payload))

	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusFailed, order.Status)
	assert.True(t, m.tx.committed)
	m.userRepo.AssertNotCalled(t, "AddPoints", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_Finalize_BaseProductGrantsNoPoints(t *testing.T) {
	ctx := context.Background()
	svc, m := newOrderServiceUnderTest()

	base := pointProduct()
	base.Kind = model.ProductKindBase
	base.Points = nil

	expectConfirmedPayment(m)
	m.productRepo.On("GetByID", ctx, int64(5)).Return(base, nil)
	m.orderRepo.On("BeginTx", ctx).Return(m.tx, nil)
	m.orderRepo.On("CreateOrder", ctx, m.tx, mock.MatchedBy(func(o *model.Order) bool {
		return len(o.Snapshots) == 1 && o.Snapshots[0].Kind == model.ProductKindBase && o.Snapshots[0].Points == nil
	})).Return(nil)
	m.tx.On("Commit", ctx).Return(nil)
	m.invoices.On("Save", ctx, mock.Anything).Return(nil)
	m.hub.On("TransferOrder", ctx, mock.Anything).Return(financehub.Result{Outcome: financehub.Success})
	m.orderRepo.On("MarkTransferred", ctx, mock.Anything, mock.Anything).Return(nil)

	_, err := svc.Finalize(ctx, freeUserContext(), []byte(paidPayment))

	require.NoError(t, err)
	m.userRepo.AssertNotCalled(t, "AddPoints", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_Finalize_RejectedBeforePersistence(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		setupMock func(*orderServiceMocks)
		check     func(*testing.T, error)
	}{
		{
			name:    "Preparation failure",
			payload: `{"productId":5,"quantity":2,"currencyCode":"EUR","paymentTool":"GOLD","paymentStatus":"PAID","paymentReference":"pp_123"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, model.ErrUnsupportedPaymentTool)
			},
		},
		{
			name:    "Unknown payment status",
			payload: `{"productId":5,"quantity":2,"currencyCode":"EUR","paymentTool":"PAYPAL","paymentStatus":"PENDING"}`,
			setupMock: func(m *orderServiceMocks) {
				m.productRepo.On("GetByID", mock.Anything, int64(5)).Return(pointProduct(), nil)
			},
			check: func(t *testing.T, err error) {
				var verr *model.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, "paymentStatus", verr.Violations[0].Field)
			},
		},
		{
			name:    "Paid outcome without reference",
			payload: `{"productId":5,"quantity":2,"currencyCode":"EUR","paymentTool":"PAYPAL","paymentStatus":"PAID"}`,
			check: func(t *testing.T, err error) {
				var verr *model.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, "paymentReference", verr.Violations[0].Field)
			},
		},
		{
			name:    "Forged paid outcome",
			payload: paidPayment,
			setupMock: func(m *orderServiceMocks) {
				m.productRepo.On("GetByID", mock.Anything, int64(5)).Return(pointProduct(), nil)
				m.orderRepo.On("GetPaidByReference", mock.Anything, "pp_123").Return(nil, nil)
				m.hub.On("ConfirmPayment", mock.Anything, model.PaymentToolPaypal, "pp_123").
					Return(financehub.Result{Outcome: financehub.ClientError, StatusCode: 404, Message: "payment not found"})
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, model.ErrPaymentNotConfirmed)
			},
		},
		{
			name:    "Payment still pending at provider",
			payload: paidPayment,
			setupMock: func(m *orderServiceMocks) {
				m.productRepo.On("GetByID", mock.Anything, int64(5)).Return(pointProduct(), nil)
				m.orderRepo.On("GetPaidByReference", mock.Anything, "pp_123").Return(nil, nil)
				m.hub.On("ConfirmPayment", mock.Anything, model.PaymentToolPaypal, "pp_123").Return(financehub.Result{
					Outcome:       financehub.Success,
					PaymentStatus: "PENDING",
					Amount:        decimal.RequireFromString("23.00"),
					Currency:      "EUR",
				})
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, model.ErrPaymentNotConfirmed)
			},
		},
		{
			name:    "Captured amount below total",
			payload: paidPayment,
			setupMock: func(m *orderServiceMocks) {
				m.productRepo.On("GetByID", mock.Anything, int64(5)).Return(pointProduct(), nil)
				m.orderRepo.On("GetPaidByReference", mock.Anything, "pp_123").Return(nil, nil)
				m.hub.On("ConfirmPayment", mock.Anything, model.PaymentToolPaypal, "pp_123").Return(financehub.Result{
					Outcome:       financehub.Success,
					PaymentStatus: "PAID",
					Amount:        decimal.RequireFromString("0.01"),
					Currency:      "EUR",
				})
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, model.ErrPaymentNotConfirmed)
			},
		},
		{
			name:    "Captured in another currency",
			payload: paidPayment,
			setupMock: func(m *orderServiceMocks) {
				m.productRepo.On("GetByID", mock.Anything, int64(5)).Return(pointProduct(), nil)
				m.orderRepo.On("GetPaidByReference", mock.Anything, "pp_123").Return(nil, nil)
				m.hub.On("ConfirmPayment", mock.Anything, model.PaymentToolPaypal, "pp_123").Return(financehub.Result{
					Outcome:       financehub.Success,
					PaymentStatus: "PAID",
					Amount:        decimal.RequireFromString("23.00"),
					Currency:      "PLN",
				})
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, model.ErrPaymentNotConfirmed)
			},
		},
		{
			name:    "Finance hub unavailable",
			payload: paidPayment,
			setupMock: func(m *orderServiceMocks) {
				m.productRepo.On("GetByID", mock.Anything, int64(5)).Return(pointProduct(), nil)
				m.orderRepo.On("GetPaidByReference", mock.Anything, "pp_123").Return(nil, nil)
				m.hub.On("ConfirmPayment", mock.Anything, model.PaymentToolPaypal, "pp_123").
					Return(financehub.Result{Outcome: financehub.ServerError, StatusCode: 503})
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, model.ErrInternal)
			},
		},
		{
			name:    "Replayed payment reference",
			payload: paidPayment,
			setupMock: func(m *orderServiceMocks) {
				m.productRepo.On("GetByID", mock.Anything, int64(5)).Return(pointProduct(), nil)
				m.orderRepo.On("GetPaidByReference", mock.Anything, "pp_123").
					Return(&model.Order{ID: uuid.New(), UserID: 42, Status: model.OrderStatusPaid, PaymentReference: "pp_123"}, nil)
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, model.ErrPaymentFinalized)
			},
		},
		{
			name:    "Missing payment status",
			payload: `{"productId":5,"quantity":2,"currencyCode":"EUR","paymentTool":"PAYPAL"}`,
			setupMock: func(m *orderServiceMocks) {
				m.productRepo.On("GetByID", mock.Anything, int64(5)).Return(pointProduct(), nil)
			},
			check: func(t *testing.T, err error) {
				var verr *model.ValidationError
				require.ErrorAs(t, err, &verr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newOrderServiceUnderTest()
			if tt.setupMock != nil {
				tt.setupMock(m)
			}

			order, err := svc.Finalize(context.Background(), freeUserContext(), []byte(tt.payload))

			assert.Nil(t, order)
			tt.check(t, err)
			m.orderRepo.AssertNotCalled(t, "BeginTx", mock.Anything)
			m.userRepo.AssertNotCalled(t, "AddPoints", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			m.hub.AssertNotCalled(t, "TransferOrder", mock.Anything, mock.Anything)
		})
	}
}

func TestOrderService_Finalize_PersistFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	svc, m := newOrderServiceUnderTest()
	expectConfirmedPayment(m)

	m.productRepo.On("GetByID", ctx, int64(5)).Return(pointProduct(), nil)
	m.orderRepo.On("BeginTx", ctx).Return(m.tx, nil)
	m.orderRepo.On("CreateOrder", ctx, m.tx, mock.Anything).Return(nil)
	m.userRepo.On("AddPoints", ctx, m.tx, int64(42), int64(200), int64(1_000)).Return(errors.New("deadlock detected"))
	m.tx.On("Rollback", ctx).Return(nil)

	order, err := svc.Finalize(ctx, freeUserContext(), []byte(paidPayment))

	assert.Nil(t, order)
	assert.ErrorIs(t, err, model.ErrInternal)
	assert.True(t, m.tx.rolledBack)
	assert.False(t, m.tx.committed)
	m.invoices.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	m.hub.AssertNotCalled(t, "TransferOrder", mock.Anything, mock.Anything)
}

func TestOrderService_Finalize_ReferenceFinalizedConcurrently(t *testing.T) {
	ctx := context.Background()
	svc, m := newOrderServiceUnderTest()
	expectConfirmedPayment(m)

	m.productRepo.On("GetByID", ctx, int64(5)).Return(pointProduct(), nil)
	m.orderRepo.On("BeginTx", ctx).Return(m.tx, nil)
	m.orderRepo.On("CreateOrder", ctx, m.tx, mock.Anything).Return(model.ErrPaymentFinalized)
	m.tx.On("Rollback", ctx).Return(nil)

	order, err := svc.Finalize(ctx, freeUserContext(), []byte(paidPayment))

	assert.Nil(t, order)
	assert.ErrorIs(t, err, model.ErrPaymentFinalized)
	assert.True(t, m.tx.rolledBack)
	assert.False(t, m.tx.committed)
	m.userRepo.AssertNotCalled(t, "AddPoints", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.invoices.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestOrderService_Finalize_PointsLimitEnforcedInTransaction(t *testing.T) {
	ctx := context.Background()
	svc, m := newOrderServiceUnderTest()
	expectConfirmedPayment(m)

	m.productRepo.On("GetByID", ctx, int64(5)).Return(pointProduct(), nil)
	m.orderRepo.On("BeginTx", ctx).Return(m.tx, nil)
	m.orderRepo.On("CreateOrder", ctx, m.tx, mock.Anything).Return(nil)
	m.userRepo.On("AddPoints", ctx, m.tx, int64(42), int64(200), int64(1_000)).Return(model.ErrPointsLimitExceeded)
	m.tx.On("Rollback", ctx).Return(nil)

	order, err := svc.Finalize(ctx, freeUserContext(), []byte(paidPayment))

	assert.Nil(t, order)
	assert.ErrorIs(t, err, model.ErrPointsLimitExceeded)
	assert.True(t, m.tx.rolledBack)
	assert.False(t, m.tx.committed)
	m.hub.AssertNotCalled(t, "TransferOrder", mock.Anything, mock.Anything)
}

func TestOrderService_Finalize_BeginTxFailure(t *testing.T) {
	ctx := context.Background()
	svc, m := newOrderServiceUnderTest()
	expectConfirmedPayment(m)

	m.productRepo.On("GetByID", ctx, int64(5)).Return(pointProduct(), nil)
	m.orderRepo.On("BeginTx", ctx).Return(nil, errors.New("pool closed"))

	_, err := svc.Finalize(ctx, freeUserContext(), []byte(paidPayment))

	assert.ErrorIs(t, err, model.ErrInternal)
}

func TestOrderService_Finalize_PostCommitFailuresAreNotFatal(t *testing.T) {
	ctx := context.Background()
	svc, m := newOrderServiceUnderTest()
	expectConfirmedPayment(m)

	m.productRepo.On("GetByID", ctx, int64(5)).Return(pointProduct(), nil)
	m.orderRepo.On("BeginTx", ctx).Return(m.tx, nil)
	m.orderRepo.On("CreateOrder", ctx, m.tx, mock.Anything).Return(nil)
	m.userRepo.On("AddPoints", ctx, m.tx, int64(42), int64(200), int64(1_000)).Return(nil)
	m.tx.On("Commit", ctx).Return(nil)
	m.invoices.On("Save", ctx, mock.Anything).Return(errors.New("disk full"))
	m.hub.On("TransferOrder", ctx, mock.Anything).
		Return(financehub.Result{Outcome: financehub.ServerError, StatusCode: 502, Message: "bad gateway"})

	order, err := svc.Finalize(ctx, freeUserContext(), []byte(paidPayment))

	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, order.Status)
	assert.Nil(t, order.TransferredAt)
	m.orderRepo.AssertNotCalled(t, "MarkTransferred", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_GetByID(t *testing.T) {
	ownID := uuid.New()
	foreignID := uuid.New()
	missingID := uuid.New()

	tests := []struct {
		name          string
		id            uuid.UUID
		expectedError error
	}{
		{name: "Own order", id: ownID},
		{name: "Order of another user", id: foreignID, expectedError: model.ErrOrderNotFound},
		{name: "Missing order", id: missingID, expectedError: model.ErrOrderNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, m := newOrderServiceUnderTest()

			m.orderRepo.On("GetByID", ctx, ownID).Return(&model.Order{ID: ownID, UserID: 42}, nil).Maybe()
			m.orderRepo.On("GetByID", ctx, foreignID).Return(&model.Order{ID: foreignID, UserID: 7}, nil).Maybe()
			m.orderRepo.On("GetByID", ctx, missingID).Return(nil, nil).Maybe()

			order, err := svc.GetByID(ctx, freeUserContext(), tt.id)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, order)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, ownID, order.ID)
		})
	}
}

func TestOrderService_Invoice(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("Stored invoice", func(t *testing.T) {
		svc, m := newOrderServiceUnderTest()
		m.orderRepo.On("GetByID", ctx, id).Return(&model.Order{ID: id, UserID: 42}, nil)
		m.invoices.On("Load", ctx, id).Return(&invoice.Invoice{Number: "INV-1", OrderID: id}, nil)

		inv, err := svc.Invoice(ctx, freeUserContext(), id)

		require.NoError(t, err)
		assert.Equal(t, "INV-1", inv.Number)
	})

	t.Run("No invoice stored", func(t *testing.T) {
		svc, m := newOrderServiceUnderTest()
		m.orderRepo.On("GetByID", ctx, id).Return(&model.Order{ID: id, UserID: 42}, nil)
		m.invoices.On("Load", ctx, id).Return(nil, invoice.ErrNotFound)

		_, err := svc.Invoice(ctx, freeUserContext(), id)

		assert.ErrorIs(t, err, model.ErrInvoiceNotFound)
	})

	t.Run("Foreign order", func(t *testing.T) {
		svc, m := newOrderServiceUnderTest()
		m.orderRepo.On("GetByID", ctx, id).Return(&model.Order{ID: id, UserID: 1}, nil)

		_, err := svc.Invoice(ctx, freeUserContext(), id)

		assert.ErrorIs(t, err, model.ErrOrderNotFound)
		m.invoices.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)
	})
}

func TestOrderService_ListStuck(t *testing.T) {
	ctx := context.Background()
	svc, m := newOrderServiceUnderTest()

	stuck := []model.Order{{ID: uuid.New()}}
	lower := time.Now().UTC().Add(-2*time.Hour - time.Minute)
	upper := time.Now().UTC().Add(-2*time.Hour + time.Minute)

	m.orderRepo.On("FindStuck", ctx, mock.MatchedBy(func(before time.Time) bool {
		return before.After(lower) && before.Before(upper)
	})).Return(stuck, nil)

	orders, err := svc.ListStuck(ctx, 2*time.Hour)

	require.NoError(t, err)
	assert.Equal(t, stuck, orders)
}
