package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"app/internal/domain/model"
	"app/internal/idempotency"
	"app/internal/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func newPaymentUsecaseForTest(orders *orderRepoMock, users *userRepoMock, gw payment.Gateway) *PaymentUsecase {
	gateways := payment.NewRegistry()
	if gw != nil {
		gateways = payment.NewRegistry(gw)
	}
	guard := idempotency.NewGuard(idempotency.NewMemoryStore())
	return NewPaymentUsecase(orders, users, gateways, guard, zap.NewNop())
}

func TestInitialize_RequiresIdempotencyKey(t *testing.T) {
	uc := newPaymentUsecaseForTest(&orderRepoMock{}, &userRepoMock{}, &stubGateway{name: "stripe"})

	_, err := uc.Initialize(context.Background(), Principal{UserID: 3}, 1, InitializePaymentInput{Gateway: "stripe"})
	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, CodeBadRequest, he.Code)
}

func TestInitialize_UnknownGatewayRejected(t *testing.T) {
	uc := newPaymentUsecaseForTest(&orderRepoMock{}, &userRepoMock{}, &stubGateway{name: "stripe"})

	_, err := uc.Initialize(context.Background(), Principal{UserID: 3}, 1, InitializePaymentInput{
		Gateway: "bitcoin", IdempotencyKey: "k1",
	})
	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, CodeBadRequest, he.Code)
}

func TestInitialize_PersistsSessionAndReplaysOnRetry(t *testing.T) {
	ctx := context.Background()
	orders := &orderRepoMock{}
	users := &userRepoMock{}
	uc := newPaymentUsecaseForTest(orders, users, &stubGateway{name: "stripe"})

	orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, UserID: 3, Status: model.OrderStatusPending, PaymentStatus: model.PaymentStatusPending}, nil)
	users.On("FindByID", mock.Anything, int64(3)).Return(model.User{ID: 3, Email: "u@example.com"}, nil)
	orders.On("UpdatePaymentInit", mock.Anything, int64(1), "stripe", "txn-1", "https://pay.example/txn-1").Return(nil)

	in := InitializePaymentInput{Gateway: "stripe", IdempotencyKey: "k1"}

	first, err := uc.Initialize(ctx, Principal{UserID: 3}, 1, in)
	assert.NoError(t, err)
	assert.Equal(t, "txn-1", first.TransactionID)

	// retry with the same key replays the stored result, one persist only
	second, err := uc.Initialize(ctx, Principal{UserID: 3}, 1, in)
	assert.NoError(t, err)
	assert.Equal(t, first, second)
	orders.AssertNumberOfCalls(t, "UpdatePaymentInit", 1)
}

func TestInitialize_ConcurrentKeyConflicts(t *testing.T) {
	ctx := context.Background()
	orders := &orderRepoMock{}
	users := &userRepoMock{}

	store := idempotency.NewMemoryStore()
	gateways := payment.NewRegistry(&stubGateway{name: "stripe"})
	uc := NewPaymentUsecase(orders, users, gateways, idempotency.NewGuard(store), zap.NewNop())

	orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, UserID: 3, Status: model.OrderStatusPending}, nil)
	users.On("FindByID", mock.Anything, int64(3)).Return(model.User{ID: 3, Email: "u@example.com"}, nil)

	// another request holds the key and has not finished
	held, err := store.AcquireLock(ctx, "payment:init:1:k1", idempotency.DefaultLockTTL)
	assert.NoError(t, err)
	assert.True(t, held)

	_, err = uc.Initialize(ctx, Principal{UserID: 3}, 1, InitializePaymentInput{Gateway: "stripe", IdempotencyKey: "k1"})
	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 409, he.Status)
	assert.Equal(t, CodeOperationInProgress, he.Code)
}

func TestInitialize_PaidOrderRejected(t *testing.T) {
	ctx := context.Background()
	orders := &orderRepoMock{}
	users := &userRepoMock{}
	uc := newPaymentUsecaseForTest(orders, users, &stubGateway{name: "stripe"})

	orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, UserID: 3, Status: model.OrderStatusProcessing, PaymentStatus: model.PaymentStatusPaid}, nil)

	_, err := uc.Initialize(ctx, Principal{UserID: 3}, 1, InitializePaymentInput{Gateway: "stripe", IdempotencyKey: "k1"})
	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, CodeBadRequest, he.Code)
}

// verifyGateway parses the mock callback shape used below.
type verifyGateway struct {
	stubGateway
}

func (g *verifyGateway) Verify(_ context.Context, payload []byte) (payment.VerifyResult, error) {
	var body struct {
		OrderID int64 `json:"order_id"`
		Paid    bool  `json:"paid"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return payment.VerifyResult{}, err
	}
	return payment.VerifyResult{Success: body.Paid, OrderID: body.OrderID}, nil
}

func TestHandleCallback_SettlesPendingOrder(t *testing.T) {
	ctx := context.Background()
	orders := &orderRepoMock{}
	users := &userRepoMock{}
	gw := &verifyGateway{stubGateway{name: "mock"}}
	uc := newPaymentUsecaseForTest(orders, users, gw)

	orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, Status: model.OrderStatusPending, PaymentStatus: model.PaymentStatusPending}, nil)
	orders.On("UpdatePaymentStatus", mock.Anything, int64(1), model.PaymentStatusPaid).Return(nil)
	orders.On("TransitionStatus", mock.Anything, int64(1), model.OrderStatusProcessing,
		[]model.OrderStatus{model.OrderStatusPending}).Return(true, nil)

	err := uc.HandleCallback(ctx, "mock", []byte(`{"order_id":1,"paid":true}`))
	assert.NoError(t, err)
	orders.AssertExpectations(t)
}

func TestHandleCallback_RetryAfterSettlementIsNoop(t *testing.T) {
	ctx := context.Background()
	orders := &orderRepoMock{}
	users := &userRepoMock{}
	gw := &verifyGateway{stubGateway{name: "mock"}}
	uc := newPaymentUsecaseForTest(orders, users, gw)

	orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, Status: model.OrderStatusProcessing, PaymentStatus: model.PaymentStatusPaid}, nil)

	err := uc.HandleCallback(ctx, "mock", []byte(`{"order_id":1,"paid":true}`))
	assert.NoError(t, err)
	orders.AssertNotCalled(t, "UpdatePaymentStatus", mock.Anything, mock.Anything, mock.Anything)
	orders.AssertNotCalled(t, "TransitionStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleCallback_FailureMarksPaymentFailed(t *testing.T) {
	ctx := context.Background()
	orders := &orderRepoMock{}
	users := &userRepoMock{}
	gw := &verifyGateway{stubGateway{name: "mock"}}
	uc := newPaymentUsecaseForTest(orders, users, gw)

	orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, Status: model.OrderStatusPending, PaymentStatus: model.PaymentStatusPending}, nil)
	orders.On("UpdatePaymentStatus", mock.Anything, int64(1), model.PaymentStatusFailed).Return(nil)

	err := uc.HandleCallback(ctx, "mock", []byte(`{"order_id":1,"paid":false}`))
	assert.NoError(t, err)
	orders.AssertNotCalled(t, "TransitionStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleCallback_UnknownGateway(t *testing.T) {
	uc := newPaymentUsecaseForTest(&orderRepoMock{}, &userRepoMock{}, nil)

	err := uc.HandleCallback(context.Background(), "nope", []byte(`{}`))
	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, CodeBadRequest, he.Code)
}
