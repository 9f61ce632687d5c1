package usecase

import (
	"context"
	"errors"
	"testing"

	"app/internal/domain/model"
	"app/internal/payment"
	repo "app/internal/repository"
	"app/internal/shipment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// stubGateway scripts the refund outcome.
type stubGateway struct {
	name      string
	refundErr error
	refunds   int
}

func (g *stubGateway) Name() string { return g.name }
func (g *stubGateway) Initialize(context.Context, model.Order, string) (payment.InitResult, error) {
	return payment.InitResult{TransactionID: "txn-1", PaymentURL: "https://pay.example/txn-1"}, nil
}
func (g *stubGateway) Verify(context.Context, []byte) (payment.VerifyResult, error) {
	return payment.VerifyResult{}, nil
}
func (g *stubGateway) Refund(context.Context, model.Order) error {
	g.refunds++
	return g.refundErr
}

// stubCarrier scripts label generation.
type stubCarrier struct {
	name     string
	labelErr error
}

func (c *stubCarrier) Name() string { return c.name }
func (c *stubCarrier) GenerateLabel(context.Context, model.Order, model.Address) (shipment.Label, error) {
	if c.labelErr != nil {
		return shipment.Label{}, c.labelErr
	}
	return shipment.Label{URL: "https://labels.example/1.pdf", TrackingNumber: "TRK-1"}, nil
}
func (c *stubCarrier) Track(context.Context, string) (string, error) { return "in transit", nil }

func newOwnerUsecaseForTest(repos *txReposMock, orders *orderRepoMock, users *userRepoMock, addresses *addressRepoMock, audits *auditRepoMock, gw payment.Gateway, carrier shipment.Carrier) (*OwnerOrderUsecase, *mailerMock) {
	mailer := &mailerMock{}
	mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	gateways := payment.NewRegistry()
	if gw != nil {
		gateways = payment.NewRegistry(gw)
	}
	carriers := shipment.NewRegistry()
	if carrier != nil {
		carriers = shipment.NewRegistry(carrier)
	}
	uc := NewOwnerOrderUsecase(
		&txManagerMock{Repos: repos},
		orders,
		users,
		addresses,
		audits,
		gateways,
		carriers,
		mailer,
		zap.NewNop(),
	)
	return uc, mailer
}

func TestOwnerUpdateStatus_AllowedTransition(t *testing.T) {
	ctx := context.Background()

	orders := &orderRepoMock{}
	users := &userRepoMock{}
	audits := &auditRepoMock{}
	repos := &txReposMock{orders: orders}
	uc, _ := newOwnerUsecaseForTest(repos, orders, users, &addressRepoMock{}, audits, nil, nil)

	orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, Status: model.OrderStatusPending}, nil)
	orders.On("TransitionStatus", mock.Anything, int64(1), model.OrderStatusProcessing,
		[]model.OrderStatus{model.OrderStatusPending}).Return(true, nil)
	audits.On("Create", mock.Anything, mock.AnythingOfType("model.AuditLog")).Return(nil)

	out, err := uc.UpdateStatus(ctx, 9, 1, model.OrderStatusProcessing)
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusProcessing, out.Status)
	audits.AssertCalled(t, "Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionUpdateOrderStatus && l.ActorUserID == 9 && l.ResourceID == 1
	}))
}

func TestOwnerUpdateStatus_IllegalTransition(t *testing.T) {
	ctx := context.Background()

	orders := &orderRepoMock{}
	users := &userRepoMock{}
	audits := &auditRepoMock{}
	repos := &txReposMock{orders: orders}
	uc, _ := newOwnerUsecaseForTest(repos, orders, users, &addressRepoMock{}, audits, nil, nil)

	// SHIPPED is only reachable through Ship
	orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, Status: model.OrderStatusPending}, nil)

	_, err := uc.UpdateStatus(ctx, 9, 1, model.OrderStatusShipped)
	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, CodeBadRequest, he.Code)
	orders.AssertNotCalled(t, "TransitionStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	audits.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOwnerUpdateStatus_CancelReleasesStock(t *testing.T) {
	ctx := context.Background()

	orders := &orderRepoMock{}
	items := &orderItemRepoMock{}
	inventory := &inventoryRepoMock{}
	users := &userRepoMock{}
	audits := &auditRepoMock{}
	repos := &txReposMock{orders: orders, orderItems: items, inventory: inventory}
	uc, _ := newOwnerUsecaseForTest(repos, orders, users, &addressRepoMock{}, audits, nil, nil)

	orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, Status: model.OrderStatusProcessing}, nil)
	items.On("ListByOrderID", mock.Anything, int64(1)).
		Return([]model.OrderItem{{ProductID: 10, VariantKey: "", Quantity: 3}}, nil)
	inventory.On("Release", mock.Anything, int64(10), "", int64(3)).Return(nil)
	orders.On("TransitionStatus", mock.Anything, int64(1), model.OrderStatusCancelled,
		[]model.OrderStatus{model.OrderStatusProcessing}).Return(true, nil)
	audits.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := uc.UpdateStatus(ctx, 9, 1, model.OrderStatusCancelled)
	assert.NoError(t, err)
	inventory.AssertExpectations(t)
}

func TestOwnerDeny_RefundsPaidOrderFirst(t *testing.T) {
	ctx := context.Background()

	orders := &orderRepoMock{}
	items := &orderItemRepoMock{}
	inventory := &inventoryRepoMock{}
	users := &userRepoMock{}
	audits := &auditRepoMock{}
	gw := &stubGateway{name: "stripe"}
	repos := &txReposMock{orders: orders, orderItems: items, inventory: inventory}
	uc, _ := newOwnerUsecaseForTest(repos, orders, users, &addressRepoMock{}, audits, gw, nil)

	orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, UserID: 3, Status: model.OrderStatusProcessing, PaymentStatus: model.PaymentStatusPaid, PaymentGateway: "stripe"}, nil)
	items.On("ListByOrderID", mock.Anything, int64(1)).
		Return([]model.OrderItem{{ProductID: 10, VariantKey: "size:M", Quantity: 1}}, nil)
	inventory.On("Release", mock.Anything, int64(10), "size:M", int64(1)).Return(nil)
	orders.On("UpdateDenial", mock.Anything, int64(1), "out of stock at supplier").Return(true, nil)
	audits.On("Create", mock.Anything, mock.Anything).Return(nil)
	users.On("FindByID", mock.Anything, int64(3)).Return(model.User{ID: 3, Email: "u@example.com"}, nil)

	out, err := uc.Deny(ctx, 9, 1, DenyInput{Reason: "out of stock at supplier"})
	assert.NoError(t, err)
	assert.Equal(t, 1, gw.refunds)
	assert.Equal(t, model.OrderStatusDenied, out.Order.Status)
	assert.Equal(t, "out of stock at supplier", out.Order.DenialReason)
	assert.False(t, out.ManualRefund)
}

func TestOwnerDeny_RefundFailureStillDenies(t *testing.T) {
	ctx := context.Background()

	orders := &orderRepoMock{}
	items := &orderItemRepoMock{}
	inventory := &inventoryRepoMock{}
	users := &userRepoMock{}
	audits := &auditRepoMock{}
	gw := &stubGateway{name: "stripe", refundErr: errors.New("card network down")}
	repos := &txReposMock{orders: orders, orderItems: items, inventory: inventory}
	uc, _ := newOwnerUsecaseForTest(repos, orders, users, &addressRepoMock{}, audits, gw, nil)

	orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, UserID: 3, Status: model.OrderStatusPending, PaymentStatus: model.PaymentStatusPaid, PaymentGateway: "stripe"}, nil)
	items.On("ListByOrderID", mock.Anything, int64(1)).
		Return([]model.OrderItem{{ProductID: 10, VariantKey: "size:M", Quantity: 1}}, nil)
	inventory.On("Release", mock.Anything, int64(10), "size:M", int64(1)).Return(nil)
	orders.On("UpdateDenial", mock.Anything, int64(1), "fraud").Return(true, nil)
	audits.On("Create", mock.Anything, mock.Anything).Return(nil)
	users.On("FindByID", mock.Anything, int64(3)).Return(model.User{ID: 3, Email: "u@example.com"}, nil)

	// stock is restored and the order denied even though the refund failed;
	// the caller sees the payment error as the manual-follow-up flag
	_, err := uc.Deny(ctx, 9, 1, DenyInput{Reason: "fraud"})
	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, CodePaymentError, he.Code)
	inventory.AssertExpectations(t)
	orders.AssertCalled(t, "UpdateDenial", mock.Anything, int64(1), "fraud")
	audits.AssertCalled(t, "Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionDenyOrder
	}))
}

func TestOwnerDeny_ManualRefundStillDenies(t *testing.T) {
	ctx := context.Background()

	orders := &orderRepoMock{}
	items := &orderItemRepoMock{}
	inventory := &inventoryRepoMock{}
	users := &userRepoMock{}
	audits := &auditRepoMock{}
	gw := &stubGateway{name: "przelewy24", refundErr: payment.ErrManualRefund}
	repos := &txReposMock{orders: orders, orderItems: items, inventory: inventory}
	uc, _ := newOwnerUsecaseForTest(repos, orders, users, &addressRepoMock{}, audits, gw, nil)

	orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, UserID: 3, Status: model.OrderStatusPending, PaymentStatus: model.PaymentStatusPaid, PaymentGateway: "przelewy24"}, nil)
	items.On("ListByOrderID", mock.Anything, int64(1)).Return([]model.OrderItem{}, nil)
	orders.On("UpdateDenial", mock.Anything, int64(1), "cannot fulfill").Return(true, nil)
	audits.On("Create", mock.Anything, mock.Anything).Return(nil)
	users.On("FindByID", mock.Anything, int64(3)).Return(model.User{ID: 3, Email: "u@example.com"}, nil)

	out, err := uc.Deny(ctx, 9, 1, DenyInput{Reason: "cannot fulfill"})
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusDenied, out.Order.Status)
	assert.True(t, out.ManualRefund)
	audits.AssertCalled(t, "Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionDenyOrder
	}))
}

// A cancel can land between Deny's pre-flight read and its transaction.
// The conditional denial write must lose then, and the loser must never
// touch stock.
func TestOwnerDeny_RacingCancelSkipsRelease(t *testing.T) {
	ctx := context.Background()

	orders := &orderRepoMock{}
	items := &orderItemRepoMock{}
	inventory := &inventoryRepoMock{}
	users := &userRepoMock{}
	audits := &auditRepoMock{}
	repos := &txReposMock{orders: orders, orderItems: items, inventory: inventory}
	uc, _ := newOwnerUsecaseForTest(repos, orders, users, &addressRepoMock{}, audits, nil, nil)

	// the pre-flight read still sees PENDING
	orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, UserID: 3, Status: model.OrderStatusPending}, nil)
	// but the row no longer matches by the time the denial writes
	orders.On("UpdateDenial", mock.Anything, int64(1), "cannot fulfill").Return(false, nil)

	_, err := uc.Deny(ctx, 9, 1, DenyInput{Reason: "cannot fulfill"})
	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, CodeBadRequest, he.Code)
	inventory.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	audits.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOwnerShip_FromProcessing(t *testing.T) {
	ctx := context.Background()

	orders := &orderRepoMock{}
	users := &userRepoMock{}
	addresses := &addressRepoMock{}
	audits := &auditRepoMock{}
	carrier := &stubCarrier{name: "inpost"}
	repos := &txReposMock{orders: orders, addresses: addresses}
	uc, _ := newOwnerUsecaseForTest(repos, orders, users, addresses, audits, nil, carrier)

	orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, UserID: 3, AddressID: 7, Status: model.OrderStatusProcessing}, nil)
	addresses.On("FindByID", mock.Anything, int64(7)).Return(model.Address{ID: 7}, nil)
	orders.On("UpdateShipment", mock.Anything, int64(1), "inpost", "https://labels.example/1.pdf", "TRK-1").Return(true, nil)
	audits.On("Create", mock.Anything, mock.Anything).Return(nil)
	users.On("FindByID", mock.Anything, int64(3)).Return(model.User{ID: 3, Email: "u@example.com"}, nil)

	out, err := uc.Ship(ctx, 9, 1, ShipInput{Carrier: "inpost"})
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, out.Status)
	assert.Equal(t, "TRK-1", out.TrackingNumber)
}

func TestOwnerShip_RejectsUnknownCarrierAndWrongStatus(t *testing.T) {
	ctx := context.Background()

	orders := &orderRepoMock{}
	users := &userRepoMock{}
	audits := &auditRepoMock{}
	carrier := &stubCarrier{name: "inpost"}
	repos := &txReposMock{orders: orders}
	uc, _ := newOwnerUsecaseForTest(repos, orders, users, &addressRepoMock{}, audits, nil, carrier)

	_, err := uc.Ship(ctx, 9, 1, ShipInput{Carrier: "pigeon"})
	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, CodeBadRequest, he.Code)

	orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, Status: model.OrderStatusPending}, nil)
	_, err = uc.Ship(ctx, 9, 1, ShipInput{Carrier: "inpost"})
	he, ok = AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, CodeBadRequest, he.Code)
	orders.AssertNotCalled(t, "UpdateShipment", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// The carrier call runs before any database write; if the order leaves
// PROCESSING meanwhile, the conditional shipment write must refuse to
// attach the label.
func TestOwnerShip_StatusChangedDuringLabelCall(t *testing.T) {
	ctx := context.Background()

	orders := &orderRepoMock{}
	users := &userRepoMock{}
	addresses := &addressRepoMock{}
	audits := &auditRepoMock{}
	carrier := &stubCarrier{name: "inpost"}
	repos := &txReposMock{orders: orders, addresses: addresses}
	uc, _ := newOwnerUsecaseForTest(repos, orders, users, addresses, audits, nil, carrier)

	orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, UserID: 3, AddressID: 7, Status: model.OrderStatusProcessing}, nil)
	addresses.On("FindByID", mock.Anything, int64(7)).Return(model.Address{ID: 7}, nil)
	orders.On("UpdateShipment", mock.Anything, int64(1), "inpost", "https://labels.example/1.pdf", "TRK-1").Return(false, nil)

	_, err := uc.Ship(ctx, 9, 1, ShipInput{Carrier: "inpost"})
	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, CodeBadRequest, he.Code)
	audits.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOwnerList_ClampsPaging(t *testing.T) {
	ctx := context.Background()

	orders := &orderRepoMock{}
	users := &userRepoMock{}
	audits := &auditRepoMock{}
	repos := &txReposMock{orders: orders}
	uc, _ := newOwnerUsecaseForTest(repos, orders, users, &addressRepoMock{}, audits, nil, nil)

	orders.On("ListOwner", mock.Anything, mock.MatchedBy(func(f repo.OwnerOrderListFilter) bool {
		return f.Page == 1 && f.Limit == 20
	})).Return([]model.Order{}, int64(0), nil)

	out, err := uc.List(ctx, repo.OwnerOrderListFilter{Page: 0, Limit: 9999})
	assert.NoError(t, err)
	assert.Equal(t, 1, out.Page)
	assert.Equal(t, 20, out.Limit)
}
