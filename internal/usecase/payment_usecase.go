package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"app/internal/domain/model"
	"app/internal/idempotency"
	"app/internal/payment"
	repo "app/internal/repository"

	"go.uber.org/zap"
)

type InitializePaymentInput struct {
	Gateway        string `json:"gateway" validate:"required"`
	IdempotencyKey string `json:"-"`
	AccessToken    string `json:"-"`
}

type PaymentStatusOutput struct {
	OrderID       int64               `json:"order_id"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
	Gateway       string              `json:"gateway,omitempty"`
	PaymentURL    string              `json:"payment_url,omitempty"`
}

// PaymentUsecase drives payment initialization, webhook settlement, and
// status reads. Initialization is keyed by a client idempotency key so
// retries replay the first session instead of opening a second one.
type PaymentUsecase struct {
	orders   repo.OrderRepository
	users    repo.UserRepository
	gateways *payment.Registry
	guard    *idempotency.Guard
	logger   *zap.Logger
	now      func() time.Time
}

func NewPaymentUsecase(
	orders repo.OrderRepository,
	users repo.UserRepository,
	gateways *payment.Registry,
	guard *idempotency.Guard,
	logger *zap.Logger,
) *PaymentUsecase {
	return &PaymentUsecase{
		orders:   orders,
		users:    users,
		gateways: gateways,
		guard:    guard,
		logger:   logger,
		now:      time.Now,
	}
}

// Initialize opens a payment session for an unpaid order. Concurrent calls
// with the same idempotency key either replay the stored result or fail
// with OPERATION_IN_PROGRESS; they never reach the gateway twice.
func (u *PaymentUsecase) Initialize(ctx context.Context, p Principal, orderID int64, in InitializePaymentInput) (payment.InitResult, error) {
	if in.IdempotencyKey == "" {
		return payment.InitResult{}, NewBadRequest("idempotency key required")
	}
	gw, err := u.gateways.Get(in.Gateway)
	if err != nil {
		return payment.InitResult{}, NewBadRequest(fmt.Sprintf("unknown payment gateway %q", in.Gateway))
	}

	order, err := u.orders.FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return payment.InitResult{}, NewNotFound("order not found")
	}
	if err != nil {
		return payment.InitResult{}, NewInternal("db error")
	}
	if err := authorizeOrderAccess(order, p, in.AccessToken, u.now()); err != nil {
		return payment.InitResult{}, err
	}
	if order.PaymentStatus == model.PaymentStatusPaid {
		return payment.InitResult{}, NewBadRequest("order is already paid")
	}
	if order.Status.IsTerminal() {
		return payment.InitResult{}, NewBadRequest(fmt.Sprintf("order in status %s cannot be paid", order.Status))
	}

	buyer, err := u.users.FindByID(ctx, order.UserID)
	if err != nil {
		return payment.InitResult{}, NewInternal("db error")
	}

	key := fmt.Sprintf("payment:init:%d:%s", orderID, in.IdempotencyKey)
	raw, err := u.guard.Execute(ctx, key, func(ctx context.Context) (any, error) {
		res, err := gw.Initialize(ctx, order, buyer.Email)
		if err != nil {
			u.logger.Error("gateway initialize failed",
				zap.Error(err),
				zap.Int64("order_id", orderID),
				zap.String("gateway", in.Gateway),
			)
			return nil, NewPaymentError("payment initialization failed")
		}
		if err := u.orders.UpdatePaymentInit(ctx, orderID, in.Gateway, res.TransactionID, res.PaymentURL); err != nil {
			return nil, NewInternal("db error")
		}
		return res, nil
	})
	if err != nil {
		if errors.Is(err, idempotency.ErrInProgress) {
			return payment.InitResult{}, NewOperationInProgress("payment initialization already in progress")
		}
		if he, ok := AsHTTPError(err); ok {
			return payment.InitResult{}, he
		}
		return payment.InitResult{}, NewInternal("idempotency store error")
	}

	var res payment.InitResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return payment.InitResult{}, NewInternal("decode stored payment result")
	}
	return res, nil
}

// HandleCallback settles an order from a gateway webhook. The HMAC
// signature was verified by middleware before the body reaches here.
// Success marks the order paid and moves a pending order to PROCESSING;
// failure marks the payment failed.
func (u *PaymentUsecase) HandleCallback(ctx context.Context, gatewayName string, payload []byte) error {
	gw, err := u.gateways.Get(gatewayName)
	if err != nil {
		return NewBadRequest(fmt.Sprintf("unknown payment gateway %q", gatewayName))
	}

	vr, err := gw.Verify(ctx, payload)
	if err != nil {
		u.logger.Error("callback verification failed", zap.Error(err), zap.String("gateway", gatewayName))
		return NewPaymentError("callback verification failed")
	}

	order, err := u.orders.FindByID(ctx, vr.OrderID)
	if err == repo.ErrNotFound {
		return NewNotFound("order not found")
	}
	if err != nil {
		return NewInternal("db error")
	}

	if !vr.Success {
		if err := u.orders.UpdatePaymentStatus(ctx, order.ID, model.PaymentStatusFailed); err != nil {
			return NewInternal("db error")
		}
		u.logger.Warn("payment failed", zap.Int64("order_id", order.ID), zap.String("gateway", gatewayName))
		return nil
	}

	// webhook retries after settlement are no-ops
	if order.PaymentStatus == model.PaymentStatusPaid {
		return nil
	}

	if err := u.orders.UpdatePaymentStatus(ctx, order.ID, model.PaymentStatusPaid); err != nil {
		return NewInternal("db error")
	}
	if order.Status == model.OrderStatusPending {
		// conditional: a cancel racing the webhook keeps the order cancelled
		if _, err := u.orders.TransitionStatus(ctx, order.ID, model.OrderStatusProcessing,
			[]model.OrderStatus{model.OrderStatusPending}); err != nil {
			return NewInternal("db error")
		}
	}
	u.logger.Info("payment settled", zap.Int64("order_id", order.ID), zap.String("gateway", gatewayName))
	return nil
}

// Status reports the order's payment state to its owner.
func (u *PaymentUsecase) Status(ctx context.Context, p Principal, orderID int64, token string) (PaymentStatusOutput, error) {
	order, err := u.orders.FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return PaymentStatusOutput{}, NewNotFound("order not found")
	}
	if err != nil {
		return PaymentStatusOutput{}, NewInternal("db error")
	}
	if err := authorizeOrderAccess(order, p, token, u.now()); err != nil {
		return PaymentStatusOutput{}, err
	}
	return PaymentStatusOutput{
		OrderID:       order.ID,
		PaymentStatus: order.PaymentStatus,
		Gateway:       order.PaymentGateway,
		PaymentURL:    order.PaymentURL,
	}, nil
}
