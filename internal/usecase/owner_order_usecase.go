package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"app/internal/domain/model"
	"app/internal/notification"
	"app/internal/payment"
	repo "app/internal/repository"
	"app/internal/shipment"

	"go.uber.org/zap"
)

// transitions an owner may perform directly; SHIPPED only via Ship,
// DENIED only via Deny
var ownerTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusPending:    {model.OrderStatusProcessing, model.OrderStatusCancelled},
	model.OrderStatusProcessing: {model.OrderStatusCancelled},
	model.OrderStatusShipped:    {model.OrderStatusDelivered},
	model.OrderStatusDelivered:  {model.OrderStatusCompleted},
	model.OrderStatusDisputed:   {model.OrderStatusProcessing, model.OrderStatusCompleted},
}

type ShipInput struct {
	Carrier string `json:"carrier" validate:"required"`
}

type DenyInput struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type DenyOutput struct {
	Order model.Order `json:"order"`
	// true when the refund needs a human: the gateway cannot refund on its
	// own, or the refund call failed outright
	ManualRefund bool `json:"manual_refund"`
}

// OwnerOrderUsecase is the store-owner side of the order lifecycle:
// listings, statistics, and privileged transitions. Every mutation leaves
// an audit record.
type OwnerOrderUsecase struct {
	tx        repo.TransactionManager
	orders    repo.OrderRepository
	users     repo.UserRepository
	addresses repo.AddressRepository
	audits    repo.AuditLogRepository
	gateways  *payment.Registry
	carriers  *shipment.Registry
	mailer    notification.Mailer
	logger    *zap.Logger
}

func NewOwnerOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	users repo.UserRepository,
	addresses repo.AddressRepository,
	audits repo.AuditLogRepository,
	gateways *payment.Registry,
	carriers *shipment.Registry,
	mailer notification.Mailer,
	logger *zap.Logger,
) *OwnerOrderUsecase {
	return &OwnerOrderUsecase{
		tx:        tx,
		orders:    orders,
		users:     users,
		addresses: addresses,
		audits:    audits,
		gateways:  gateways,
		carriers:  carriers,
		mailer:    mailer,
		logger:    logger,
	}
}

func (u *OwnerOrderUsecase) List(ctx context.Context, f repo.OwnerOrderListFilter) (OrderListOutput, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
	orders, total, err := u.orders.ListOwner(ctx, f)
	if err != nil {
		return OrderListOutput{}, NewInternal("db error")
	}
	return OrderListOutput{Orders: orders, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (u *OwnerOrderUsecase) Statistics(ctx context.Context) (repo.OrderStatistics, error) {
	stats, err := u.orders.Statistics(ctx)
	if err != nil {
		return repo.OrderStatistics{}, NewInternal("db error")
	}
	return stats, nil
}

// UpdateStatus applies a direct owner transition. Cancelling releases the
// order's reserved stock in the same transaction.
func (u *OwnerOrderUsecase) UpdateStatus(ctx context.Context, actorID, orderID int64, next model.OrderStatus) (model.Order, error) {
	var order model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		order, err = r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewNotFound("order not found")
		}
		if err != nil {
			return NewInternal("db error")
		}
		if !transitionAllowed(order.Status, next) {
			return NewBadRequest(fmt.Sprintf("cannot transition order from %s to %s", order.Status, next))
		}
		// conditional on the status just read, so a racing writer loses here
		// and never reaches the stock release
		ok, err := r.Orders().TransitionStatus(ctx, orderID, next,
			[]model.OrderStatus{order.Status})
		if err != nil {
			return NewInternal("db error")
		}
		if !ok {
			return NewBadRequest(fmt.Sprintf("order left status %s before the update", order.Status))
		}
		if next == model.OrderStatusCancelled {
			if err := releaseOrderStock(ctx, r, orderID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}

	u.audit(ctx, actorID, model.AuditActionUpdateOrderStatus, orderID,
		map[string]any{"status": order.Status},
		map[string]any{"status": next},
	)
	order.Status = next
	return order, nil
}

// Deny rejects an order the store cannot fulfill. A paid order gets a
// refund attempt first, but the denial always completes: restoring stock
// beats leaving it locked behind a failed refund call, which is surfaced
// to the caller and flagged for manual reconciliation.
func (u *OwnerOrderUsecase) Deny(ctx context.Context, actorID, orderID int64, in DenyInput) (DenyOutput, error) {
	if in.Reason == "" {
		return DenyOutput{}, NewBadRequest("denial reason required")
	}

	order, err := u.orders.FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return DenyOutput{}, NewNotFound("order not found")
	}
	if err != nil {
		return DenyOutput{}, NewInternal("db error")
	}
	if !order.Status.CanCancel() {
		return DenyOutput{}, NewBadRequest(fmt.Sprintf("order in status %s cannot be denied", order.Status))
	}

	// refund happens outside any transaction; its outcome never blocks the
	// denial itself
	manualRefund := false
	var refundErr error
	if order.PaymentStatus == model.PaymentStatusPaid {
		gw, err := u.gateways.Get(order.PaymentGateway)
		if err != nil {
			return DenyOutput{}, NewInternal("payment gateway unavailable")
		}
		switch err := gw.Refund(ctx, order); {
		case err == nil:
		case err == payment.ErrManualRefund:
			manualRefund = true
			u.logger.Warn("refund needs manual processing",
				zap.Int64("order_id", orderID),
				zap.String("gateway", order.PaymentGateway),
			)
		default:
			refundErr = err
			manualRefund = true
			u.logger.Error("refund failed, denying anyway",
				zap.Error(err),
				zap.Int64("order_id", orderID),
				zap.String("gateway", order.PaymentGateway),
			)
		}
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// conditional write: the status check above was only a pre-flight,
		// this is what actually decides a race against a concurrent cancel
		ok, err := r.Orders().UpdateDenial(ctx, orderID, in.Reason)
		if err != nil {
			return NewInternal("db error")
		}
		if !ok {
			return NewBadRequest("order can no longer be denied")
		}
		return releaseOrderStock(ctx, r, orderID)
	})
	if err != nil {
		return DenyOutput{}, err
	}

	u.audit(ctx, actorID, model.AuditActionDenyOrder, orderID,
		map[string]any{"status": order.Status},
		map[string]any{"status": model.OrderStatusDenied, "reason": in.Reason, "manual_refund": manualRefund},
	)
	u.notifyBuyer(ctx, order.UserID, notification.TemplateOrderDenied, map[string]string{
		"order_id": fmt.Sprintf("%d", orderID),
		"reason":   in.Reason,
	})

	order.Status = model.OrderStatusDenied
	order.DenialReason = in.Reason
	if refundErr != nil {
		return DenyOutput{Order: order, ManualRefund: true},
			NewPaymentError("order denied, but refund failed; manual reconciliation required")
	}
	return DenyOutput{Order: order, ManualRefund: manualRefund}, nil
}

// Ship generates a carrier label for a processing order and moves it to
// SHIPPED with the tracking number attached. The carrier call happens
// before any database write so no transaction waits on outbound HTTP; the
// shipment write itself is conditional on the order still being PROCESSING.
func (u *OwnerOrderUsecase) Ship(ctx context.Context, actorID, orderID int64, in ShipInput) (model.Order, error) {
	carrier, err := u.carriers.Get(in.Carrier)
	if err != nil {
		return model.Order{}, NewBadRequest(fmt.Sprintf("unknown carrier %q", in.Carrier))
	}

	order, err := u.orders.FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return model.Order{}, NewNotFound("order not found")
	}
	if err != nil {
		return model.Order{}, NewInternal("db error")
	}
	if order.Status != model.OrderStatusProcessing {
		return model.Order{}, NewBadRequest(fmt.Sprintf("order in status %s cannot be shipped", order.Status))
	}

	address, err := u.addresses.FindByID(ctx, order.AddressID)
	if err != nil {
		return model.Order{}, NewInternal("db error")
	}

	label, err := carrier.GenerateLabel(ctx, order, address)
	if err != nil {
		u.logger.Error("label generation failed",
			zap.Error(err),
			zap.Int64("order_id", orderID),
			zap.String("carrier", in.Carrier),
		)
		return model.Order{}, NewInternal("label generation failed")
	}

	ok, err := u.orders.UpdateShipment(ctx, orderID, in.Carrier, label.URL, label.TrackingNumber)
	if err != nil {
		return model.Order{}, NewInternal("db error")
	}
	if !ok {
		return model.Order{}, NewBadRequest("order left PROCESSING before the label was attached")
	}

	u.audit(ctx, actorID, model.AuditActionShipOrder, orderID,
		map[string]any{"status": order.Status},
		map[string]any{"status": model.OrderStatusShipped, "carrier": in.Carrier, "tracking_number": label.TrackingNumber},
	)
	u.notifyBuyer(ctx, order.UserID, notification.TemplateOrderShipped, map[string]string{
		"order_id":        fmt.Sprintf("%d", orderID),
		"carrier":         in.Carrier,
		"tracking_number": label.TrackingNumber,
	})

	order.Status = model.OrderStatusShipped
	order.ShippingProvider = in.Carrier
	order.ShippingLabelURL = label.URL
	order.TrackingNumber = label.TrackingNumber
	return order, nil
}

func transitionAllowed(from, to model.OrderStatus) bool {
	for _, allowed := range ownerTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// audit writes the record outside the mutation's transaction; a failed
// audit write must not undo a completed mutation.
func (u *OwnerOrderUsecase) audit(ctx context.Context, actorID int64, action model.AuditAction, orderID int64, before, after map[string]any) {
	beforeJSON, _ := json.Marshal(before)
	afterJSON, _ := json.Marshal(after)
	err := u.audits.Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		BeforeJSON:   string(beforeJSON),
		AfterJSON:    string(afterJSON),
	})
	if err != nil {
		u.logger.Error("audit write failed", zap.Error(err), zap.Int64("order_id", orderID))
	}
}

func (u *OwnerOrderUsecase) notifyBuyer(ctx context.Context, userID int64, template string, vars map[string]string) {
	buyer, err := u.users.FindByID(ctx, userID)
	if err != nil || buyer.Email == "" {
		return
	}
	if err := u.mailer.Send(ctx, buyer.Email, template, vars); err != nil {
		u.logger.Error("notification failed", zap.Error(err), zap.String("template", template))
	}
}
