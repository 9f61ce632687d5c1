package repository

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

type OwnerOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type OrderStatistics struct {
	TotalOrders    int64            `json:"total_orders"`
	TotalRevenue   int64            `json:"total_revenue"`
	OrdersByStatus map[string]int64 `json:"orders_by_status"`
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)
	// TransitionStatus writes next only while the order is still in one of
	// from, a conditional update like the inventory reserve. false means a
	// concurrent writer got there first (or the order is gone); the caller
	// must not touch stock in that case.
	TransitionStatus(ctx context.Context, orderID int64, next model.OrderStatus, from []model.OrderStatus) (bool, error)

	// payment settlement writes
	UpdatePaymentInit(ctx context.Context, orderID int64, gateway, transactionID, paymentURL string) error
	UpdatePaymentStatus(ctx context.Context, orderID int64, status model.PaymentStatus) error

	// shipment write, conditional on PROCESSING
	UpdateShipment(ctx context.Context, orderID int64, provider, labelURL, trackingNumber string) (bool, error)

	// denial: status + reason in one write, conditional on a cancellable status
	UpdateDenial(ctx context.Context, orderID int64, reason string) (bool, error)

	// owner views
	ListOwner(ctx context.Context, f OwnerOrderListFilter) ([]model.Order, int64, error)
	Statistics(ctx context.Context) (OrderStatistics, error)
}
