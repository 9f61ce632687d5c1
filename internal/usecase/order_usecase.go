package usecase

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"time"

	"app/internal/domain/model"
	"app/internal/notification"
	repo "app/internal/repository"
	"app/internal/shipment"

	"go.uber.org/zap"
)

// anonymous order access token lifetime
const anonTokenTTL = 30 * 24 * time.Hour

// Principal is the caller identity extracted by the auth middleware.
// Zero value means no session.
type Principal struct {
	UserID int64
	Role   string
}

type CreateOrderItemInput struct {
	ProductID        int64             `json:"product_id" validate:"required,gt=0"`
	Quantity         int64             `json:"quantity" validate:"required,gt=0"`
	SelectedVariants map[string]string `json:"selected_variants"`
}

type AddressInput struct {
	Name        string `json:"name" validate:"required"`
	Street      string `json:"street" validate:"required"`
	City        string `json:"city" validate:"required"`
	PostalCode  string `json:"postal_code" validate:"required"`
	CountryCode string `json:"country_code" validate:"required,len=2"`
	Phone       string `json:"phone"`
}

type CreateOrderInput struct {
	Email          string                 `json:"email" validate:"omitempty,email"`
	AddressID      int64                  `json:"address_id"`
	Address        *AddressInput          `json:"address"`
	ShippingMethod string                 `json:"shipping_method" validate:"required"`
	Items          []CreateOrderItemInput `json:"items" validate:"required,min=1,dive"`
}

type OrderOutput struct {
	Order model.Order       `json:"order"`
	Items []model.OrderItem `json:"items"`
	// returned once, only to the anonymous creator
	AccessToken string `json:"access_token,omitempty"`
}

type OrderListOutput struct {
	Orders []model.Order `json:"orders"`
	Total  int64         `json:"total"`
	Page   int           `json:"page"`
	Limit  int           `json:"limit"`
}

type DisputeInput struct {
	Reason      string `json:"reason" validate:"required,max=255"`
	Description string `json:"description"`
}

// OrderUsecase coordinates checkout and the buyer-side order lifecycle.
// Checkout is two-phase: reservation and persistence commit in one
// transaction, then notifications run best-effort after commit.
type OrderUsecase struct {
	tx       repo.TransactionManager
	orders   repo.OrderRepository
	items    repo.OrderItemRepository
	users    repo.UserRepository
	identity *IdentityUsecase
	carriers *shipment.Registry
	mailer   notification.Mailer
	logger   *zap.Logger
	now      func() time.Time
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	items repo.OrderItemRepository,
	users repo.UserRepository,
	identity *IdentityUsecase,
	carriers *shipment.Registry,
	mailer notification.Mailer,
	logger *zap.Logger,
) *OrderUsecase {
	return &OrderUsecase{
		tx:       tx,
		orders:   orders,
		items:    items,
		users:    users,
		identity: identity,
		carriers: carriers,
		mailer:   mailer,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateOrder is the checkout entry point.
//
// Phase 1, one transaction: resolve the buyer (creating an anonymous account
// if needed), resolve the shipping address, validate variants, snapshot
// prices, reserve stock per line, persist the order. Any failure rolls the
// whole phase back, reservations included.
//
// Phase 2, after commit: confirmation and magic-login mails. Failures here
// are logged, never surfaced; the order already exists.
func (u *OrderUsecase) CreateOrder(ctx context.Context, p Principal, in CreateOrderInput) (OrderOutput, error) {
	if len(in.Items) == 0 {
		return OrderOutput{}, NewBadRequest("order must contain at least one item")
	}
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return OrderOutput{}, NewBadRequest("item quantity must be positive")
		}
	}
	if in.AddressID == 0 && in.Address == nil {
		return OrderOutput{}, NewBadRequest("shipping address required")
	}
	if in.ShippingMethod == "" {
		return OrderOutput{}, NewBadRequest("shipping method required")
	}

	var (
		out        OrderOutput
		buyer      model.User
		loginToken string
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		buyer, loginToken, err = u.identity.ResolveBuyer(ctx, r.Users(), p.UserID, in.Email)
		if err != nil {
			return err
		}

		addressID, err := resolveAddress(ctx, r.Addresses(), buyer.ID, in)
		if err != nil {
			return err
		}

		now := u.now()
		order := model.Order{
			UserID:         buyer.ID,
			AddressID:      addressID,
			Status:         model.OrderStatusPending,
			PaymentStatus:  model.PaymentStatusPending,
			ShippingMethod: in.ShippingMethod,
		}
		if buyer.IsAnonymous {
			token, err := newToken()
			if err != nil {
				return NewInternal("token generation failed")
			}
			expires := now.Add(anonTokenTTL)
			order.AnonToken = token
			order.AnonTokenExpires = &expires
		}

		lines := make([]model.OrderItem, 0, len(in.Items))
		var total int64
		for _, it := range in.Items {
			product, err := r.Products().FindByID(ctx, it.ProductID)
			if err == repo.ErrNotFound {
				return NewNotFound(fmt.Sprintf("product %d not found", it.ProductID))
			}
			if err != nil {
				return NewInternal("db error")
			}
			if !product.IsActive {
				return NewBadRequest(fmt.Sprintf("product %d is not available", it.ProductID))
			}

			options, err := r.Products().ListVariantOptions(ctx, it.ProductID)
			if err != nil {
				return NewInternal("db error")
			}
			unitPrice, err := unitPrice(product, options, it.SelectedVariants)
			if err != nil {
				return err
			}

			key := model.VariantKey(it.SelectedVariants)
			ok, err := r.Inventory().Reserve(ctx, it.ProductID, key, it.Quantity)
			if err != nil {
				return NewInternal("db error")
			}
			if !ok {
				return NewInsufficientInventory(fmt.Sprintf("insufficient stock for product %d", it.ProductID))
			}

			selJSON, err := json.Marshal(it.SelectedVariants)
			if err != nil {
				return NewInternal("encode variant selection")
			}
			lines = append(lines, model.OrderItem{
				ProductID:            it.ProductID,
				ProductNameSnapshot:  product.Name,
				VariantKey:           key,
				SelectedVariantsJSON: string(selJSON),
				UnitPriceSnapshot:    unitPrice,
				Quantity:             it.Quantity,
			})
			total += unitPrice * it.Quantity
		}

		order.TotalPrice = total
		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			return NewInternal("db error")
		}
		if err := r.OrderItems().CreateBulk(ctx, orderID, lines); err != nil {
			return NewInternal("db error")
		}

		order.ID = orderID
		for i := range lines {
			lines[i].OrderID = orderID
		}
		out = OrderOutput{Order: order, Items: lines, AccessToken: order.AnonToken}
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	u.notify(ctx, buyer.Email, notification.TemplateOrderConfirmation, map[string]string{
		"order_id":    fmt.Sprintf("%d", out.Order.ID),
		"total_price": fmt.Sprintf("%d", out.Order.TotalPrice),
	})
	if loginToken != "" {
		u.notify(ctx, buyer.Email, notification.TemplateMagicLogin, map[string]string{
			"login_token": loginToken,
		})
	}
	return out, nil
}

// GetOrder returns the order with its lines. Access requires ownership, the
// owner role, or the order's anonymous access token.
func (u *OrderUsecase) GetOrder(ctx context.Context, p Principal, orderID int64, token string) (OrderOutput, error) {
	order, err := u.findAuthorized(ctx, p, orderID, token)
	if err != nil {
		return OrderOutput{}, err
	}
	items, err := u.items.ListByOrderID(ctx, orderID)
	if err != nil {
		return OrderOutput{}, NewInternal("db error")
	}
	return OrderOutput{Order: order, Items: items}, nil
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, p Principal, page, limit int) (OrderListOutput, error) {
	if p.UserID == 0 {
		return OrderListOutput{}, NewUnauthorized("login required")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	orders, total, err := u.orders.ListByUserID(ctx, p.UserID, page, limit)
	if err != nil {
		return OrderListOutput{}, NewInternal("db error")
	}
	return OrderListOutput{Orders: orders, Total: total, Page: page, Limit: limit}, nil
}

// Cancel aborts an order that has not shipped and returns its reserved
// stock. Cancelling an already cancelled order fails: the release must
// happen exactly once.
func (u *OrderUsecase) Cancel(ctx context.Context, p Principal, orderID int64, token string) (model.Order, error) {
	var (
		order      model.Order
		buyerEmail string
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		order, err = u.loadAuthorizedTx(ctx, r, p, orderID, token)
		if err != nil {
			return err
		}
		if !order.Status.CanCancel() {
			return NewBadRequest(fmt.Sprintf("order in status %s cannot be cancelled", order.Status))
		}
		// the conditional write decides the race: only the transition winner
		// releases stock
		ok, err := r.Orders().TransitionStatus(ctx, orderID, model.OrderStatusCancelled,
			[]model.OrderStatus{model.OrderStatusPending, model.OrderStatusProcessing})
		if err != nil {
			return NewInternal("db error")
		}
		if !ok {
			return NewBadRequest("order can no longer be cancelled")
		}
		if err := releaseOrderStock(ctx, r, orderID); err != nil {
			return err
		}
		order.Status = model.OrderStatusCancelled

		buyer, err := r.Users().FindByID(ctx, order.UserID)
		if err == nil {
			buyerEmail = buyer.Email
		}
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}

	if buyerEmail != "" {
		u.notify(ctx, buyerEmail, notification.TemplateOrderCancelled, map[string]string{
			"order_id": fmt.Sprintf("%d", orderID),
		})
	}
	return order, nil
}

// MarkReceived confirms delivery of a shipped order.
func (u *OrderUsecase) MarkReceived(ctx context.Context, p Principal, orderID int64, token string) (model.Order, error) {
	order, err := u.findAuthorized(ctx, p, orderID, token)
	if err != nil {
		return model.Order{}, err
	}
	if order.Status != model.OrderStatusShipped {
		return model.Order{}, NewBadRequest(fmt.Sprintf("order in status %s cannot be marked received", order.Status))
	}
	ok, err := u.orders.TransitionStatus(ctx, orderID, model.OrderStatusDelivered,
		[]model.OrderStatus{model.OrderStatusShipped})
	if err != nil {
		return model.Order{}, NewInternal("db error")
	}
	if !ok {
		return model.Order{}, NewBadRequest("order is no longer in a shipped state")
	}
	order.Status = model.OrderStatusDelivered
	return order, nil
}

// OpenDispute files a dispute against any non-terminal order and flags the
// order as disputed.
func (u *OrderUsecase) OpenDispute(ctx context.Context, p Principal, orderID int64, token string, in DisputeInput) (model.Dispute, error) {
	if in.Reason == "" {
		return model.Dispute{}, NewBadRequest("dispute reason required")
	}

	var dispute model.Dispute
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		order, err := u.loadAuthorizedTx(ctx, r, p, orderID, token)
		if err != nil {
			return err
		}
		if order.Status.IsTerminal() {
			return NewBadRequest(fmt.Sprintf("order in status %s cannot be disputed", order.Status))
		}

		dispute = model.Dispute{
			OrderID:     orderID,
			UserID:      order.UserID,
			Reason:      in.Reason,
			Description: in.Description,
			Status:      model.DisputeStatusOpen,
		}
		id, err := r.Disputes().Create(ctx, dispute)
		if err != nil {
			return NewInternal("db error")
		}
		dispute.ID = id

		ok, err := r.Orders().TransitionStatus(ctx, orderID, model.OrderStatusDisputed,
			[]model.OrderStatus{
				model.OrderStatusPending, model.OrderStatusProcessing,
				model.OrderStatusShipped, model.OrderStatusDelivered,
				model.OrderStatusDisputed,
			})
		if err != nil {
			return NewInternal("db error")
		}
		if !ok {
			return NewBadRequest("order reached a final state and cannot be disputed")
		}
		return nil
	})
	if err != nil {
		return model.Dispute{}, err
	}
	return dispute, nil
}

// Track returns the carrier's current status line for a shipped order.
func (u *OrderUsecase) Track(ctx context.Context, p Principal, orderID int64, token string) (string, error) {
	order, err := u.findAuthorized(ctx, p, orderID, token)
	if err != nil {
		return "", err
	}
	if order.TrackingNumber == "" {
		return "", NewBadRequest("order has no shipment yet")
	}
	carrier, err := u.carriers.Get(order.ShippingProvider)
	if err != nil {
		return "", NewInternal("shipping carrier unavailable")
	}
	status, err := carrier.Track(ctx, order.TrackingNumber)
	if err != nil {
		u.logger.Error("carrier tracking failed", zap.Error(err), zap.Int64("order_id", orderID))
		return "", NewInternal("tracking lookup failed")
	}
	return status, nil
}

func (u *OrderUsecase) findAuthorized(ctx context.Context, p Principal, orderID int64, token string) (model.Order, error) {
	order, err := u.orders.FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return model.Order{}, NewNotFound("order not found")
	}
	if err != nil {
		return model.Order{}, NewInternal("db error")
	}
	if err := authorizeOrderAccess(order, p, token, u.now()); err != nil {
		return model.Order{}, err
	}
	return order, nil
}

func (u *OrderUsecase) loadAuthorizedTx(ctx context.Context, r repo.TxRepos, p Principal, orderID int64, token string) (model.Order, error) {
	order, err := r.Orders().FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return model.Order{}, NewNotFound("order not found")
	}
	if err != nil {
		return model.Order{}, NewInternal("db error")
	}
	if err := authorizeOrderAccess(order, p, token, u.now()); err != nil {
		return model.Order{}, err
	}
	return order, nil
}

func (u *OrderUsecase) notify(ctx context.Context, email, template string, vars map[string]string) {
	if email == "" {
		return
	}
	if err := u.mailer.Send(ctx, email, template, vars); err != nil {
		u.logger.Error("notification failed",
			zap.Error(err),
			zap.String("template", template),
		)
	}
}

// authorizeOrderAccess admits the order's owner, any OWNER-role session, or
// the bearer of the order's unexpired anonymous access token.
func authorizeOrderAccess(order model.Order, p Principal, token string, now time.Time) error {
	if token != "" {
		if order.AnonToken == "" ||
			subtle.ConstantTimeCompare([]byte(order.AnonToken), []byte(token)) != 1 {
			return NewUnauthorized("invalid order access token")
		}
		if order.AnonTokenExpires == nil || now.After(*order.AnonTokenExpires) {
			return NewExpiredToken("order access token expired")
		}
		return nil
	}
	if p.Role == string(model.RoleOwner) {
		return nil
	}
	if p.UserID != 0 && p.UserID == order.UserID {
		return nil
	}
	return NewUnauthorized("not allowed to access this order")
}

// resolveAddress picks an existing address (ownership checked) or creates
// one inline from the request.
func resolveAddress(ctx context.Context, addresses repo.AddressRepository, buyerID int64, in CreateOrderInput) (int64, error) {
	if in.AddressID > 0 {
		owned, err := addresses.IsOwnedByUser(ctx, in.AddressID, buyerID)
		if err != nil {
			return 0, NewInternal("db error")
		}
		if !owned {
			return 0, NewForbidden("address does not belong to buyer")
		}
		return in.AddressID, nil
	}

	a := in.Address
	if a.Name == "" || a.Street == "" || a.City == "" || a.PostalCode == "" || a.CountryCode == "" {
		return 0, NewBadRequest("incomplete shipping address")
	}
	created, err := addresses.Create(ctx, model.Address{
		UserID:      buyerID,
		Name:        a.Name,
		Street:      a.Street,
		City:        a.City,
		PostalCode:  a.PostalCode,
		CountryCode: a.CountryCode,
		Phone:       a.Phone,
	})
	if err != nil {
		return 0, NewInternal("db error")
	}
	return created.ID, nil
}

// unitPrice snapshots the line price: base price plus the delta of every
// selected option. Selections naming an option the product does not offer
// are rejected.
func unitPrice(product model.Product, options []model.VariantOption, selections map[string]string) (int64, error) {
	price := product.BasePrice
	for name, option := range selections {
		var found bool
		for _, opt := range options {
			if opt.VariantName == name && opt.OptionName == option {
				price += opt.PriceDelta
				found = true
				break
			}
		}
		if !found {
			return 0, NewBadRequest(fmt.Sprintf("invalid variant selection %s:%s for product %d", name, option, product.ID))
		}
	}
	return price, nil
}

// releaseOrderStock returns every line's reserved units to the ledger.
// Runs inside the caller's transaction.
func releaseOrderStock(ctx context.Context, r repo.TxRepos, orderID int64) error {
	items, err := r.OrderItems().ListByOrderID(ctx, orderID)
	if err != nil {
		return NewInternal("db error")
	}
	for _, it := range items {
		if err := r.Inventory().Release(ctx, it.ProductID, it.VariantKey, it.Quantity); err != nil {
			return NewInternal("db error")
		}
	}
	return nil
}
