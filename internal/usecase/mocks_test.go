package usecase

import (
	"context"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// txManagerMock runs fn against a fixed set of repos, no real transaction.
type txManagerMock struct {
	Repos repo.TxRepos
}

func (m *txManagerMock) WithinTx(_ context.Context, fn func(r repo.TxRepos) error) error {
	return fn(m.Repos)
}

type txReposMock struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	products   repo.ProductRepository
	inventory  repo.InventoryRepository
	users      repo.UserRepository
	addresses  repo.AddressRepository
	disputes   repo.DisputeRepository
}

func (r *txReposMock) Orders() repo.OrderRepository         { return r.orders }
func (r *txReposMock) OrderItems() repo.OrderItemRepository { return r.orderItems }
func (r *txReposMock) Products() repo.ProductRepository     { return r.products }
func (r *txReposMock) Inventory() repo.InventoryRepository  { return r.inventory }
func (r *txReposMock) Users() repo.UserRepository           { return r.users }
func (r *txReposMock) Addresses() repo.AddressRepository    { return r.addresses }
func (r *txReposMock) Disputes() repo.DisputeRepository     { return r.disputes }

// =====================
// Repository mocks
// =====================

type orderRepoMock struct{ mock.Mock }

func (m *orderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *orderRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *orderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

func (m *orderRepoMock) TransitionStatus(ctx context.Context, orderID int64, next model.OrderStatus, from []model.OrderStatus) (bool, error) {
	args := m.Called(ctx, orderID, next, from)
	return args.Bool(0), args.Error(1)
}

func (m *orderRepoMock) UpdatePaymentInit(ctx context.Context, orderID int64, gateway, transactionID, paymentURL string) error {
	args := m.Called(ctx, orderID, gateway, transactionID, paymentURL)
	return args.Error(0)
}

func (m *orderRepoMock) UpdatePaymentStatus(ctx context.Context, orderID int64, status model.PaymentStatus) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

func (m *orderRepoMock) UpdateShipment(ctx context.Context, orderID int64, provider, labelURL, trackingNumber string) (bool, error) {
	args := m.Called(ctx, orderID, provider, labelURL, trackingNumber)
	return args.Bool(0), args.Error(1)
}

func (m *orderRepoMock) UpdateDenial(ctx context.Context, orderID int64, reason string) (bool, error) {
	args := m.Called(ctx, orderID, reason)
	return args.Bool(0), args.Error(1)
}

func (m *orderRepoMock) ListOwner(ctx context.Context, f repo.OwnerOrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *orderRepoMock) Statistics(ctx context.Context) (repo.OrderStatistics, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).(repo.OrderStatistics)
	return stats, args.Error(1)
}

type orderItemRepoMock struct{ mock.Mock }

func (m *orderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *orderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

type productRepoMock struct{ mock.Mock }

func (m *productRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *productRepoMock) ListVariantOptions(ctx context.Context, productID int64) ([]model.VariantOption, error) {
	args := m.Called(ctx, productID)
	opts, _ := args.Get(0).([]model.VariantOption)
	return opts, args.Error(1)
}

type inventoryRepoMock struct{ mock.Mock }

func (m *inventoryRepoMock) Reserve(ctx context.Context, productID int64, variantKey string, qty int64) (bool, error) {
	args := m.Called(ctx, productID, variantKey, qty)
	return args.Bool(0), args.Error(1)
}

func (m *inventoryRepoMock) Release(ctx context.Context, productID int64, variantKey string, qty int64) error {
	args := m.Called(ctx, productID, variantKey, qty)
	return args.Error(0)
}

func (m *inventoryRepoMock) GetStock(ctx context.Context, productID int64, variantKey string) (int64, error) {
	args := m.Called(ctx, productID, variantKey)
	return args.Get(0).(int64), args.Error(1)
}

func (m *inventoryRepoMock) SetStock(ctx context.Context, productID int64, variantKey string, stock int64) error {
	args := m.Called(ctx, productID, variantKey, stock)
	return args.Error(0)
}

type userRepoMock struct{ mock.Mock }

func (m *userRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil && user.ID == 0 {
		user.ID = 100 // simulate the DB assigning a key
	}
	return args.Error(0)
}

func (m *userRepoMock) FindByID(ctx context.Context, userID int64) (model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(model.User)
	return u, args.Error(1)
}

func (m *userRepoMock) FindByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(model.User)
	return u, args.Error(1)
}

func (m *userRepoMock) FindByLoginToken(ctx context.Context, token string) (model.User, error) {
	args := m.Called(ctx, token)
	u, _ := args.Get(0).(model.User)
	return u, args.Error(1)
}

func (m *userRepoMock) UpdateLoginToken(ctx context.Context, userID int64, token string, expires *time.Time) error {
	args := m.Called(ctx, userID, token, expires)
	return args.Error(0)
}

func (m *userRepoMock) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

type addressRepoMock struct{ mock.Mock }

func (m *addressRepoMock) Create(ctx context.Context, address model.Address) (model.Address, error) {
	args := m.Called(ctx, address)
	a, _ := args.Get(0).(model.Address)
	return a, args.Error(1)
}

func (m *addressRepoMock) FindByID(ctx context.Context, addressID int64) (model.Address, error) {
	args := m.Called(ctx, addressID)
	a, _ := args.Get(0).(model.Address)
	return a, args.Error(1)
}

func (m *addressRepoMock) ListByUserID(ctx context.Context, userID int64) ([]model.Address, error) {
	args := m.Called(ctx, userID)
	addrs, _ := args.Get(0).([]model.Address)
	return addrs, args.Error(1)
}

func (m *addressRepoMock) IsOwnedByUser(ctx context.Context, addressID, userID int64) (bool, error) {
	args := m.Called(ctx, addressID, userID)
	return args.Bool(0), args.Error(1)
}

type disputeRepoMock struct{ mock.Mock }

func (m *disputeRepoMock) Create(ctx context.Context, d model.Dispute) (int64, error) {
	args := m.Called(ctx, d)
	return args.Get(0).(int64), args.Error(1)
}

func (m *disputeRepoMock) FindByID(ctx context.Context, id int64) (model.Dispute, error) {
	args := m.Called(ctx, id)
	d, _ := args.Get(0).(model.Dispute)
	return d, args.Error(1)
}

func (m *disputeRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.Dispute, error) {
	args := m.Called(ctx, orderID)
	ds, _ := args.Get(0).([]model.Dispute)
	return ds, args.Error(1)
}

type auditRepoMock struct{ mock.Mock }

func (m *auditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *auditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}

// =====================
// Outbound port mocks
// =====================

type mailerMock struct{ mock.Mock }

func (m *mailerMock) Send(ctx context.Context, toEmail, templateName string, variables map[string]string) error {
	args := m.Called(ctx, toEmail, templateName, variables)
	return args.Error(0)
}

type issuerMock struct{ mock.Mock }

func (m *issuerMock) Issue(userID int64, role model.Role, now time.Time) (string, time.Time, error) {
	args := m.Called(userID, role, now)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}
