package repository

import "context"

// Repositories available inside one transaction.
type TxRepos interface {
	Orders() OrderRepository
	OrderItems() OrderItemRepository
	Products() ProductRepository
	Inventory() InventoryRepository
	Users() UserRepository
	Addresses() AddressRepository
	Disputes() DisputeRepository
}

// TransactionManager hides begin/commit/rollback from the usecases.
// fn returning an error rolls everything back.
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
