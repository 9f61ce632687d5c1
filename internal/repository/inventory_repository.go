package repository

import "context"

// Inventory ledger over per-(product, variant combination) stock rows.
type InventoryRepository interface {
	// Reserve decrements stock only if enough is left. Returns false when the
	// row is missing or stock < qty; the caller aborts its transaction.
	Reserve(ctx context.Context, productID int64, variantKey string, qty int64) (bool, error)

	// Release adds reserved units back (cancel / deny).
	Release(ctx context.Context, productID int64, variantKey string, qty int64) error

	GetStock(ctx context.Context, productID int64, variantKey string) (int64, error)
	SetStock(ctx context.Context, productID int64, variantKey string, stock int64) error
}
