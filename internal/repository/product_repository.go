package repository

import (
	"context"

	"app/internal/domain/model"
)

type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (model.Product, error)

	// all option rows for a product, every variant axis
	ListVariantOptions(ctx context.Context, productID int64) ([]model.VariantOption, error)
}
