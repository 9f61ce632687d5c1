package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type InventoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

// Reserve decrements only when enough stock is left. The WHERE clause is the
// compare-and-swap: a concurrent reservation that drained the row leaves
// RowsAffected at 0 and the caller aborts its transaction.
func (r *InventoryGormRepository) Reserve(ctx context.Context, productID int64, variantKey string, qty int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.InventoryRecord{}).
		Where("product_id = ? AND variant_key = ? AND stock >= ?", productID, variantKey, qty).
		Update("stock", gorm.Expr("stock - ?", qty))

	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, nil
}

func (r *InventoryGormRepository) Release(ctx context.Context, productID int64, variantKey string, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.InventoryRecord{}).
		Where("product_id = ? AND variant_key = ?", productID, variantKey).
		Update("stock", gorm.Expr("stock + ?", qty))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *InventoryGormRepository) GetStock(ctx context.Context, productID int64, variantKey string) (int64, error) {
	var rec model.InventoryRecord
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND variant_key = ?", productID, variantKey).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, repo.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return rec.Stock, nil
}

func (r *InventoryGormRepository) SetStock(ctx context.Context, productID int64, variantKey string, stock int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.InventoryRecord{}).
		Where("product_id = ? AND variant_key = ?", productID, variantKey).
		Update("stock", stock)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		rec := model.InventoryRecord{ProductID: productID, VariantKey: variantKey, Stock: stock}
		return r.db.WithContext(ctx).Create(&rec).Error
	}
	return nil
}
