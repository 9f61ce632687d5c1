package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type DisputeGormRepository struct {
	db *gorm.DB
}

func NewDisputeGormRepository(db *gorm.DB) *DisputeGormRepository {
	return &DisputeGormRepository{db: db}
}

func (r *DisputeGormRepository) Create(ctx context.Context, d model.Dispute) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&d).Error; err != nil {
		return 0, err
	}
	return d.ID, nil
}

func (r *DisputeGormRepository) FindByID(ctx context.Context, id int64) (model.Dispute, error) {
	var d model.Dispute
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Dispute{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Dispute{}, err
	}
	return d, nil
}

func (r *DisputeGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.Dispute, error) {
	var items []model.Dispute
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id desc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
