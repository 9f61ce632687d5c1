package repository

import (
	"context"

	"app/internal/domain/model"
)

type DisputeRepository interface {
	Create(ctx context.Context, d model.Dispute) (int64, error)
	FindByID(ctx context.Context, id int64) (model.Dispute, error)
	ListByOrderID(ctx context.Context, orderID int64) ([]model.Dispute, error)
}
