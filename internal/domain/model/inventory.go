package model

import "time"

// Per-(product, variant combination) stock counter. Stock never goes
// negative: reservations are conditional decrements.
type InventoryRecord struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID  int64     `gorm:"not null;index:idx_inventory_variant,unique" json:"product_id"`
	VariantKey string    `gorm:"type:varchar(500);not null;index:idx_inventory_variant,unique" json:"variant_key"`
	Stock      int64     `gorm:"not null" json:"stock"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
