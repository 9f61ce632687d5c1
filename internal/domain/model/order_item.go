package model

import "time"

type OrderItem struct {
	ID                  int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID             int64  `gorm:"not null;index" json:"order_id"`
	ProductID           int64  `gorm:"not null;index" json:"product_id"`
	ProductNameSnapshot string `gorm:"type:varchar(255);not null" json:"product_name_snapshot"`

	// canonical variant combination key, see VariantKey
	VariantKey string `gorm:"type:varchar(500);not null" json:"variant_key"`
	// raw selection as JSON, e.g. {"size":"M","color":"red"}
	SelectedVariantsJSON string `gorm:"type:text" json:"selected_variants"`

	UnitPriceSnapshot int64     `gorm:"not null" json:"unit_price_snapshot"`
	Quantity          int64     `gorm:"not null" json:"quantity"`
	CreatedAt         time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
