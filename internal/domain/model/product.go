package model

import (
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
)

type Product struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	BasePrice   int64          `gorm:"not null" json:"base_price"`
	IsActive    bool           `gorm:"not null;default:false" json:"is_active"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// One selectable option of one variant axis, with its price delta over BasePrice.
type VariantOption struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID   int64  `gorm:"not null;index:idx_variant_option,unique" json:"product_id"`
	VariantName string `gorm:"type:varchar(100);not null;index:idx_variant_option,unique" json:"variant_name"`
	OptionName  string `gorm:"type:varchar(100);not null;index:idx_variant_option,unique" json:"option_name"`
	PriceDelta  int64  `gorm:"not null;default:0" json:"price_delta"`
}

// VariantKey builds the canonical key for one variant combination:
// "name:option" pairs sorted by name and joined with ";".
// An empty selection maps to the empty key (single-SKU products).
func VariantKey(selections map[string]string) string {
	if len(selections) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(selections))
	for name, option := range selections {
		pairs = append(pairs, name+":"+option)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ";")
}
