package model

import "time"

// Shipping address. Anonymous checkouts create one inline for the
// placeholder account.
type Address struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64 `gorm:"not null;index" json:"user_id"`

	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Street      string `gorm:"type:varchar(255);not null" json:"street"`
	City        string `gorm:"type:varchar(255);not null" json:"city"`
	PostalCode  string `gorm:"type:varchar(20);not null" json:"postal_code"`
	CountryCode string `gorm:"type:varchar(2);not null" json:"country_code"`
	Phone       string `gorm:"type:varchar(30)" json:"phone"`

	IsDefault bool `gorm:"not null;default:false" json:"is_default"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
