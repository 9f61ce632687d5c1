package model

import "time"

type DisputeStatus string

const (
	DisputeStatusOpen     DisputeStatus = "OPEN"
	DisputeStatusResolved DisputeStatus = "RESOLVED"
)

type Dispute struct {
	ID          int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     int64         `gorm:"not null;index" json:"order_id"`
	UserID      int64         `gorm:"not null;index" json:"user_id"`
	Reason      string        `gorm:"type:varchar(255);not null" json:"reason"`
	Description string        `gorm:"type:text" json:"description"`
	Status      DisputeStatus `gorm:"type:varchar(20);not null;default:'OPEN'" json:"status"`
	CreatedAt   time.Time     `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
