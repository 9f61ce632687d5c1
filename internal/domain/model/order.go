package model

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusDenied     OrderStatus = "DENIED"
	OrderStatusDisputed   OrderStatus = "DISPUTED"
)

// IsTerminal reports whether no further lifecycle transition is allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled || s == OrderStatusDenied
}

// CanCancel reports whether the order may still be cancelled with stock released.
func (s OrderStatus) CanCancel() bool {
	return s == OrderStatusPending || s == OrderStatusProcessing
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

type Order struct {
	ID         int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64       `gorm:"not null;index" json:"user_id"`
	AddressID  int64       `gorm:"not null" json:"address_id"`
	Status     OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	TotalPrice int64       `gorm:"not null" json:"total_price"`

	PaymentStatus  PaymentStatus `gorm:"type:varchar(20);not null;default:'PENDING'" json:"payment_status"`
	PaymentGateway string        `gorm:"type:varchar(50)" json:"payment_gateway,omitempty"`
	TransactionID  string        `gorm:"type:varchar(255)" json:"-"`
	PaymentURL     string        `gorm:"type:varchar(1024)" json:"payment_url,omitempty"`

	ShippingMethod   string `gorm:"type:varchar(50);not null" json:"shipping_method"`
	ShippingProvider string `gorm:"type:varchar(50)" json:"shipping_provider,omitempty"`
	ShippingLabelURL string `gorm:"type:varchar(1024)" json:"shipping_label_url,omitempty"`
	TrackingNumber   string `gorm:"type:varchar(255)" json:"tracking_number,omitempty"`

	DenialReason string `gorm:"type:varchar(500)" json:"denial_reason,omitempty"`

	// set only on orders placed without a session
	AnonToken        string     `gorm:"type:varchar(255);index" json:"-"`
	AnonTokenExpires *time.Time `json:"-"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
