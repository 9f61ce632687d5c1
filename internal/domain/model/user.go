package model

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleOwner Role = "OWNER"
)

// User is the buyer identity. Anonymous checkouts create a placeholder
// account keyed by email; the one-time login token lets its owner turn it
// into an authenticated session later.
type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"column:password_hash" json:"-"`
	Role         Role   `gorm:"type:varchar(20);not null;default:'USER'" json:"role"`
	IsAnonymous  bool   `gorm:"not null;default:false" json:"is_anonymous"`
	IsActive     bool   `gorm:"not null;default:true" json:"is_active"`

	// one-time login token (magic link); distinct from any order access token
	LoginToken        string     `gorm:"type:varchar(255);index" json:"-"`
	LoginTokenExpires *time.Time `json:"-"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
