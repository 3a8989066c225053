package auth

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Role      string    `gorm:"not null;default:user" json:"role"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type Otp struct {
	ID         uint      `gorm:"primaryKey"`
	Email      string    `gorm:"uniqueIndex;not null"`
	HashedCode string    `gorm:"not null"`
	Attempts   int       `gorm:"not null;default:1"`
	ExpiresAt  time.Time `gorm:"not null"`
}

func (Otp) TableName() string {
	return "otp"
}

type OtpBlacklist struct {
	ID        uint       `gorm:"primaryKey"`
	Email     string     `gorm:"uniqueIndex;not null"`
	ExpiresAt *time.Time // nil means permanent block
}

func (OtpBlacklist) TableName() string {
	return "otp_blacklist"
}

// RefreshTokenBlacklist is a single-use consumption ledger: a token string is
// inserted exactly once when exchanged, and a second insert signals replay.
type RefreshTokenBlacklist struct {
	ID        uint   `gorm:"primaryKey"`
	Token     string `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
}

func (RefreshTokenBlacklist) TableName() string {
	return "refresh_token_blacklist"
}
