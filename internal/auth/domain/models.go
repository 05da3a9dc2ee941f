package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/tabshare/tabshare/internal/user/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidSession     = errors.New("invalid session")
	ErrWeakPassword       = errors.New("password too short")
)

// Session is a bearer-token login session.
type Session struct {
	Token     string       `gorm:"primaryKey;type:text"`
	UserID    snowflake.ID `gorm:"not null;index"`
	ExpiresAt time.Time    `gorm:"not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }

type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Service is the authentication contract.
type Service interface {
	Signup(ctx context.Context, req SignupRequest) (*userdomain.User, string, error)
	Login(ctx context.Context, req LoginRequest) (*userdomain.User, string, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*userdomain.User, error)
}
