// Package domain contains the user model and its billing projection.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Tier is the access level mirrored from the billing subscription.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// User is an account holder. The subscription fields are a denormalized
// projection of the authoritative Subscription row, recomputed by the
// billing state machine on every webhook event and never hand-edited.
type User struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	Email        string       `gorm:"type:text;not null;uniqueIndex"`
	Name         string       `gorm:"type:text;not null"`
	PasswordHash string       `gorm:"type:text;not null"`

	Tier               Tier       `gorm:"type:text;not null;default:free"`
	SubscriptionStatus string     `gorm:"type:text"`
	BillingSubscriptionID *string `gorm:"type:text;index"`
	CurrentPeriodEnd   *time.Time `gorm:""`
	IsPaused           bool       `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// BillingProjection is the user-side mirror of a subscription event.
type BillingProjection struct {
	Tier                  Tier
	SubscriptionStatus    string
	BillingSubscriptionID *string
	CurrentPeriodEnd      *time.Time
	IsPaused              bool
}

// Repository is the user persistence contract.
type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	Create(ctx context.Context, db *gorm.DB, user *User) error
	ApplyBillingProjection(ctx context.Context, db *gorm.DB, id snowflake.ID, projection BillingProjection) error
	FindLapsedCancellations(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]*User, error)
}
