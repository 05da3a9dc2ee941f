// Package domain contains the notification queue models.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Kind labels the event that produced a notification.
type Kind string

const (
	KindExpenseAdded Kind = "expense_added"
	KindMemberAdded  Kind = "member_added"
)

// Notification is one queued row waiting to be bundled into a digest
// email. DigestedAt is nil until a digest run picks it up.
type Notification struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	UserID     snowflake.ID `gorm:"not null;index:idx_notifications_pending"`
	GroupID    snowflake.ID `gorm:"not null;index"`
	Kind       Kind         `gorm:"type:text;not null"`
	Subject    string       `gorm:"type:text;not null"`
	Body       string       `gorm:"type:text;not null"`
	DigestedAt *time.Time   `gorm:"index:idx_notifications_pending"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Notification) TableName() string { return "notifications" }

// Enqueuer accepts notifications from the domain services that emit
// them. Failures to enqueue must never fail the emitting operation.
type Enqueuer interface {
	Enqueue(ctx context.Context, n *Notification) error
}

// Service drains the queue into digest emails.
type Service interface {
	Enqueuer
	DrainDigests(ctx context.Context) (int, error)
}

// Repository is the notification persistence contract.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, n *Notification) error
	FindPending(ctx context.Context, db *gorm.DB, olderThan time.Time, limit int) ([]*Notification, error)
	MarkDigested(ctx context.Context, db *gorm.DB, ids []snowflake.ID, at time.Time) error
}
