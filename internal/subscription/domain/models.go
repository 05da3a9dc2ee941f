// Package domain contains subscription and webhook event models.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Subscription statuses as reported by the billing provider.
const (
	StatusOnTrial   = "on_trial"
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusPastDue   = "past_due"
	StatusUnpaid    = "unpaid"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrUnknownEvent         = errors.New("unknown webhook event")
	ErrMissingUser          = errors.New("webhook payload has no user reference")
)

// Subscription mirrors the provider's subscription object. ExternalID
// is the provider's identifier and the idempotency key: every event is
// applied as an upsert on it, so duplicate and concurrent deliveries
// converge on the same row.
type Subscription struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	ExternalID      string       `gorm:"type:text;not null;uniqueIndex"`
	UserID          snowflake.ID `gorm:"not null;index"`
	PlanID          snowflake.ID `gorm:"not null"`
	OrderID         int64        `gorm:"not null;default:0"`
	CustomerID      int64        `gorm:"not null;default:0"`
	Status          string       `gorm:"type:text;not null"`
	StatusFormatted string       `gorm:"type:text"`
	RenewsAt        *time.Time
	EndsAt          *time.Time
	TrialEndsAt     *time.Time
	IsPaused        bool   `gorm:"not null;default:false"`
	IsUsageBased    bool   `gorm:"not null;default:false"`
	PriceID         string `gorm:"type:text"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// WebhookEvent is the append-only delivery log. Rows are written before
// processing and only ever touched again to flip Processed or record a
// processing error, so failed deliveries can be replayed.
type WebhookEvent struct {
	ID              snowflake.ID   `gorm:"primaryKey"`
	EventName       string         `gorm:"type:text;not null;index"`
	Body            datatypes.JSON `gorm:"not null"`
	Processed       bool           `gorm:"not null;default:false;index"`
	ProcessingError *string        `gorm:"type:text"`
	CreatedAt       time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (WebhookEvent) TableName() string { return "webhook_events" }

// Service is the webhook processing contract.
type Service interface {
	// Ingest logs the raw event and applies it. Processing failures are
	// recorded on the stored event and returned; the event row survives
	// either way.
	Ingest(ctx context.Context, eventName string, body []byte) (*WebhookEvent, error)
	// ReprocessFailed retries every unprocessed event, oldest first.
	ReprocessFailed(ctx context.Context) (int, error)
	FindByUser(ctx context.Context, userID snowflake.ID) (*Subscription, error)
}

// Repository is the subscription persistence contract.
type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, sub *Subscription) error
	FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*Subscription, error)
	FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Subscription, error)
	InsertEvent(ctx context.Context, db *gorm.DB, event *WebhookEvent) error
	MarkEventProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processingError *string) error
	FindUnprocessedEvents(ctx context.Context, db *gorm.DB, limit int) ([]*WebhookEvent, error)
}
