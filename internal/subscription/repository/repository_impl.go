package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	subdomain "github.com/tabshare/tabshare/internal/subscription/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() subdomain.Repository {
	return &repo{}
}

// Upsert writes a subscription keyed on the provider's external id.
// Insert-or-update in one statement is the concurrency guard: two
// at-least-once deliveries of the same event race safely to the same
// row instead of losing an update to check-then-write.
func (r *repo) Upsert(ctx context.Context, db *gorm.DB, sub *subdomain.Subscription) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"user_id", "plan_id", "order_id", "customer_id",
				"status", "status_formatted",
				"renews_at", "ends_at", "trial_ends_at",
				"is_paused", "is_usage_based", "price_id",
				"updated_at",
			}),
		}).
		Create(sub).Error
}

func (r *repo) FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*subdomain.Subscription, error) {
	var sub subdomain.Subscription
	err := db.WithContext(ctx).First(&sub, "external_id = ?", externalID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repo) FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*subdomain.Subscription, error) {
	var sub subdomain.Subscription
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *subdomain.WebhookEvent) error {
	return db.WithContext(ctx).Create(event).Error
}

func (r *repo) MarkEventProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processingError *string) error {
	return db.WithContext(ctx).
		Model(&subdomain.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processed":        processingError == nil,
			"processing_error": processingError,
		}).Error
}

func (r *repo) FindUnprocessedEvents(ctx context.Context, db *gorm.DB, limit int) ([]*subdomain.WebhookEvent, error) {
	var events []*subdomain.WebhookEvent
	err := db.WithContext(ctx).
		Where("processed = ?", false).
		Order("created_at").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
