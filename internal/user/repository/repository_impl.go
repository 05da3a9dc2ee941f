package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/tabshare/tabshare/internal/user/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() userdomain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*userdomain.User, error) {
	var user userdomain.User
	err := db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*userdomain.User, error) {
	var user userdomain.User
	err := db.WithContext(ctx).First(&user, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, user *userdomain.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return db.WithContext(ctx).Create(user).Error
}

func (r *repo) ApplyBillingProjection(ctx context.Context, db *gorm.DB, id snowflake.ID, projection userdomain.BillingProjection) error {
	return db.WithContext(ctx).Model(&userdomain.User{}).Where("id = ?", id).Updates(map[string]any{
		"tier":                    projection.Tier,
		"subscription_status":     projection.SubscriptionStatus,
		"billing_subscription_id": projection.BillingSubscriptionID,
		"current_period_end":      projection.CurrentPeriodEnd,
		"is_paused":               projection.IsPaused,
	}).Error
}

func (r *repo) FindLapsedCancellations(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]*userdomain.User, error) {
	var users []*userdomain.User
	err := db.WithContext(ctx).
		Where("tier = ?", userdomain.TierPro).
		Where("subscription_status = ?", "cancelled").
		Where("current_period_end IS NOT NULL AND current_period_end < ?", cutoff).
		Order("id").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
