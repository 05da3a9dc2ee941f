package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	notifdomain "github.com/tabshare/tabshare/internal/notification/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() notifdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, n *notifdomain.Notification) error {
	return db.WithContext(ctx).Create(n).Error
}

func (r *repo) FindPending(ctx context.Context, db *gorm.DB, olderThan time.Time, limit int) ([]*notifdomain.Notification, error) {
	var rows []*notifdomain.Notification
	err := db.WithContext(ctx).
		Where("digested_at IS NULL AND created_at <= ?", olderThan).
		Order("user_id, created_at").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) MarkDigested(ctx context.Context, db *gorm.DB, ids []snowflake.ID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&notifdomain.Notification{}).
		Where("id IN ?", ids).
		Update("digested_at", at).Error
}
