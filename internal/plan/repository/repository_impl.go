package repository

import (
	"context"
	"errors"

	plandomain "github.com/tabshare/tabshare/internal/plan/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() plandomain.Repository {
	return &repo{}
}

func (r *repo) FindAll(ctx context.Context, db *gorm.DB) ([]*plandomain.Plan, error) {
	var plans []*plandomain.Plan
	err := db.WithContext(ctx).Order("variant_id").Find(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repo) FindByVariant(ctx context.Context, db *gorm.DB, variantID int64) (*plandomain.Plan, error) {
	var plan plandomain.Plan
	err := db.WithContext(ctx).First(&plan, "variant_id = ?", variantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, plan *plandomain.Plan) error {
	// two racing webhooks may both miss the variant; the loser's insert
	// is a no-op and the caller re-reads
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "variant_id"}},
			DoNothing: true,
		}).
		Create(plan).Error
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, plan *plandomain.Plan) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "variant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"product_id", "name", "price", "interval", "updated_at"}),
		}).
		Create(plan).Error
}
