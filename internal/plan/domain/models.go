// Package domain contains billing plan models.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var ErrPlanNotFound = errors.New("plan not found")

// Plan is a billing tier keyed by the provider's variant id. Plans
// referenced by a webhook before the catalog knows them are created as
// placeholders with Price "0" and reconciled by the next catalog sync.
type Plan struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	VariantID   int64        `gorm:"not null;uniqueIndex"`
	ProductID   int64        `gorm:"not null;default:0"`
	Name        string       `gorm:"type:text;not null"`
	Price       string       `gorm:"type:text;not null;default:0"`
	Interval    string       `gorm:"type:text"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Plan) TableName() string { return "plans" }

// Provisional reports whether the plan is a webhook-created placeholder
// still waiting for a catalog sync.
func (p *Plan) Provisional() bool { return p.Price == "0" }

// CatalogEntry is one plan definition from the provider's catalog.
type CatalogEntry struct {
	VariantID int64  `json:"variant_id" binding:"required"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name" binding:"required"`
	Price     string `json:"price" binding:"required"`
	Interval  string `json:"interval"`
}

// Service manages the plan catalog.
type Service interface {
	List(ctx context.Context) ([]*Plan, error)
	SyncCatalog(ctx context.Context, entries []CatalogEntry) (int, error)
	EnsureByVariant(ctx context.Context, db *gorm.DB, variantID int64, name string) (*Plan, error)
}

// Repository is the plan persistence contract.
type Repository interface {
	FindAll(ctx context.Context, db *gorm.DB) ([]*Plan, error)
	FindByVariant(ctx context.Context, db *gorm.DB, variantID int64) (*Plan, error)
	Insert(ctx context.Context, db *gorm.DB, plan *Plan) error
	Upsert(ctx context.Context, db *gorm.DB, plan *Plan) error
}
