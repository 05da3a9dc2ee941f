package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/tabshare/tabshare/internal/clock"
	plandomain "github.com/tabshare/tabshare/internal/plan/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  plandomain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  plandomain.Repository
}

func NewService(p ServiceParam) plandomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("plan.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) List(ctx context.Context) ([]*plandomain.Plan, error) {
	return s.repo.FindAll(ctx, s.db)
}

// SyncCatalog reconciles stored plans against the provider's catalog,
// fixing up any placeholders created by out-of-order webhooks. Returns
// how many rows were written.
func (s *Service) SyncCatalog(ctx context.Context, entries []plandomain.CatalogEntry) (int, error) {
	now := s.clock.Now()
	written := 0
	for _, entry := range entries {
		plan := &plandomain.Plan{
			ID:        s.genID.Generate(),
			VariantID: entry.VariantID,
			ProductID: entry.ProductID,
			Name:      entry.Name,
			Price:     entry.Price,
			Interval:  entry.Interval,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Upsert(ctx, s.db, plan); err != nil {
			return written, fmt.Errorf("sync variant %d: %w", entry.VariantID, err)
		}
		written++
	}
	s.log.Info("plan catalog synced", zap.Int("entries", written))
	return written, nil
}

// EnsureByVariant returns the plan for a variant, creating a
// provisional placeholder when the catalog has never seen it.
func (s *Service) EnsureByVariant(ctx context.Context, db *gorm.DB, variantID int64, name string) (*plandomain.Plan, error) {
	plan, err := s.repo.FindByVariant(ctx, db, variantID)
	if err != nil {
		return nil, err
	}
	if plan != nil {
		return plan, nil
	}

	now := s.clock.Now()
	placeholder := &plandomain.Plan{
		ID:        s.genID.Generate(),
		VariantID: variantID,
		Name:      name,
		Price:     "0",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, db, placeholder); err != nil {
		return nil, err
	}

	// re-read covers losing an insert race to a concurrent delivery
	plan, err = s.repo.FindByVariant(ctx, db, variantID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, plandomain.ErrPlanNotFound
	}
	s.log.Info("provisional plan created",
		zap.Int64("variant_id", variantID),
		zap.String("name", name),
	)
	return plan, nil
}
