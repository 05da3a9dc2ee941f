// Package scheduler runs the periodic maintenance jobs: replaying
// failed webhook deliveries, lapsing cancelled subscriptions past their
// paid period, and draining the notification digest queue.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tabshare/tabshare/internal/clock"
	notifdomain "github.com/tabshare/tabshare/internal/notification/domain"
	subdomain "github.com/tabshare/tabshare/internal/subscription/domain"
	userdomain "github.com/tabshare/tabshare/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	Clock           clock.Clock
	SubscriptionSvc subdomain.Service
	NotificationSvc notifdomain.Service
	Users           userdomain.Repository
	Config          Config `optional:"true"`
}

type Scheduler struct {
	db              *gorm.DB
	log             *zap.Logger
	cfg             Config
	clock           clock.Clock
	subscriptionSvc subdomain.Service
	notificationSvc notifdomain.Service
	users           userdomain.Repository
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.SubscriptionSvc == nil || p.NotificationSvc == nil || p.Users == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:              p.DB,
		log:             p.Log.Named("scheduler"),
		cfg:             p.Config.withDefaults(),
		clock:           p.Clock,
		subscriptionSvc: p.SubscriptionSvc,
		notificationSvc: p.NotificationSvc,
		users:           p.Users,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	log := s.log.With(zap.String("job", name))
	err := fn(ctx)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			log.Warn("job timed out", zap.Duration("elapsed", elapsed), zap.Error(err))
			return nil
		}
		log.Error("job failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return fmt.Errorf("%s: %w", name, err)
	}
	log.Debug("job complete", zap.Duration("elapsed", elapsed))
	return nil
}

// RunOnce executes every job exactly once.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	err = errors.Join(err, s.runJob(parent, "reprocess_webhooks", s.ReprocessWebhooksJob))
	err = errors.Join(err, s.runJob(parent, "expire_entitlements", s.ExpireEntitlementsJob))
	err = errors.Join(err, s.runJob(parent, "drain_digests", s.DrainDigestsJob))
	return err
}

// RunForever loops RunOnce on the configured interval until ctx ends.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.log.Warn("scheduler pass had errors", zap.Error(err))
			}
		}
	}
}

// ReprocessWebhooksJob replays webhook deliveries that failed on first
// application.
func (s *Scheduler) ReprocessWebhooksJob(ctx context.Context) error {
	recovered, err := s.subscriptionSvc.ReprocessFailed(ctx)
	if err != nil {
		return err
	}
	if recovered > 0 {
		s.log.Info("webhook deliveries recovered", zap.Int("count", recovered))
	}
	return nil
}

// ExpireEntitlementsJob downgrades cancelled subscribers whose paid
// period has lapsed. This backstops a missed subscription_expired
// event from the provider.
func (s *Scheduler) ExpireEntitlementsJob(ctx context.Context) error {
	lapsed, err := s.users.FindLapsedCancellations(ctx, s.db, s.clock.Now(), s.cfg.BatchSize)
	if err != nil {
		return err
	}
	for _, user := range lapsed {
		projection := userdomain.BillingProjection{
			Tier:               userdomain.TierFree,
			SubscriptionStatus: subdomain.StatusExpired,
		}
		if err := s.users.ApplyBillingProjection(ctx, s.db, user.ID, projection); err != nil {
			return err
		}
		s.log.Info("entitlement expired",
			zap.String("user_id", user.ID.String()),
		)
	}
	return nil
}

// DrainDigestsJob flushes the pending notification queue into digest
// emails.
func (s *Scheduler) DrainDigestsJob(ctx context.Context) error {
	_, err := s.notificationSvc.DrainDigests(ctx)
	return err
}
