package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/tabshare/tabshare/internal/clock"
	plandomain "github.com/tabshare/tabshare/internal/plan/domain"
	subdomain "github.com/tabshare/tabshare/internal/subscription/domain"
	userdomain "github.com/tabshare/tabshare/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  subdomain.Repository
	plans plandomain.Service
	users userdomain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  subdomain.Repository
	Plans plandomain.Service
	Users userdomain.Repository
}

func NewService(p ServiceParam) subdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("subscription.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		plans: p.Plans,
		users: p.Users,
	}
}

// Ingest appends the raw delivery to the webhook log, then applies it.
// The log write happens first and survives processing failures: a bad
// event is stamped with its error and left unprocessed for replay,
// and the caller still answers the provider with 200 to stop retry
// storms.
func (s *Service) Ingest(ctx context.Context, eventName string, body []byte) (*subdomain.WebhookEvent, error) {
	event := &subdomain.WebhookEvent{
		ID:        s.genID.Generate(),
		EventName: eventName,
		Body:      datatypes.JSON(body),
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.InsertEvent(ctx, s.db, event); err != nil {
		return nil, err
	}
	return event, s.process(ctx, event)
}

func (s *Service) process(ctx context.Context, event *subdomain.WebhookEvent) error {
	err := s.apply(ctx, event)
	if err != nil {
		msg := err.Error()
		event.ProcessingError = &msg
		if markErr := s.repo.MarkEventProcessed(ctx, s.db, event.ID, &msg); markErr != nil {
			return markErr
		}
		s.log.Warn("webhook processing failed",
			zap.String("event_id", event.ID.String()),
			zap.String("event_name", event.EventName),
			zap.Error(err),
		)
		return err
	}

	event.Processed = true
	event.ProcessingError = nil
	return s.repo.MarkEventProcessed(ctx, s.db, event.ID, nil)
}

func (s *Service) apply(ctx context.Context, event *subdomain.WebhookEvent) error {
	var payload subdomain.Event
	if err := json.Unmarshal(event.Body, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if payload.Meta.EventName == "" {
		payload.Meta.EventName = event.EventName
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.applyEvent(ctx, tx, &payload)
	})
}

// applyEvent runs one event through the state machine. Both the
// subscription row and the user's denormalized billing fields are
// written as pure projections of the payload, so replaying the same
// event converges instead of compounding.
func (s *Service) applyEvent(ctx context.Context, tx *gorm.DB, payload *subdomain.Event) error {
	if payload.Meta.CustomData.UserID == "" {
		return subdomain.ErrMissingUser
	}
	userID, err := snowflake.ParseString(payload.Meta.CustomData.UserID)
	if err != nil {
		return fmt.Errorf("%w: %q", subdomain.ErrMissingUser, payload.Meta.CustomData.UserID)
	}
	user, err := s.users.FindByID(ctx, tx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("%w: %s", userdomain.ErrUserNotFound, userID)
	}

	attrs := payload.Data.Attributes
	plan, err := s.plans.EnsureByVariant(ctx, tx, attrs.VariantID, attrs.PlanName())
	if err != nil {
		return err
	}

	now := s.clock.Now()
	sub := &subdomain.Subscription{
		ID:              s.genID.Generate(),
		ExternalID:      payload.Data.ID,
		UserID:          user.ID,
		PlanID:          plan.ID,
		OrderID:         attrs.OrderID,
		CustomerID:      attrs.CustomerID,
		Status:          attrs.Status,
		StatusFormatted: attrs.StatusFormatted,
		RenewsAt:        attrs.RenewsAt,
		EndsAt:          attrs.EndsAt,
		TrialEndsAt:     attrs.TrialEndsAt,
		IsPaused:        attrs.Pause != nil,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if item := attrs.FirstSubscriptionItem; item != nil {
		sub.IsUsageBased = item.IsUsageBased
		sub.PriceID = fmt.Sprintf("%d", item.PriceID)
	}

	projection := userdomain.BillingProjection{
		Tier:                  user.Tier,
		SubscriptionStatus:    attrs.Status,
		BillingSubscriptionID: &sub.ExternalID,
		CurrentPeriodEnd:      attrs.RenewsAt,
		IsPaused:              false,
	}

	switch payload.Meta.EventName {
	case subdomain.EventSubscriptionCreated:
		projection.Tier = userdomain.TierPro

	case subdomain.EventSubscriptionUpdated, subdomain.EventSubscriptionResumed:
		if attrs.Status == subdomain.StatusActive || attrs.Status == subdomain.StatusOnTrial {
			projection.Tier = userdomain.TierPro
		} else {
			projection.Tier = userdomain.TierFree
		}

	case subdomain.EventSubscriptionPaused:
		sub.Status = subdomain.StatusPaused
		sub.IsPaused = true
		projection.SubscriptionStatus = subdomain.StatusPaused
		projection.IsPaused = true
		projection.CurrentPeriodEnd = user.CurrentPeriodEnd

	case subdomain.EventSubscriptionCancelled:
		// access persists until the paid period lapses; tier stays as is
		sub.Status = subdomain.StatusCancelled
		projection.SubscriptionStatus = subdomain.StatusCancelled
		projection.CurrentPeriodEnd = attrs.EndsAt

	case subdomain.EventSubscriptionExpired:
		// the only event that revokes access
		sub.Status = subdomain.StatusExpired
		projection.Tier = userdomain.TierFree
		projection.SubscriptionStatus = subdomain.StatusExpired
		projection.BillingSubscriptionID = nil
		projection.CurrentPeriodEnd = nil

	default:
		return fmt.Errorf("%w: %q", subdomain.ErrUnknownEvent, payload.Meta.EventName)
	}

	if err := s.repo.Upsert(ctx, tx, sub); err != nil {
		return err
	}
	if err := s.users.ApplyBillingProjection(ctx, tx, user.ID, projection); err != nil {
		return err
	}

	s.log.Info("subscription event applied",
		zap.String("event", payload.Meta.EventName),
		zap.String("external_id", sub.ExternalID),
		zap.String("user_id", user.ID.String()),
		zap.String("status", sub.Status),
		zap.String("tier", string(projection.Tier)),
	)
	return nil
}

// ReprocessFailed replays unprocessed deliveries, oldest first, and
// reports how many now succeeded.
func (s *Service) ReprocessFailed(ctx context.Context) (int, error) {
	events, err := s.repo.FindUnprocessedEvents(ctx, s.db, 500)
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, event := range events {
		if err := s.process(ctx, event); err != nil {
			continue
		}
		recovered++
	}
	if len(events) > 0 {
		s.log.Info("webhook reprocessing pass",
			zap.Int("attempted", len(events)),
			zap.Int("recovered", recovered),
		)
	}
	return recovered, nil
}

func (s *Service) FindByUser(ctx context.Context, userID snowflake.ID) (*subdomain.Subscription, error) {
	return s.repo.FindByUser(ctx, s.db, userID)
}
