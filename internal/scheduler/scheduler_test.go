package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tabshare/tabshare/internal/clock"
	notifdomain "github.com/tabshare/tabshare/internal/notification/domain"
	subdomain "github.com/tabshare/tabshare/internal/subscription/domain"
	userdomain "github.com/tabshare/tabshare/internal/user/domain"
	userrepo "github.com/tabshare/tabshare/internal/user/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubSubscriptionSvc struct {
	recovered int
	err       error
	calls     int
}

func (s *stubSubscriptionSvc) Ingest(context.Context, string, []byte) (*subdomain.WebhookEvent, error) {
	return nil, errors.New("not used")
}

func (s *stubSubscriptionSvc) ReprocessFailed(context.Context) (int, error) {
	s.calls++
	return s.recovered, s.err
}

func (s *stubSubscriptionSvc) FindByUser(context.Context, snowflake.ID) (*subdomain.Subscription, error) {
	return nil, nil
}

type stubNotificationSvc struct {
	drained int
	err     error
	calls   int
}

func (s *stubNotificationSvc) Enqueue(context.Context, *notifdomain.Notification) error { return nil }

func (s *stubNotificationSvc) DrainDigests(context.Context) (int, error) {
	s.calls++
	return s.drained, s.err
}

type fixture struct {
	sched *Scheduler
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	subs  *stubSubscriptionSvc
	notif *stubNotificationSvc
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&userdomain.User{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	subs := &stubSubscriptionSvc{}
	notif := &stubNotificationSvc{}

	sched, err := New(Params{
		DB:              db,
		Log:             zap.NewNop(),
		Clock:           fakeClock,
		SubscriptionSvc: subs,
		NotificationSvc: notif,
		Users:           userrepo.Provide(),
	})
	require.NoError(t, err)

	return &fixture{sched: sched, db: db, node: node, clock: fakeClock, subs: subs, notif: notif}
}

func (f *fixture) createCancelledPro(t *testing.T, periodEnd time.Time) *userdomain.User {
	t.Helper()
	user := &userdomain.User{
		ID:                 f.node.Generate(),
		Email:              emailFor(f.node.Generate()),
		Name:               "User",
		Tier:               userdomain.TierPro,
		SubscriptionStatus: subdomain.StatusCancelled,
		CurrentPeriodEnd:   &periodEnd,
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func emailFor(id snowflake.ID) string { return id.String() + "@example.com" }

// reloadUser fetches into a fresh struct so a previously scanned
// primary key never leaks into the next query's conditions.
func (f *fixture) reloadUser(t *testing.T, id snowflake.ID) *userdomain.User {
	t.Helper()
	var u userdomain.User
	require.NoError(t, f.db.First(&u, "id = ?", id).Error)
	return &u
}

func TestExpireEntitlements_DowngradesLapsedOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lapsed := f.createCancelledPro(t, f.clock.Now().Add(-time.Hour))
	stillPaid := f.createCancelledPro(t, f.clock.Now().Add(24*time.Hour))

	require.NoError(t, f.sched.ExpireEntitlementsJob(ctx))

	downgraded := f.reloadUser(t, lapsed.ID)
	assert.Equal(t, userdomain.TierFree, downgraded.Tier)
	assert.Equal(t, subdomain.StatusExpired, downgraded.SubscriptionStatus)

	untouched := f.reloadUser(t, stillPaid.ID)
	assert.Equal(t, userdomain.TierPro, untouched.Tier)
	assert.Equal(t, subdomain.StatusCancelled, untouched.SubscriptionStatus)
}

func TestExpireEntitlements_TriggersWhenClockAdvances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := f.createCancelledPro(t, f.clock.Now().Add(time.Hour))

	require.NoError(t, f.sched.ExpireEntitlementsJob(ctx))
	assert.Equal(t, userdomain.TierPro, f.reloadUser(t, user.ID).Tier)

	f.clock.Advance(2 * time.Hour)
	require.NoError(t, f.sched.ExpireEntitlementsJob(ctx))
	assert.Equal(t, userdomain.TierFree, f.reloadUser(t, user.ID).Tier)
}

func TestRunOnce_RunsEveryJob(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.sched.RunOnce(context.Background()))
	assert.Equal(t, 1, f.subs.calls)
	assert.Equal(t, 1, f.notif.calls)
}

func TestRunOnce_OneFailureDoesNotStopOthers(t *testing.T) {
	f := newFixture(t)
	f.subs.err = errors.New("database gone")

	err := f.sched.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reprocess_webhooks")
	// the digest job still ran
	assert.Equal(t, 1, f.notif.calls)
}

func TestNew_MissingDependency(t *testing.T) {
	_, err := New(Params{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
