package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tabshare/tabshare/internal/clock"
	plandomain "github.com/tabshare/tabshare/internal/plan/domain"
	planrepo "github.com/tabshare/tabshare/internal/plan/repository"
	plansvc "github.com/tabshare/tabshare/internal/plan/service"
	subdomain "github.com/tabshare/tabshare/internal/subscription/domain"
	"github.com/tabshare/tabshare/internal/subscription/repository"
	userdomain "github.com/tabshare/tabshare/internal/user/domain"
	userrepo "github.com/tabshare/tabshare/internal/user/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc   *Service
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	user  *userdomain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&userdomain.User{},
		&plandomain.Plan{},
		&subdomain.Subscription{},
		&subdomain.WebhookEvent{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	plans := plansvc.NewService(plansvc.ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
		Repo:  planrepo.Provide(),
	})
	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
		Repo:  repository.Provide(),
		Plans: plans,
		Users: userrepo.Provide(),
	})

	user := &userdomain.User{
		ID:        node.Generate(),
		Email:     "alice@example.com",
		Name:      "Alice",
		Tier:      userdomain.TierFree,
		CreatedAt: fakeClock.Now(),
		UpdatedAt: fakeClock.Now(),
	}
	require.NoError(t, db.Create(user).Error)

	return &fixture{
		svc:   svc.(*Service),
		db:    db,
		node:  node,
		clock: fakeClock,
		user:  user,
	}
}

func payload(eventName, userID, externalID, status string, variantID int64, renewsAt, endsAt string) []byte {
	renews := "null"
	if renewsAt != "" {
		renews = fmt.Sprintf("%q", renewsAt)
	}
	ends := "null"
	if endsAt != "" {
		ends = fmt.Sprintf("%q", endsAt)
	}
	return []byte(fmt.Sprintf(`{
		"meta": {"event_name": %q, "custom_data": {"user_id": %q}},
		"data": {
			"id": %q,
			"attributes": {
				"variant_id": %d,
				"product_name": "Tabshare Pro",
				"variant_name": "Pro Monthly",
				"customer_id": 77,
				"order_id": 402,
				"status": %q,
				"status_formatted": "Active",
				"renews_at": %s,
				"ends_at": %s,
				"first_subscription_item": {"id": 1, "price_id": 9001, "is_usage_based": false}
			}
		}
	}`, eventName, userID, externalID, variantID, status, renews, ends))
}

func (f *fixture) reloadUser(t *testing.T) *userdomain.User {
	t.Helper()
	var user userdomain.User
	require.NoError(t, f.db.First(&user, "id = ?", f.user.ID).Error)
	return &user
}

func (f *fixture) ingest(t *testing.T, body []byte) *subdomain.WebhookEvent {
	t.Helper()
	event, err := f.svc.Ingest(context.Background(), "subscription_event", body)
	require.NoError(t, err)
	require.True(t, event.Processed)
	return event
}

func TestCreated_GrantsProAndAutoCreatesPlan(t *testing.T) {
	f := newFixture(t)
	body := payload(subdomain.EventSubscriptionCreated, f.user.ID.String(), "sub-1", subdomain.StatusActive, 111, "2025-07-01T12:00:00Z", "")

	f.ingest(t, body)

	user := f.reloadUser(t)
	assert.Equal(t, userdomain.TierPro, user.Tier)
	assert.Equal(t, subdomain.StatusActive, user.SubscriptionStatus)
	require.NotNil(t, user.BillingSubscriptionID)
	assert.Equal(t, "sub-1", *user.BillingSubscriptionID)
	require.NotNil(t, user.CurrentPeriodEnd)

	// variant 111 was never synced; one provisional row appears
	var plans []plandomain.Plan
	require.NoError(t, f.db.Find(&plans).Error)
	require.Len(t, plans, 1)
	assert.Equal(t, int64(111), plans[0].VariantID)
	assert.Equal(t, "0", plans[0].Price)
	assert.True(t, plans[0].Provisional())
}

func TestCreated_ReplayIsIdempotent(t *testing.T) {
	f := newFixture(t)
	body := payload(subdomain.EventSubscriptionCreated, f.user.ID.String(), "sub-1", subdomain.StatusActive, 111, "2025-07-01T12:00:00Z", "")

	f.ingest(t, body)
	firstUser := f.reloadUser(t)
	f.ingest(t, body)

	var count int64
	require.NoError(t, f.db.Model(&subdomain.Subscription{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "replay must not create a second subscription")

	var plans int64
	require.NoError(t, f.db.Model(&plandomain.Plan{}).Count(&plans).Error)
	assert.EqualValues(t, 1, plans, "replay must not create a second plan")

	secondUser := f.reloadUser(t)
	assert.Equal(t, firstUser.Tier, secondUser.Tier)
	assert.Equal(t, firstUser.SubscriptionStatus, secondUser.SubscriptionStatus)
}

func TestCancelled_DoesNotDowngrade(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, payload(subdomain.EventSubscriptionCreated, f.user.ID.String(), "sub-1", subdomain.StatusActive, 111, "2025-07-01T12:00:00Z", ""))

	f.ingest(t, payload(subdomain.EventSubscriptionCancelled, f.user.ID.String(), "sub-1", subdomain.StatusCancelled, 111, "", "2025-07-01T12:00:00Z"))

	user := f.reloadUser(t)
	assert.Equal(t, userdomain.TierPro, user.Tier, "cancellation keeps access until period end")
	assert.Equal(t, subdomain.StatusCancelled, user.SubscriptionStatus)
	require.NotNil(t, user.CurrentPeriodEnd)
	assert.Equal(t, time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC), user.CurrentPeriodEnd.UTC())
	assert.True(t, user.IsPro(f.clock.Now()))

	sub := f.findSub(t, "sub-1")
	assert.Equal(t, subdomain.StatusCancelled, sub.Status)
}

func TestExpired_IsTheOnlyDowngrade(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, payload(subdomain.EventSubscriptionCreated, f.user.ID.String(), "sub-1", subdomain.StatusActive, 111, "2025-07-01T12:00:00Z", ""))

	f.ingest(t, payload(subdomain.EventSubscriptionExpired, f.user.ID.String(), "sub-1", subdomain.StatusExpired, 111, "", ""))

	user := f.reloadUser(t)
	assert.Equal(t, userdomain.TierFree, user.Tier)
	assert.Equal(t, subdomain.StatusExpired, user.SubscriptionStatus)
	assert.Nil(t, user.BillingSubscriptionID)
	assert.Nil(t, user.CurrentPeriodEnd)
	assert.False(t, user.IsPro(f.clock.Now()))
}

func TestPaused_KeepsTier(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, payload(subdomain.EventSubscriptionCreated, f.user.ID.String(), "sub-1", subdomain.StatusActive, 111, "2025-07-01T12:00:00Z", ""))

	f.ingest(t, payload(subdomain.EventSubscriptionPaused, f.user.ID.String(), "sub-1", subdomain.StatusActive, 111, "", ""))

	user := f.reloadUser(t)
	assert.Equal(t, userdomain.TierPro, user.Tier)
	assert.Equal(t, subdomain.StatusPaused, user.SubscriptionStatus)
	assert.True(t, user.IsPaused)

	sub := f.findSub(t, "sub-1")
	assert.Equal(t, subdomain.StatusPaused, sub.Status)
	assert.True(t, sub.IsPaused)
}

func TestUpdated_TierFollowsStatus(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, payload(subdomain.EventSubscriptionCreated, f.user.ID.String(), "sub-1", subdomain.StatusActive, 111, "2025-07-01T12:00:00Z", ""))

	f.ingest(t, payload(subdomain.EventSubscriptionUpdated, f.user.ID.String(), "sub-1", subdomain.StatusPastDue, 111, "", ""))
	assert.Equal(t, userdomain.TierFree, f.reloadUser(t).Tier)

	f.ingest(t, payload(subdomain.EventSubscriptionResumed, f.user.ID.String(), "sub-1", subdomain.StatusActive, 111, "2025-08-01T12:00:00Z", ""))
	assert.Equal(t, userdomain.TierPro, f.reloadUser(t).Tier)
}

func TestIngest_UnknownUserRecordedNotDropped(t *testing.T) {
	f := newFixture(t)
	ghost := f.node.Generate()
	body := payload(subdomain.EventSubscriptionCreated, ghost.String(), "sub-9", subdomain.StatusActive, 111, "", "")

	event, err := f.svc.Ingest(context.Background(), subdomain.EventSubscriptionCreated, body)
	require.Error(t, err)
	require.NotNil(t, event)
	assert.False(t, event.Processed)
	require.NotNil(t, event.ProcessingError)
	assert.Contains(t, *event.ProcessingError, "user not found")

	// the delivery is still on the durable log
	var count int64
	require.NoError(t, f.db.Model(&subdomain.WebhookEvent{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestReprocessFailed_RecoversAfterFix(t *testing.T) {
	f := newFixture(t)
	ghost := f.node.Generate()
	body := payload(subdomain.EventSubscriptionCreated, ghost.String(), "sub-9", subdomain.StatusActive, 111, "2025-07-01T12:00:00Z", "")

	_, err := f.svc.Ingest(context.Background(), subdomain.EventSubscriptionCreated, body)
	require.Error(t, err)

	// the missing user shows up later (e.g. restored from backup)
	require.NoError(t, f.db.Create(&userdomain.User{
		ID:    ghost,
		Email: "ghost@example.com",
		Name:  "Ghost",
		Tier:  userdomain.TierFree,
	}).Error)

	recovered, err := f.svc.ReprocessFailed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, recovered)

	var event subdomain.WebhookEvent
	require.NoError(t, f.db.First(&event).Error)
	assert.True(t, event.Processed)

	var user userdomain.User
	require.NoError(t, f.db.First(&user, "id = ?", ghost).Error)
	assert.Equal(t, userdomain.TierPro, user.Tier)
}

func TestIngest_UnknownEventName(t *testing.T) {
	f := newFixture(t)
	body := payload("subscription_teleported", f.user.ID.String(), "sub-1", subdomain.StatusActive, 111, "", "")

	event, err := f.svc.Ingest(context.Background(), "subscription_teleported", body)
	require.Error(t, err)
	assert.ErrorIs(t, err, subdomain.ErrUnknownEvent)
	assert.False(t, event.Processed)
}

func (f *fixture) findSub(t *testing.T, externalID string) *subdomain.Subscription {
	t.Helper()
	var sub subdomain.Subscription
	require.NoError(t, f.db.First(&sub, "external_id = ?", externalID).Error)
	return &sub
}

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"meta":{"event_name":"subscription_created"}}`)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	valid := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, VerifySignature(secret, body, valid))
	assert.False(t, VerifySignature(secret, body, "deadbeef"))
	assert.False(t, VerifySignature(secret, body, ""))
	assert.False(t, VerifySignature("", body, valid))
	assert.False(t, VerifySignature(secret, []byte(`{"tampered":true}`), valid))
}
