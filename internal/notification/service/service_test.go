package service

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
	"github.com/tabshare/tabshare/internal/config"
	notifdomain "github.com/tabshare/tabshare/internal/notification/domain"
	"github.com/tabshare/tabshare/internal/notification/repository"
	"github.com/tabshare/tabshare/internal/providers/email"
	userdomain "github.com/tabshare/tabshare/internal/user/domain"
	userrepo "github.com/tabshare/tabshare/internal/user/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type captureMailer struct {
	sent    []email.Message
	failFor map[string]bool
}

func (m *captureMailer) Send(_ context.Context, msg email.Message) error {
	if m.failFor[msg.To] {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fixture struct {
	svc    *Service
	db     *gorm.DB
	node   *snowflake.Node
	clock  *clock.FakeClock
	mailer *captureMailer
}

func newFixture(t *testing.T, cfg config.DigestConfig) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&userdomain.User{}, &notifdomain.Notification{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	mailer := &captureMailer{failFor: map[string]bool{}}

	svc := NewService(ServiceParam{
		DB:     db,
		Log:    zap.NewNop(),
		Clock:  fakeClock,
		Repo:   repository.Provide(),
		Users:  userrepo.Provide(),
		Mailer: mailer,
		Digest: config.StaticDigestConfigHolder(cfg),
	})
	return &fixture{
		svc:    svc.(*Service),
		db:     db,
		node:   node,
		clock:  fakeClock,
		mailer: mailer,
	}
}

func (f *fixture) createUser(t *testing.T, email string) *userdomain.User {
	t.Helper()
	user := &userdomain.User{
		ID:        f.node.Generate(),
		Email:     email,
		Name:      "Test User",
		Tier:      userdomain.TierFree,
		CreatedAt: f.clock.Now(),
		UpdatedAt: f.clock.Now(),
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *fixture) enqueue(t *testing.T, userID snowflake.ID, subject string) {
	t.Helper()
	require.NoError(t, f.svc.Enqueue(context.Background(), &notifdomain.Notification{
		ID:      f.node.Generate(),
		UserID:  userID,
		GroupID: f.node.Generate(),
		Kind:    notifdomain.KindExpenseAdded,
		Subject: subject,
		Body:    "your share is 4.50",
	}))
}

func TestDrainDigests_BundlesPerUser(t *testing.T) {
	f := newFixture(t, config.DigestConfig{MinAge: 10 * time.Minute})
	ctx := context.Background()
	alice := f.createUser(t, "alice@example.com")
	bob := f.createUser(t, "bob@example.com")

	f.enqueue(t, alice.ID, "New expense: Gas")
	f.enqueue(t, alice.ID, "New expense: Hotel")
	f.enqueue(t, bob.ID, "New expense: Gas")

	// nothing is old enough yet
	sent, err := f.svc.DrainDigests(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Empty(t, f.mailer.sent)

	f.clock.Advance(11 * time.Minute)
	sent, err = f.svc.DrainDigests(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	require.Len(t, f.mailer.sent, 2)
	assert.Contains(t, f.mailer.sent[0].Subject, "2 update(s)")
	assert.Contains(t, f.mailer.sent[0].HTMLBody, "New expense: Hotel")

	// a second pass finds nothing pending
	sent, err = f.svc.DrainDigests(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}

func TestDrainDigests_FailedSendStaysPending(t *testing.T) {
	f := newFixture(t, config.DigestConfig{MinAge: time.Minute})
	ctx := context.Background()
	alice := f.createUser(t, "alice@example.com")
	f.mailer.failFor[alice.Email] = true

	f.enqueue(t, alice.ID, "New expense: Gas")
	f.clock.Advance(2 * time.Minute)

	sent, err := f.svc.DrainDigests(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	// once smtp recovers the row is still there
	f.mailer.failFor[alice.Email] = false
	sent, err = f.svc.DrainDigests(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestDrainDigests_MaxBatchCapsEntries(t *testing.T) {
	f := newFixture(t, config.DigestConfig{MinAge: time.Minute, MaxBatch: 2})
	ctx := context.Background()
	alice := f.createUser(t, "alice@example.com")

	for i := 0; i < 5; i++ {
		f.enqueue(t, alice.ID, "New expense: Coffee")
	}
	f.clock.Advance(2 * time.Minute)

	sent, err := f.svc.DrainDigests(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, f.mailer.sent, 1)
	assert.Contains(t, f.mailer.sent[0].Subject, "2 update(s)")

	// remaining rows surface on the next pass
	sent, err = f.svc.DrainDigests(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestDrainDigests_DeletedUserRetiresRows(t *testing.T) {
	f := newFixture(t, config.DigestConfig{MinAge: time.Minute})
	ctx := context.Background()

	f.enqueue(t, f.node.Generate(), "New expense: Gas")
	f.clock.Advance(2 * time.Minute)

	sent, err := f.svc.DrainDigests(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	var pending int64
	require.NoError(t, f.db.Model(&notifdomain.Notification{}).Where("digested_at IS NULL").Count(&pending).Error)
	assert.Zero(t, pending)
}
