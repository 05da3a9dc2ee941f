package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	authdomain "github.com/tabshare/tabshare/internal/auth/domain"
	"github.com/tabshare/tabshare/internal/clock"
	"github.com/tabshare/tabshare/internal/config"
	userdomain "github.com/tabshare/tabshare/internal/user/domain"
	userrepo "github.com/tabshare/tabshare/internal/user/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (authdomain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&userdomain.User{}, &authdomain.Session{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
		Users: userrepo.Provide(),
		Cfg:   config.Config{SessionTTL: 24 * time.Hour},
	})
	return svc, db, fakeClock
}

func signupReq(email string) authdomain.SignupRequest {
	return authdomain.SignupRequest{
		Email:    email,
		Name:     "Alice",
		Password: "correct horse battery",
	}
}

func TestSignup_CreatesUserAndSession(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	user, token, err := svc.Signup(ctx, signupReq("alice@example.com"))
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, userdomain.TierFree, user.Tier)

	got, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	var count int64
	require.NoError(t, db.Model(&authdomain.Session{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSignup_WeakPasswordRejected(t *testing.T) {
	svc, _, _ := newTestService(t)

	req := signupReq("alice@example.com")
	req.Password = "short"
	_, _, err := svc.Signup(context.Background(), req)
	assert.ErrorIs(t, err, authdomain.ErrWeakPassword)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, signupReq("alice@example.com"))
	require.NoError(t, err)

	_, _, err = svc.Signup(ctx, signupReq("alice@example.com"))
	assert.ErrorIs(t, err, userdomain.ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, _, err := svc.Signup(ctx, signupReq("alice@example.com"))
	require.NoError(t, err)

	user, token, err := svc.Login(ctx, authdomain.LoginRequest{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
	require.NotEmpty(t, token)

	_, _, err = svc.Login(ctx, authdomain.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong password",
	})
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)

	// an unknown email answers with the same error as a bad password
	_, _, err = svc.Login(ctx, authdomain.LoginRequest{
		Email:    "nobody@example.com",
		Password: "correct horse battery",
	})
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)
}

func TestLogout_InvalidatesToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, token, err := svc.Signup(ctx, signupReq("alice@example.com"))
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, token))

	_, err = svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, authdomain.ErrInvalidSession)

	// logging out twice is a no-op
	assert.NoError(t, svc.Logout(ctx, token))
}

func TestAuthenticate_ExpiredSession(t *testing.T) {
	svc, _, fakeClock := newTestService(t)
	ctx := context.Background()

	_, token, err := svc.Signup(ctx, signupReq("alice@example.com"))
	require.NoError(t, err)

	fakeClock.Advance(25 * time.Hour)

	_, err = svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, authdomain.ErrSessionExpired)
}

func TestAuthenticate_EmptyToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, authdomain.ErrInvalidSession)

	_, err = svc.Authenticate(context.Background(), "not-a-session")
	assert.ErrorIs(t, err, authdomain.ErrInvalidSession)
}
