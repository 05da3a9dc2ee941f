package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tabshare/tabshare/internal/clock"
	groupdomain "github.com/tabshare/tabshare/internal/group/domain"
	"github.com/tabshare/tabshare/internal/group/repository"
	userdomain "github.com/tabshare/tabshare/internal/user/domain"
	userrepo "github.com/tabshare/tabshare/internal/user/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&userdomain.User{}, &groupdomain.Group{}, &groupdomain.GroupMember{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
		Users: userrepo.Provide(),
	})
	return svc.(*Service), db
}

func newUser(t *testing.T, svc *Service, db *gorm.DB) snowflake.ID {
	t.Helper()
	id := svc.genID.Generate()
	require.NoError(t, db.Create(&userdomain.User{
		ID:    id,
		Email: id.String() + "@example.com",
		Name:  "User",
		Tier:  userdomain.TierFree,
	}).Error)
	return id
}

func TestCreate_OwnerMembership(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner := svc.genID.Generate()

	group, err := svc.Create(ctx, owner, groupdomain.CreateGroupRequest{Name: "Ski Trip 2025"})
	require.NoError(t, err)
	assert.NotEmpty(t, group.Slug)
	assert.Contains(t, group.Slug, "ski-trip-2025")
	assert.Equal(t, "USD", group.Currency)

	members, err := svc.Members(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, owner, members[0].UserID)
	assert.Equal(t, groupdomain.RoleOwner, members[0].Role)
}

func TestCreate_EmptyName(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), svc.genID.Generate(), groupdomain.CreateGroupRequest{Name: "   "})
	assert.ErrorIs(t, err, groupdomain.ErrInvalidName)
}

func TestCreate_SlugsAreUnique(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner := svc.genID.Generate()

	a, err := svc.Create(ctx, owner, groupdomain.CreateGroupRequest{Name: "Dinner"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, owner, groupdomain.CreateGroupRequest{Name: "Dinner"})
	require.NoError(t, err)
	assert.NotEqual(t, a.Slug, b.Slug)
}

func TestAddMember(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	owner := newUser(t, svc, db)
	friend := newUser(t, svc, db)
	stranger := newUser(t, svc, db)

	group, err := svc.Create(ctx, owner, groupdomain.CreateGroupRequest{Name: "Flat"})
	require.NoError(t, err)

	member, err := svc.AddMember(ctx, owner, group.ID, groupdomain.AddMemberRequest{UserID: friend.String()})
	require.NoError(t, err)
	assert.Equal(t, groupdomain.RoleMember, member.Role)

	// adding twice is a conflict
	_, err = svc.AddMember(ctx, owner, group.ID, groupdomain.AddMemberRequest{UserID: friend.String()})
	assert.ErrorIs(t, err, groupdomain.ErrAlreadyMember)

	// plain members may not invite
	_, err = svc.AddMember(ctx, friend, group.ID, groupdomain.AddMemberRequest{UserID: stranger.String()})
	assert.ErrorIs(t, err, groupdomain.ErrForbidden)

	// non-members may not invite either
	_, err = svc.AddMember(ctx, stranger, group.ID, groupdomain.AddMemberRequest{UserID: owner.String()})
	assert.ErrorIs(t, err, groupdomain.ErrNotAMember)
}

func TestAddMember_TargetValidation(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	owner := newUser(t, svc, db)

	group, err := svc.Create(ctx, owner, groupdomain.CreateGroupRequest{Name: "Flat"})
	require.NoError(t, err)

	// a garbage id is bad input, not a membership problem
	_, err = svc.AddMember(ctx, owner, group.ID, groupdomain.AddMemberRequest{UserID: "not-a-snowflake"})
	assert.ErrorIs(t, err, groupdomain.ErrInvalidUserID)

	// a well-formed id with no user row behind it is rejected too
	ghost := svc.genID.Generate()
	_, err = svc.AddMember(ctx, owner, group.ID, groupdomain.AddMemberRequest{UserID: ghost.String()})
	assert.ErrorIs(t, err, userdomain.ErrUserNotFound)

	members, err := svc.Members(ctx, group.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestRequireMember(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner := svc.genID.Generate()

	group, err := svc.Create(ctx, owner, groupdomain.CreateGroupRequest{Name: "Brunch"})
	require.NoError(t, err)

	assert.NoError(t, svc.RequireMember(ctx, group.ID, owner))
	assert.ErrorIs(t, svc.RequireMember(ctx, group.ID, svc.genID.Generate()), groupdomain.ErrNotAMember)
}

func TestListForUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner := svc.genID.Generate()
	other := svc.genID.Generate()

	_, err := svc.Create(ctx, owner, groupdomain.CreateGroupRequest{Name: "A"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, other, groupdomain.CreateGroupRequest{Name: "B"})
	require.NoError(t, err)

	groups, err := svc.ListForUser(ctx, owner)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "A", groups[0].Name)
}
