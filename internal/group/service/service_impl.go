package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/tabshare/tabshare/internal/clock"
	groupdomain "github.com/tabshare/tabshare/internal/group/domain"
	userdomain "github.com/tabshare/tabshare/internal/user/domain"
	pkgdb "github.com/tabshare/tabshare/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  groupdomain.Repository
	users userdomain.Repository
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  groupdomain.Repository
	Users userdomain.Repository
}

func NewService(p ServiceParam) groupdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("group.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		users: p.Users,
	}
}

func (s *Service) Create(ctx context.Context, createdBy snowflake.ID, req groupdomain.CreateGroupRequest) (*groupdomain.Group, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, groupdomain.ErrInvalidName
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}

	now := s.clock.Now()
	group := &groupdomain.Group{
		ID:        s.genID.Generate(),
		Name:      name,
		Currency:  currency,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	group.Slug = fmt.Sprintf("%s-%s", slug.Make(name), group.ID.Base36())

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, group); err != nil {
			return err
		}
		return s.repo.InsertMember(ctx, tx, &groupdomain.GroupMember{
			ID:        s.genID.Generate(),
			GroupID:   group.ID,
			UserID:    createdBy,
			Role:      groupdomain.RoleOwner,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("group created",
		zap.String("group_id", group.ID.String()),
		zap.String("slug", group.Slug),
	)
	return group, nil
}

func (s *Service) Get(ctx context.Context, groupID snowflake.ID) (*groupdomain.Group, error) {
	group, err := s.repo.FindByID(ctx, s.db, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, groupdomain.ErrGroupNotFound
	}
	return group, nil
}

func (s *Service) ListForUser(ctx context.Context, userID snowflake.ID) ([]*groupdomain.Group, error) {
	return s.repo.FindByUser(ctx, s.db, userID)
}

func (s *Service) AddMember(ctx context.Context, actor snowflake.ID, groupID snowflake.ID, req groupdomain.AddMemberRequest) (*groupdomain.GroupMember, error) {
	actorMember, err := s.repo.FindMember(ctx, s.db, groupID, actor)
	if err != nil {
		return nil, err
	}
	if actorMember == nil {
		return nil, groupdomain.ErrNotAMember
	}
	if actorMember.Role != groupdomain.RoleOwner {
		return nil, groupdomain.ErrForbidden
	}

	userID, err := snowflake.ParseString(strings.TrimSpace(req.UserID))
	if err != nil {
		return nil, groupdomain.ErrInvalidUserID
	}
	target, err := s.users.FindByID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, userdomain.ErrUserNotFound
	}

	member := &groupdomain.GroupMember{
		ID:        s.genID.Generate(),
		GroupID:   groupID,
		UserID:    userID,
		Role:      groupdomain.RoleMember,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.InsertMember(ctx, s.db, member); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return nil, groupdomain.ErrAlreadyMember
		}
		return nil, err
	}
	return member, nil
}

func (s *Service) Members(ctx context.Context, groupID snowflake.ID) ([]*groupdomain.GroupMember, error) {
	return s.repo.FindMembers(ctx, s.db, groupID)
}

func (s *Service) RequireMember(ctx context.Context, groupID, userID snowflake.ID) error {
	member, err := s.repo.FindMember(ctx, s.db, groupID, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return groupdomain.ErrNotAMember
	}
	return nil
}
