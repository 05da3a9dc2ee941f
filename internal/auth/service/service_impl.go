package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	authdomain "github.com/tabshare/tabshare/internal/auth/domain"
	"github.com/tabshare/tabshare/internal/auth/password"
	"github.com/tabshare/tabshare/internal/clock"
	"github.com/tabshare/tabshare/internal/config"
	userdomain "github.com/tabshare/tabshare/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const minPasswordLen = 8

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	users userdomain.Repository
	ttl   time.Duration
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Users userdomain.Repository
	Cfg   config.Config
}

func NewService(p ServiceParam) authdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("auth.service"),
		genID: p.GenID,
		clock: p.Clock,
		users: p.Users,
		ttl:   p.Cfg.SessionTTL,
	}
}

func (s *Service) Signup(ctx context.Context, req authdomain.SignupRequest) (*userdomain.User, string, error) {
	if len(req.Password) < minPasswordLen {
		return nil, "", authdomain.ErrWeakPassword
	}

	existing, err := s.users.FindByEmail(ctx, s.db, req.Email)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		return nil, "", userdomain.ErrEmailTaken
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, "", err
	}

	now := s.clock.Now()
	user := &userdomain.User{
		ID:           s.genID.Generate(),
		Email:        req.Email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		Tier:         userdomain.TierFree,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var token string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.users.Create(ctx, tx, user); err != nil {
			return err
		}
		var err error
		token, err = s.openSession(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		return nil, "", err
	}

	s.log.Info("user signed up", zap.String("user_id", user.ID.String()))
	return user, token, nil
}

func (s *Service) Login(ctx context.Context, req authdomain.LoginRequest) (*userdomain.User, string, error) {
	user, err := s.users.FindByEmail(ctx, s.db, req.Email)
	if err != nil {
		return nil, "", err
	}
	if user == nil || !password.Verify(req.Password, user.PasswordHash) {
		return nil, "", authdomain.ErrInvalidCredentials
	}

	token, err := s.openSession(ctx, s.db, user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).Delete(&authdomain.Session{}, "token = ?", token).Error
}

func (s *Service) Authenticate(ctx context.Context, token string) (*userdomain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, authdomain.ErrInvalidSession
	}

	var session authdomain.Session
	err := s.db.WithContext(ctx).First(&session, "token = ?", token).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, authdomain.ErrInvalidSession
		}
		return nil, err
	}
	if session.ExpiresAt.Before(s.clock.Now()) {
		return nil, authdomain.ErrSessionExpired
	}

	user, err := s.users.FindByID(ctx, s.db, session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, authdomain.ErrInvalidSession
	}
	return user, nil
}

func (s *Service) openSession(ctx context.Context, db *gorm.DB, userID snowflake.ID) (string, error) {
	session := authdomain.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: s.clock.Now().Add(s.ttl),
		CreatedAt: s.clock.Now(),
	}
	if err := db.WithContext(ctx).Create(&session).Error; err != nil {
		return "", err
	}
	return session.Token, nil
}
