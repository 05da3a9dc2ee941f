// Package domain contains group (tenant) models.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// MemberRole controls what a group member may do.
type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleMember MemberRole = "member"
)

var (
	ErrGroupNotFound  = errors.New("group not found")
	ErrNotAMember     = errors.New("user is not a member of this group")
	ErrAlreadyMember  = errors.New("user is already a member")
	ErrInvalidName    = errors.New("group name is required")
	ErrInvalidUserID  = errors.New("invalid user id")
	ErrForbidden      = errors.New("operation requires the owner role")
)

// Group is one shared tab. Every expense, split and notification hangs
// off a group.
type Group struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Name      string       `gorm:"type:text;not null"`
	Slug      string       `gorm:"type:text;not null;uniqueIndex"`
	Currency  string       `gorm:"type:text;not null;default:USD"`
	CreatedBy snowflake.ID `gorm:"not null;index"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Group) TableName() string { return "groups" }

// GroupMember links a user into a group.
type GroupMember struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	GroupID   snowflake.ID `gorm:"not null;index:ux_group_members,unique,priority:1"`
	UserID    snowflake.ID `gorm:"not null;index:ux_group_members,unique,priority:2"`
	Role      MemberRole   `gorm:"type:text;not null;default:member"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (GroupMember) TableName() string { return "group_members" }

type CreateGroupRequest struct {
	Name     string `json:"name" binding:"required"`
	Currency string `json:"currency"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// Service is the group management contract.
type Service interface {
	Create(ctx context.Context, createdBy snowflake.ID, req CreateGroupRequest) (*Group, error)
	Get(ctx context.Context, groupID snowflake.ID) (*Group, error)
	ListForUser(ctx context.Context, userID snowflake.ID) ([]*Group, error)
	AddMember(ctx context.Context, actor snowflake.ID, groupID snowflake.ID, req AddMemberRequest) (*GroupMember, error)
	Members(ctx context.Context, groupID snowflake.ID) ([]*GroupMember, error)
	RequireMember(ctx context.Context, groupID, userID snowflake.ID) error
}

// Repository is the group persistence contract.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, group *Group) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Group, error)
	FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]*Group, error)
	InsertMember(ctx context.Context, db *gorm.DB, member *GroupMember) error
	FindMembers(ctx context.Context, db *gorm.DB, groupID snowflake.ID) ([]*GroupMember, error)
	FindMember(ctx context.Context, db *gorm.DB, groupID, userID snowflake.ID) (*GroupMember, error)
}
