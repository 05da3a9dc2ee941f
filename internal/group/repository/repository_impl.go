package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	groupdomain "github.com/tabshare/tabshare/internal/group/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() groupdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, group *groupdomain.Group) error {
	return db.WithContext(ctx).Create(group).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*groupdomain.Group, error) {
	var group groupdomain.Group
	err := db.WithContext(ctx).First(&group, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &group, nil
}

func (r *repo) FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]*groupdomain.Group, error) {
	var groups []*groupdomain.Group
	err := db.WithContext(ctx).
		Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("group_members.user_id = ?", userID).
		Order("groups.created_at DESC").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *repo) InsertMember(ctx context.Context, db *gorm.DB, member *groupdomain.GroupMember) error {
	return db.WithContext(ctx).Create(member).Error
}

func (r *repo) FindMembers(ctx context.Context, db *gorm.DB, groupID snowflake.ID) ([]*groupdomain.GroupMember, error) {
	var members []*groupdomain.GroupMember
	err := db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repo) FindMember(ctx context.Context, db *gorm.DB, groupID, userID snowflake.ID) (*groupdomain.GroupMember, error) {
	var member groupdomain.GroupMember
	err := db.WithContext(ctx).
		First(&member, "group_id = ? AND user_id = ?", groupID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}
