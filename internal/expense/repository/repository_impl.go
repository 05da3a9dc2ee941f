package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	expensedomain "github.com/tabshare/tabshare/internal/expense/domain"
	"github.com/tabshare/tabshare/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() expensedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, expense *expensedomain.Expense) error {
	return db.WithContext(ctx).Create(expense).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, groupID, expenseID snowflake.ID) (*expensedomain.Expense, error) {
	var expense expensedomain.Expense
	err := db.WithContext(ctx).
		Preload("Splits").
		Preload("Items").
		Preload("Items.Assignments").
		First(&expense, "group_id = ? AND id = ?", groupID, expenseID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &expense, nil
}

func (r *repo) FindPage(ctx context.Context, db *gorm.DB, groupID snowflake.ID, cursor *pagination.Cursor, limit int) ([]*expensedomain.Expense, error) {
	query := db.WithContext(ctx).
		Preload("Splits").
		Where("group_id = ?", groupID)

	if cursor != nil && cursor.ID != "" {
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, err
		}
		query = query.Where("id < ?", id)
	}

	var expenses []*expensedomain.Expense
	err := query.
		Order("id DESC").
		Limit(limit).
		Find(&expenses).Error
	if err != nil {
		return nil, err
	}
	return expenses, nil
}

func (r *repo) FindAllWithSplits(ctx context.Context, db *gorm.DB, groupID snowflake.ID) ([]*expensedomain.Expense, error) {
	var expenses []*expensedomain.Expense
	err := db.WithContext(ctx).
		Preload("Splits").
		Where("group_id = ?", groupID).
		Order("created_at").
		Find(&expenses).Error
	if err != nil {
		return nil, err
	}
	return expenses, nil
}
