// Package domain contains expense models and contracts.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/tabshare/tabshare/internal/money"
	"github.com/tabshare/tabshare/internal/split"
	"github.com/tabshare/tabshare/pkg/db/pagination"
	"gorm.io/gorm"
)

var (
	ErrExpenseNotFound      = errors.New("expense not found")
	ErrParticipantNotMember = errors.New("participant is not a member of the group")
	ErrInvalidUserID        = errors.New("invalid user id")
)

// Expense is one bill recorded against a group. The split rows are the
// authoritative per-user allocation; they always sum to Amount.
type Expense struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	GroupID     snowflake.ID `gorm:"not null;index:idx_expenses_group"`
	PaidBy      snowflake.ID `gorm:"not null;index"`
	Description string       `gorm:"type:text;not null"`
	Amount      money.Amount `gorm:"not null"`
	SplitMethod split.Method `gorm:"type:text;not null"`
	CreatedBy   snowflake.ID `gorm:"not null"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_expenses_group"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`

	Splits []ExpenseSplit `gorm:"foreignKey:ExpenseID"`
	Items  []ExpenseItem  `gorm:"foreignKey:ExpenseID"`
}

// TableName sets the database table name.
func (Expense) TableName() string { return "expenses" }

// ExpenseSplit is one participant's owed portion of an expense.
type ExpenseSplit struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	ExpenseID snowflake.ID `gorm:"not null;index:ux_expense_splits,unique,priority:1"`
	UserID    snowflake.ID `gorm:"not null;index:ux_expense_splits,unique,priority:2"`
	Amount    money.Amount `gorm:"not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ExpenseSplit) TableName() string { return "expense_splits" }

// ExpenseItem is one line of an itemized bill. Shared lines (tax, tip)
// carry no assignments.
type ExpenseItem struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	ExpenseID  snowflake.ID `gorm:"not null;index"`
	Name       string       `gorm:"type:text;not null"`
	Price      money.Amount `gorm:"not null"`
	Quantity   int          `gorm:"not null;default:1"`
	SharedCost bool         `gorm:"not null;default:false"`

	Assignments []ItemAssignment `gorm:"foreignKey:ItemID"`
}

// TableName sets the database table name.
func (ExpenseItem) TableName() string { return "expense_items" }

// ItemAssignment links an item line to one of the users consuming it.
type ItemAssignment struct {
	ID     snowflake.ID `gorm:"primaryKey"`
	ItemID snowflake.ID `gorm:"not null;index:ux_item_assignments,unique,priority:1"`
	UserID snowflake.ID `gorm:"not null;index:ux_item_assignments,unique,priority:2"`
}

// TableName sets the database table name.
func (ItemAssignment) TableName() string { return "item_assignments" }

type ShareInput struct {
	UserID string `json:"user_id" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

type ItemInput struct {
	Name       string   `json:"name" binding:"required"`
	Price      string   `json:"price" binding:"required"`
	Quantity   int      `json:"quantity"`
	Shared     bool     `json:"shared"`
	AssignedTo []string `json:"assigned_to"`
}

// CreateExpenseRequest carries amounts as decimal strings; they are
// parsed to cents before any arithmetic happens.
type CreateExpenseRequest struct {
	Description  string       `json:"description" binding:"required"`
	Method       string       `json:"method" binding:"required"`
	Amount       string       `json:"amount"`
	PaidBy       string       `json:"paid_by"`
	Participants []string     `json:"participants"`
	Shares       []ShareInput `json:"shares"`
	Items        []ItemInput  `json:"items"`
}

// Transfer is one suggested settlement payment.
type Transfer struct {
	From   snowflake.ID `json:"from"`
	To     snowflake.ID `json:"to"`
	Amount money.Amount `json:"amount"`
}

// UserBalance is a member's net position: positive means the group owes
// them, negative means they owe the group.
type UserBalance struct {
	UserID snowflake.ID `json:"user_id"`
	Net    money.Amount `json:"net"`
}

// BalanceSheet summarizes a group's current debts.
type BalanceSheet struct {
	Balances  []UserBalance `json:"balances"`
	Transfers []Transfer    `json:"transfers"`
}

// Service is the expense management contract.
type Service interface {
	Create(ctx context.Context, groupID, actor snowflake.ID, req CreateExpenseRequest) (*Expense, error)
	Preview(ctx context.Context, groupID, actor snowflake.ID, req CreateExpenseRequest) (*split.Result, error)
	Get(ctx context.Context, groupID, expenseID snowflake.ID) (*Expense, error)
	List(ctx context.Context, groupID snowflake.ID, p pagination.Pagination) ([]*Expense, *pagination.PageInfo, error)
	Balances(ctx context.Context, groupID snowflake.ID) (*BalanceSheet, error)
}

// Repository is the expense persistence contract.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, expense *Expense) error
	FindByID(ctx context.Context, db *gorm.DB, groupID, expenseID snowflake.ID) (*Expense, error)
	FindPage(ctx context.Context, db *gorm.DB, groupID snowflake.ID, cursor *pagination.Cursor, limit int) ([]*Expense, error)
	FindAllWithSplits(ctx context.Context, db *gorm.DB, groupID snowflake.ID) ([]*Expense, error)
}
