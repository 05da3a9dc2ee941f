package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/tabshare/tabshare/internal/clock"
	expensedomain "github.com/tabshare/tabshare/internal/expense/domain"
	groupdomain "github.com/tabshare/tabshare/internal/group/domain"
	"github.com/tabshare/tabshare/internal/money"
	notifdomain "github.com/tabshare/tabshare/internal/notification/domain"
	"github.com/tabshare/tabshare/internal/split"
	"github.com/tabshare/tabshare/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     expensedomain.Repository
	groups   groupdomain.Service
	enqueuer notifdomain.Enqueuer
}

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     expensedomain.Repository
	Groups   groupdomain.Service
	Enqueuer notifdomain.Enqueuer `optional:"true"`
}

func NewService(p ServiceParam) expensedomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("expense.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		groups:   p.Groups,
		enqueuer: p.Enqueuer,
	}
}

func (s *Service) Create(ctx context.Context, groupID, actor snowflake.ID, req expensedomain.CreateExpenseRequest) (*expensedomain.Expense, error) {
	input, paidBy, err := s.buildInput(ctx, groupID, actor, req)
	if err != nil {
		return nil, err
	}
	result, err := split.Compute(input)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	expense := &expensedomain.Expense{
		ID:          s.genID.Generate(),
		GroupID:     groupID,
		PaidBy:      paidBy,
		Description: strings.TrimSpace(req.Description),
		Amount:      result.Total,
		SplitMethod: input.Method,
		CreatedBy:   actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, share := range result.Shares {
		expense.Splits = append(expense.Splits, expensedomain.ExpenseSplit{
			ID:        s.genID.Generate(),
			ExpenseID: expense.ID,
			UserID:    share.UserID,
			Amount:    share.Amount,
			CreatedAt: now,
		})
	}
	for _, item := range input.Items {
		row := expensedomain.ExpenseItem{
			ID:         s.genID.Generate(),
			ExpenseID:  expense.ID,
			Name:       item.Name,
			Price:      item.Price,
			Quantity:   item.Quantity,
			SharedCost: item.SharedCost,
		}
		for _, userID := range item.AssignedTo {
			row.Assignments = append(row.Assignments, expensedomain.ItemAssignment{
				ID:     s.genID.Generate(),
				ItemID: row.ID,
				UserID: userID,
			})
		}
		expense.Items = append(expense.Items, row)
	}

	if err := s.repo.Insert(ctx, s.db, expense); err != nil {
		return nil, err
	}

	s.log.Info("expense recorded",
		zap.String("expense_id", expense.ID.String()),
		zap.String("group_id", groupID.String()),
		zap.String("method", string(expense.SplitMethod)),
		zap.String("amount", expense.Amount.String()),
	)
	s.notifyParticipants(ctx, expense)
	return expense, nil
}

func (s *Service) Preview(ctx context.Context, groupID, actor snowflake.ID, req expensedomain.CreateExpenseRequest) (*split.Result, error) {
	input, _, err := s.buildInput(ctx, groupID, actor, req)
	if err != nil {
		return nil, err
	}
	result, err := split.Compute(input)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Service) Get(ctx context.Context, groupID, expenseID snowflake.ID) (*expensedomain.Expense, error) {
	expense, err := s.repo.FindByID(ctx, s.db, groupID, expenseID)
	if err != nil {
		return nil, err
	}
	if expense == nil {
		return nil, expensedomain.ErrExpenseNotFound
	}
	return expense, nil
}

func (s *Service) List(ctx context.Context, groupID snowflake.ID, p pagination.Pagination) ([]*expensedomain.Expense, *pagination.PageInfo, error) {
	limit := p.PageSize
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	var cursor *pagination.Cursor
	if p.PageToken != "" {
		c, err := pagination.DecodeCursor(p.PageToken)
		if err != nil {
			return nil, nil, err
		}
		cursor = c
	}

	rows, err := s.repo.FindPage(ctx, s.db, groupID, cursor, limit+1)
	if err != nil {
		return nil, nil, err
	}

	rows, info := pagination.BuildPageInfo(rows, limit, func(e *expensedomain.Expense) pagination.Cursor {
		return pagination.Cursor{ID: e.ID.String()}
	})
	return rows, info, nil
}

// buildInput resolves the request's user id strings and decimal amounts
// into a split input, checking that every referenced user actually
// belongs to the group.
func (s *Service) buildInput(ctx context.Context, groupID, actor snowflake.ID, req expensedomain.CreateExpenseRequest) (split.Input, snowflake.ID, error) {
	members, err := s.groups.Members(ctx, groupID)
	if err != nil {
		return split.Input{}, 0, err
	}
	memberSet := make(map[snowflake.ID]struct{}, len(members))
	for _, m := range members {
		memberSet[m.UserID] = struct{}{}
	}

	parseMember := func(raw string) (snowflake.ID, error) {
		id, err := snowflake.ParseString(strings.TrimSpace(raw))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", expensedomain.ErrInvalidUserID, raw)
		}
		if _, ok := memberSet[id]; !ok {
			return 0, expensedomain.ErrParticipantNotMember
		}
		return id, nil
	}

	paidBy := actor
	if req.PaidBy != "" {
		if paidBy, err = parseMember(req.PaidBy); err != nil {
			return split.Input{}, 0, err
		}
	}

	input := split.Input{Method: split.Method(req.Method)}

	if req.Amount != "" {
		if input.Total, err = money.Parse(req.Amount); err != nil {
			return split.Input{}, 0, err
		}
	}

	for _, raw := range req.Participants {
		id, err := parseMember(raw)
		if err != nil {
			return split.Input{}, 0, err
		}
		input.Participants = append(input.Participants, id)
	}
	if input.Method == split.MethodEqual && len(input.Participants) == 0 {
		// an equal split with no explicit list covers the whole group
		for _, m := range members {
			input.Participants = append(input.Participants, m.UserID)
		}
	}

	for _, share := range req.Shares {
		id, err := parseMember(share.UserID)
		if err != nil {
			return split.Input{}, 0, err
		}
		amount, err := money.Parse(share.Amount)
		if err != nil {
			return split.Input{}, 0, err
		}
		input.Shares = append(input.Shares, split.CustomShare{UserID: id, Amount: amount})
	}

	for _, item := range req.Items {
		price, err := money.Parse(item.Price)
		if err != nil {
			return split.Input{}, 0, err
		}
		qty := item.Quantity
		if qty == 0 {
			qty = 1
		}
		row := split.Item{
			Name:       strings.TrimSpace(item.Name),
			Price:      price,
			Quantity:   qty,
			SharedCost: item.Shared,
		}
		for _, raw := range item.AssignedTo {
			id, err := parseMember(raw)
			if err != nil {
				return split.Input{}, 0, err
			}
			row.AssignedTo = append(row.AssignedTo, id)
		}
		input.Items = append(input.Items, row)
	}

	return input, paidBy, nil
}

// notifyParticipants queues a digest entry for everyone who owes a
// share, except the payer. Enqueue failures are logged and swallowed;
// the expense is already committed.
func (s *Service) notifyParticipants(ctx context.Context, expense *expensedomain.Expense) {
	if s.enqueuer == nil {
		return
	}
	for _, sp := range expense.Splits {
		if sp.UserID == expense.PaidBy {
			continue
		}
		n := &notifdomain.Notification{
			ID:        s.genID.Generate(),
			UserID:    sp.UserID,
			GroupID:   expense.GroupID,
			Kind:      notifdomain.KindExpenseAdded,
			Subject:   fmt.Sprintf("New expense: %s", expense.Description),
			Body:      fmt.Sprintf("%s: your share is %s", expense.Description, sp.Amount.String()),
			CreatedAt: s.clock.Now(),
		}
		if err := s.enqueuer.Enqueue(ctx, n); err != nil {
			s.log.Warn("enqueue notification failed",
				zap.String("expense_id", expense.ID.String()),
				zap.Error(err),
			)
		}
	}
}
