// Package split computes per-user owed amounts for a group expense. It
// is a pure function over its inputs; both the preview endpoint and the
// expense commit path call the same code so the displayed and persisted
// splits can never drift.
package split

import (
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/tabshare/tabshare/internal/money"
)

// Method selects the split algorithm.
type Method string

const (
	MethodEqual  Method = "equal"
	MethodCustom Method = "custom"
	MethodByItem Method = "by_item"
)

var (
	ErrUnknownMethod     = errors.New("unknown split method")
	ErrNoParticipants    = errors.New("at least one participant is required")
	ErrNonPositiveAmount = errors.New("amount must be positive")
	ErrInvalidQuantity   = errors.New("item quantity must be positive")
	ErrUnassignedItem    = errors.New("non-shared item has no assignees")
	ErrNoShares          = errors.New("custom split requires explicit shares")
	ErrDuplicateUser     = errors.New("duplicate user in split input")
	ErrEmptyExpense      = errors.New("expense total is zero")
)

// CustomShare is a caller-supplied per-user amount.
type CustomShare struct {
	UserID snowflake.ID
	Amount money.Amount
}

// Item is one line on an itemized bill. Shared items (tax, tip, fees)
// carry no assignees and are spread proportionally over everyone
// else's subtotals.
type Item struct {
	Name       string
	Price      money.Amount
	Quantity   int
	SharedCost bool
	AssignedTo []snowflake.ID
}

// Input describes one expense to divide.
type Input struct {
	Method Method

	// Total is the expense amount for equal splits. Custom and by_item
	// derive their own authoritative total.
	Total money.Amount

	// Participants, in a stable caller-chosen order. The order decides
	// who absorbs residual cents.
	Participants []snowflake.ID

	Shares []CustomShare
	Items  []Item
}

// Share is one participant's owed amount.
type Share struct {
	UserID snowflake.ID
	Amount money.Amount
}

// Result holds the computed allocation. Sum of Shares always equals
// Total to the cent.
type Result struct {
	Total  money.Amount
	Shares []Share
}

// Compute divides an expense according to its method.
func Compute(in Input) (Result, error) {
	switch in.Method {
	case MethodEqual:
		return computeEqual(in)
	case MethodCustom:
		return computeCustom(in)
	case MethodByItem:
		return computeByItem(in)
	default:
		return Result{}, ErrUnknownMethod
	}
}

func computeEqual(in Input) (Result, error) {
	if len(in.Participants) == 0 {
		return Result{}, ErrNoParticipants
	}
	if in.Total <= 0 {
		return Result{}, ErrNonPositiveAmount
	}
	if err := checkDistinct(in.Participants); err != nil {
		return Result{}, err
	}

	parts := money.SplitEven(in.Total, len(in.Participants))
	shares := make([]Share, len(parts))
	for i, amount := range parts {
		shares[i] = Share{UserID: in.Participants[i], Amount: amount}
	}
	return Result{Total: in.Total, Shares: shares}, nil
}

func computeCustom(in Input) (Result, error) {
	if len(in.Shares) == 0 {
		return Result{}, ErrNoShares
	}

	seen := make(map[snowflake.ID]struct{}, len(in.Shares))
	shares := make([]Share, 0, len(in.Shares))
	var total money.Amount
	for _, s := range in.Shares {
		if s.Amount <= 0 {
			return Result{}, ErrNonPositiveAmount
		}
		if _, dup := seen[s.UserID]; dup {
			return Result{}, ErrDuplicateUser
		}
		seen[s.UserID] = struct{}{}
		shares = append(shares, Share{UserID: s.UserID, Amount: s.Amount})
		total += s.Amount
	}

	// The supplied amounts are authoritative; the expense total is
	// their sum, not a separately entered figure.
	return Result{Total: total, Shares: shares}, nil
}

func computeByItem(in Input) (Result, error) {
	var totalShared, totalNonShared money.Amount

	// Subtotals keyed by user, with first-appearance ordering so the
	// proportional allocation is deterministic.
	subtotals := make(map[snowflake.ID]money.Amount)
	var order []snowflake.ID
	touch := func(user snowflake.ID) {
		if _, ok := subtotals[user]; !ok {
			subtotals[user] = 0
			order = append(order, user)
		}
	}

	for _, item := range in.Items {
		if item.Price <= 0 {
			return Result{}, ErrNonPositiveAmount
		}
		if item.Quantity <= 0 {
			return Result{}, ErrInvalidQuantity
		}
		itemTotal := item.Price.MulQuantity(item.Quantity)

		if item.SharedCost {
			totalShared += itemTotal
			continue
		}
		if len(item.AssignedTo) == 0 {
			return Result{}, ErrUnassignedItem
		}
		if err := checkDistinct(item.AssignedTo); err != nil {
			return Result{}, err
		}

		totalNonShared += itemTotal
		parts := money.SplitEven(itemTotal, len(item.AssignedTo))
		for i, user := range item.AssignedTo {
			touch(user)
			subtotals[user] += parts[i]
		}
	}

	if totalNonShared == 0 {
		// Nothing assignable: fall back to an equal division of the
		// shared costs across the explicit participant list.
		if len(in.Participants) == 0 {
			return Result{}, ErrNoParticipants
		}
		if totalShared == 0 {
			return Result{}, ErrEmptyExpense
		}
		return computeEqual(Input{
			Method:       MethodEqual,
			Total:        totalShared,
			Participants: in.Participants,
		})
	}

	weights := make([]money.Amount, len(order))
	for i, user := range order {
		weights[i] = subtotals[user]
	}
	sharedParts, err := money.Distribute(totalShared, weights)
	if err != nil {
		return Result{}, err
	}

	shares := make([]Share, len(order))
	for i, user := range order {
		shares[i] = Share{UserID: user, Amount: subtotals[user] + sharedParts[i]}
	}
	return Result{Total: totalNonShared + totalShared, Shares: shares}, nil
}

func checkDistinct(users []snowflake.ID) error {
	seen := make(map[snowflake.ID]struct{}, len(users))
	for _, u := range users {
		if _, dup := seen[u]; dup {
			return ErrDuplicateUser
		}
		seen[u] = struct{}{}
	}
	return nil
}
