package service

import (
	"context"
	"sort"

	"github.com/bwmarrin/snowflake"
	expensedomain "github.com/tabshare/tabshare/internal/expense/domain"
	"github.com/tabshare/tabshare/internal/money"
)

// Balances computes each member's net position and a minimal-ish set of
// transfers that settles the group. Nets are derived from the stored
// split rows, so they inherit the exact-cent guarantee and always sum
// to zero.
func (s *Service) Balances(ctx context.Context, groupID snowflake.ID) (*expensedomain.BalanceSheet, error) {
	expenses, err := s.repo.FindAllWithSplits(ctx, s.db, groupID)
	if err != nil {
		return nil, err
	}

	nets := make(map[snowflake.ID]money.Amount)
	for _, e := range expenses {
		nets[e.PaidBy] += e.Amount
		for _, sp := range e.Splits {
			nets[sp.UserID] -= sp.Amount
		}
	}

	balances := make([]expensedomain.UserBalance, 0, len(nets))
	for userID, net := range nets {
		balances = append(balances, expensedomain.UserBalance{UserID: userID, Net: net})
	}
	sort.Slice(balances, func(i, j int) bool {
		if balances[i].Net != balances[j].Net {
			return balances[i].Net > balances[j].Net
		}
		return balances[i].UserID < balances[j].UserID
	})

	return &expensedomain.BalanceSheet{
		Balances:  balances,
		Transfers: settle(balances),
	}, nil
}

// settle greedily matches the largest creditor against the largest
// debtor until everything nets out. Input must be sorted by Net
// descending.
func settle(balances []expensedomain.UserBalance) []expensedomain.Transfer {
	creditors := make([]expensedomain.UserBalance, 0, len(balances))
	debtors := make([]expensedomain.UserBalance, 0, len(balances))
	for _, b := range balances {
		switch {
		case b.Net > 0:
			creditors = append(creditors, b)
		case b.Net < 0:
			debtors = append(debtors, expensedomain.UserBalance{UserID: b.UserID, Net: -b.Net})
		}
	}
	sort.Slice(debtors, func(i, j int) bool {
		if debtors[i].Net != debtors[j].Net {
			return debtors[i].Net > debtors[j].Net
		}
		return debtors[i].UserID < debtors[j].UserID
	})

	var transfers []expensedomain.Transfer
	ci, di := 0, 0
	for ci < len(creditors) && di < len(debtors) {
		amount := creditors[ci].Net
		if debtors[di].Net < amount {
			amount = debtors[di].Net
		}
		transfers = append(transfers, expensedomain.Transfer{
			From:   debtors[di].UserID,
			To:     creditors[ci].UserID,
			Amount: amount,
		})
		creditors[ci].Net -= amount
		debtors[di].Net -= amount
		if creditors[ci].Net == 0 {
			ci++
		}
		if debtors[di].Net == 0 {
			di++
		}
	}
	return transfers
}
