package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DeletionDelta is the balance correction for removing t: a deleted expense
// returns its amount to the account, a deleted income takes it back.
func DeletionDelta(t Transaction) decimal.Decimal {
	if t.Type == Expense {
		return t.Amount
	}
	return t.Amount.Neg()
}

// CreationDelta is the balance effect of recording t.
func CreationDelta(t Transaction) decimal.Decimal {
	return DeletionDelta(t).Neg()
}

// BalanceDeltas sums the deletion delta of every transaction per account.
func BalanceDeltas(txs []Transaction) map[string]decimal.Decimal {
	deltas := make(map[string]decimal.Decimal)
	for _, t := range txs {
		deltas[t.AccountID] = deltas[t.AccountID].Add(DeletionDelta(t))
	}
	return deltas
}

// ReplacementDeltas returns the per-account corrections for replacing old
// with updated: the old effect is reversed and the new one applied, which
// may touch two accounts.
func ReplacementDeltas(old, updated Transaction) map[string]decimal.Decimal {
	deltas := map[string]decimal.Decimal{
		old.AccountID: DeletionDelta(old),
	}
	deltas[updated.AccountID] = deltas[updated.AccountID].Add(CreationDelta(updated))
	return deltas
}

// SortedAccountIDs returns the keys of deltas in ascending order so that
// concurrent units lock account rows in the same order.
func SortedAccountIDs(deltas map[string]decimal.Decimal) []string {
	ids := make([]string, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
