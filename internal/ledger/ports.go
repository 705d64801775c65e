// Package ledger declares the persistence ports of the ledger. Every
// lookup and mutation is scoped by the owning user id; a row owned by
// someone else behaves exactly like a missing row.
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

type (
	// Reader is the read side shared by stores and atomic units.
	Reader interface {
		// UserByExternalID returns core.ErrUserNotFound when no user is
		// mapped to the session subject.
		UserByExternalID(ctx context.Context, externalID string) (core.User, error)

		// Account returns core.ErrNotFound unless accountID belongs to userID.
		Account(ctx context.Context, userID, accountID string) (core.Account, error)

		// Transaction returns core.ErrNotFound unless id belongs to userID.
		Transaction(ctx context.Context, userID, id string) (core.Transaction, error)

		// TransactionsByIDs returns the subset of ids owned by userID in
		// insertion order. Unknown and foreign ids are skipped. Inside a
		// unit the rows stay locked until the unit ends.
		TransactionsByIDs(ctx context.Context, userID string, ids []string) ([]core.Transaction, error)
	}

	// Store is a ledger backend.
	Store interface {
		Reader

		// Accounts lists the user's accounts in creation order with their
		// transaction counts.
		Accounts(ctx context.Context, userID string) ([]core.Account, error)

		// AccountTransactions returns the account's transactions by date,
		// most recent first, equal dates in insertion order.
		AccountTransactions(ctx context.Context, userID, accountID string) ([]core.Transaction, error)

		// RecentTransactions returns up to limit of the user's transactions
		// across all accounts, ordered like AccountTransactions.
		RecentTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error)

		// TransactionsBetween returns transactions dated in [from, to).
		TransactionsBetween(ctx context.Context, userID string, from, to time.Time) ([]core.Transaction, error)

		// Atomic runs fn in one all-or-nothing unit. If fn returns an error
		// nothing it staged becomes visible and the error is returned as is.
		Atomic(ctx context.Context, fn func(Unit) error) error

		Ping(ctx context.Context) error
		Close() error
	}

	// Unit is the write side, valid only inside Store.Atomic.
	Unit interface {
		Reader

		CountAccounts(ctx context.Context, userID string) (int, error)

		CreateUser(ctx context.Context, u core.User) error
		CreateAccount(ctx context.Context, a core.Account) error
		InsertTransaction(ctx context.Context, t core.Transaction) error

		// UpdateTransaction replaces the stored fields of t, scoped by
		// t.UserID. core.ErrNotFound when nothing matched.
		UpdateTransaction(ctx context.Context, t core.Transaction) error

		// DeleteTransactions removes the ids owned by userID and reports how
		// many rows went.
		DeleteTransactions(ctx context.Context, userID string, ids []string) (int64, error)

		// AdjustBalance adds delta to the stored balance in place, without
		// reading it first. core.ErrNotFound when the account is not the
		// user's.
		AdjustBalance(ctx context.Context, userID, accountID string, delta decimal.Decimal) error

		// ClearDefault unsets the default flag on every account of userID.
		ClearDefault(ctx context.Context, userID string) (int64, error)

		// MarkDefault sets the default flag on one account.
		// core.ErrNotFound when nothing matched.
		MarkDefault(ctx context.Context, userID, accountID string) error
	}
)

// Dedupe returns ids without blanks and repeats, in first-seen order.
func Dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
