package ledgertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
	"spendwise/internal/ledger"
)

// Factory returns an empty store; cleanup is registered on t.
type Factory func(t *testing.T) ledger.Store

var base = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// Seed creates a user with one account per balance, named a0, a1 ...
// prefixed by the user id.
func Seed(t *testing.T, s ledger.Store, userID string, balances ...string) []core.Account {
	t.Helper()
	var accounts []core.Account
	err := s.Atomic(context.Background(), func(u ledger.Unit) error {
		if err := u.CreateUser(context.Background(), core.User{
			ID: userID, ExternalID: "ext-" + userID, Email: userID + "@example.com", CreatedAt: base,
		}); err != nil {
			return err
		}
		for i, b := range balances {
			a := core.Account{
				ID:        fmt.Sprintf("%s-a%d", userID, i),
				UserID:    userID,
				Name:      fmt.Sprintf("Account %d", i),
				Type:      core.CurrentAccount,
				Balance:   decimal.RequireFromString(b),
				IsDefault: i == 0,
				CreatedAt: base.Add(time.Duration(i) * time.Second),
				UpdatedAt: base,
			}
			if err := u.CreateAccount(context.Background(), a); err != nil {
				return err
			}
			accounts = append(accounts, a)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed %s: %v", userID, err)
	}
	return accounts
}

// Tx builds a transaction for Insert.
func Tx(id string, a core.Account, typ core.TransactionType, amount string, date time.Time) core.Transaction {
	return core.Transaction{
		ID:        id,
		AccountID: a.ID,
		UserID:    a.UserID,
		Type:      typ,
		Amount:    decimal.RequireFromString(amount),
		Category:  "other",
		Date:      date,
		Status:    core.StatusCompleted,
		CreatedAt: base,
		UpdatedAt: base,
	}
}

// Insert stores txs in order in one unit.
func Insert(t *testing.T, s ledger.Store, txs ...core.Transaction) {
	t.Helper()
	err := s.Atomic(context.Background(), func(u ledger.Unit) error {
		for _, tx := range txs {
			if err := u.InsertTransaction(context.Background(), tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func balanceOf(t *testing.T, s ledger.Store, a core.Account) decimal.Decimal {
	t.Helper()
	got, err := s.Account(context.Background(), a.UserID, a.ID)
	if err != nil {
		t.Fatalf("account %s: %v", a.ID, err)
	}
	return got.Balance
}

func ids(txs []core.Transaction) []string {
	out := make([]string, len(txs))
	for i, t := range txs {
		out[i] = t.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Run exercises the behaviour every ledger.Store must share.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("users", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.UserByExternalID(ctx, "ext-u1"); !errors.Is(err, core.ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
		Seed(t, s, "u1")
		u, err := s.UserByExternalID(ctx, "ext-u1")
		if err != nil || u.ID != "u1" || u.Email != "u1@example.com" {
			t.Fatalf("lookup = %+v, %v", u, err)
		}
		err = s.Atomic(ctx, func(un ledger.Unit) error {
			return un.CreateUser(ctx, core.User{ID: "u1-dup", ExternalID: "ext-u1", CreatedAt: base})
		})
		if err == nil {
			t.Fatal("expected duplicate external id to fail")
		}
	})

	t.Run("ownership", func(t *testing.T) {
		s := newStore(t)
		mine := Seed(t, s, "u1", "10")[0]
		theirs := Seed(t, s, "u2", "10")[0]
		Insert(t, s,
			Tx("t1", mine, core.Expense, "1", base),
			Tx("t2", theirs, core.Expense, "1", base))

		if _, err := s.Account(ctx, "u1", theirs.ID); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("foreign account: %v", err)
		}
		if _, err := s.Transaction(ctx, "u1", "t2"); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("foreign transaction: %v", err)
		}
		got, err := s.TransactionsByIDs(ctx, "u1", []string{"t1", "t2", "missing", "t1"})
		if err != nil || !equalIDs(ids(got), []string{"t1"}) {
			t.Fatalf("by ids = %v, %v", ids(got), err)
		}
		txs, _ := s.AccountTransactions(ctx, "u1", theirs.ID)
		if len(txs) != 0 {
			t.Fatalf("foreign account transactions visible: %v", ids(txs))
		}

		err = s.Atomic(ctx, func(u ledger.Unit) error {
			n, err := u.DeleteTransactions(ctx, "u1", []string{"t2"})
			if err != nil {
				return err
			}
			if n != 0 {
				return fmt.Errorf("deleted %d foreign rows", n)
			}
			if err := u.AdjustBalance(ctx, "u1", theirs.ID, decimal.NewFromInt(5)); !errors.Is(err, core.ErrNotFound) {
				return fmt.Errorf("adjust foreign: %v", err)
			}
			if err := u.MarkDefault(ctx, "u1", theirs.ID); !errors.Is(err, core.ErrNotFound) {
				return fmt.Errorf("mark foreign: %v", err)
			}
			if err := u.UpdateTransaction(ctx, Tx("t2", core.Account{ID: theirs.ID, UserID: "u1"}, core.Income, "9", base)); !errors.Is(err, core.ErrNotFound) {
				return fmt.Errorf("update foreign: %v", err)
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.Transaction(ctx, "u2", "t2"); err != nil {
			t.Fatalf("foreign transaction was touched: %v", err)
		}
		if !balanceOf(t, s, theirs).Equal(decimal.NewFromInt(10)) {
			t.Fatal("foreign balance was touched")
		}
	})

	t.Run("ordering", func(t *testing.T) {
		s := newStore(t)
		a := Seed(t, s, "u1", "0")[0]
		Insert(t, s,
			Tx("old", a, core.Income, "1", base.Add(-48*time.Hour)),
			Tx("tie-1", a, core.Income, "1", base),
			Tx("new", a, core.Income, "1", base.Add(24*time.Hour)),
			Tx("tie-2", a, core.Expense, "1", base))
		Insert(t, s, Tx("tie-3", a, core.Income, "1", base))

		want := []string{"new", "tie-1", "tie-2", "tie-3", "old"}
		for i := 0; i < 3; i++ {
			got, err := s.AccountTransactions(ctx, "u1", a.ID)
			if err != nil {
				t.Fatal(err)
			}
			if !equalIDs(ids(got), want) {
				t.Fatalf("order = %v, want %v", ids(got), want)
			}
		}

		recent, err := s.RecentTransactions(ctx, "u1", 2)
		if err != nil || !equalIDs(ids(recent), want[:2]) {
			t.Fatalf("recent = %v, %v", ids(recent), err)
		}

		month, err := s.TransactionsBetween(ctx, "u1", base.Add(-time.Hour), base.Add(time.Hour))
		if err != nil || !equalIDs(ids(month), []string{"tie-1", "tie-2", "tie-3"}) {
			t.Fatalf("between = %v, %v", ids(month), err)
		}

		// Editing a transaction keeps its place among equal dates.
		err = s.Atomic(ctx, func(u ledger.Unit) error {
			tx := Tx("tie-1", a, core.Expense, "3", base)
			tx.Description = "edited"
			return u.UpdateTransaction(ctx, tx)
		})
		if err != nil {
			t.Fatal(err)
		}
		got, _ := s.AccountTransactions(ctx, "u1", a.ID)
		if !equalIDs(ids(got), want) || got[1].Description != "edited" || !got[1].Amount.Equal(decimal.NewFromInt(3)) {
			t.Fatalf("after edit = %v", got)
		}
	})

	t.Run("field round trip", func(t *testing.T) {
		s := newStore(t)
		a := Seed(t, s, "u1", "0")[0]
		next := base.AddDate(0, 1, 0)
		tx := Tx("t1", a, core.Expense, "12.3456", base)
		tx.Description = "rent"
		tx.Category = "housing"
		tx.IsRecurring = true
		tx.RecurringInterval = core.Monthly
		tx.NextRecurringDate = &next
		Insert(t, s, tx)

		got, err := s.Transaction(ctx, "u1", "t1")
		if err != nil {
			t.Fatal(err)
		}
		if !got.Amount.Equal(tx.Amount) || got.Type != core.Expense || got.Category != "housing" ||
			!got.Date.Equal(base) || !got.IsRecurring || got.RecurringInterval != core.Monthly ||
			got.NextRecurringDate == nil || !got.NextRecurringDate.Equal(next) || got.Status != core.StatusCompleted {
			t.Fatalf("round trip mismatch: %+v", got)
		}
	})

	t.Run("relative balance adjustments", func(t *testing.T) {
		s := newStore(t)
		a := Seed(t, s, "u1", "100.00")[0]
		err := s.Atomic(ctx, func(u ledger.Unit) error {
			if err := u.AdjustBalance(ctx, "u1", a.ID, decimal.RequireFromString("30.00")); err != nil {
				return err
			}
			return u.AdjustBalance(ctx, "u1", a.ID, decimal.RequireFromString("-10.00"))
		})
		if err != nil {
			t.Fatal(err)
		}
		if got := balanceOf(t, s, a); !got.Equal(decimal.RequireFromString("120.00")) {
			t.Fatalf("balance = %s, want 120.00", got)
		}

		const workers = 8
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- s.Atomic(ctx, func(u ledger.Unit) error {
					return u.AdjustBalance(ctx, "u1", a.ID, decimal.RequireFromString("0.1"))
				})
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("concurrent adjust: %v", err)
			}
		}
		if got := balanceOf(t, s, a); !got.Equal(decimal.RequireFromString("120.8")) {
			t.Fatalf("balance after concurrent adjustments = %s, want 120.8", got)
		}
	})

	t.Run("rollback", func(t *testing.T) {
		s := newStore(t)
		a := Seed(t, s, "u1", "50")[0]
		Insert(t, s, Tx("t1", a, core.Expense, "5", base))

		boom := errors.New("boom")
		err := s.Atomic(ctx, func(u ledger.Unit) error {
			if _, err := u.DeleteTransactions(ctx, "u1", []string{"t1"}); err != nil {
				return err
			}
			if err := u.AdjustBalance(ctx, "u1", a.ID, decimal.NewFromInt(5)); err != nil {
				return err
			}
			if _, err := u.ClearDefault(ctx, "u1"); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected unit error to surface, got %v", err)
		}
		if _, err := s.Transaction(ctx, "u1", "t1"); err != nil {
			t.Fatalf("deleted row survived rollback: %v", err)
		}
		got, _ := s.Account(ctx, "u1", a.ID)
		if !got.Balance.Equal(decimal.NewFromInt(50)) || !got.IsDefault {
			t.Fatalf("account changed despite rollback: %+v", got)
		}
	})

	t.Run("defaults and counts", func(t *testing.T) {
		s := newStore(t)
		accs := Seed(t, s, "u1", "1", "2", "3")
		Seed(t, s, "u2", "1")
		Insert(t, s,
			Tx("t1", accs[1], core.Income, "1", base),
			Tx("t2", accs[1], core.Income, "1", base),
			Tx("t3", accs[2], core.Income, "1", base))

		err := s.Atomic(ctx, func(u ledger.Unit) error {
			n, err := u.CountAccounts(ctx, "u1")
			if err != nil {
				return err
			}
			if n != 3 {
				return fmt.Errorf("count = %d", n)
			}
			cleared, err := u.ClearDefault(ctx, "u1")
			if err != nil {
				return err
			}
			if cleared != 1 {
				return fmt.Errorf("cleared %d defaults, want 1", cleared)
			}
			return u.MarkDefault(ctx, "u1", accs[2].ID)
		})
		if err != nil {
			t.Fatal(err)
		}

		list, err := s.Accounts(ctx, "u1")
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 3 {
			t.Fatalf("accounts = %d, want 3", len(list))
		}
		wantCounts := []int{0, 2, 1}
		for i, a := range list {
			if a.ID != accs[i].ID {
				t.Fatalf("account order = %s at %d", a.ID, i)
			}
			if a.TransactionCount != wantCounts[i] {
				t.Errorf("%s count = %d, want %d", a.ID, a.TransactionCount, wantCounts[i])
			}
			if a.IsDefault != (i == 2) {
				t.Errorf("%s default = %v", a.ID, a.IsDefault)
			}
		}
		other, _ := s.Accounts(ctx, "u2")
		if len(other) != 1 || !other[0].IsDefault {
			t.Fatalf("other user's default touched: %+v", other)
		}
	})

	t.Run("ping", func(t *testing.T) {
		if err := newStore(t).Ping(ctx); err != nil {
			t.Fatal(err)
		}
	})
}
