// Package ledgertest holds helpers shared by the ledger store tests: a
// fault-injecting store wrapper and a conformance suite every backend runs.
package ledgertest

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
	"spendwise/internal/ledger"
)

var ErrInjected = errors.New("injected fault")

// Faulty wraps a store and makes the n-th call of one Unit method fail
// after the preceding calls have been staged.
type Faulty struct {
	ledger.Store

	mu     sync.Mutex
	method string
	at     int
	calls  int
}

func NewFaulty(s ledger.Store) *Faulty { return &Faulty{Store: s} }

// FailOn arms the fault: the at-th call (1-based) to method fails with
// ErrInjected. An empty method disarms it.
func (f *Faulty) FailOn(method string, at int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.method, f.at, f.calls = method, at, 0
}

func (f *Faulty) trip(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.method != method {
		return nil
	}
	f.calls++
	if f.calls == f.at {
		return ErrInjected
	}
	return nil
}

func (f *Faulty) Atomic(ctx context.Context, fn func(ledger.Unit) error) error {
	return f.Store.Atomic(ctx, func(u ledger.Unit) error {
		return fn(&faultyUnit{Unit: u, f: f})
	})
}

type faultyUnit struct {
	ledger.Unit
	f *Faulty
}

func (u *faultyUnit) InsertTransaction(ctx context.Context, t core.Transaction) error {
	if err := u.f.trip("InsertTransaction"); err != nil {
		return err
	}
	return u.Unit.InsertTransaction(ctx, t)
}

func (u *faultyUnit) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	if err := u.f.trip("UpdateTransaction"); err != nil {
		return err
	}
	return u.Unit.UpdateTransaction(ctx, t)
}

func (u *faultyUnit) DeleteTransactions(ctx context.Context, userID string, ids []string) (int64, error) {
	if err := u.f.trip("DeleteTransactions"); err != nil {
		return 0, err
	}
	return u.Unit.DeleteTransactions(ctx, userID, ids)
}

func (u *faultyUnit) AdjustBalance(ctx context.Context, userID, accountID string, delta decimal.Decimal) error {
	if err := u.f.trip("AdjustBalance"); err != nil {
		return err
	}
	return u.Unit.AdjustBalance(ctx, userID, accountID, delta)
}

func (u *faultyUnit) ClearDefault(ctx context.Context, userID string) (int64, error) {
	if err := u.f.trip("ClearDefault"); err != nil {
		return 0, err
	}
	return u.Unit.ClearDefault(ctx, userID)
}

func (u *faultyUnit) MarkDefault(ctx context.Context, userID, accountID string) error {
	if err := u.f.trip("MarkDefault"); err != nil {
		return err
	}
	return u.Unit.MarkDefault(ctx, userID, accountID)
}

func (u *faultyUnit) CreateAccount(ctx context.Context, a core.Account) error {
	if err := u.f.trip("CreateAccount"); err != nil {
		return err
	}
	return u.Unit.CreateAccount(ctx, a)
}
