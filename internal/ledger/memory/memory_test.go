package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
	"spendwise/internal/ledger"
	"spendwise/internal/ledger/ledgertest"
)

func TestStoreConformance(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T) ledger.Store { return New() })
}

func TestAtomicCancelledContextCommitsNothing(t *testing.T) {
	s := New()
	a := ledgertest.Seed(t, s, "u1", "10")[0]

	ctx, cancel := context.WithCancel(context.Background())
	err := s.Atomic(ctx, func(u ledger.Unit) error {
		cancel()
		return u.AdjustBalance(ctx, "u1", a.ID, decimal.NewFromInt(1))
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	got, _ := s.Account(context.Background(), "u1", a.ID)
	if !got.Balance.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("balance = %s, want 10", got.Balance)
	}
}

func TestSnapshotsAreIsolatedFromUnits(t *testing.T) {
	s := New()
	a := ledgertest.Seed(t, s, "u1", "10")[0]
	before := s.snapshot()

	err := s.Atomic(context.Background(), func(u ledger.Unit) error {
		return u.AdjustBalance(context.Background(), "u1", a.ID, decimal.NewFromInt(5))
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := before.accounts[a.ID].Balance; !got.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("published snapshot mutated: %s", got)
	}
	if _, err := s.Account(context.Background(), "u1", a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Transaction(context.Background(), "u1", "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
