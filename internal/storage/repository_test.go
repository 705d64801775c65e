package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
	"spendwise/internal/ledger"
	"spendwise/internal/ledger/ledgertest"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteStoreConformance(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T) ledger.Store { return newTestRepo(t) })
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	for i := 0; i < 2; i++ {
		if err := RunMigrations(path); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	version, dirty, err := SchemaVersion(path)
	if err != nil {
		t.Fatal(err)
	}
	if version != 1 || dirty {
		t.Fatalf("version = %d dirty = %v", version, dirty)
	}
}

func TestSecondDefaultRejectedBySchema(t *testing.T) {
	repo := newTestRepo(t)
	accs := ledgertest.Seed(t, repo, "u1", "0", "0")

	// Marking a second default without clearing violates the partial index.
	err := repo.Atomic(context.Background(), func(u ledger.Unit) error {
		return u.MarkDefault(context.Background(), "u1", accs[1].ID)
	})
	if err == nil {
		t.Fatal("expected unique default constraint to fail")
	}
}

func TestAmountsBeyondScaleAreRejected(t *testing.T) {
	repo := newTestRepo(t)
	a := ledgertest.Seed(t, repo, "u1", "0")[0]
	err := repo.Atomic(context.Background(), func(u ledger.Unit) error {
		return u.AdjustBalance(context.Background(), "u1", a.ID, decimal.RequireFromString("0.00001"))
	})
	if err == nil {
		t.Fatal("expected scale error")
	}
	got, _ := repo.Account(context.Background(), "u1", a.ID)
	if !got.Balance.IsZero() {
		t.Fatalf("balance = %s", got.Balance)
	}
}

func TestBalanceStoredAsScaledUnits(t *testing.T) {
	repo := newTestRepo(t)
	a := ledgertest.Seed(t, repo, "u1", "100.0050")[0]

	var units int64
	if err := repo.db.QueryRow(`SELECT balance_units FROM accounts WHERE id = ?`, a.ID).Scan(&units); err != nil {
		t.Fatal(err)
	}
	if units != 1000050 {
		t.Fatalf("units = %d", units)
	}
	if _, err := repo.Transaction(context.Background(), "u1", "missing"); err != core.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBalanceOverflowIsRejected(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	a := ledgertest.Seed(t, repo, "u1", "922337203685477")[0]

	err := repo.Atomic(ctx, func(u ledger.Unit) error {
		return u.AdjustBalance(ctx, "u1", a.ID, decimal.NewFromInt(1))
	})
	if !errors.Is(err, core.ErrBalanceOverflow) || !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected balance overflow, got %v", err)
	}

	got, err := repo.Account(ctx, "u1", a.ID)
	if err != nil {
		t.Fatalf("account unreadable after overflow: %v", err)
	}
	if !got.Balance.Equal(a.Balance) {
		t.Fatalf("balance = %s, want %s", got.Balance, a.Balance)
	}

	err = repo.Atomic(ctx, func(u ledger.Unit) error {
		return u.AdjustBalance(ctx, "u1", "missing", decimal.NewFromInt(1))
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing account: expected ErrNotFound, got %v", err)
	}
}
