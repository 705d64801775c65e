package present

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

func TestCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "$0.00"},
		{"120", "$120.00"},
		{"12.345", "$12.35"},
		{"-10.5", "-$10.50"},
		{"0.0049", "$0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Currency(decimal.RequireFromString(tt.in)); got != tt.want {
				t.Errorf("Currency(%s) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDate(t *testing.T) {
	cet := time.FixedZone("CET", 3600)
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"utc", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), "Mar 5, 2024"},
		{"shifted into previous day", time.Date(2024, 3, 5, 0, 30, 0, 0, cet), "Mar 4, 2024"},
		{"zero", time.Time{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Date(tt.in); got != tt.want {
				t.Errorf("Date() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFromTransaction(t *testing.T) {
	next := time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC)
	tx := core.Transaction{
		ID:                "t1",
		AccountID:         "a1",
		Type:              core.Expense,
		Amount:            decimal.RequireFromString("30.25"),
		Category:          "food",
		Date:              time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		IsRecurring:       true,
		RecurringInterval: core.Monthly,
		NextRecurringDate: &next,
		Status:            core.StatusCompleted,
	}

	got := FromTransaction(tx)

	if got.Amount != 30.25 {
		t.Errorf("Amount = %v, want 30.25", got.Amount)
	}
	if got.Date != "Mar 5, 2024" || got.InputDate != "2024-03-05" {
		t.Errorf("Date = %q InputDate = %q", got.Date, got.InputDate)
	}
	if got.NextRecurringDate != "Apr 5, 2024" {
		t.Errorf("NextRecurringDate = %q", got.NextRecurringDate)
	}
	if got.Type != "EXPENSE" || got.RecurringInterval != "MONTHLY" {
		t.Errorf("Type = %q Interval = %q", got.Type, got.RecurringInterval)
	}
}

func TestFromDetail(t *testing.T) {
	if FromDetail(nil) != nil {
		t.Error("nil detail should present as nil")
	}
	if FromDetail(&core.AccountDetail{}) != nil {
		t.Error("empty detail should present as nil")
	}

	d := &core.AccountDetail{
		Account: core.Account{ID: "a1", Balance: decimal.RequireFromString("120.00"), TransactionCount: 2},
		Transactions: []core.Transaction{
			{ID: "t2", Amount: decimal.NewFromInt(30)},
			{ID: "t1", Amount: decimal.NewFromInt(10)},
		},
	}
	got := FromDetail(d)
	if got.Account.Balance != 120 || got.Account.TransactionCount != 2 {
		t.Errorf("Account = %+v", got.Account)
	}
	if len(got.Transactions) != 2 || got.Transactions[0].ID != "t2" {
		t.Errorf("Transactions order not preserved: %+v", got.Transactions)
	}
}

func TestFromDashboard(t *testing.T) {
	d := core.Dashboard{
		Accounts:     []core.Account{{ID: "a1", Balance: decimal.RequireFromString("0.1")}},
		TotalBalance: decimal.RequireFromString("0.1"),
		MonthIncome:  decimal.RequireFromString("100"),
		MonthExpense: decimal.RequireFromString("10"),
	}
	got := FromDashboard(d)
	if got.TotalBalance != 0.1 || got.MonthIncome != 100 || got.MonthExpense != 10 {
		t.Errorf("got %+v", got)
	}
	if got.RecentTransactions == nil {
		t.Error("RecentTransactions should be an empty slice, not nil")
	}
}

func TestFromAccount_TextKeepsExactValue(t *testing.T) {
	a := core.Account{ID: "a1", Balance: decimal.RequireFromString("-0.005")}
	got := FromAccount(a)
	if got.BalanceText != "-$0.01" {
		t.Errorf("BalanceText = %q, want -$0.01", got.BalanceText)
	}
}
