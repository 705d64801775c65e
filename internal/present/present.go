// Package present turns ledger entities into display values. It is the only
// place a decimal amount becomes a float64.
package present

import (
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

// DateLayout is the display format of calendar dates.
const DateLayout = "Jan 2, 2006"

// InputDateLayout is the format of HTML date inputs.
const InputDateLayout = "2006-01-02"

type User struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"createdAt"`
}

type Account struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Type             string  `json:"type"`
	Balance          float64 `json:"balance"`
	BalanceText      string  `json:"-"`
	IsDefault        bool    `json:"isDefault"`
	TransactionCount int     `json:"transactionCount"`
	CreatedAt        string  `json:"createdAt"`
}

type Transaction struct {
	ID                string  `json:"id"`
	AccountID         string  `json:"accountId"`
	Type              string  `json:"type"`
	Amount            float64 `json:"amount"`
	AmountText        string  `json:"-"`
	AmountInput       string  `json:"-"`
	Description       string  `json:"description,omitempty"`
	Category          string  `json:"category"`
	Date              string  `json:"date"`
	InputDate         string  `json:"-"`
	IsRecurring       bool    `json:"isRecurring"`
	RecurringInterval string  `json:"recurringInterval,omitempty"`
	NextRecurringDate string  `json:"nextRecurringDate,omitempty"`
	Status            string  `json:"status"`
}

type AccountDetail struct {
	Account      Account       `json:"account"`
	Transactions []Transaction `json:"transactions"`
}

type Dashboard struct {
	Accounts           []Account     `json:"accounts"`
	TotalBalance       float64       `json:"totalBalance"`
	MonthIncome        float64       `json:"monthIncome"`
	MonthExpense       float64       `json:"monthExpense"`
	RecentTransactions []Transaction `json:"recentTransactions"`

	TotalBalanceText string `json:"-"`
	MonthIncomeText  string `json:"-"`
	MonthExpenseText string `json:"-"`
}

// Number coerces d to the nearest float64. Precision beyond float64 is lost.
func Number(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// Currency renders d with two decimals and a dollar sign, rounding half
// away from zero on the exact value.
func Currency(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// Date formats t in UTC. The zero time renders empty.
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}

func FromUser(u core.User) User {
	return User{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: Date(u.CreatedAt)}
}

func FromAccount(a core.Account) Account {
	return Account{
		ID:               a.ID,
		Name:             a.Name,
		Type:             string(a.Type),
		Balance:          Number(a.Balance),
		BalanceText:      Currency(a.Balance),
		IsDefault:        a.IsDefault,
		TransactionCount: a.TransactionCount,
		CreatedAt:        Date(a.CreatedAt),
	}
}

func FromTransaction(t core.Transaction) Transaction {
	out := Transaction{
		ID:                t.ID,
		AccountID:         t.AccountID,
		Type:              string(t.Type),
		Amount:            Number(t.Amount),
		AmountText:        Currency(t.Amount),
		AmountInput:       t.Amount.String(),
		Description:       t.Description,
		Category:          t.Category,
		Date:              Date(t.Date),
		IsRecurring:       t.IsRecurring,
		RecurringInterval: string(t.RecurringInterval),
		Status:            string(t.Status),
	}
	if !t.Date.IsZero() {
		out.InputDate = t.Date.UTC().Format(InputDateLayout)
	}
	if t.NextRecurringDate != nil {
		out.NextRecurringDate = Date(*t.NextRecurringDate)
	}
	return out
}

func Accounts(in []core.Account) []Account {
	out := make([]Account, len(in))
	for i, a := range in {
		out[i] = FromAccount(a)
	}
	return out
}

func Transactions(in []core.Transaction) []Transaction {
	out := make([]Transaction, len(in))
	for i, t := range in {
		out[i] = FromTransaction(t)
	}
	return out
}

// FromDetail returns nil for an absent detail.
func FromDetail(d *core.AccountDetail) *AccountDetail {
	if d.IsEmpty() {
		return nil
	}
	return &AccountDetail{
		Account:      FromAccount(d.Account),
		Transactions: Transactions(d.Transactions),
	}
}

func FromDashboard(d core.Dashboard) Dashboard {
	return Dashboard{
		Accounts:           Accounts(d.Accounts),
		TotalBalance:       Number(d.TotalBalance),
		MonthIncome:        Number(d.MonthIncome),
		MonthExpense:       Number(d.MonthExpense),
		RecentTransactions: Transactions(d.RecentTransactions),
		TotalBalanceText:   Currency(d.TotalBalance),
		MonthIncomeText:    Currency(d.MonthIncome),
		MonthExpenseText:   Currency(d.MonthExpense),
	}
}
