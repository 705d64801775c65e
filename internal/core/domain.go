package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

const (
	Daily   RecurringInterval = "DAILY"
	Weekly  RecurringInterval = "WEEKLY"
	Monthly RecurringInterval = "MONTHLY"
	Yearly  RecurringInterval = "YEARLY"
)

const (
	CurrentAccount AccountType = "CURRENT"
	SavingsAccount AccountType = "SAVINGS"
)

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusFailed    TransactionStatus = "FAILED"
)

type (
	TransactionType   string
	RecurringInterval string
	AccountType       string
	TransactionStatus string

	User struct {
		ID         string
		ExternalID string // session subject, never remapped
		Email      string
		Name       string
		CreatedAt  time.Time
	}

	Account struct {
		ID        string
		UserID    string
		Name      string
		Type      AccountType
		Balance   decimal.Decimal
		IsDefault bool
		CreatedAt time.Time
		UpdatedAt time.Time

		// TransactionCount is filled by read paths that count, zero otherwise.
		TransactionCount int
	}

	Transaction struct {
		ID                string
		AccountID         string
		UserID            string
		Type              TransactionType
		Amount            decimal.Decimal // magnitude only, sign comes from Type
		Description       string
		Category          string
		Date              time.Time
		IsRecurring       bool
		RecurringInterval RecurringInterval
		NextRecurringDate *time.Time
		Status            TransactionStatus
		CreatedAt         time.Time
		UpdatedAt         time.Time
	}

	// AccountDetail is an account together with its full history,
	// most recent transaction first.
	AccountDetail struct {
		Account      Account
		Transactions []Transaction
	}

	// DeleteSummary reports what a bulk deletion actually touched.
	DeleteSummary struct {
		Requested int
		Deleted   int
		Deltas    map[string]decimal.Decimal
	}

	Dashboard struct {
		Accounts           []Account
		TotalBalance       decimal.Decimal
		MonthIncome        decimal.Decimal
		MonthExpense       decimal.Decimal
		RecentTransactions []Transaction
	}

	// AccountInput carries user supplied fields for account creation.
	AccountInput struct {
		Name      string
		Type      AccountType
		Balance   decimal.Decimal
		IsDefault bool
	}

	// TransactionInput carries user supplied fields for create and update.
	TransactionInput struct {
		AccountID         string
		Type              TransactionType
		Amount            decimal.Decimal
		Description       string
		Category          string
		Date              time.Time
		IsRecurring       bool
		RecurringInterval RecurringInterval
	}
)

var (
	ErrInvalidType        = fmt.Errorf("%w: invalid transaction type", ErrInvalidInput)
	ErrInvalidAccountType = fmt.Errorf("%w: invalid account type", ErrInvalidInput)
	ErrInvalidInterval    = fmt.Errorf("%w: invalid recurring interval", ErrInvalidInput)
	ErrEmptyAccountName   = fmt.Errorf("%w: empty account name", ErrInvalidInput)
	ErrEmptyAccountID     = fmt.Errorf("%w: empty account id", ErrInvalidInput)
	ErrEmptyCategory      = fmt.Errorf("%w: empty category", ErrInvalidInput)
	ErrUnknownCategory    = fmt.Errorf("%w: unknown category", ErrInvalidInput)
	ErrMissingDate        = fmt.Errorf("%w: missing date", ErrInvalidInput)
)

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	}
	return ErrInvalidType
}

func (i RecurringInterval) Validate() error {
	switch i {
	case Daily, Weekly, Monthly, Yearly:
		return nil
	}
	return ErrInvalidInterval
}

func (a AccountType) Validate() error {
	switch a {
	case CurrentAccount, SavingsAccount:
		return nil
	}
	return ErrInvalidAccountType
}

func (in AccountInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrEmptyAccountName
	}
	if len(in.Name) > 100 {
		return fmt.Errorf("%w: account name too long (max 100 characters)", ErrInvalidInput)
	}
	if err := in.Type.Validate(); err != nil {
		return err
	}
	if err := ValidateScale(in.Balance); err != nil {
		return err
	}
	return nil
}

func (in TransactionInput) Validate() error {
	if strings.TrimSpace(in.AccountID) == "" {
		return ErrEmptyAccountID
	}
	if err := in.Type.Validate(); err != nil {
		return err
	}
	if err := ValidateAmount(in.Amount); err != nil {
		return err
	}
	if in.Date.IsZero() {
		return ErrMissingDate
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return ErrEmptyCategory
	}
	if !HasCategory(in.Type, category) {
		return fmt.Errorf("%w %q for %s", ErrUnknownCategory, category, in.Type)
	}
	if len(in.Description) > 200 {
		return fmt.Errorf("%w: description too long (max 200 characters)", ErrInvalidInput)
	}
	if in.IsRecurring {
		if err := in.RecurringInterval.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Apply copies the input onto t, normalising the date to UTC and
// recomputing the recurrence schedule.
func (in TransactionInput) Apply(t *Transaction) {
	t.AccountID = in.AccountID
	t.Type = in.Type
	t.Amount = in.Amount
	t.Description = strings.TrimSpace(in.Description)
	t.Category = strings.TrimSpace(in.Category)
	t.Date = in.Date.UTC()
	t.IsRecurring = in.IsRecurring
	t.RecurringInterval = ""
	t.NextRecurringDate = nil
	if in.IsRecurring {
		t.RecurringInterval = in.RecurringInterval
		next := NextRecurringDate(t.Date, in.RecurringInterval)
		t.NextRecurringDate = &next
	}
	if t.Status == "" {
		t.Status = StatusCompleted
	}
}

// IsEmpty reports whether the detail carries no account, the well-defined
// "absent" value of the read path.
func (d *AccountDetail) IsEmpty() bool {
	return d == nil || d.Account.ID == ""
}
