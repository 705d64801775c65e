package mysql

import (
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

type sqlUser struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)"`
	ExternalID string    `gorm:"type:varchar(191);uniqueIndex;not null"`
	Email      string    `gorm:"type:varchar(320);not null;default:''"`
	Name       string    `gorm:"type:varchar(200);not null;default:''"`
	CreatedAt  time.Time `gorm:"type:datetime(3);not null"`
}

func (*sqlUser) TableName() string { return "users" }

// Seq orders rows by insertion; ID is the public identifier.
type sqlAccount struct {
	Seq       int64           `gorm:"primaryKey;autoIncrement"`
	ID        string          `gorm:"type:varchar(36);uniqueIndex;not null"`
	UserID    string          `gorm:"type:varchar(36);index:idx_accounts_user;not null"`
	Name      string          `gorm:"type:varchar(100);not null"`
	Type      string          `gorm:"type:varchar(16);not null"`
	Balance   decimal.Decimal `gorm:"type:decimal(19,4);not null;default:0"`
	IsDefault bool            `gorm:"not null;default:false"`
	CreatedAt time.Time       `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time       `gorm:"type:datetime(3);not null"`
}

func (*sqlAccount) TableName() string { return "accounts" }

type sqlTransaction struct {
	Seq               int64           `gorm:"primaryKey;autoIncrement"`
	ID                string          `gorm:"type:varchar(36);uniqueIndex;not null"`
	AccountID         string          `gorm:"type:varchar(36);index:idx_tx_account_date,priority:1;not null"`
	UserID            string          `gorm:"type:varchar(36);index:idx_tx_user_date,priority:1;not null"`
	Type              string          `gorm:"type:varchar(16);not null"`
	Amount            decimal.Decimal `gorm:"type:decimal(19,4);not null"`
	Description       string          `gorm:"type:varchar(200);not null;default:''"`
	Category          string          `gorm:"type:varchar(64);not null"`
	Date              time.Time       `gorm:"type:datetime(3);index:idx_tx_account_date,priority:2;index:idx_tx_user_date,priority:2;not null"`
	IsRecurring       bool            `gorm:"not null;default:false"`
	RecurringInterval *string         `gorm:"type:varchar(16)"`
	NextRecurringDate *time.Time      `gorm:"type:datetime(3)"`
	Status            string          `gorm:"type:varchar(16);not null;default:'COMPLETED'"`
	CreatedAt         time.Time       `gorm:"type:datetime(3);not null"`
	UpdatedAt         time.Time       `gorm:"type:datetime(3);not null"`
}

func (*sqlTransaction) TableName() string { return "transactions" }

type accountWithCount struct {
	sqlAccount       `gorm:"embedded"`
	TransactionCount int64
}

func fromCoreAccount(a core.Account) sqlAccount {
	return sqlAccount{
		ID:        a.ID,
		UserID:    a.UserID,
		Name:      a.Name,
		Type:      string(a.Type),
		Balance:   a.Balance,
		IsDefault: a.IsDefault,
		CreatedAt: a.CreatedAt.UTC(),
		UpdatedAt: a.UpdatedAt.UTC(),
	}
}

func (a sqlAccount) toCore() core.Account {
	return core.Account{
		ID:        a.ID,
		UserID:    a.UserID,
		Name:      a.Name,
		Type:      core.AccountType(a.Type),
		Balance:   a.Balance,
		IsDefault: a.IsDefault,
		CreatedAt: a.CreatedAt.UTC(),
		UpdatedAt: a.UpdatedAt.UTC(),
	}
}

func fromCoreTransaction(t core.Transaction) sqlTransaction {
	row := sqlTransaction{
		ID:          t.ID,
		AccountID:   t.AccountID,
		UserID:      t.UserID,
		Type:        string(t.Type),
		Amount:      t.Amount,
		Description: t.Description,
		Category:    t.Category,
		Date:        t.Date.UTC(),
		IsRecurring: t.IsRecurring,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.UpdatedAt.UTC(),
	}
	if t.IsRecurring && t.RecurringInterval != "" {
		interval := string(t.RecurringInterval)
		row.RecurringInterval = &interval
	}
	if t.NextRecurringDate != nil {
		next := t.NextRecurringDate.UTC()
		row.NextRecurringDate = &next
	}
	return row
}

func (t sqlTransaction) toCore() core.Transaction {
	out := core.Transaction{
		ID:          t.ID,
		AccountID:   t.AccountID,
		UserID:      t.UserID,
		Type:        core.TransactionType(t.Type),
		Amount:      t.Amount,
		Description: t.Description,
		Category:    t.Category,
		Date:        t.Date.UTC(),
		IsRecurring: t.IsRecurring,
		Status:      core.TransactionStatus(t.Status),
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.UpdatedAt.UTC(),
	}
	if t.RecurringInterval != nil {
		out.RecurringInterval = core.RecurringInterval(*t.RecurringInterval)
	}
	if t.NextRecurringDate != nil {
		next := t.NextRecurringDate.UTC()
		out.NextRecurringDate = &next
	}
	return out
}

func toCoreTransactions(rows []sqlTransaction) []core.Transaction {
	out := make([]core.Transaction, len(rows))
	for i, r := range rows {
		out[i] = r.toCore()
	}
	return out
}
