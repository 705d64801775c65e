// Package mysql is the MySQL ledger store built on gorm. Balances are
// DECIMAL(19,4) columns and every balance change is an in-place
// "balance = balance + delta" update.
package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"spendwise/internal/core"
	"spendwise/internal/ledger"
)

var _ ledger.Store = (*Store)(nil)

type Store struct {
	client *Client
}

func NewStore(client *Client) *Store {
	return &Store{client: client}
}

// AutoMigrate creates or updates the ledger tables.
func (s *Store) AutoMigrate(ctx context.Context) error {
	if err := s.client.DB().WithContext(ctx).AutoMigrate(&sqlUser{}, &sqlAccount{}, &sqlTransaction{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func (s *Store) db(ctx context.Context) *gorm.DB {
	return s.client.DB().WithContext(ctx)
}

func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx) }
func (s *Store) Close() error                   { return s.client.Close() }

func (s *Store) Atomic(ctx context.Context, fn func(ledger.Unit) error) error {
	return s.db(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&unit{tx: tx})
	})
}

func (s *Store) UserByExternalID(ctx context.Context, externalID string) (core.User, error) {
	return userByExternalID(s.db(ctx), externalID)
}

func (s *Store) Account(ctx context.Context, userID, accountID string) (core.Account, error) {
	return account(s.db(ctx), userID, accountID)
}

func (s *Store) Transaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	return transaction(s.db(ctx), userID, id)
}

func (s *Store) Accounts(ctx context.Context, userID string) ([]core.Account, error) {
	var rows []accountWithCount
	err := s.db(ctx).Table("accounts AS a").
		Select("a.*, (SELECT COUNT(*) FROM transactions t WHERE t.account_id = a.id AND t.user_id = a.user_id) AS transaction_count").
		Where("a.user_id = ?", userID).
		Order("a.seq").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]core.Account, len(rows))
	for i, r := range rows {
		out[i] = r.sqlAccount.toCore()
		out[i].TransactionCount = int(r.TransactionCount)
	}
	return out, nil
}

func (s *Store) AccountTransactions(ctx context.Context, userID, accountID string) ([]core.Transaction, error) {
	var rows []sqlTransaction
	err := s.db(ctx).
		Where("account_id = ? AND user_id = ?", accountID, userID).
		Order("date DESC").Order("seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list account transactions: %w", err)
	}
	return toCoreTransactions(rows), nil
}

func (s *Store) TransactionsByIDs(ctx context.Context, userID string, ids []string) ([]core.Transaction, error) {
	return transactionsByIDs(s.db(ctx), userID, ids)
}

func (s *Store) RecentTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error) {
	q := s.db(ctx).Where("user_id = ?", userID).Order("date DESC").Order("seq ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []sqlTransaction
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list recent transactions: %w", err)
	}
	return toCoreTransactions(rows), nil
}

func (s *Store) TransactionsBetween(ctx context.Context, userID string, from, to time.Time) ([]core.Transaction, error) {
	var rows []sqlTransaction
	err := s.db(ctx).
		Where("user_id = ? AND date >= ? AND date < ?", userID, from.UTC(), to.UTC()).
		Order("date DESC").Order("seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list transactions between: %w", err)
	}
	return toCoreTransactions(rows), nil
}

type unit struct {
	tx *gorm.DB
}

func (u *unit) db(ctx context.Context) *gorm.DB { return u.tx.WithContext(ctx) }

func (u *unit) UserByExternalID(ctx context.Context, externalID string) (core.User, error) {
	return userByExternalID(u.db(ctx), externalID)
}

func (u *unit) Account(ctx context.Context, userID, accountID string) (core.Account, error) {
	return account(u.db(ctx), userID, accountID)
}

func (u *unit) Transaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	return transaction(u.db(ctx), userID, id)
}

// TransactionsByIDs locks the matched rows until the unit ends so that a
// concurrent deletion cannot reconcile the same row twice.
func (u *unit) TransactionsByIDs(ctx context.Context, userID string, ids []string) ([]core.Transaction, error) {
	return transactionsByIDs(u.db(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), userID, ids)
}

func (u *unit) CountAccounts(ctx context.Context, userID string) (int, error) {
	var n int64
	if err := u.db(ctx).Model(&sqlAccount{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return int(n), nil
}

func (u *unit) CreateUser(ctx context.Context, usr core.User) error {
	row := sqlUser{
		ID:         usr.ID,
		ExternalID: usr.ExternalID,
		Email:      usr.Email,
		Name:       usr.Name,
		CreatedAt:  usr.CreatedAt.UTC(),
	}
	if err := u.db(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (u *unit) CreateAccount(ctx context.Context, a core.Account) error {
	if err := core.ValidateScale(a.Balance); err != nil {
		return err
	}
	row := fromCoreAccount(a)
	if err := u.db(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (u *unit) InsertTransaction(ctx context.Context, t core.Transaction) error {
	if err := core.ValidateScale(t.Amount); err != nil {
		return err
	}
	row := fromCoreTransaction(t)
	if err := u.db(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (u *unit) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	if err := core.ValidateScale(t.Amount); err != nil {
		return err
	}
	row := fromCoreTransaction(t)
	res := u.db(ctx).Model(&sqlTransaction{}).
		Where("id = ? AND user_id = ?", t.ID, t.UserID).
		Updates(map[string]any{
			"account_id":          row.AccountID,
			"type":                row.Type,
			"amount":              row.Amount,
			"description":         row.Description,
			"category":            row.Category,
			"date":                row.Date,
			"is_recurring":        row.IsRecurring,
			"recurring_interval":  row.RecurringInterval,
			"next_recurring_date": row.NextRecurringDate,
			"status":              row.Status,
			"updated_at":          row.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("update transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (u *unit) DeleteTransactions(ctx context.Context, userID string, ids []string) (int64, error) {
	ids = ledger.Dedupe(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	res := u.db(ctx).Where("user_id = ? AND id IN ?", userID, ids).Delete(&sqlTransaction{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete transactions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (u *unit) AdjustBalance(ctx context.Context, userID, accountID string, delta decimal.Decimal) error {
	if err := core.ValidateScale(delta); err != nil {
		return err
	}
	// The delta travels as a string; CAST keeps the arithmetic in DECIMAL
	// instead of DOUBLE.
	res := u.db(ctx).Model(&sqlAccount{}).
		Where("id = ? AND user_id = ?", accountID, userID).
		UpdateColumns(map[string]any{
			"balance":    gorm.Expr("balance + CAST(? AS DECIMAL(19,4))", delta.String()),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("adjust balance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (u *unit) ClearDefault(ctx context.Context, userID string) (int64, error) {
	res := u.db(ctx).Model(&sqlAccount{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		UpdateColumns(map[string]any{"is_default": false, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return 0, fmt.Errorf("clear default: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (u *unit) MarkDefault(ctx context.Context, userID, accountID string) error {
	res := u.db(ctx).Model(&sqlAccount{}).
		Where("id = ? AND user_id = ?", accountID, userID).
		UpdateColumns(map[string]any{"is_default": true, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("mark default: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func transactionsByIDs(db *gorm.DB, userID string, ids []string) ([]core.Transaction, error) {
	ids = ledger.Dedupe(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []sqlTransaction
	err := db.Where("user_id = ? AND id IN ?", userID, ids).
		Order("seq").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("get transactions by ids: %w", err)
	}
	return toCoreTransactions(rows), nil
}

func userByExternalID(db *gorm.DB, externalID string) (core.User, error) {
	var row sqlUser
	err := db.Where("external_id = ?", externalID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return core.User{
		ID:         row.ID,
		ExternalID: row.ExternalID,
		Email:      row.Email,
		Name:       row.Name,
		CreatedAt:  row.CreatedAt.UTC(),
	}, nil
}

func account(db *gorm.DB, userID, accountID string) (core.Account, error) {
	var row sqlAccount
	err := db.Where("id = ? AND user_id = ?", accountID, userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Account{}, core.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return row.toCore(), nil
}

func transaction(db *gorm.DB, userID, id string) (core.Transaction, error) {
	var row sqlTransaction
	err := db.Where("id = ? AND user_id = ?", id, userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return row.toCore(), nil
}
