package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
	"spendwise/internal/ledger"

	_ "modernc.org/sqlite"
)

var _ ledger.Store = (*SQLiteRepository)(nil)

// SQLiteRepository is the SQLite ledger store. Money is kept as scaled
// integers (core.AmountScale digits) so balance updates are exact integer
// increments; dates are unix milliseconds in UTC.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

// DSN returns the connection string for dbPath with foreign keys on and
// write transactions started as BEGIN IMMEDIATE.
func DSN(dbPath string) string {
	v := url.Values{}
	v.Add("_pragma", "foreign_keys(1)")
	v.Add("_pragma", "busy_timeout(5000)")
	v.Add("_pragma", "journal_mode(WAL)")
	v.Set("_txlock", "immediate")
	return "file:" + dbPath + "?" + v.Encode()
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations before the pool opens so the schema is in place.
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection: SQLite has a single writer, and units must not wait
	// on a second connection of the same pool.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.queries.Ping(ctx)
}

func (r *SQLiteRepository) Atomic(ctx context.Context, fn func(ledger.Unit) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqliteUnit{q: r.queries.WithTx(tx)}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UserByExternalID(ctx context.Context, externalID string) (core.User, error) {
	return userByExternalID(ctx, r.queries, externalID)
}

func (r *SQLiteRepository) Account(ctx context.Context, userID, accountID string) (core.Account, error) {
	return account(ctx, r.queries, userID, accountID)
}

func (r *SQLiteRepository) Transaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	return transaction(ctx, r.queries, userID, id)
}

func (r *SQLiteRepository) Accounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.queries.ListAccountsWithCounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	accounts := make([]core.Account, len(rows))
	for i, row := range rows {
		accounts[i] = toCoreAccount(row.Account)
		accounts[i].TransactionCount = int(row.TransactionCount)
	}
	return accounts, nil
}

func (r *SQLiteRepository) AccountTransactions(ctx context.Context, userID, accountID string) ([]core.Transaction, error) {
	rows, err := r.queries.ListAccountTransactions(ctx, accountID, userID)
	if err != nil {
		return nil, fmt.Errorf("list account transactions: %w", err)
	}
	return toCoreTransactions(rows), nil
}

func (r *SQLiteRepository) TransactionsByIDs(ctx context.Context, userID string, ids []string) ([]core.Transaction, error) {
	return transactionsByIDs(ctx, r.queries, userID, ids)
}

func (r *SQLiteRepository) RecentTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = -1 // no limit in SQLite
	}
	rows, err := r.queries.ListRecentTransactions(ctx, userID, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list recent transactions: %w", err)
	}
	return toCoreTransactions(rows), nil
}

func (r *SQLiteRepository) TransactionsBetween(ctx context.Context, userID string, from, to time.Time) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsBetween(ctx, userID, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("list transactions between: %w", err)
	}
	return toCoreTransactions(rows), nil
}

type sqliteUnit struct {
	q *Queries
}

func (u *sqliteUnit) UserByExternalID(ctx context.Context, externalID string) (core.User, error) {
	return userByExternalID(ctx, u.q, externalID)
}

func (u *sqliteUnit) Account(ctx context.Context, userID, accountID string) (core.Account, error) {
	return account(ctx, u.q, userID, accountID)
}

func (u *sqliteUnit) Transaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	return transaction(ctx, u.q, userID, id)
}

// TransactionsByIDs needs no explicit lock: the unit already holds the
// database write lock.
func (u *sqliteUnit) TransactionsByIDs(ctx context.Context, userID string, ids []string) ([]core.Transaction, error) {
	return transactionsByIDs(ctx, u.q, userID, ids)
}

func (u *sqliteUnit) CountAccounts(ctx context.Context, userID string) (int, error) {
	n, err := u.q.CountAccounts(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return int(n), nil
}

func (u *sqliteUnit) CreateUser(ctx context.Context, usr core.User) error {
	err := u.q.CreateUser(ctx, CreateUserParams{
		ID:          usr.ID,
		ExternalID:  usr.ExternalID,
		Email:       usr.Email,
		Name:        usr.Name,
		CreatedAtMs: usr.CreatedAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (u *sqliteUnit) CreateAccount(ctx context.Context, a core.Account) error {
	units, err := core.ToUnits(a.Balance)
	if err != nil {
		return err
	}
	err = u.q.CreateAccount(ctx, CreateAccountParams{
		ID:           a.ID,
		UserID:       a.UserID,
		Name:         a.Name,
		Type:         string(a.Type),
		BalanceUnits: units,
		IsDefault:    a.IsDefault,
		CreatedAtMs:  a.CreatedAt.UnixMilli(),
		UpdatedAtMs:  a.UpdatedAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (u *sqliteUnit) InsertTransaction(ctx context.Context, t core.Transaction) error {
	units, err := core.ToUnits(t.Amount)
	if err != nil {
		return err
	}
	interval, next := recurrenceColumns(t)
	err = u.q.CreateTransaction(ctx, CreateTransactionParams{
		ID:                  t.ID,
		AccountID:           t.AccountID,
		UserID:              t.UserID,
		Type:                string(t.Type),
		AmountUnits:         units,
		Description:         t.Description,
		Category:            t.Category,
		DateMs:              t.Date.UnixMilli(),
		IsRecurring:         t.IsRecurring,
		RecurringInterval:   interval,
		NextRecurringDateMs: next,
		Status:              string(t.Status),
		CreatedAtMs:         t.CreatedAt.UnixMilli(),
		UpdatedAtMs:         t.UpdatedAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (u *sqliteUnit) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	units, err := core.ToUnits(t.Amount)
	if err != nil {
		return err
	}
	interval, next := recurrenceColumns(t)
	n, err := u.q.UpdateTransaction(ctx, UpdateTransactionParams{
		AccountID:           t.AccountID,
		Type:                string(t.Type),
		AmountUnits:         units,
		Description:         t.Description,
		Category:            t.Category,
		DateMs:              t.Date.UnixMilli(),
		IsRecurring:         t.IsRecurring,
		RecurringInterval:   interval,
		NextRecurringDateMs: next,
		Status:              string(t.Status),
		UpdatedAtMs:         t.UpdatedAt.UnixMilli(),
		ID:                  t.ID,
		UserID:              t.UserID,
	})
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (u *sqliteUnit) DeleteTransactions(ctx context.Context, userID string, ids []string) (int64, error) {
	n, err := u.q.DeleteTransactionsByIDs(ctx, userID, ledger.Dedupe(ids))
	if err != nil {
		return 0, fmt.Errorf("delete transactions: %w", err)
	}
	return n, nil
}

func (u *sqliteUnit) AdjustBalance(ctx context.Context, userID, accountID string, delta decimal.Decimal) error {
	units, err := core.ToUnits(delta)
	if err != nil {
		return err
	}
	n, err := u.q.AdjustBalance(ctx, AdjustBalanceParams{
		DeltaUnits:  units,
		UpdatedAtMs: time.Now().UnixMilli(),
		ID:          accountID,
		UserID:      userID,
	})
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	if n == 0 {
		// Either the account is not the user's or the sum left int64.
		if _, err := u.Account(ctx, userID, accountID); err != nil {
			return err
		}
		return core.ErrBalanceOverflow
	}
	return nil
}

func (u *sqliteUnit) ClearDefault(ctx context.Context, userID string) (int64, error) {
	n, err := u.q.ClearDefault(ctx, time.Now().UnixMilli(), userID)
	if err != nil {
		return 0, fmt.Errorf("clear default: %w", err)
	}
	return n, nil
}

func (u *sqliteUnit) MarkDefault(ctx context.Context, userID, accountID string) error {
	n, err := u.q.MarkDefault(ctx, time.Now().UnixMilli(), accountID, userID)
	if err != nil {
		return fmt.Errorf("mark default: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func userByExternalID(ctx context.Context, q *Queries, externalID string) (core.User, error) {
	u, err := q.GetUserByExternalID(ctx, externalID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return core.User{
		ID:         u.ID,
		ExternalID: u.ExternalID,
		Email:      u.Email,
		Name:       u.Name,
		CreatedAt:  fromMillis(u.CreatedAtMs),
	}, nil
}

func account(ctx context.Context, q *Queries, userID, accountID string) (core.Account, error) {
	a, err := q.GetAccount(ctx, accountID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return toCoreAccount(a), nil
}

func transaction(ctx context.Context, q *Queries, userID, id string) (core.Transaction, error) {
	t, err := q.GetTransaction(ctx, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return toCoreTransaction(t), nil
}

func transactionsByIDs(ctx context.Context, q *Queries, userID string, ids []string) ([]core.Transaction, error) {
	rows, err := q.GetTransactionsByIDs(ctx, userID, ledger.Dedupe(ids))
	if err != nil {
		return nil, fmt.Errorf("get transactions by ids: %w", err)
	}
	return toCoreTransactions(rows), nil
}

func recurrenceColumns(t core.Transaction) (sql.NullString, sql.NullInt64) {
	var interval sql.NullString
	var next sql.NullInt64
	if t.IsRecurring && t.RecurringInterval != "" {
		interval = sql.NullString{String: string(t.RecurringInterval), Valid: true}
	}
	if t.NextRecurringDate != nil {
		next = sql.NullInt64{Int64: t.NextRecurringDate.UnixMilli(), Valid: true}
	}
	return interval, next
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func toCoreAccount(a Account) core.Account {
	return core.Account{
		ID:        a.ID,
		UserID:    a.UserID,
		Name:      a.Name,
		Type:      core.AccountType(a.Type),
		Balance:   core.FromUnits(a.BalanceUnits),
		IsDefault: a.IsDefault,
		CreatedAt: fromMillis(a.CreatedAtMs),
		UpdatedAt: fromMillis(a.UpdatedAtMs),
	}
}

func toCoreTransaction(t Transaction) core.Transaction {
	out := core.Transaction{
		ID:          t.ID,
		AccountID:   t.AccountID,
		UserID:      t.UserID,
		Type:        core.TransactionType(t.Type),
		Amount:      core.FromUnits(t.AmountUnits),
		Description: t.Description,
		Category:    t.Category,
		Date:        fromMillis(t.DateMs),
		IsRecurring: t.IsRecurring,
		Status:      core.TransactionStatus(t.Status),
		CreatedAt:   fromMillis(t.CreatedAtMs),
		UpdatedAt:   fromMillis(t.UpdatedAtMs),
	}
	if t.RecurringInterval.Valid {
		out.RecurringInterval = core.RecurringInterval(t.RecurringInterval.String)
	}
	if t.NextRecurringDateMs.Valid {
		next := fromMillis(t.NextRecurringDateMs.Int64)
		out.NextRecurringDate = &next
	}
	return out
}

func toCoreTransactions(rows []Transaction) []core.Transaction {
	out := make([]core.Transaction, len(rows))
	for i, t := range rows {
		out[i] = toCoreTransaction(t)
	}
	return out
}
