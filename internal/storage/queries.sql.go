package storage

import (
	"context"
	"database/sql"
	"strings"
)

const accountColumns = `seq, id, user_id, name, type, balance_units, is_default, created_at_ms, updated_at_ms`

const transactionColumns = `seq, id, account_id, user_id, type, amount_units, description, category, date_ms,
       is_recurring, recurring_interval, next_recurring_date_ms, status, created_at_ms, updated_at_ms`

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner, extra ...any) (Account, error) {
	var a Account
	dest := []any{&a.Seq, &a.ID, &a.UserID, &a.Name, &a.Type, &a.BalanceUnits, &a.IsDefault, &a.CreatedAtMs, &a.UpdatedAtMs}
	err := row.Scan(append(dest, extra...)...)
	return a, err
}

func scanTransaction(row scanner) (Transaction, error) {
	var t Transaction
	err := row.Scan(
		&t.Seq,
		&t.ID,
		&t.AccountID,
		&t.UserID,
		&t.Type,
		&t.AmountUnits,
		&t.Description,
		&t.Category,
		&t.DateMs,
		&t.IsRecurring,
		&t.RecurringInterval,
		&t.NextRecurringDateMs,
		&t.Status,
		&t.CreatedAtMs,
		&t.UpdatedAtMs,
	)
	return t, err
}

func collectTransactions(rows *sql.Rows, err error) ([]Transaction, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// inClause expands "?" placeholders for ids, sqlc.slice style.
func inClause(ids []string) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}

const createUser = `-- name: CreateUser :exec
INSERT INTO users (id, external_id, email, name, created_at_ms) VALUES (?, ?, ?, ?, ?)
`

type CreateUserParams struct {
	ID          string
	ExternalID  string
	Email       string
	Name        string
	CreatedAtMs int64
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) error {
	_, err := q.db.ExecContext(ctx, createUser, arg.ID, arg.ExternalID, arg.Email, arg.Name, arg.CreatedAtMs)
	return err
}

const getUserByExternalID = `-- name: GetUserByExternalID :one
SELECT id, external_id, email, name, created_at_ms FROM users WHERE external_id = ?
`

func (q *Queries) GetUserByExternalID(ctx context.Context, externalID string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByExternalID, externalID)
	var u User
	err := row.Scan(&u.ID, &u.ExternalID, &u.Email, &u.Name, &u.CreatedAtMs)
	return u, err
}

const createAccount = `-- name: CreateAccount :exec
INSERT INTO accounts (id, user_id, name, type, balance_units, is_default, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateAccountParams struct {
	ID           string
	UserID       string
	Name         string
	Type         string
	BalanceUnits int64
	IsDefault    bool
	CreatedAtMs  int64
	UpdatedAtMs  int64
}

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) error {
	_, err := q.db.ExecContext(ctx, createAccount,
		arg.ID,
		arg.UserID,
		arg.Name,
		arg.Type,
		arg.BalanceUnits,
		arg.IsDefault,
		arg.CreatedAtMs,
		arg.UpdatedAtMs,
	)
	return err
}

const getAccount = `-- name: GetAccount :one
SELECT ` + accountColumns + ` FROM accounts WHERE id = ? AND user_id = ?
`

func (q *Queries) GetAccount(ctx context.Context, id, userID string) (Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx, getAccount, id, userID))
}

const countAccounts = `-- name: CountAccounts :one
SELECT COUNT(*) FROM accounts WHERE user_id = ?
`

func (q *Queries) CountAccounts(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countAccounts, userID).Scan(&n)
	return n, err
}

const listAccountsWithCounts = `-- name: ListAccountsWithCounts :many
SELECT a.seq, a.id, a.user_id, a.name, a.type, a.balance_units, a.is_default, a.created_at_ms, a.updated_at_ms,
       (SELECT COUNT(*) FROM transactions t WHERE t.account_id = a.id AND t.user_id = a.user_id) AS transaction_count
FROM accounts a
WHERE a.user_id = ?
ORDER BY a.seq
`

type ListAccountsWithCountsRow struct {
	Account
	TransactionCount int64
}

func (q *Queries) ListAccountsWithCounts(ctx context.Context, userID string) ([]ListAccountsWithCountsRow, error) {
	rows, err := q.db.QueryContext(ctx, listAccountsWithCounts, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListAccountsWithCountsRow
	for rows.Next() {
		var i ListAccountsWithCountsRow
		i.Account, err = scanAccount(rows, &i.TransactionCount)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Integer overflow in SQLite yields a REAL, so the sum must stay an integer.
const adjustBalance = `-- name: AdjustBalance :execrows
UPDATE accounts SET balance_units = balance_units + ?, updated_at_ms = ?
WHERE id = ? AND user_id = ? AND typeof(balance_units + ?) = 'integer'
`

type AdjustBalanceParams struct {
	DeltaUnits  int64
	UpdatedAtMs int64
	ID          string
	UserID      string
}

func (q *Queries) AdjustBalance(ctx context.Context, arg AdjustBalanceParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, adjustBalance, arg.DeltaUnits, arg.UpdatedAtMs, arg.ID, arg.UserID, arg.DeltaUnits)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const clearDefault = `-- name: ClearDefault :execrows
UPDATE accounts SET is_default = 0, updated_at_ms = ? WHERE user_id = ? AND is_default = 1
`

func (q *Queries) ClearDefault(ctx context.Context, updatedAtMs int64, userID string) (int64, error) {
	result, err := q.db.ExecContext(ctx, clearDefault, updatedAtMs, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const markDefault = `-- name: MarkDefault :execrows
UPDATE accounts SET is_default = 1, updated_at_ms = ? WHERE id = ? AND user_id = ?
`

func (q *Queries) MarkDefault(ctx context.Context, updatedAtMs int64, id, userID string) (int64, error) {
	result, err := q.db.ExecContext(ctx, markDefault, updatedAtMs, id, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const createTransaction = `-- name: CreateTransaction :exec
INSERT INTO transactions (id, account_id, user_id, type, amount_units, description, category, date_ms,
                          is_recurring, recurring_interval, next_recurring_date_ms, status, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateTransactionParams struct {
	ID                  string
	AccountID           string
	UserID              string
	Type                string
	AmountUnits         int64
	Description         string
	Category            string
	DateMs              int64
	IsRecurring         bool
	RecurringInterval   sql.NullString
	NextRecurringDateMs sql.NullInt64
	Status              string
	CreatedAtMs         int64
	UpdatedAtMs         int64
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		arg.ID,
		arg.AccountID,
		arg.UserID,
		arg.Type,
		arg.AmountUnits,
		arg.Description,
		arg.Category,
		arg.DateMs,
		arg.IsRecurring,
		arg.RecurringInterval,
		arg.NextRecurringDateMs,
		arg.Status,
		arg.CreatedAtMs,
		arg.UpdatedAtMs,
	)
	return err
}

const updateTransaction = `-- name: UpdateTransaction :execrows
UPDATE transactions
SET account_id = ?, type = ?, amount_units = ?, description = ?, category = ?, date_ms = ?,
    is_recurring = ?, recurring_interval = ?, next_recurring_date_ms = ?, status = ?, updated_at_ms = ?
WHERE id = ? AND user_id = ?
`

type UpdateTransactionParams struct {
	AccountID           string
	Type                string
	AmountUnits         int64
	Description         string
	Category            string
	DateMs              int64
	IsRecurring         bool
	RecurringInterval   sql.NullString
	NextRecurringDateMs sql.NullInt64
	Status              string
	UpdatedAtMs         int64
	ID                  string
	UserID              string
}

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateTransaction,
		arg.AccountID,
		arg.Type,
		arg.AmountUnits,
		arg.Description,
		arg.Category,
		arg.DateMs,
		arg.IsRecurring,
		arg.RecurringInterval,
		arg.NextRecurringDateMs,
		arg.Status,
		arg.UpdatedAtMs,
		arg.ID,
		arg.UserID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getTransaction = `-- name: GetTransaction :one
SELECT ` + transactionColumns + ` FROM transactions WHERE id = ? AND user_id = ?
`

func (q *Queries) GetTransaction(ctx context.Context, id, userID string) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id, userID))
}

const listAccountTransactions = `-- name: ListAccountTransactions :many
SELECT ` + transactionColumns + `
FROM transactions
WHERE account_id = ? AND user_id = ?
ORDER BY date_ms DESC, seq ASC
`

func (q *Queries) ListAccountTransactions(ctx context.Context, accountID, userID string) ([]Transaction, error) {
	return collectTransactions(q.db.QueryContext(ctx, listAccountTransactions, accountID, userID))
}

const listRecentTransactions = `-- name: ListRecentTransactions :many
SELECT ` + transactionColumns + `
FROM transactions
WHERE user_id = ?
ORDER BY date_ms DESC, seq ASC
LIMIT ?
`

func (q *Queries) ListRecentTransactions(ctx context.Context, userID string, limit int64) ([]Transaction, error) {
	return collectTransactions(q.db.QueryContext(ctx, listRecentTransactions, userID, limit))
}

const listTransactionsBetween = `-- name: ListTransactionsBetween :many
SELECT ` + transactionColumns + `
FROM transactions
WHERE user_id = ? AND date_ms >= ? AND date_ms < ?
ORDER BY date_ms DESC, seq ASC
`

func (q *Queries) ListTransactionsBetween(ctx context.Context, userID string, fromMs, toMs int64) ([]Transaction, error) {
	return collectTransactions(q.db.QueryContext(ctx, listTransactionsBetween, userID, fromMs, toMs))
}

const getTransactionsByIDs = `-- name: GetTransactionsByIDs :many
SELECT ` + transactionColumns + `
FROM transactions
WHERE user_id = ? AND id IN (/*SLICE:ids*/?)
ORDER BY seq
`

func (q *Queries) GetTransactionsByIDs(ctx context.Context, userID string, ids []string) ([]Transaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	marks, args := inClause(ids)
	query := strings.Replace(getTransactionsByIDs, "/*SLICE:ids*/?", marks, 1)
	return collectTransactions(q.db.QueryContext(ctx, query, append([]any{userID}, args...)...))
}

const deleteTransactionsByIDs = `-- name: DeleteTransactionsByIDs :execrows
DELETE FROM transactions WHERE user_id = ? AND id IN (/*SLICE:ids*/?)
`

func (q *Queries) DeleteTransactionsByIDs(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	marks, args := inClause(ids)
	query := strings.Replace(deleteTransactionsByIDs, "/*SLICE:ids*/?", marks, 1)
	result, err := q.db.ExecContext(ctx, query, append([]any{userID}, args...)...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const ping = `-- name: Ping :one
SELECT 1
`

func (q *Queries) Ping(ctx context.Context) error {
	var one int
	return q.db.QueryRowContext(ctx, ping).Scan(&one)
}
