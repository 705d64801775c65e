// Package memory is an in-process ledger store. Atomic units work on a copy
// of the state that replaces the live state only when the unit succeeds.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
	"spendwise/internal/ledger"
)

var _ ledger.Store = (*Store)(nil)

type txRow struct {
	core.Transaction
	seq int64
}

type accountRow struct {
	core.Account
	seq int64
}

type state struct {
	users      map[string]core.User
	byExternal map[string]string
	accounts   map[string]accountRow
	txs        map[string]txRow
	seq        int64
}

func (s *state) clone() *state {
	c := &state{
		users:      make(map[string]core.User, len(s.users)),
		byExternal: make(map[string]string, len(s.byExternal)),
		accounts:   make(map[string]accountRow, len(s.accounts)),
		txs:        make(map[string]txRow, len(s.txs)),
		seq:        s.seq,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.byExternal {
		c.byExternal[k] = v
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.txs {
		c.txs[k] = v
	}
	return c
}

type Store struct {
	mu    sync.RWMutex // guards cur
	write sync.Mutex   // serialises units
	cur   *state
}

func New() *Store {
	return &Store{cur: &state{
		users:      map[string]core.User{},
		byExternal: map[string]string{},
		accounts:   map[string]accountRow{},
		txs:        map[string]txRow{},
	}}
}

func (s *Store) snapshot() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

func (s *Store) Atomic(ctx context.Context, fn func(ledger.Unit) error) error {
	s.write.Lock()
	defer s.write.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.snapshot().clone()
	if err := fn(&unit{st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.cur = work
	s.mu.Unlock()
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }
func (s *Store) Close() error                   { return nil }

func (s *Store) UserByExternalID(_ context.Context, externalID string) (core.User, error) {
	return s.snapshot().userByExternalID(externalID)
}

func (s *Store) Account(_ context.Context, userID, accountID string) (core.Account, error) {
	return s.snapshot().account(userID, accountID)
}

func (s *Store) Transaction(_ context.Context, userID, id string) (core.Transaction, error) {
	return s.snapshot().transaction(userID, id)
}

func (s *Store) Accounts(_ context.Context, userID string) ([]core.Account, error) {
	st := s.snapshot()
	counts := map[string]int{}
	for _, t := range st.txs {
		if t.UserID == userID {
			counts[t.AccountID]++
		}
	}
	var rows []accountRow
	for _, a := range st.accounts {
		if a.UserID == userID {
			rows = append(rows, a)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	out := make([]core.Account, 0, len(rows))
	for _, r := range rows {
		a := r.Account
		a.TransactionCount = counts[a.ID]
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) AccountTransactions(_ context.Context, userID, accountID string) ([]core.Transaction, error) {
	return s.snapshot().filter(func(t txRow) bool {
		return t.UserID == userID && t.AccountID == accountID
	}, 0), nil
}

func (s *Store) TransactionsByIDs(_ context.Context, userID string, ids []string) ([]core.Transaction, error) {
	return s.snapshot().byIDs(userID, ids), nil
}

func (s *Store) RecentTransactions(_ context.Context, userID string, limit int) ([]core.Transaction, error) {
	return s.snapshot().filter(func(t txRow) bool { return t.UserID == userID }, limit), nil
}

func (s *Store) TransactionsBetween(_ context.Context, userID string, from, to time.Time) ([]core.Transaction, error) {
	return s.snapshot().filter(func(t txRow) bool {
		return t.UserID == userID && !t.Date.Before(from) && t.Date.Before(to)
	}, 0), nil
}

func (st *state) userByExternalID(externalID string) (core.User, error) {
	id, ok := st.byExternal[externalID]
	if !ok {
		return core.User{}, core.ErrUserNotFound
	}
	return st.users[id], nil
}

func (st *state) account(userID, accountID string) (core.Account, error) {
	a, ok := st.accounts[accountID]
	if !ok || a.UserID != userID {
		return core.Account{}, core.ErrNotFound
	}
	return a.Account, nil
}

func (st *state) transaction(userID, id string) (core.Transaction, error) {
	t, ok := st.txs[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, core.ErrNotFound
	}
	return t.Transaction, nil
}

func (st *state) byIDs(userID string, ids []string) []core.Transaction {
	var rows []txRow
	for _, id := range ledger.Dedupe(ids) {
		if t, ok := st.txs[id]; ok && t.UserID == userID {
			rows = append(rows, t)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	out := make([]core.Transaction, len(rows))
	for i, r := range rows {
		out[i] = r.Transaction
	}
	return out
}

// filter returns matching transactions by date descending then insertion
// order. limit <= 0 means all.
func (st *state) filter(keep func(txRow) bool, limit int) []core.Transaction {
	var rows []txRow
	for _, t := range st.txs {
		if keep(t) {
			rows = append(rows, t)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.After(rows[j].Date)
		}
		return rows[i].seq < rows[j].seq
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]core.Transaction, len(rows))
	for i, r := range rows {
		out[i] = r.Transaction
	}
	return out
}

type unit struct {
	st *state
}

func (u *unit) UserByExternalID(_ context.Context, externalID string) (core.User, error) {
	return u.st.userByExternalID(externalID)
}

func (u *unit) Account(_ context.Context, userID, accountID string) (core.Account, error) {
	return u.st.account(userID, accountID)
}

func (u *unit) Transaction(_ context.Context, userID, id string) (core.Transaction, error) {
	return u.st.transaction(userID, id)
}

func (u *unit) TransactionsByIDs(_ context.Context, userID string, ids []string) ([]core.Transaction, error) {
	return u.st.byIDs(userID, ids), nil
}

func (u *unit) CountAccounts(_ context.Context, userID string) (int, error) {
	n := 0
	for _, a := range u.st.accounts {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (u *unit) CreateUser(_ context.Context, usr core.User) error {
	if _, ok := u.st.byExternal[usr.ExternalID]; ok {
		return fmt.Errorf("user with external id %q already exists", usr.ExternalID)
	}
	u.st.users[usr.ID] = usr
	u.st.byExternal[usr.ExternalID] = usr.ID
	return nil
}

func (u *unit) CreateAccount(_ context.Context, a core.Account) error {
	if _, ok := u.st.accounts[a.ID]; ok {
		return fmt.Errorf("account %q already exists", a.ID)
	}
	u.st.seq++
	a.TransactionCount = 0
	u.st.accounts[a.ID] = accountRow{Account: a, seq: u.st.seq}
	return nil
}

func (u *unit) InsertTransaction(_ context.Context, t core.Transaction) error {
	if _, ok := u.st.txs[t.ID]; ok {
		return fmt.Errorf("transaction %q already exists", t.ID)
	}
	u.st.seq++
	u.st.txs[t.ID] = txRow{Transaction: t, seq: u.st.seq}
	return nil
}

func (u *unit) UpdateTransaction(_ context.Context, t core.Transaction) error {
	row, ok := u.st.txs[t.ID]
	if !ok || row.UserID != t.UserID {
		return core.ErrNotFound
	}
	t.CreatedAt = row.CreatedAt
	u.st.txs[t.ID] = txRow{Transaction: t, seq: row.seq}
	return nil
}

func (u *unit) DeleteTransactions(_ context.Context, userID string, ids []string) (int64, error) {
	var n int64
	for _, id := range ids {
		if t, ok := u.st.txs[id]; ok && t.UserID == userID {
			delete(u.st.txs, id)
			n++
		}
	}
	return n, nil
}

func (u *unit) AdjustBalance(_ context.Context, userID, accountID string, delta decimal.Decimal) error {
	a, ok := u.st.accounts[accountID]
	if !ok || a.UserID != userID {
		return core.ErrNotFound
	}
	a.Balance = a.Balance.Add(delta)
	a.UpdatedAt = time.Now().UTC()
	u.st.accounts[accountID] = a
	return nil
}

func (u *unit) ClearDefault(_ context.Context, userID string) (int64, error) {
	var n int64
	for id, a := range u.st.accounts {
		if a.UserID == userID && a.IsDefault {
			a.IsDefault = false
			u.st.accounts[id] = a
			n++
		}
	}
	return n, nil
}

func (u *unit) MarkDefault(_ context.Context, userID, accountID string) error {
	a, ok := u.st.accounts[accountID]
	if !ok || a.UserID != userID {
		return core.ErrNotFound
	}
	a.IsDefault = true
	a.UpdatedAt = time.Now().UTC()
	u.st.accounts[accountID] = a
	return nil
}
