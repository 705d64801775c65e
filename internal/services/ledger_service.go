package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"spendwise/internal/core"
	"spendwise/internal/identity"
	"spendwise/internal/ledger"
	"spendwise/internal/log"
)

// DefaultRecentLimit is how many transactions the dashboard lists.
const DefaultRecentLimit = 10

// LedgerService runs the ledger operations on behalf of a resolved
// identity. Every mutation commits in a single atomic unit and reports the
// views it made stale.
type LedgerService struct {
	store       ledger.Store
	invalidator Invalidator
	logger      *log.Logger
	events      *log.StructuredLogger
	now         func() time.Time
	newID       func() string
	recentLimit int
}

type Option func(*LedgerService)

func WithInvalidator(inv Invalidator) Option {
	return func(s *LedgerService) { s.invalidator = inv }
}

func WithLogger(l *log.Logger) Option {
	return func(s *LedgerService) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *LedgerService) { s.newID = newID }
}

func WithRecentLimit(n int) Option {
	return func(s *LedgerService) { s.recentLimit = n }
}

func NewLedgerService(store ledger.Store, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:       store,
		logger:      log.Discard(),
		now:         time.Now,
		newID:       uuid.NewString,
		recentLimit: DefaultRecentLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentLedger)
	s.events = log.NewStructuredLogger(s.logger)
	return s
}

// Ready reports whether the store answers.
func (s *LedgerService) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *LedgerService) Close() error {
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}

func (s *LedgerService) identity(ctx context.Context, who identity.Resolver) (identity.Identity, error) {
	if who == nil {
		return identity.Identity{}, core.ErrUnauthorized
	}
	id, err := who.Resolve(ctx)
	if err != nil {
		if errors.Is(err, core.ErrUnauthorized) {
			return identity.Identity{}, err
		}
		return identity.Identity{}, fmt.Errorf("%w: %v", core.ErrUnauthorized, err)
	}
	if id.Subject == "" {
		return identity.Identity{}, core.ErrUnauthorized
	}
	return id, nil
}

// user resolves the caller and maps it to a user record. Nothing touches
// the store before the identity is known.
func (s *LedgerService) user(ctx context.Context, who identity.Resolver) (core.User, error) {
	id, err := s.identity(ctx, who)
	if err != nil {
		return core.User{}, err
	}
	return s.store.UserByExternalID(ctx, id.Subject)
}

func (s *LedgerService) invalidate(ctx context.Context, views []core.View) {
	if s.invalidator == nil || len(views) == 0 {
		return
	}
	if err := s.invalidator.Invalidate(ctx, views...); err != nil {
		s.logger.WarnContext(ctx, "View invalidation failed",
			log.FieldOperation, log.OpInvalidate,
			log.FieldError, err)
	}
}

func (s *LedgerService) fail(ctx context.Context, op string, err error) {
	kind := log.ErrorTypeInternal
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		kind = log.ErrorTypeAuth
	case errors.Is(err, core.ErrNotFound):
		kind = log.ErrorTypeNotFound
	case errors.Is(err, core.ErrInvalidInput):
		kind = log.ErrorTypeValidation
	case errors.Is(err, core.ErrCommit):
		kind = log.ErrorTypeDatabase
	}
	if kind == log.ErrorTypeInternal || kind == log.ErrorTypeDatabase {
		s.events.LogError(ctx, "Ledger operation failed", err, log.ComponentLedger, op,
			log.NewFields().WithErrorType(kind))
		return
	}
	fields := log.NewFields().WithError(err).WithErrorType(kind).WithOperation(op)
	s.logger.DebugContext(ctx, "Ledger operation rejected", fields.ToSlice()...)
}

// ProvisionUser returns the user mapped to the caller, creating it on first
// access. The mapping from session subject to user never changes.
func (s *LedgerService) ProvisionUser(ctx context.Context, who identity.Resolver) (core.User, error) {
	id, err := s.identity(ctx, who)
	if err != nil {
		return core.User{}, err
	}
	u, err := s.store.UserByExternalID(ctx, id.Subject)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, core.ErrUserNotFound) {
		return core.User{}, err
	}

	u = core.User{
		ID:         s.newID(),
		ExternalID: id.Subject,
		Email:      id.Email,
		Name:       id.Name,
		CreatedAt:  s.now().UTC(),
	}
	err = s.store.Atomic(ctx, func(unit ledger.Unit) error {
		return unit.CreateUser(ctx, u)
	})
	if err != nil {
		// A concurrent first request may have created it.
		if existing, lookupErr := s.store.UserByExternalID(ctx, id.Subject); lookupErr == nil {
			return existing, nil
		}
		return core.User{}, core.CommitFailure("provision user", err)
	}
	s.events.LogMutation(ctx, log.OpProvision, u.ID, "")
	return u, nil
}

// BulkDeleteTransactions removes the caller's transactions among ids and
// reverses their effect on each account balance in the same unit. Ids the
// caller does not own are ignored.
func (s *LedgerService) BulkDeleteTransactions(ctx context.Context, who identity.Resolver, ids []string) core.Result[core.DeleteSummary] {
	const op = log.OpBulkDelete
	user, err := s.user(ctx, who)
	if err != nil {
		s.fail(ctx, op, err)
		return core.Fail[core.DeleteSummary](err)
	}
	ids = ledger.Dedupe(ids)
	if len(ids) == 0 {
		return core.Fail[core.DeleteSummary](core.ErrEmptyBatch)
	}

	summary := core.DeleteSummary{Requested: len(ids)}
	err = s.store.Atomic(ctx, func(u ledger.Unit) error {
		txs, err := u.TransactionsByIDs(ctx, user.ID, ids)
		if err != nil {
			return err
		}
		if len(txs) == 0 {
			summary.Deltas = map[string]decimal.Decimal{}
			return nil
		}
		owned := make([]string, len(txs))
		for i, t := range txs {
			owned[i] = t.ID
		}
		n, err := u.DeleteTransactions(ctx, user.ID, owned)
		if err != nil {
			return err
		}
		if n != int64(len(owned)) {
			return fmt.Errorf("deleted %d of %d transactions", n, len(owned))
		}

		deltas := core.BalanceDeltas(txs)
		for _, accountID := range core.SortedAccountIDs(deltas) {
			if err := u.AdjustBalance(ctx, user.ID, accountID, deltas[accountID]); err != nil {
				return fmt.Errorf("account %s: %w", accountID, err)
			}
		}
		summary.Deleted = int(n)
		summary.Deltas = deltas
		return nil
	})
	if err != nil {
		err = core.CommitFailure("bulk delete transactions", err)
		s.fail(ctx, op, err)
		return core.Fail[core.DeleteSummary](err)
	}

	views := core.ViewsFor(user.ID, core.SortedAccountIDs(summary.Deltas)...)
	s.invalidate(ctx, views)
	s.events.LogMutation(ctx, op, user.ID, "",
		log.FieldTxCount, summary.Deleted,
		log.FieldAccounts, len(summary.Deltas))
	return core.Ok(summary, views...)
}

// UpdateDefaultAccount makes accountID the caller's only default account.
// If the account is not the caller's the previous default stays.
func (s *LedgerService) UpdateDefaultAccount(ctx context.Context, who identity.Resolver, accountID string) core.Result[core.Account] {
	const op = log.OpSetDefault
	user, err := s.user(ctx, who)
	if err != nil {
		s.fail(ctx, op, err)
		return core.Fail[core.Account](err)
	}
	if strings.TrimSpace(accountID) == "" {
		return core.Fail[core.Account](core.ErrEmptyAccountID)
	}

	var (
		updated core.Account
		cleared []string
	)
	err = s.store.Atomic(ctx, func(u ledger.Unit) error {
		if cleared, err = clearDefaults(ctx, u, user.ID); err != nil {
			return err
		}
		if err := u.MarkDefault(ctx, user.ID, accountID); err != nil {
			return err
		}
		updated, err = u.Account(ctx, user.ID, accountID)
		return err
	})
	if err != nil {
		err = core.CommitFailure("update default account", err)
		s.fail(ctx, op, err)
		return core.Fail[core.Account](err)
	}

	// Account pages render the default badge, so the old and new default
	// both go stale.
	views := core.ViewsFor(user.ID, append(cleared, accountID)...)
	s.invalidate(ctx, views)
	s.events.LogMutation(ctx, op, user.ID, accountID)
	return core.Ok(updated, views...)
}

// clearDefaults unsets the user's default flag and returns the accounts
// that carried it.
func clearDefaults(ctx context.Context, u ledger.Unit, userID string) ([]string, error) {
	accounts, err := u.Accounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, a := range accounts {
		if a.IsDefault {
			ids = append(ids, a.ID)
		}
	}
	if _, err := u.ClearDefault(ctx, userID); err != nil {
		return nil, err
	}
	return ids, nil
}

// GetAccountWithTransactions returns the account with its transactions,
// most recent first. A missing or foreign account yields nil, nil.
func (s *LedgerService) GetAccountWithTransactions(ctx context.Context, who identity.Resolver, accountID string) (*core.AccountDetail, error) {
	user, err := s.user(ctx, who)
	if err != nil {
		return nil, err
	}
	acc, err := s.store.Account(ctx, user.ID, accountID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	txs, err := s.store.AccountTransactions(ctx, user.ID, accountID)
	if err != nil {
		return nil, fmt.Errorf("get account transactions: %w", err)
	}
	acc.TransactionCount = len(txs)
	return &core.AccountDetail{Account: acc, Transactions: txs}, nil
}

// ListAccounts returns the caller's accounts in creation order.
func (s *LedgerService) ListAccounts(ctx context.Context, who identity.Resolver) ([]core.Account, error) {
	user, err := s.user(ctx, who)
	if err != nil {
		return nil, err
	}
	return s.store.Accounts(ctx, user.ID)
}

// CreateAccount opens an account. A user's first account is always the
// default; asking for default on a later one moves the flag.
func (s *LedgerService) CreateAccount(ctx context.Context, who identity.Resolver, in core.AccountInput) core.Result[core.Account] {
	const op = log.OpCreate
	user, err := s.user(ctx, who)
	if err != nil {
		s.fail(ctx, op, err)
		return core.Fail[core.Account](err)
	}
	if err := in.Validate(); err != nil {
		return core.Fail[core.Account](err)
	}

	now := s.now().UTC()
	acc := core.Account{
		ID:        s.newID(),
		UserID:    user.ID,
		Name:      strings.TrimSpace(in.Name),
		Type:      in.Type,
		Balance:   in.Balance,
		CreatedAt: now,
		UpdatedAt: now,
	}
	var cleared []string
	err = s.store.Atomic(ctx, func(u ledger.Unit) error {
		n, err := u.CountAccounts(ctx, user.ID)
		if err != nil {
			return err
		}
		acc.IsDefault = in.IsDefault || n == 0
		if acc.IsDefault && n > 0 {
			if cleared, err = clearDefaults(ctx, u, user.ID); err != nil {
				return err
			}
		}
		return u.CreateAccount(ctx, acc)
	})
	if err != nil {
		err = core.CommitFailure("create account", err)
		s.fail(ctx, op, err)
		return core.Fail[core.Account](err)
	}

	views := core.ViewsFor(user.ID, cleared...)
	s.invalidate(ctx, views)
	s.events.LogMutation(ctx, op, user.ID, acc.ID)
	return core.Ok(acc, views...)
}

// CreateTransaction records a transaction and applies it to the balance of
// its account in one unit.
func (s *LedgerService) CreateTransaction(ctx context.Context, who identity.Resolver, in core.TransactionInput) core.Result[core.Transaction] {
	const op = log.OpCreate
	user, err := s.user(ctx, who)
	if err != nil {
		s.fail(ctx, op, err)
		return core.Fail[core.Transaction](err)
	}
	if err := in.Validate(); err != nil {
		return core.Fail[core.Transaction](err)
	}

	now := s.now().UTC()
	tx := core.Transaction{
		ID:        s.newID(),
		UserID:    user.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.Apply(&tx)

	err = s.store.Atomic(ctx, func(u ledger.Unit) error {
		if _, err := u.Account(ctx, user.ID, tx.AccountID); err != nil {
			return err
		}
		if err := u.InsertTransaction(ctx, tx); err != nil {
			return err
		}
		return u.AdjustBalance(ctx, user.ID, tx.AccountID, core.CreationDelta(tx))
	})
	if err != nil {
		err = core.CommitFailure("create transaction", err)
		s.fail(ctx, op, err)
		return core.Fail[core.Transaction](err)
	}

	views := core.ViewsFor(user.ID, tx.AccountID)
	s.invalidate(ctx, views)
	s.events.LogMutation(ctx, op, user.ID, tx.AccountID,
		log.FieldTxID, tx.ID,
		log.FieldAmount, tx.Amount.String())
	return core.Ok(tx, views...)
}

// UpdateTransaction replaces a transaction. Its old effect is reversed and
// the new one applied, possibly on another of the caller's accounts.
func (s *LedgerService) UpdateTransaction(ctx context.Context, who identity.Resolver, id string, in core.TransactionInput) core.Result[core.Transaction] {
	const op = log.OpUpdate
	user, err := s.user(ctx, who)
	if err != nil {
		s.fail(ctx, op, err)
		return core.Fail[core.Transaction](err)
	}
	if err := in.Validate(); err != nil {
		return core.Fail[core.Transaction](err)
	}

	var old, updated core.Transaction
	err = s.store.Atomic(ctx, func(u ledger.Unit) error {
		var err error
		old, err = u.Transaction(ctx, user.ID, id)
		if err != nil {
			return err
		}
		if in.AccountID != old.AccountID {
			if _, err := u.Account(ctx, user.ID, in.AccountID); err != nil {
				return err
			}
		}
		updated = old
		in.Apply(&updated)
		updated.UpdatedAt = s.now().UTC()
		if err := u.UpdateTransaction(ctx, updated); err != nil {
			return err
		}

		deltas := core.ReplacementDeltas(old, updated)
		for _, accountID := range core.SortedAccountIDs(deltas) {
			if deltas[accountID].IsZero() {
				continue
			}
			if err := u.AdjustBalance(ctx, user.ID, accountID, deltas[accountID]); err != nil {
				return fmt.Errorf("account %s: %w", accountID, err)
			}
		}
		return nil
	})
	if err != nil {
		err = core.CommitFailure("update transaction", err)
		s.fail(ctx, op, err)
		return core.Fail[core.Transaction](err)
	}

	views := core.ViewsFor(user.ID, old.AccountID, updated.AccountID)
	s.invalidate(ctx, views)
	s.events.LogMutation(ctx, op, user.ID, updated.AccountID, log.FieldTxID, updated.ID)
	return core.Ok(updated, views...)
}

// GetTransaction returns one of the caller's transactions, or nil, nil.
func (s *LedgerService) GetTransaction(ctx context.Context, who identity.Resolver, id string) (*core.Transaction, error) {
	user, err := s.user(ctx, who)
	if err != nil {
		return nil, err
	}
	tx, err := s.store.Transaction(ctx, user.ID, id)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &tx, nil
}

// GetDashboard aggregates the caller's accounts with the totals of the
// current calendar month (UTC) and the most recent transactions.
func (s *LedgerService) GetDashboard(ctx context.Context, who identity.Resolver) (core.Dashboard, error) {
	user, err := s.user(ctx, who)
	if err != nil {
		return core.Dashboard{}, err
	}

	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	var (
		dash  core.Dashboard
		month []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		dash.Accounts, err = s.store.Accounts(gctx, user.ID)
		return err
	})
	g.Go(func() error {
		var err error
		month, err = s.store.TransactionsBetween(gctx, user.ID, monthStart, monthEnd)
		return err
	})
	g.Go(func() error {
		var err error
		dash.RecentTransactions, err = s.store.RecentTransactions(gctx, user.ID, s.recentLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Dashboard{}, fmt.Errorf("load dashboard: %w", err)
	}

	for _, a := range dash.Accounts {
		dash.TotalBalance = dash.TotalBalance.Add(a.Balance)
	}
	for _, t := range month {
		if t.Type == core.Income {
			dash.MonthIncome = dash.MonthIncome.Add(t.Amount)
		} else {
			dash.MonthExpense = dash.MonthExpense.Add(t.Amount)
		}
	}
	return dash, nil
}
