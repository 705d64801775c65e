package core

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every ledger operation.
var (
	// ErrUnauthorized means no identity could be resolved for the caller.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound covers a missing user record and scoped lookups or
	// updates that matched zero rows.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput wraps every validation failure.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCommit is matched by every *CommitError.
	ErrCommit = errors.New("atomic commit failed")

	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	ErrEmptyBatch   = fmt.Errorf("%w: no transaction ids given", ErrInvalidInput)

	// ErrBalanceOverflow means an adjustment would take a stored balance
	// past what the store can represent.
	ErrBalanceOverflow = fmt.Errorf("%w: balance out of range", ErrInvalidInput)
)

// CommitError reports an atomic unit that could not be committed. Nothing
// the unit staged is visible after it is returned.
type CommitError struct {
	Op  string
	Err error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrCommit, e.Err)
}

func (e *CommitError) Unwrap() []error {
	return []error{ErrCommit, e.Err}
}

// CommitFailure classifies an error returned by an atomic unit. Not-found
// and validation signals raised inside the unit keep their identity, anything
// else becomes a *CommitError.
func CommitFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrCommit) {
		return err
	}
	return &CommitError{Op: op, Err: err}
}
