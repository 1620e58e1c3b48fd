package ledger

import "errors"

var (
	// ErrUnbalanced indicates total debit and credit differ beyond tolerance.
	ErrUnbalanced = errors.New("ledger: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("ledger: journal requires at least two lines")
	// ErrAccountNotFound indicates a line targets a nonexistent account.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrPlaceholderAccount indicates a line targets a structural account.
	ErrPlaceholderAccount = errors.New("ledger: placeholder account cannot receive postings")
	// ErrAccountInactive indicates a line targets a deactivated account.
	ErrAccountInactive = errors.New("ledger: inactive account cannot receive postings")
	// ErrEntryNotFound indicates a missing journal entry.
	ErrEntryNotFound = errors.New("ledger: journal entry not found")
	// ErrRollbackFailed indicates the compensating rollback of a header failed.
	// This is fatal and must be surfaced, never swallowed.
	ErrRollbackFailed = errors.New("ledger: failed to roll back journal header")
)

// balanceTolerance is the maximum permitted |debit - credit| per entry,
// in currency units.
const balanceTolerance = 0.01
