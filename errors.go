package txscope

import (
	"errors"
	"fmt"
)

// ErrDataAccess is matched by every error this package reports about a failed
// data-access operation, so callers can use errors.Is(err, ErrDataAccess).
var ErrDataAccess = errors.New("data access failure")

// Usage errors. They report a misuse of the transaction API rather than a
// failed data-access operation, so they do not match ErrDataAccess.
var (
	// ErrAlreadyInTransaction is returned when a transaction is started from
	// an execution context that already has an active transaction for the same source.
	ErrAlreadyInTransaction = errors.New("already in transaction")

	// ErrTxNotActive is returned when committing or rolling back a transaction
	// that is not active.
	ErrTxNotActive = errors.New("transaction is not active")

	// ErrTxAlreadyStarted is returned when starting a transaction twice.
	ErrTxAlreadyStarted = errors.New("transaction already started")
)

// ConnectionError indicates that a physical connection could not be obtained.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("obtaining connection: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool { return target == ErrDataAccess }

// StatementError indicates a failure while preparing, binding or executing a
// statement, or while iterating its results.
// Op is one of "prepare", "exec", "query", "fetch", "begin" or "commit".
type StatementError struct {
	Op    string
	Query string
	Err   error
}

func (e *StatementError) Error() string {
	if e.Query == "" {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q failed: %v", e.Op, e.Query, e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }

func (e *StatementError) Is(target error) bool { return target == ErrDataAccess }

// RollbackError indicates that rolling back a transaction failed.
// Cause holds the error that triggered the rollback, if any. Both errors
// remain reachable through errors.Is and errors.As.
type RollbackError struct {
	Cause error
	Err   error
}

func (e *RollbackError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("rolling back transaction: %v", e.Err)
	}
	return fmt.Sprintf("rolling back transaction: %v (original error: %v)", e.Err, e.Cause)
}

func (e *RollbackError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func (e *RollbackError) Is(target error) bool { return target == ErrDataAccess }

// MappingError indicates that a row could not be mapped to a result value.
// Row is the zero-based position of the row in the result set.
type MappingError struct {
	Row int
	Err error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("mapping row %d: %v", e.Row, e.Err)
}

func (e *MappingError) Unwrap() error { return e.Err }

func (e *MappingError) Is(target error) bool { return target == ErrDataAccess }
