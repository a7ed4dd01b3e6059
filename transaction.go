package txscope

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TxState is the lifecycle state of a Transaction.
type TxState int

// Transaction states. A transaction moves from TxNotStarted to TxActive and
// ends in either TxCommitted or TxRolledBack.
const (
	TxNotStarted TxState = iota
	TxActive
	TxCommitted
	TxRolledBack
)

func (s TxState) String() string {
	switch s {
	case TxNotStarted:
		return "not_started"
	case TxActive:
		return "active"
	case TxCommitted:
		return "committed"
	case TxRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// TxManager starts transactions on a Source and binds their connection to the
// execution context, so every Executor sharing the source joins them.
type TxManager struct {
	source Source
	txOpts *sql.TxOptions
	log    logrus.FieldLogger
}

// TxManagerOption is a function that configures a TxManager instance.
type TxManagerOption func(*TxManager)

// WithTxOptions sets the isolation level and read-only flag of every
// transaction. Default is the driver's default.
func WithTxOptions(opts *sql.TxOptions) TxManagerOption {
	return func(m *TxManager) {
		m.txOpts = opts
	}
}

// WithTxLogger sets the logger for transaction lifecycle events.
// By default nothing is logged.
func WithTxLogger(log logrus.FieldLogger) TxManagerOption {
	return func(m *TxManager) {
		m.log = log
	}
}

// NewTxManager creates a new TxManager for the given source.
func NewTxManager(source Source, opts ...TxManagerOption) *TxManager {
	m := &TxManager{
		source: source,
		log:    discardLogger(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Transaction is a single unit of work on one physical connection.
// A Transaction is not safe for concurrent use.
type Transaction struct {
	ID uuid.UUID

	m      *TxManager
	log    logrus.FieldLogger
	ctx    context.Context
	conn   *boundConn
	state  TxState
	closed bool
}

// Begin returns a new transaction that has not been started yet.
func (m *TxManager) Begin() *Transaction {
	id := uuid.New()
	return &Transaction{
		ID:  id,
		m:   m,
		log: m.log.WithField("tx_id", id.String()),
	}
}

// State returns the current lifecycle state.
func (t *Transaction) State() TxState {
	return t.state
}

// Start opens a connection, begins a database transaction on it and binds it
// to the execution context. The returned context must be passed to every
// operation that should take part in the transaction.
//
// Start fails with ErrAlreadyInTransaction when ctx already carries an active
// transaction for the same source. Nested transactions are not supported.
// The binding is only visible through the returned context; ctx and its
// other descendants keep running outside the transaction.
func (t *Transaction) Start(ctx context.Context) (context.Context, error) {
	if t.state != TxNotStarted {
		return nil, ErrTxAlreadyStarted
	}
	if HasBinding(ctx, t.m.source) {
		return nil, ErrAlreadyInTransaction
	}

	conn, err := t.m.source.Conn(ctx)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	tx, err := conn.BeginTx(ctx, t.m.txOpts)
	if err != nil {
		_ = conn.Close()
		return nil, &StatementError{Op: "begin", Err: err}
	}

	bound := &boundConn{conn: conn, tx: tx}
	txCtx, err := bindExclusive(ctx, t.m.source, bound)
	if err != nil {
		_ = tx.Rollback()
		_ = conn.Close()
		return nil, err
	}

	t.conn = bound
	t.ctx = txCtx
	t.state = TxActive
	t.log.Debug("transaction started")

	return t.ctx, nil
}

// Commit makes the transaction's changes permanent.
// If the commit fails the transaction is rolled back.
func (t *Transaction) Commit() error {
	if t.state != TxActive {
		return ErrTxNotActive
	}

	err := t.conn.tx.Commit()
	if err != nil {
		t.state = TxRolledBack
		commitErr := &StatementError{Op: "commit", Err: err}
		t.log.WithError(err).Error("committing transaction")

		rbErr := t.conn.tx.Rollback()
		if rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return &RollbackError{Cause: commitErr, Err: rbErr}
		}
		return commitErr
	}

	t.state = TxCommitted
	t.log.Debug("transaction committed")
	return nil
}

// Rollback discards the transaction's changes.
// A failed rollback is reported as a *RollbackError.
func (t *Transaction) Rollback() error {
	return t.rollback(nil)
}

func (t *Transaction) rollback(cause error) error {
	if t.state != TxActive {
		return ErrTxNotActive
	}

	t.state = TxRolledBack
	err := t.conn.tx.Rollback()
	if err != nil {
		t.log.WithError(err).Error("rolling back transaction")
		return &RollbackError{Cause: cause, Err: err}
	}

	t.log.Debug("transaction rolled back")
	return nil
}

// Close unbinds the transaction from its execution context and closes the
// physical connection. A transaction that is still active is rolled back
// first. Close is safe to call more than once.
func (t *Transaction) Close() error {
	if t.closed || t.conn == nil {
		return nil
	}
	t.closed = true

	var rbErr error
	if t.state == TxActive {
		rbErr = t.Rollback()
	}

	if bound, ok := Lookup(t.ctx, t.m.source); ok && bound == Conn(t.conn) {
		Unbind(t.ctx, t.m.source)
	}

	err := t.conn.Close()
	if err != nil {
		t.log.WithError(err).Warn("closing transaction connection")
		return errors.Join(rbErr, &ConnectionError{Err: err})
	}
	return rbErr
}

// Run executes fn inside a new transaction.
//
// The context passed to fn is bound to the transaction; every Executor sharing
// the manager's source joins it when called with that context. The transaction
// commits if fn returns nil, and rolls back if fn returns an error or panics.
// A panic is re-raised once the transaction is cleaned up. The error returned
// by fn is returned unchanged unless the rollback itself fails, in which case
// a *RollbackError carrying both errors is returned.
//
// Example:
//
//	err := txm.Run(ctx, func(ctx context.Context) error {
//	    _, err := exec.Exec(ctx, "UPDATE users SET password = ? WHERE id = ?", pw, id)
//	    if err != nil {
//	        return err
//	    }
//	    _, err = exec.Exec(ctx, "INSERT INTO user_history (user_id, password) VALUES (?, ?)", id, pw)
//	    return err
//	})
func (m *TxManager) Run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	tx := m.Begin()
	txCtx, err := tx.Start(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				tx.log.WithError(rbErr).Error("rolling back after panic")
			}
			_ = tx.Close()
			panic(r)
		}
		if closeErr := tx.Close(); closeErr != nil {
			tx.log.WithError(closeErr).Warn("closing transaction")
		}
	}()

	err = fn(txCtx)
	if err != nil {
		if rbErr := tx.rollback(err); rbErr != nil {
			return rbErr
		}
		return err
	}

	return tx.Commit()
}

// RunTransaction is like TxManager.Run for units of work producing a value.
func RunTransaction[T any](ctx context.Context, m *TxManager, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := m.Run(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
