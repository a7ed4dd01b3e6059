package txscope

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sirupsen/logrus"
)

// Executor runs parameterized statements against a Source.
//
// Statements issued with a context bound by a running transaction use the
// transaction's connection and leave it open. Otherwise each call opens its
// own connection and closes it before returning, whatever the outcome.
type Executor struct {
	broker  *Broker
	dialect SQLDialect
	log     logrus.FieldLogger
}

// ExecutorOption is a function that configures an Executor instance.
type ExecutorOption func(*Executor)

// WithDialect sets the dialect used to rewrite ? placeholders.
// By default statements are sent unchanged.
func WithDialect(dialect SQLDialect) ExecutorOption {
	return func(e *Executor) {
		e.dialect = dialect
	}
}

// WithLogger sets the logger used for statement logging.
// By default nothing is logged.
func WithLogger(log logrus.FieldLogger) ExecutorOption {
	return func(e *Executor) {
		e.log = log
	}
}

// NewExecutor creates a new Executor for the given source.
func NewExecutor(source Source, opts ...ExecutorOption) *Executor {
	e := &Executor{
		log: discardLogger(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.broker = NewBroker(source, e.log)
	return e
}

// Broker returns the connection broker used by the executor.
func (e *Executor) Broker() *Broker {
	return e.broker
}

// Exec runs a statement that does not return rows and reports the number of
// affected rows. args are bound to the ? placeholders in order.
func (e *Executor) Exec(ctx context.Context, query string, args ...any) (affected int64, err error) {
	err = e.withStatement(ctx, query, func(stmt *sql.Stmt) error {
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return &StatementError{Op: "exec", Query: query, Err: err}
		}
		affected, err = res.RowsAffected()
		if err != nil {
			return &StatementError{Op: "exec", Query: query, Err: err}
		}
		return nil
	})
	return affected, err
}

// errStopRows lets a row callback end iteration early without an error.
var errStopRows = errors.New("stop rows")

// QueryRows runs a query and calls fn for each row in cursor order.
// An error returned by fn stops iteration and is returned wrapped in a
// *MappingError.
func (e *Executor) QueryRows(ctx context.Context, query string, fn func(row Row) error, args ...any) error {
	return e.withStatement(ctx, query, func(stmt *sql.Stmt) error {
		rows, err := stmt.QueryContext(ctx, args...)
		if err != nil {
			return &StatementError{Op: "query", Query: query, Err: err}
		}
		defer rows.Close()

		n := 0
		for rows.Next() {
			err = fn(rows)
			if errors.Is(err, errStopRows) {
				return nil
			}
			if err != nil {
				return &MappingError{Row: n, Err: err}
			}
			n++
		}

		if err = rows.Err(); err != nil {
			return &StatementError{Op: "fetch", Query: query, Err: err}
		}
		return nil
	})
}

// withStatement acquires a connection, prepares query and hands the statement
// to fn. The statement is closed and the connection released on every path.
func (e *Executor) withStatement(ctx context.Context, query string, fn func(stmt *sql.Stmt) error) (err error) {
	query = e.dialect.Rebind(query)
	log := e.log.WithField("query", query)
	log.Debug("executing statement")

	conn, err := e.broker.Acquire(ctx)
	if err != nil {
		log.WithError(err).Error("acquiring connection")
		return err
	}
	defer func() {
		releaseErr := e.broker.Release(ctx, conn)
		if err == nil {
			err = releaseErr
		}
	}()

	stmt, err := conn.PrepareContext(ctx, query)
	if err != nil {
		err = &StatementError{Op: "prepare", Query: query, Err: err}
		log.WithError(err).Error("preparing statement")
		return err
	}
	defer stmt.Close()

	err = fn(stmt)
	if err != nil {
		log.WithError(err).Error("statement failed")
	}
	return err
}
