package txscope

import (
	"context"
	"database/sql"
)

// Preparer prepares statements for later execution.
type Preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Tx represents a database transaction.
// It is compatible with the standard sql.Tx type.
type Tx interface {
	Preparer
	Commit() error
	Rollback() error
}

// Conn represents a single physical database connection.
type Conn interface {
	Preparer
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error)
	Close() error
}

// Source opens physical connections. A Source is also the key under which
// a transaction binds its connection, so implementations must be comparable.
type Source interface {
	Conn(ctx context.Context) (Conn, error)
}

// NewSource creates a Source backed by a standard *sql.DB.
// Two sources created over the same *sql.DB are equal and share bindings.
func NewSource(db *sql.DB) Source {
	return dbSource{db: db}
}

// dbSource is a wrapper around a sql.DB that implements the Source interface.
type dbSource struct {
	db *sql.DB
}

func (s dbSource) Conn(ctx context.Context) (Conn, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return &connAdapter{conn: conn}, nil
}

// connAdapter is a wrapper around a sql.Conn that implements the Conn interface.
type connAdapter struct {
	conn *sql.Conn
}

func (a *connAdapter) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return a.conn.PrepareContext(ctx, query)
}

func (a *connAdapter) BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error) {
	tx, err := a.conn.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (a *connAdapter) Close() error {
	return a.conn.Close()
}

// boundConn is the connection a transaction binds to its execution context.
// Statements prepared through it run inside the transaction.
type boundConn struct {
	conn Conn
	tx   Tx
}

func (b *boundConn) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return b.tx.PrepareContext(ctx, query)
}

func (b *boundConn) BeginTx(_ context.Context, _ *sql.TxOptions) (Tx, error) {
	return nil, ErrAlreadyInTransaction
}

func (b *boundConn) Close() error {
	return b.conn.Close()
}
