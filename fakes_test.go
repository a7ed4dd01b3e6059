package txscope

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

var errNotSupported = errors.New("not supported by fake")

type fakeSource struct {
	connErr  error
	beginErr error
	tx       *fakeTx

	mu     sync.Mutex
	opened []*fakeConn
}

func (f *fakeSource) Conn(_ context.Context) (Conn, error) {
	if f.connErr != nil {
		return nil, f.connErr
	}
	c := &fakeConn{beginErr: f.beginErr, tx: f.tx}
	f.mu.Lock()
	f.opened = append(f.opened, c)
	f.mu.Unlock()
	return c, nil
}

type fakeConn struct {
	beginErr error
	closeErr error
	tx       *fakeTx

	begun  bool
	closed int
}

func (f *fakeConn) PrepareContext(_ context.Context, _ string) (*sql.Stmt, error) {
	return nil, errNotSupported
}

func (f *fakeConn) BeginTx(_ context.Context, _ *sql.TxOptions) (Tx, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	f.begun = true
	if f.tx == nil {
		f.tx = &fakeTx{}
	}
	return f.tx, nil
}

func (f *fakeConn) Close() error {
	f.closed++
	return f.closeErr
}

type fakeTx struct {
	commitErr   error
	rollbackErr error

	committed  bool
	rolledBack bool
}

func (f *fakeTx) PrepareContext(_ context.Context, _ string) (*sql.Stmt, error) {
	return nil, errNotSupported
}

func (f *fakeTx) Commit() error {
	f.committed = true
	return f.commitErr
}

func (f *fakeTx) Rollback() error {
	f.rolledBack = true
	return f.rollbackErr
}

// bindingCount returns the number of bindings held by the scope of ctx.
func bindingCount(ctx context.Context) int {
	s := scopeFrom(ctx)
	if s == nil {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resources == nil {
		return 0
	}
	return len(s.resources)
}
