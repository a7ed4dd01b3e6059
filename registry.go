package txscope

import (
	"context"
	"sync"
)

// ResourceKey identifies a connection source inside an execution context.
// Keys must be comparable.
type ResourceKey any

type scopeKey struct{}

// scope is the binding storage of one execution context.
type scope struct {
	mu        sync.Mutex
	resources map[ResourceKey]Conn
}

// WithScope returns a context carrying a fresh, empty execution scope.
//
// Bindings made in the parent context are not visible through the returned
// context. Work handed to another goroutine should be given a context derived
// with WithScope so it never shares the caller's transaction.
func WithScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, scopeKey{}, &scope{})
}

func scopeFrom(ctx context.Context) *scope {
	s, _ := ctx.Value(scopeKey{}).(*scope)
	return s
}

// Bind returns a context derived from ctx whose execution scope holds the
// bindings visible through ctx plus conn under key. An existing binding for
// key is replaced in the derived scope. The scope carried by ctx is never
// modified, so only the returned context and contexts derived from it see conn.
func Bind(ctx context.Context, key ResourceKey, conn Conn) context.Context {
	ctx, _ = bind(ctx, key, conn, false)
	return ctx
}

// bindExclusive is like Bind but fails with ErrAlreadyInTransaction when ctx
// already has a binding for key. The check and the copy happen under the
// parent scope's lock.
func bindExclusive(ctx context.Context, key ResourceKey, conn Conn) (context.Context, error) {
	return bind(ctx, key, conn, true)
}

func bind(ctx context.Context, key ResourceKey, conn Conn, exclusive bool) (context.Context, error) {
	child := &scope{resources: make(map[ResourceKey]Conn, 1)}

	if parent := scopeFrom(ctx); parent != nil {
		parent.mu.Lock()
		if _, ok := parent.resources[key]; ok && exclusive {
			parent.mu.Unlock()
			return ctx, ErrAlreadyInTransaction
		}
		for k, c := range parent.resources {
			child.resources[k] = c
		}
		parent.mu.Unlock()
	}
	child.resources[key] = conn

	return context.WithValue(ctx, scopeKey{}, child), nil
}

// Lookup returns the connection bound under key, if any.
func Lookup(ctx context.Context, key ResourceKey) (Conn, bool) {
	s := scopeFrom(ctx)
	if s == nil {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.resources[key]
	return conn, ok
}

// Unbind removes and returns the connection bound under key.
// Once the last binding is removed the scope storage is released.
func Unbind(ctx context.Context, key ResourceKey) (Conn, bool) {
	s := scopeFrom(ctx)
	if s == nil {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.resources[key]
	if !ok {
		return nil, false
	}
	delete(s.resources, key)
	if len(s.resources) == 0 {
		s.resources = nil
	}

	return conn, true
}

// HasBinding reports whether a connection is bound under key.
func HasBinding(ctx context.Context, key ResourceKey) bool {
	_, ok := Lookup(ctx, key)
	return ok
}
