package store

import (
	"context"
	"sync"
)

type scopeKey struct{}

// Scope collects hooks registered while a transaction is open.
type Scope struct {
	mu    sync.Mutex
	hooks []func()
}

// BeginScope attaches a fresh scope to ctx. Transactors call it when opening the outermost
// transaction.
func BeginScope(ctx context.Context) (context.Context, *Scope) {
	scope := &Scope{}
	return context.WithValue(ctx, scopeKey{}, scope), scope
}

// JoinScope returns ctx with an open scope, beginning one when ctx has none. finish commits the
// hooks on a nil error and discards them otherwise, but only for the call that began the scope;
// joined callers leave delivery to the owner.
func JoinScope(ctx context.Context) (context.Context, func(err error)) {
	if InScope(ctx) {
		return ctx, func(error) {}
	}
	ctx, scope := BeginScope(ctx)
	return ctx, func(err error) {
		if err != nil {
			scope.Discard()
			return
		}
		scope.Commit()
	}
}

// InScope reports whether ctx carries an open transaction scope.
func InScope(ctx context.Context) bool {
	_, ok := ctx.Value(scopeKey{}).(*Scope)
	return ok
}

// AfterCommit runs fn once the transaction carried by ctx commits, or immediately when ctx has
// no transaction. Hooks of a rolled back transaction never run.
func AfterCommit(ctx context.Context, fn func()) {
	scope, ok := ctx.Value(scopeKey{}).(*Scope)
	if !ok {
		fn()
		return
	}
	scope.mu.Lock()
	scope.hooks = append(scope.hooks, fn)
	scope.mu.Unlock()
}

// Commit runs the registered hooks in registration order. Call it only after the transaction
// has been committed.
func (s *Scope) Commit() {
	s.mu.Lock()
	hooks := s.hooks
	s.hooks = nil
	s.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// Discard drops every hook.
func (s *Scope) Discard() {
	s.mu.Lock()
	s.hooks = nil
	s.mu.Unlock()
}
