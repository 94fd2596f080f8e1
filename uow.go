package eventflow

import "context"

// Scope is one transactional unit of work. All persistence performed through
// a scope commits or rolls back together. A scope is finished by exactly one
// Commit or Rollback call; both are no-ops afterwards.
//
// The scope is an explicit value: handlers obtain it with ScopeFromContext
// and pass it into every persistence call they make, rather than relying on
// an ambient global transaction.
type Scope interface {
	Commit() error
	Rollback() error
}

// UnitOfWork supplies transactional scopes for handler dispatch. The
// dispatcher opens one scope per handler invocation and commits it on
// success or rolls it back when the handler fails.
type UnitOfWork interface {
	Begin(ctx context.Context) (Scope, error)
}

// NopUnitOfWork is a UnitOfWork for backends without transactions, such as
// the in-memory store. Commit and Rollback do nothing.
type NopUnitOfWork struct{}

// Begin implements the UnitOfWork interface.
func (NopUnitOfWork) Begin(ctx context.Context) (Scope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nopScope{}, nil
}

type nopScope struct{}

func (nopScope) Commit() error   { return nil }
func (nopScope) Rollback() error { return nil }
