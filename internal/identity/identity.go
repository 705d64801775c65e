// Package identity resolves the authenticated caller of a ledger operation.
//
// Operations receive a Resolver from their caller instead of reading a
// global session, so handlers, tests and tools can each decide where the
// identity comes from.
package identity

import (
	"context"
	"strings"

	"spendwise/internal/core"
)

// Identity is the external, authenticated principal. Subject is the stable
// id issued by the session provider and maps to exactly one user record.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

// Resolver yields the current identity or core.ErrUnauthorized.
type Resolver interface {
	Resolve(ctx context.Context) (Identity, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context) (Identity, error)

func (f ResolverFunc) Resolve(ctx context.Context) (Identity, error) { return f(ctx) }

// Static always resolves to the same identity.
type Static Identity

func (s Static) Resolve(context.Context) (Identity, error) {
	if strings.TrimSpace(s.Subject) == "" {
		return Identity{}, core.ErrUnauthorized
	}
	return Identity(s), nil
}

// Anonymous never resolves.
var Anonymous Resolver = ResolverFunc(func(context.Context) (Identity, error) {
	return Identity{}, core.ErrUnauthorized
})

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.Subject != ""
}

// Context resolves the identity the HTTP middleware attached to the
// request context.
var Context Resolver = ResolverFunc(func(ctx context.Context) (Identity, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return Identity{}, core.ErrUnauthorized
	}
	return id, nil
})
