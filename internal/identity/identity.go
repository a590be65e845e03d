// Package identity resolves the signed-in user for a request.
//
// Accounts live in the hosted auth service, which issues HS256 bearer tokens.
// Verifier checks those tokens, Middleware stores the resulting User in the
// request context, and ContextProvider reads it back for the checkout flow.
package identity

import (
	"context"
)

// User is the authenticated account as seen by the storefront.
type User struct {
	ID    string
	Email string
}

// Provider answers "who is the current user". A nil User with a nil error
// means the caller is a guest.
type Provider interface {
	CurrentUser(ctx context.Context) (*User, error)
}

type userKey struct{}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// FromContext returns the user stored in ctx, if any.
func FromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userKey{}).(User)
	return u, ok
}

// ContextProvider implements Provider on top of the request context populated
// by Middleware.
type ContextProvider struct{}

var _ Provider = ContextProvider{}

// CurrentUser returns the user from ctx, or nil for guests.
func (ContextProvider) CurrentUser(ctx context.Context) (*User, error) {
	u, ok := FromContext(ctx)
	if !ok {
		return nil, nil
	}
	return &u, nil
}
