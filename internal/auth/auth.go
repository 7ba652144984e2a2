// Package auth decides who is signed in and what they may change.
package auth

import (
	"context"
	"errors"
)

var (
	// ErrInvalidCredentials indicates a username/password pair that matches
	// no user.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated indicates a request without a live session.
	ErrUnauthenticated = errors.New("not signed in")
	// ErrForbidden indicates a signed-in user whose role may not perform the
	// operation.
	ErrForbidden = errors.New("forbidden")
)

// Principal is the authenticated identity behind a request.
type Principal struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type principalKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored in ctx, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// RequireAuthenticated returns the principal in ctx or ErrUnauthenticated.
func RequireAuthenticated(ctx context.Context) (Principal, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return Principal{}, ErrUnauthenticated
	}
	return p, nil
}

// RequireRole returns ErrForbidden unless p holds one of roles.
func RequireRole(p Principal, roles []string) error {
	for _, r := range roles {
		if p.Role == r {
			return nil
		}
	}
	return ErrForbidden
}
