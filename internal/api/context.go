package api

import (
	"context"

	"github.com/hyperengineering/keepsake/internal/auth"
)

// tokenContextKey is the context key for the raw session token.
type tokenContextKey struct{}

// WithSessionToken returns a new context with the request's session token
// attached.
func WithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// SessionTokenFromContext extracts the session token from the context.
// Returns "" if not present.
func SessionTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey{}).(string)
	return token
}

// MustPrincipal extracts the signed-in principal or panics.
// Use only behind RequireAuth.
func MustPrincipal(ctx context.Context) auth.Principal {
	p, err := auth.RequireAuthenticated(ctx)
	if err != nil {
		panic("principal not in context: middleware misconfiguration")
	}
	return p
}
