package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hyperengineering/keepsake/internal/session"
	"github.com/hyperengineering/keepsake/internal/types"
)

// UserSource returns the current user table.
type UserSource func() []types.User

// Gate turns credentials into sessions and sessions back into principals.
type Gate struct {
	users    UserSource
	sessions session.Store
	ttl      time.Duration
	now      func() time.Time
}

// NewGate creates a gate issuing sessions that live for ttl.
func NewGate(users UserSource, sessions session.Store, ttl time.Duration) *Gate {
	return &Gate{
		users:    users,
		sessions: sessions,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Login clears priorToken's session, then checks the credentials. On success
// it returns a new session token; on failure the caller is left signed out.
func (g *Gate) Login(ctx context.Context, priorToken, username, password string) (string, Principal, error) {
	if err := g.sessions.Delete(ctx, priorToken); err != nil {
		return "", Principal{}, fmt.Errorf("clear prior session: %w", err)
	}

	p, err := Authenticate(g.users(), username, password)
	if err != nil {
		slog.Info("login rejected",
			"component", "auth",
			"action", "login",
			"username", username,
		)
		return "", Principal{}, err
	}

	now := g.now()
	token, err := g.sessions.Create(ctx, session.Session{
		Username:  p.Username,
		Role:      p.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(g.ttl),
	})
	if err != nil {
		return "", Principal{}, fmt.Errorf("create session: %w", err)
	}

	slog.Info("login",
		"component", "auth",
		"action", "login",
		"username", p.Username,
		"role", p.Role,
	)
	return token, p, nil
}

// Logout discards the session for token. It always leaves the caller signed
// out; an unknown token is not an error.
func (g *Gate) Logout(ctx context.Context, token string) error {
	if err := g.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Resolve returns the principal for token, or ErrUnauthenticated when the
// token is missing, unknown or expired.
func (g *Gate) Resolve(ctx context.Context, token string) (Principal, error) {
	s, err := g.sessions.Lookup(ctx, token)
	if errors.Is(err, session.ErrNotFound) {
		return Principal{}, ErrUnauthenticated
	}
	if err != nil {
		return Principal{}, fmt.Errorf("lookup session: %w", err)
	}
	return Principal{Username: s.Username, Role: s.Role}, nil
}
