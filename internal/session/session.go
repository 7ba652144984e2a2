// Package session persists signed-in sessions keyed by an opaque token.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound indicates an unknown or expired session token.
var ErrNotFound = errors.New("session not found")

// Session is the authenticated state behind a token.
type Session struct {
	Username  string
	Role      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store persists sessions. Tokens are never stored in the clear.
type Store interface {
	// Create stores s and returns the token that refers to it.
	Create(ctx context.Context, s Session) (string, error)
	// Lookup returns the live session for token, or ErrNotFound.
	Lookup(ctx context.Context, token string) (Session, error)
	// Delete removes the session for token. Unknown tokens are not an error.
	Delete(ctx context.Context, token string) error
	// DeleteExpired removes sessions that expired at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Close() error
}

// NewToken returns a random 256-bit token, hex encoded.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashToken returns the storage key for a token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
