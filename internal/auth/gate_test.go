package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hyperengineering/keepsake/internal/session"
	"github.com/hyperengineering/keepsake/internal/types"
)

// memSessions is an in-memory session.Store.
type memSessions struct {
	next     int
	sessions map[string]session.Session
	deleted  []string
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: make(map[string]session.Session)}
}

func (m *memSessions) Create(_ context.Context, s session.Session) (string, error) {
	m.next++
	token := fmt.Sprintf("tok-%d", m.next)
	m.sessions[token] = s
	return token, nil
}

func (m *memSessions) Lookup(_ context.Context, token string) (session.Session, error) {
	s, ok := m.sessions[token]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	return s, nil
}

func (m *memSessions) Delete(_ context.Context, token string) error {
	m.deleted = append(m.deleted, token)
	delete(m.sessions, token)
	return nil
}

func (m *memSessions) DeleteExpired(context.Context, time.Time) (int64, error) { return 0, nil }
func (m *memSessions) Close() error                                           { return nil }

func newTestGate() (*Gate, *memSessions) {
	sessions := newMemSessions()
	g := NewGate(func() []types.User { return testUsers }, sessions, time.Hour)
	return g, sessions
}

func TestGate_LoginPrimary(t *testing.T) {
	// Given: a gate over the default user table
	g, _ := newTestGate()
	ctx := context.Background()

	// When: the primary account signs in
	token, p, err := g.Login(ctx, "", "BUNBUN", "09132025")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	// Then: the session resolves to the primary role
	if p.Role != types.RolePrimary {
		t.Errorf("Role = %q, want %q", p.Role, types.RolePrimary)
	}
	got, err := g.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != p {
		t.Errorf("Resolve() = %+v, want %+v", got, p)
	}
}

func TestGate_LoginFailureLeavesAnonymous(t *testing.T) {
	// Given: a signed-in session
	g, sessions := newTestGate()
	ctx := context.Background()
	prior, _, err := g.Login(ctx, "", "BUNBUN", "09132025")
	if err != nil {
		t.Fatal(err)
	}

	// When: a failed login is attempted on the same session
	token, _, err := g.Login(ctx, prior, "nobody", "x")

	// Then: InvalidCredentials and the prior session is gone
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login() error = %v, want ErrInvalidCredentials", err)
	}
	if token != "" {
		t.Errorf("token = %q, want empty", token)
	}
	if _, err := g.Resolve(ctx, prior); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Resolve(prior) error = %v, want ErrUnauthenticated", err)
	}
	if len(sessions.sessions) != 0 {
		t.Errorf("sessions = %d, want 0", len(sessions.sessions))
	}
}

func TestGate_LoginReplacesPriorSession(t *testing.T) {
	g, sessions := newTestGate()
	ctx := context.Background()

	first, _, err := g.Login(ctx, "", "BUNBUN", "09132025")
	if err != nil {
		t.Fatal(err)
	}
	second, p, err := g.Login(ctx, first, "HONEYBEE", "09132025")
	if err != nil {
		t.Fatal(err)
	}

	if first == second {
		t.Error("login reused the prior token")
	}
	if p.Role != types.RoleSecondary {
		t.Errorf("Role = %q, want %q", p.Role, types.RoleSecondary)
	}
	if _, ok := sessions.sessions[first]; ok {
		t.Error("prior session still present")
	}
}

func TestGate_Logout(t *testing.T) {
	g, _ := newTestGate()
	ctx := context.Background()
	token, _, err := g.Login(ctx, "", "BUNBUN", "09132025")
	if err != nil {
		t.Fatal(err)
	}

	if err := g.Logout(ctx, token); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := g.Resolve(ctx, token); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Resolve() after logout error = %v, want ErrUnauthenticated", err)
	}

	// Logging out twice is still fine
	if err := g.Logout(ctx, token); err != nil {
		t.Errorf("second Logout() error = %v", err)
	}
}

func TestGate_ResolveUnknown(t *testing.T) {
	g, _ := newTestGate()

	for _, token := range []string{"", "forged"} {
		if _, err := g.Resolve(context.Background(), token); !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("Resolve(%q) error = %v, want ErrUnauthenticated", token, err)
		}
	}
}
