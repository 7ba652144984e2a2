package auth

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/hyperengineering/keepsake/internal/types"
)

// Authenticate finds the user whose username and password both match
// exactly. Stored passwords that look like bcrypt hashes are verified with
// bcrypt; anything else is compared as plain text in constant time.
func Authenticate(users []types.User, username, password string) (Principal, error) {
	for _, u := range users {
		if u.Username != username {
			continue
		}
		if passwordMatches(u.Password, password) {
			return Principal{Username: u.Username, Role: u.Role}, nil
		}
	}
	return Principal{}, ErrInvalidCredentials
}

func passwordMatches(stored, given string) bool {
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

func isBcryptHash(s string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// HashPassword returns a bcrypt hash suitable for the password field of the
// user table.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
