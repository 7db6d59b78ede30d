package auth

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/anshmangla/logger/internal/models"
)

// Verifier checks a username/password pair and resolves it to a display
// name. Implementations must not reveal whether the username or the
// password was the mismatch.
type Verifier interface {
	Verify(username, password string) (displayName string, ok bool)
}

// StaticVerifier verifies against a fixed in-memory table. The table is
// read-only after construction, so no locking is needed.
type StaticVerifier struct {
	users map[string]models.User
}

// NewStaticVerifier builds a verifier from a list of users.
func NewStaticVerifier(users []models.User) *StaticVerifier {
	m := make(map[string]models.User, len(users))
	for _, u := range users {
		m[u.Username] = u
	}
	return &StaticVerifier{users: m}
}

// DefaultVerifier returns the verifier over the built-in user table.
func DefaultVerifier() *StaticVerifier {
	return NewStaticVerifier([]models.User{
		{Username: "tanish", DisplayName: "Tanish Bajaj", Secret: "chakkatanish"},
		{Username: "naman", DisplayName: "Naman Kapoor", Secret: "chakkanaman"},
		{Username: "ansh", DisplayName: "Ansh Mangla", Secret: "chakkaansh"},
	})
}

// Verify resolves a credential pair to a display name. Secrets stored as
// bcrypt hashes (the "$2" prefix) are compared with bcrypt; anything else
// is treated as plaintext and compared in constant time.
func (v *StaticVerifier) Verify(username, password string) (string, bool) {
	u, exists := v.users[username]
	if !exists {
		// Burn a comparison anyway so unknown users cost the same.
		subtle.ConstantTimeCompare([]byte(password), []byte(password))
		return "", false
	}
	if strings.HasPrefix(u.Secret, "$2") {
		if bcrypt.CompareHashAndPassword([]byte(u.Secret), []byte(password)) != nil {
			return "", false
		}
		return u.DisplayName, true
	}
	if subtle.ConstantTimeCompare([]byte(u.Secret), []byte(password)) != 1 {
		return "", false
	}
	return u.DisplayName, true
}
