package auth

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/google/uuid"
)

// SessionStore maps opaque session tokens to display names. Sessions have
// no TTL and no persistence: they live until logout or process restart.
type SessionStore interface {
	Put(token, displayName string)
	Get(token string) (displayName string, ok bool)
	Delete(token string)
}

// MemoryStore is the in-process SessionStore. Handlers run on concurrent
// goroutines, so the map is guarded by an RWMutex.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]string)}
}

func (s *MemoryStore) Put(token, displayName string) {
	s.mu.Lock()
	s.sessions[token] = displayName
	s.mu.Unlock()
}

func (s *MemoryStore) Get(token string) (string, bool) {
	s.mu.RLock()
	name, ok := s.sessions[token]
	s.mu.RUnlock()
	return name, ok
}

func (s *MemoryStore) Delete(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// Len reports the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	n := len(s.sessions)
	s.mu.RUnlock()
	return n
}

// NewToken mints an unguessable session token: 16 random bytes, hex
// encoded. If the system RNG is unavailable a UUID is used instead.
func NewToken() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(b)
}
