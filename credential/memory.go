package credential

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu    sync.Mutex
	cred  Credential
	guard bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store holding initial.
func NewMemoryStore(initial Credential) *MemoryStore {
	if initial.ExpiresAt.IsZero() {
		initial.ExpiresAt = TokenExpiry(initial.AccessToken)
	}
	return &MemoryStore{cred: initial}
}

func (s *MemoryStore) Load(_ context.Context) (Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred, nil
}

func (s *MemoryStore) Save(_ context.Context, c Credential) error {
	if c.ExpiresAt.IsZero() {
		c.ExpiresAt = TokenExpiry(c.AccessToken)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = c
	return nil
}

func (s *MemoryStore) SetAccessToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred.AccessToken = token
	s.cred.ExpiresAt = TokenExpiry(token)
	s.cred.Expired = false
	return nil
}

func (s *MemoryStore) ClearAccessToken(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred.AccessToken = ""
	s.cred.ExpiresAt = time.Time{}
	return nil
}

func (s *MemoryStore) SetExpired(_ context.Context, expired bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred.Expired = expired
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = Credential{}
	return nil
}

func (s *MemoryStore) AcquireReauthGuard(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.guard {
		return false, nil
	}
	s.guard = true
	return true, nil
}

func (s *MemoryStore) ResetReauthGuard(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guard = false
	return nil
}
