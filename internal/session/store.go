// Package session provides the credential supplier the API client reads its
// bearer token from. Suppliers are injected explicitly; nothing in stockdesk
// reads tokens from ambient global state.
package session

import (
	"context"
	"errors"
	"os"
	"sync"
)

// EnvToken is the environment variable read by EnvSupplier.
const EnvToken = "STOCKDESK_TOKEN"

// Common session errors.
var (
	ErrReadOnly = errors.New("credential supplier is read-only")
)

// CredentialSupplier stores the opaque bearer token for the current profile.
// Get returns "" with a nil error when no token is stored.
type CredentialSupplier interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the token in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore returns a store seeded with token.
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

// Get implements CredentialSupplier.
func (s *MemoryStore) Get(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

// Set implements CredentialSupplier.
func (s *MemoryStore) Set(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

// Clear implements CredentialSupplier.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

// EnvSupplier serves the token from STOCKDESK_TOKEN and falls through to
// Next when the variable is unset. Writes always go to Next.
type EnvSupplier struct {
	Next   CredentialSupplier
	lookup func(string) (string, bool)
}

// NewEnvSupplier wraps next with an environment override.
func NewEnvSupplier(next CredentialSupplier) *EnvSupplier {
	return &EnvSupplier{Next: next, lookup: os.LookupEnv}
}

// Get implements CredentialSupplier.
func (s *EnvSupplier) Get(ctx context.Context) (string, error) {
	if v, ok := s.lookup(EnvToken); ok && v != "" {
		return v, nil
	}
	if s.Next == nil {
		return "", nil
	}
	return s.Next.Get(ctx)
}

// Set implements CredentialSupplier.
func (s *EnvSupplier) Set(ctx context.Context, token string) error {
	if s.Next == nil {
		return ErrReadOnly
	}
	return s.Next.Set(ctx, token)
}

// Clear implements CredentialSupplier.
func (s *EnvSupplier) Clear(ctx context.Context) error {
	if s.Next == nil {
		return ErrReadOnly
	}
	return s.Next.Clear(ctx)
}
