package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const tokenFileExtension = ".json"

// Common file store errors.
var (
	ErrInvalidProfile = errors.New("session profile cannot be empty")
)

// FileStore persists one token per profile as a JSON file under directory.
// Expired tokens read as absent and are removed. Thread-safe.
type FileStore struct {
	directory string
	profile   string

	mu sync.RWMutex
}

// NewFileStore creates the directory if needed and returns a store for
// profile.
func NewFileStore(directory, profile string) (*FileStore, error) {
	if directory == "" {
		return nil, errors.New("session directory cannot be empty")
	}
	if profile == "" {
		return nil, ErrInvalidProfile
	}
	if err := os.MkdirAll(directory, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &FileStore{directory: directory, profile: profile}, nil
}

// Get implements CredentialSupplier.
func (s *FileStore) Get(_ context.Context) (string, error) {
	entry, err := s.Entry()
	if err != nil || entry == nil {
		return "", err
	}
	return entry.Token, nil
}

// Entry returns the stored entry, or nil when none is stored or it expired.
func (s *FileStore) Entry() (*TokenEntry, error) {
	s.mu.RLock()
	path := s.filePath()
	data, err := os.ReadFile(path)
	s.mu.RUnlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var entry TokenEntry
	if unmarshalErr := json.Unmarshal(data, &entry); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal session entry: %w", unmarshalErr)
	}

	if entry.IsExpired() {
		s.mu.Lock()
		_ = os.Remove(path)
		s.mu.Unlock()
		return nil, nil
	}
	return &entry, nil
}

// Set implements CredentialSupplier.
func (s *FileStore) Set(_ context.Context, token string) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}

	entryData, err := json.MarshalIndent(NewTokenEntry(s.profile, token), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.filePath()
	tempPath := path + ".tmp"
	if writeErr := os.WriteFile(tempPath, entryData, 0600); writeErr != nil {
		return fmt.Errorf("failed to write session file: %w", writeErr)
	}
	if renameErr := os.Rename(tempPath, path); renameErr != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename session file: %w", renameErr)
	}
	return nil
}

// Clear implements CredentialSupplier. Clearing an absent token is not an
// error.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.filePath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// Profile returns the profile the store reads and writes.
func (s *FileStore) Profile() string {
	return s.profile
}

func (s *FileStore) filePath() string {
	return filepath.Join(s.directory, ProfileKey(s.profile)+tokenFileExtension)
}

// ProfileKey turns a profile name (usually the API base URL) into a
// filesystem-safe key.
func ProfileKey(profile string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "?", "_", "*", "_")
	return strings.Trim(r.Replace(profile), "_")
}
