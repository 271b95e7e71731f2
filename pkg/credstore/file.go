package credstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/devsoft-reco/portal-hija/pkg/auth"
)

// FileStore persists credentials as a single JSON file under a state
// directory. It is the default backend for single-node deployments.
type FileStore struct {
	path string
}

// fileState is the on-disk shape of the credential file.
type fileState struct {
	AccessToken string          `json:"access_token"`
	UserData    json.RawMessage `json:"user_data,omitempty"`
}

// NewFileStore creates a file-backed credential store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create credential dir: %w", err)
	}
	return &FileStore{path: filepath.Join(dir, "credentials.json")}, nil
}

// Save persists the token and optional snapshot atomically.
func (s *FileStore) Save(_ context.Context, token string, snapshot *auth.Profile) error {
	state := fileState{AccessToken: token}

	if snapshot != nil {
		data, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("failed to marshal profile snapshot: %w", err)
		}
		state.UserData = data
	} else if existing, err := os.ReadFile(s.path); err == nil {
		// Keep an existing snapshot when only the token is updated.
		var prev fileState
		if json.Unmarshal(existing, &prev) == nil {
			state.UserData = prev.UserData
		}
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal credential state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Load reads the persisted token and snapshot. Corruption of the
// snapshot (or the whole file) degrades to absent values.
func (s *FileStore) Load(_ context.Context) (string, *auth.Profile, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return "", nil, nil
	}

	var snapshot *auth.Profile
	if len(state.UserData) > 0 {
		var p auth.Profile
		if err := json.Unmarshal(state.UserData, &p); err == nil {
			snapshot = &p
		}
	}

	return state.AccessToken, snapshot, nil
}

// Clear removes the credential file.
func (s *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}
	return nil
}
