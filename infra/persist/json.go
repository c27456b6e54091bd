package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kilianp07/smartcharge/core/state"
)

// JSONStore persists state.Data as a JSON document.
type JSONStore struct {
	path string
}

// NewJSONStore returns a store writing to path. The directory is created on
// first save.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns the file backing the store.
func (s *JSONStore) Path() string { return s.path }

// Load implements state.Store. Keys missing from the file keep their value
// from def.
func (s *JSONStore) Load(_ context.Context, def state.Data) (state.Data, bool, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return def, false, nil
	}
	if err != nil {
		return def, false, err
	}
	d := def
	if err := json.Unmarshal(b, &d); err != nil {
		return def, false, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return d, true, nil
}

// Save implements state.Store. The file is replaced atomically.
func (s *JSONStore) Save(_ context.Context, d state.Data) error {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Remove implements state.Store. A missing file is not an error.
func (s *JSONStore) Remove(context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Close is a no-op.
func (s *JSONStore) Close() error { return nil }
