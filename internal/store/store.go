package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Abdussalam-popsy/savvy-dca/internal/model"
)

// ErrCorruptState marks a state file that exists but cannot be decoded. The
// engine treats it as absent and rebuilds a fresh state instead of failing.
var ErrCorruptState = errors.New("corrupt state file")

// Store persists the complete session state as a single record. Portfolio,
// strategy and ledger are written together so a crash can never leave them
// out of sync.
type Store interface {
	// Load returns the persisted state, or (nil, nil) when none exists yet.
	Load() (*model.State, error)
	Save(state *model.State) error
}

// FileStore keeps the state in a single JSON file, written atomically via a
// temp file and rename.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore, ensuring the parent directory exists.
func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

func (f *FileStore) Load() (*model.State, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	var state model.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return &state, nil
}

func (f *FileStore) Save(state *model.State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}
