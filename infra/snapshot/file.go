// Package snapshot provides file-backed persistence for engine snapshots.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kurirhub/kurir/core/logger"
	core "github.com/kurirhub/kurir/core/snapshot"
)

// FileStore persists snapshots as a JSON document. Writes go through a
// temporary file in the same directory followed by a rename, so a crash
// mid-write never corrupts the previous snapshot.
type FileStore struct {
	path   string
	logger logger.Logger
}

// NewFileStore creates a FileStore writing to path. The parent directory is
// created if missing.
func NewFileStore(path string, log logger.Logger) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("snapshot: empty path")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: create directory: %w", err)
	}
	return &FileStore{path: path, logger: log}, nil
}

// Save writes the snapshot atomically.
func (f *FileStore) Save(s core.Snapshot) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("snapshot: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("snapshot: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("snapshot: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("snapshot: rename: %w", err)
	}
	f.logger.Debugf("snapshot saved to %s (%d bytes)", f.path, len(data))
	return nil
}

// Load reads the latest snapshot. A missing file yields ok=false without
// error; a corrupt file is an error.
func (f *FileStore) Load() (core.Snapshot, bool, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return core.Snapshot{}, false, nil
	}
	if err != nil {
		return core.Snapshot{}, false, fmt.Errorf("snapshot: read: %w", err)
	}
	var s core.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return core.Snapshot{}, false, fmt.Errorf("snapshot: decode %s: %w", f.path, err)
	}
	return s, true, nil
}
