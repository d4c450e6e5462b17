package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// snapshotDirPerms is the permission for snapshot directories.
	snapshotDirPerms = 0o700
	// snapshotFilePerms is the permission for snapshot files.
	snapshotFilePerms = 0o600
)

// Snapshots persists JSON snapshots to a directory. The ingestion pipeline
// writes partial progress here at a fixed page interval so a crashed run
// does not lose everything; snapshots are a recovery aid, not a source of
// truth.
type Snapshots struct {
	dir     string
	enabled bool
}

// NewSnapshots creates a snapshot store rooted at dir. An empty dir
// disables persistence entirely: Save becomes a no-op and Load always
// misses.
func NewSnapshots(dir string) (*Snapshots, error) {
	s := &Snapshots{dir: dir, enabled: dir != ""}
	if !s.enabled {
		return s, nil
	}

	clean := filepath.Clean(dir)
	if !filepath.IsAbs(clean) {
		return nil, errors.New("snapshot directory must be an absolute path")
	}
	if err := os.MkdirAll(clean, snapshotDirPerms); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}
	s.dir = clean
	return s, nil
}

// Save atomically writes v as JSON under name. Failures are logged, not
// returned: a failed checkpoint must never abort an otherwise healthy run.
func (s *Snapshots) Save(name string, v any) {
	if !s.enabled {
		return
	}

	path := filepath.Join(s.dir, name+".json")
	tmpPath := path + ".tmp"

	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, snapshotFilePerms)
	if err != nil {
		slog.Warn("Failed to create snapshot file", "name", name, "error", err)
		return
	}

	if err := json.NewEncoder(file).Encode(v); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		slog.Warn("Failed to encode snapshot", "name", name, "error", err)
		return
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		slog.Warn("Failed to close snapshot file", "name", name, "error", err)
		return
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		slog.Warn("Failed to finalize snapshot file", "name", name, "error", err)
		return
	}

	slog.Debug("Snapshot written", "name", name, "path", path)
}

// Load reads the snapshot stored under name into v. It reports false when
// the snapshot is absent or unreadable.
func (s *Snapshots) Load(name string, v any) bool {
	if !s.enabled {
		return false
	}

	path := filepath.Join(s.dir, name+".json")
	file, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Debug("Failed to open snapshot file", "path", path, "error", err)
		}
		return false
	}
	defer func() {
		if err := file.Close(); err != nil {
			slog.Debug("Failed to close snapshot file", "path", path, "error", err)
		}
	}()

	if err := json.NewDecoder(file).Decode(v); err != nil {
		slog.Warn("Failed to decode snapshot file", "path", path, "error", err)
		return false
	}
	return true
}

// Remove deletes the snapshot stored under name, if any.
func (s *Snapshots) Remove(name string) {
	if !s.enabled {
		return
	}
	path := filepath.Join(s.dir, name+".json")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Debug("Failed to remove snapshot file", "path", path, "error", err)
	}
}
