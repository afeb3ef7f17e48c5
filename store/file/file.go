// Package file implements the reference one-file-per-session layout of
// core.Store: each snapshot is written as <dir>/<session_id>.json, overwritten
// on collision. The layout is deliberately transparent so read-only consumers
// (visualizers, tooling) can pick up snapshots without going through the API.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/flowmesh/flowmesh/core"
	"github.com/flowmesh/flowmesh/logging"
)

const snapshotExt = ".json"

// Options holds configuration overrides passed to New().
type Options struct {
	// Logger receives store events. Defaults to NoOp.
	Logger logging.Logger
}

// Store persists snapshots as JSON files under a single directory.
// Writes go through a temp file plus rename so a crash mid-save never leaves
// a truncated snapshot under the session key.
type Store struct {
	dir    string
	logger logging.Logger
	mu     sync.Mutex
}

// New creates a file store rooted at dir. The directory is created lazily on
// first save.
func New(dir string, optFns ...func(o *Options)) *Store {
	opts := Options{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Store{dir: dir, logger: opts.Logger}
}

// Save implements core.Store.
func (s *Store) Save(ctx context.Context, snap *core.GraphSnapshot) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if err := validSessionID(snap.SessionID); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return false, fmt.Errorf("create snapshot directory %s: %w", s.dir, err)
	}

	path := s.path(snap.SessionID)
	_, statErr := os.Stat(path)
	replaced := statErr == nil

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return false, fmt.Errorf("encode snapshot %s: %w", snap.SessionID, err)
	}

	tmp, err := os.CreateTemp(s.dir, snap.SessionID+".*.tmp")
	if err != nil {
		return false, fmt.Errorf("create temp snapshot: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return false, fmt.Errorf("write snapshot %s: %w", snap.SessionID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return false, fmt.Errorf("close temp snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return false, fmt.Errorf("replace snapshot %s: %w", snap.SessionID, err)
	}

	s.logger.Debug("snapshot written", "session_id", snap.SessionID, "path", path, "replaced", replaced)

	return replaced, nil
}

// Load implements core.Store.
func (s *Store) Load(ctx context.Context, sessionID string) (*core.GraphSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := validSessionID(sessionID); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &core.NotFoundError{Kind: "session", Name: sessionID}
		}
		return nil, fmt.Errorf("read snapshot %s: %w", sessionID, err)
	}

	var snap core.GraphSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", sessionID, err)
	}

	return &snap, nil
}

// List returns the session IDs with a stored snapshot, in sorted order.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, snapshotExt))
	}

	return ids, nil
}

func (s *Store) path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+snapshotExt)
}

// validSessionID rejects IDs that would escape the snapshot directory.
func validSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("empty session id")
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("session id %q is not a valid snapshot key", id)
	}
	return nil
}
