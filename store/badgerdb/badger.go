// Package badgerdb implements core.Store on BadgerDB, an embedded
// log-structured KV store. It is the durable backend of choice when snapshots
// must survive restarts without running an external server.
package badgerdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/flowmesh/flowmesh/core"
	"github.com/flowmesh/flowmesh/logging"
)

const keyPrefix = "session/"

// Options holds configuration overrides passed to Open().
type Options struct {
	// InMemory disables disk persistence. Useful for tests.
	InMemory bool
	// SyncWrites forces synchronous writes for durability.
	SyncWrites bool
	// Logger receives store and BadgerDB events. Defaults to NoOp; BadgerDB's
	// internal logging is disabled unless a logger is supplied.
	Logger logging.Logger
}

// Store persists snapshots in a BadgerDB database, one key per session ID.
type Store struct {
	db     *badger.DB
	logger logging.Logger
}

// Open creates or opens a BadgerDB-backed store at path. With InMemory set
// the path is ignored and data is lost on Close.
func Open(path string, optFns ...func(o *Options)) (*Store, error) {
	opts := Options{SyncWrites: true, Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	var dbOpts badger.Options
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if path == "" {
			return nil, errors.New("path is required for a persistent store")
		}
		dbOpts = badger.DefaultOptions(path)
	}
	dbOpts = dbOpts.WithSyncWrites(opts.SyncWrites)

	if _, isNoOp := opts.Logger.(logging.NoOpLogger); isNoOp {
		dbOpts = dbOpts.WithLogger(nil)
	} else {
		dbOpts = dbOpts.WithLogger(&badgerLogger{logger: opts.Logger})
	}

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}

	return &Store{db: db, logger: opts.Logger}, nil
}

// Close releases the underlying database. The store is unusable afterwards.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save implements core.Store. The existence probe and the write share one
// transaction, so the replaced flag is exact even under concurrent savers.
func (s *Store) Save(ctx context.Context, snap *core.GraphSnapshot) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return false, fmt.Errorf("encode snapshot %s: %w", snap.SessionID, err)
	}

	key := []byte(keyPrefix + snap.SessionID)

	var replaced bool
	err = s.db.Update(func(txn *badger.Txn) error {
		_, getErr := txn.Get(key)
		switch {
		case getErr == nil:
			replaced = true
		case !errors.Is(getErr, badger.ErrKeyNotFound):
			return getErr
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return false, fmt.Errorf("write snapshot %s: %w", snap.SessionID, err)
	}

	s.logger.Debug("snapshot written", "session_id", snap.SessionID, "replaced", replaced)

	return replaced, nil
}

// Load implements core.Store.
func (s *Store) Load(ctx context.Context, sessionID string) (*core.GraphSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + sessionID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
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

// List returns the session IDs with a stored snapshot, in key order.
func (s *Store) List() ([]string, error) {
	var ids []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(keyPrefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	return ids, nil
}

// badgerLogger adapts logging.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger logging.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
