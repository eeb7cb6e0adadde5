// Package badger provides a RecordStore backed by an embedded BadgerDB.
//
// Records are stored as JSON-encoded field sets under "record/<id>". BadgerDB's in-memory mode
// makes the store usable in tests without touching disk.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/tendant/simple-post/pkg/simplepost"
)

const keyPrefix = "record/"

// Config holds configuration for a BadgerDB-backed store.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal log output. If nil, BadgerDB logging is disabled.
	Logger *slog.Logger
}

// InMemoryConfig returns configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

var _ simplepost.RecordStore = (*Store)(nil)

// Store implements simplepost.RecordStore using BadgerDB
type Store struct {
	db *badger.DB
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open opens a BadgerDB database and wraps it as a record store. Callers must Close it.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return New(db), nil
}

// New wraps an open database
func New(db *badger.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// IsSite reports whether a site marker record exists for ref
func (s *Store) IsSite(ctx context.Context, ref string) (bool, error) {
	return s.hasType(ref, simplepost.RecordTypeSite)
}

// IsCollection reports whether a collection marker record exists for ref
func (s *Store) IsCollection(ctx context.Context, ref string) (bool, error) {
	return s.hasType(ref, simplepost.RecordTypeCollection)
}

func (s *Store) hasType(ref, recordType string) (bool, error) {
	if ref == "" {
		return false, nil
	}
	fields, err := s.get(ref)
	if errors.Is(err, simplepost.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return fields.RecordType() == recordType, nil
}

// LoadByID loads the field set stored for id
func (s *Store) LoadByID(ctx context.Context, id uuid.UUID) (simplepost.FieldSet, error) {
	return s.get(id.String())
}

func (s *Store) get(key string) (simplepost.FieldSet, error) {
	var fields simplepost.FieldSet
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return simplepost.ErrRecordNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &fields)
		})
	})
	if errors.Is(err, simplepost.ErrRecordNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load record %s: %w", key, err)
	}
	return fields, nil
}

// Save upserts the field set under its id
func (s *Store) Save(ctx context.Context, fields simplepost.FieldSet) error {
	key, err := fields.Key()
	if err != nil {
		return err
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", key, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+key), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save record %s: %w", key, err)
	}
	return nil
}
