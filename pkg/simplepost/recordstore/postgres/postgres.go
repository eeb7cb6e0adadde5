package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-post/pkg/simplepost"
)

// Schema creates the shared records table. Posts, sites and collections live side by side,
// told apart by record_type.
const Schema = `
CREATE TABLE IF NOT EXISTS records (
	id          TEXT PRIMARY KEY,
	record_type TEXT NOT NULL,
	fields      JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS records_record_type_idx ON records (record_type);
`

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

var _ simplepost.RecordStore = (*Store)(nil)

// Store implements simplepost.RecordStore using PostgreSQL
type Store struct {
	db DBTX
}

// New creates a new PostgreSQL record store
func New(db DBTX) *Store {
	return &Store{db: db}
}

// NewWithPool creates a new PostgreSQL record store with connection pool
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

// Migrate creates the records table if it does not exist
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return handlePostgresError("migrate", err)
	}
	return nil
}

// Error handling helper
func handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "22P02": // invalid_text_representation
			return fmt.Errorf("invalid record encoding: %s", pgErr.Message)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return simplepost.ErrRecordNotFound
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// IsSite reports whether a site marker record exists for ref
func (s *Store) IsSite(ctx context.Context, ref string) (bool, error) {
	return s.hasType(ctx, ref, simplepost.RecordTypeSite)
}

// IsCollection reports whether a collection marker record exists for ref
func (s *Store) IsCollection(ctx context.Context, ref string) (bool, error) {
	return s.hasType(ctx, ref, simplepost.RecordTypeCollection)
}

func (s *Store) hasType(ctx context.Context, ref, recordType string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM records WHERE id = $1 AND record_type = $2)`

	var exists bool
	if err := s.db.QueryRow(ctx, query, ref, recordType).Scan(&exists); err != nil {
		return false, handlePostgresError("check "+recordType, err)
	}
	return exists, nil
}

// LoadByID loads the field set stored for id
func (s *Store) LoadByID(ctx context.Context, id uuid.UUID) (simplepost.FieldSet, error) {
	query := `SELECT fields FROM records WHERE id = $1`

	var data []byte
	if err := s.db.QueryRow(ctx, query, id.String()).Scan(&data); err != nil {
		return nil, handlePostgresError("load record", err)
	}

	var fields simplepost.FieldSet
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode record %s: %w", id, err)
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

	query := `
		INSERT INTO records (id, record_type, fields, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET
			record_type = EXCLUDED.record_type,
			fields = EXCLUDED.fields,
			updated_at = EXCLUDED.updated_at`

	if _, err := s.db.Exec(ctx, query, key, fields.RecordType(), string(data)); err != nil {
		return handlePostgresError("save record", err)
	}
	return nil
}
