package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-post/pkg/simplepost"
)

var _ simplepost.RecordStore = (*Store)(nil)

// Store implements simplepost.RecordStore using in-memory storage
type Store struct {
	mu      sync.RWMutex
	records map[string]simplepost.FieldSet
}

// New creates a new in-memory record store
func New() *Store {
	return &Store{
		records: make(map[string]simplepost.FieldSet),
	}
}

// IsSite reports whether a site marker record exists for ref
func (s *Store) IsSite(ctx context.Context, ref string) (bool, error) {
	return s.hasType(ref, simplepost.RecordTypeSite), nil
}

// IsCollection reports whether a collection marker record exists for ref
func (s *Store) IsCollection(ctx context.Context, ref string) (bool, error) {
	return s.hasType(ref, simplepost.RecordTypeCollection), nil
}

func (s *Store) hasType(ref, recordType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, exists := s.records[ref]
	return exists && fields.RecordType() == recordType
}

// LoadByID returns a normalized copy of the stored field set
func (s *Store) LoadByID(ctx context.Context, id uuid.UUID) (simplepost.FieldSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, exists := s.records[id.String()]
	if !exists {
		return nil, simplepost.ErrRecordNotFound
	}
	return simplepost.NormalizeFieldSet(copyFields(fields).Map())
}

// Save stores a copy of the field set, replacing any record with the same id
func (s *Store) Save(ctx context.Context, fields simplepost.FieldSet) error {
	key, err := fields.Key()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = copyFields(fields)
	return nil
}

// Delete removes a record
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[id]; !exists {
		return simplepost.ErrRecordNotFound
	}
	delete(s.records, id)
	return nil
}

// Len returns the number of stored records
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// copyFields prevents callers from mutating stored list values
func copyFields(fields simplepost.FieldSet) simplepost.FieldSet {
	out := make(simplepost.FieldSet, len(fields))
	for i, f := range fields {
		if refs, ok := f.Value.([]string); ok {
			f.Value = append([]string(nil), refs...)
		}
		out[i] = f
	}
	return out
}
