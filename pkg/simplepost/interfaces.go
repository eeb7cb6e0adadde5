package simplepost

import (
	"context"

	"github.com/google/uuid"
)

// Pointer is an opaque reference into a ContentStore. The empty string means no content.
type Pointer string

// IsEmpty reports whether the pointer is the empty sentinel
func (p Pointer) IsEmpty() bool {
	return p == ""
}

// ContentStore defines the interface for bulk content backends
type ContentStore interface {
	// Resolve returns the content behind a pointer. The empty pointer resolves to nil content.
	Resolve(ctx context.Context, ptr Pointer) ([]byte, error)

	// Store persists content and returns a new pointer to it
	Store(ctx context.Context, content []byte) (Pointer, error)

	// Exists reports whether the pointer currently resolves to non-empty content
	Exists(ctx context.Context, ptr Pointer) (bool, error)
}

// RecordStore defines the interface for record persistence
type RecordStore interface {
	// IsSite reports whether ref names an existing site. Unknown refs are false, not errors.
	IsSite(ctx context.Context, ref string) (bool, error)

	// IsCollection reports whether ref names an existing collection
	IsCollection(ctx context.Context, ref string) (bool, error)

	// LoadByID retrieves a persisted field set. Returns ErrRecordNotFound when absent.
	LoadByID(ctx context.Context, id uuid.UUID) (FieldSet, error)

	// Save upserts a field set keyed by its "id" field
	Save(ctx context.Context, fields FieldSet) error
}
