package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-post/pkg/simplepost"
	"github.com/tendant/simple-post/pkg/simplepost/contentkey"
)

var _ simplepost.ContentStore = (*Backend)(nil)

// Backend is an in-memory implementation of the simplepost.ContentStore interface
type Backend struct {
	mu      sync.RWMutex
	objects map[string][]byte
	keys    contentkey.Generator
}

// New creates a new in-memory content store
func New() *Backend {
	return &Backend{
		objects: make(map[string][]byte),
		keys:    contentkey.NewGitLikeGenerator(),
	}
}

// Resolve returns a copy of the stored content
func (b *Backend) Resolve(ctx context.Context, ptr simplepost.Pointer) ([]byte, error) {
	if ptr.IsEmpty() {
		return nil, nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[string(ptr)]
	if !exists {
		return nil, simplepost.ErrContentNotFound
	}
	return append([]byte(nil), data...), nil
}

// Store keeps a copy of content under a new key
func (b *Backend) Store(ctx context.Context, content []byte) (simplepost.Pointer, error) {
	key := b.keys.GenerateKey(uuid.New())

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[key] = append([]byte(nil), content...)
	return simplepost.Pointer(key), nil
}

// Exists reports whether ptr holds non-empty content
func (b *Backend) Exists(ctx context.Context, ptr simplepost.Pointer) (bool, error) {
	if ptr.IsEmpty() {
		return false, nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.objects[string(ptr)]) > 0, nil
}

// Delete deletes content
func (b *Backend) Delete(ctx context.Context, ptr simplepost.Pointer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[string(ptr)]; !exists {
		return simplepost.ErrContentNotFound
	}
	delete(b.objects, string(ptr))
	return nil
}
