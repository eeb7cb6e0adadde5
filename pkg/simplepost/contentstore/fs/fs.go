package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-post/pkg/simplepost"
	"github.com/tendant/simple-post/pkg/simplepost/contentkey"
)

var _ simplepost.ContentStore = (*Backend)(nil)

// Backend is a filesystem implementation of the simplepost.ContentStore interface
type Backend struct {
	mu      sync.RWMutex
	baseDir string
	keys    contentkey.Generator
}

// Config options for the filesystem backend
type Config struct {
	BaseDir      string               // Base directory for storing files
	KeyGenerator contentkey.Generator // Optional, defaults to git-like sharding
}

// New creates a new filesystem content store
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	keys := config.KeyGenerator
	if keys == nil {
		keys = contentkey.NewGitLikeGenerator()
	}

	return &Backend{
		baseDir: filepath.Clean(config.BaseDir),
		keys:    keys,
	}, nil
}

// path maps a pointer to a file below the base directory
func (b *Backend) path(ptr simplepost.Pointer) (string, error) {
	p := filepath.Join(b.baseDir, filepath.FromSlash(string(ptr)))
	if !strings.HasPrefix(p, b.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: pointer %q escapes base directory", simplepost.ErrInvalidArgument, ptr)
	}
	return p, nil
}

// Resolve reads the file behind ptr
func (b *Backend) Resolve(ctx context.Context, ptr simplepost.Pointer) ([]byte, error) {
	if ptr.IsEmpty() {
		return nil, nil
	}
	filePath, err := b.path(ptr)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return nil, simplepost.ErrContentNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Store writes content to a new file
func (b *Backend) Store(ctx context.Context, content []byte) (simplepost.Pointer, error) {
	ptr := simplepost.Pointer(b.keys.GenerateKey(uuid.New()))
	filePath, err := b.path(ptr)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(filePath, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return ptr, nil
}

// Exists reports whether the file behind ptr exists and is non-empty
func (b *Backend) Exists(ctx context.Context, ptr simplepost.Pointer) (bool, error) {
	if ptr.IsEmpty() {
		return false, nil
	}
	filePath, err := b.path(ptr)
	if err != nil {
		return false, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to get file info: %w", err)
	}
	return !info.IsDir() && info.Size() > 0, nil
}

// Delete removes the file behind ptr
func (b *Backend) Delete(ctx context.Context, ptr simplepost.Pointer) error {
	filePath, err := b.path(ptr)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.Remove(filePath); os.IsNotExist(err) {
		return simplepost.ErrContentNotFound
	} else if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
