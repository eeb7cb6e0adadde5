package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-post/pkg/simplepost"
	"github.com/tendant/simple-post/pkg/simplepost/contentkey"
)

func TestFSBackend_BasicOps(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	require.NoError(t, err)

	ctx := context.Background()
	data := []byte("# hello fs")

	ptr, err := backend.Store(ctx, data)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(tmp, filepath.FromSlash(string(ptr))))
	require.NoError(t, err)

	got, err := backend.Resolve(ctx, ptr)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	ok, err := backend.Exists(ctx, ptr)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, backend.Delete(ctx, ptr))

	_, err = backend.Resolve(ctx, ptr)
	assert.ErrorIs(t, err, simplepost.ErrContentNotFound)

	ok, err = backend.Exists(ctx, ptr)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFSBackend_EmptyPointerAndContent(t *testing.T) {
	backend, err := New(Config{BaseDir: t.TempDir(), KeyGenerator: contentkey.NewFlatGenerator()})
	require.NoError(t, err)
	ctx := context.Background()

	data, err := backend.Resolve(ctx, "")
	assert.NoError(t, err)
	assert.Nil(t, data)

	ptr, err := backend.Store(ctx, nil)
	require.NoError(t, err)

	ok, err := backend.Exists(ctx, ptr)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFSBackend_RejectsEscapingPointer(t *testing.T) {
	backend, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	_, err = backend.Resolve(context.Background(), "../../etc/passwd")
	assert.ErrorIs(t, err, simplepost.ErrInvalidArgument)
}

func TestFSBackend_RequiresBaseDir(t *testing.T) {
	_, err := New(Config{})
	assert.EqualError(t, err, "base directory is required")
}
