package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-post/pkg/simplepost"
	memorystore "github.com/tendant/simple-post/pkg/simplepost/contentstore/memory"
)

func TestMemoryBackend(t *testing.T) {
	backend := memorystore.New()
	ctx := context.Background()
	testData := []byte("# Hello\n\nThis is *markdown*.")

	var ptr simplepost.Pointer

	t.Run("Store", func(t *testing.T) {
		var err error
		ptr, err = backend.Store(ctx, testData)
		require.NoError(t, err)
		assert.False(t, ptr.IsEmpty())
	})

	t.Run("Resolve", func(t *testing.T) {
		data, err := backend.Resolve(ctx, ptr)
		require.NoError(t, err)
		assert.Equal(t, testData, data)
	})

	t.Run("Exists", func(t *testing.T) {
		ok, err := backend.Exists(ctx, ptr)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("StoreSameContentTwice", func(t *testing.T) {
		other, err := backend.Store(ctx, testData)
		require.NoError(t, err)
		assert.NotEqual(t, ptr, other)
	})

	t.Run("EmptyPointer", func(t *testing.T) {
		data, err := backend.Resolve(ctx, "")
		assert.NoError(t, err)
		assert.Empty(t, data)

		ok, err := backend.Exists(ctx, "")
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("EmptyContent", func(t *testing.T) {
		empty, err := backend.Store(ctx, []byte{})
		require.NoError(t, err)

		ok, err := backend.Exists(ctx, empty)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, backend.Delete(ctx, ptr))

		_, err := backend.Resolve(ctx, ptr)
		assert.ErrorIs(t, err, simplepost.ErrContentNotFound)

		ok, err := backend.Exists(ctx, ptr)
		assert.NoError(t, err)
		assert.False(t, ok)

		assert.ErrorIs(t, backend.Delete(ctx, ptr), simplepost.ErrContentNotFound)
	})
}

func TestMemoryBackendConcurrency(t *testing.T) {
	backend := memorystore.New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				data := []byte(fmt.Sprintf("content %d/%d", n, j))
				ptr, err := backend.Store(ctx, data)
				require.NoError(t, err)

				got, err := backend.Resolve(ctx, ptr)
				require.NoError(t, err)
				assert.Equal(t, data, got)
			}
		}(i)
	}
	wg.Wait()
}
