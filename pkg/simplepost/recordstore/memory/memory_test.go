package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-post/pkg/simplepost"
	"github.com/tendant/simple-post/pkg/simplepost/recordstore/memory"
)

func TestMemoryStore(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, simplepost.MarkerFields(simplepost.RecordTypeSite, "site-1")))
	require.NoError(t, store.Save(ctx, simplepost.MarkerFields(simplepost.RecordTypeCollection, "col-1")))

	t.Run("IsSite", func(t *testing.T) {
		ok, err := store.IsSite(ctx, "site-1")
		assert.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.IsSite(ctx, "col-1")
		assert.NoError(t, err)
		assert.False(t, ok)

		ok, err = store.IsSite(ctx, "unknown")
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("IsCollection", func(t *testing.T) {
		ok, err := store.IsCollection(ctx, "col-1")
		assert.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.IsCollection(ctx, "site-1")
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		id := uuid.New()
		sites := []string{"site-1"}
		fields := simplepost.FieldSet{
			{Name: simplepost.FieldID, Value: id},
			{Name: simplepost.FieldRecordType, Value: simplepost.RecordTypePost},
			{Name: simplepost.FieldCreateTimestamp, Value: time.Now().UTC()},
			{Name: simplepost.FieldSites, Value: sites},
			{Name: simplepost.FieldPublished, Value: false},
		}
		require.NoError(t, store.Save(ctx, fields))

		// stored copy is isolated from the caller
		sites[0] = "mutated"

		loaded, err := store.LoadByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, fields.Names(), loaded.Names())
		got, _ := loaded.Get(simplepost.FieldSites)
		assert.Equal(t, []string{"site-1"}, got)
	})

	t.Run("LoadByID_NormalizesStringID", func(t *testing.T) {
		id := uuid.New()
		created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		require.NoError(t, store.Save(ctx, simplepost.FieldSet{
			{Name: simplepost.FieldRecordType, Value: simplepost.RecordTypePost},
			{Name: simplepost.FieldID, Value: id.String()},
			{Name: simplepost.FieldCreateTimestamp, Value: created.Format(time.RFC3339Nano)},
		}))

		loaded, err := store.LoadByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []string{simplepost.FieldID, simplepost.FieldRecordType, simplepost.FieldCreateTimestamp}, loaded.Names())
		got, _ := loaded.Get(simplepost.FieldID)
		assert.Equal(t, id, got)
		ts, _ := loaded.Get(simplepost.FieldCreateTimestamp)
		assert.Equal(t, created, ts)
	})

	t.Run("LoadByID_NotFound", func(t *testing.T) {
		fields, err := store.LoadByID(ctx, uuid.New())
		assert.ErrorIs(t, err, simplepost.ErrRecordNotFound)
		assert.Nil(t, fields)
	})

	t.Run("Save_RequiresID", func(t *testing.T) {
		err := store.Save(ctx, simplepost.FieldSet{{Name: simplepost.FieldRecordType, Value: simplepost.RecordTypePost}})
		assert.ErrorIs(t, err, simplepost.ErrInvalidArgument)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, simplepost.MarkerFields(simplepost.RecordTypeSite, "site-2")))
		require.NoError(t, store.Delete(ctx, "site-2"))

		ok, err := store.IsSite(ctx, "site-2")
		assert.NoError(t, err)
		assert.False(t, ok)

		assert.ErrorIs(t, store.Delete(ctx, "site-2"), simplepost.ErrRecordNotFound)
	})
}

func TestMemoryStoreConcurrency(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				ref := fmt.Sprintf("site-%d-%d", n, j)
				assert.NoError(t, store.Save(ctx, simplepost.MarkerFields(simplepost.RecordTypeSite, ref)))
				ok, err := store.IsSite(ctx, ref)
				assert.NoError(t, err)
				assert.True(t, ok)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 500, store.Len())
}
