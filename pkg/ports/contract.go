package ports

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunKeyValueStoreContract runs a suite of tests to verify that a KeyValueStore implementation
// adheres to the defined interface contract.
func RunKeyValueStoreContract(t *testing.T, store KeyValueStore) {
	ctx := context.Background()
	prefix := "contract-" + time.Now().Format("20060102150405")

	t.Run("Put and Get", func(t *testing.T) {
		key := prefix + "-put"
		require.NoError(t, store.Put(ctx, key, "bar"))

		val, ok, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "bar", val)
	})

	t.Run("Get Missing", func(t *testing.T) {
		val, ok, err := store.Get(ctx, prefix+"-missing")
		require.NoError(t, err, "a missing key is not an error")
		assert.False(t, ok)
		assert.Nil(t, val)
	})

	t.Run("Overwrite", func(t *testing.T) {
		key := prefix + "-overwrite"
		require.NoError(t, store.Put(ctx, key, true))
		require.NoError(t, store.Put(ctx, key, false))

		val, ok, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, false, val)
	})

	t.Run("Keys", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, prefix+"-k1", 1))
		require.NoError(t, store.Put(ctx, prefix+"-k2", 2))

		keys, err := store.Keys(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, prefix+"-k1")
		assert.Contains(t, keys, prefix+"-k2")
	})

	t.Run("Concurrent Writers", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, store.Put(ctx, fmt.Sprintf("%s-c%d", prefix, i), i))
			}(i)
		}
		wg.Wait()

		for i := 0; i < 10; i++ {
			_, ok, err := store.Get(ctx, fmt.Sprintf("%s-c%d", prefix, i))
			require.NoError(t, err)
			assert.True(t, ok)
		}
	})
}

// RunRepositoryContract verifies the transactional semantics of a Repository implementation.
func RunRepositoryContract(t *testing.T, repo Repository) {
	ctx := context.Background()

	t.Run("Commit makes writes visible", func(t *testing.T) {
		tx, err := repo.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Put(ctx, "Project", "p1", map[string]any{"name": "alpha"}))

		got, err := tx.Get(ctx, "Project", "p1")
		require.NoError(t, err, "a transaction reads its own writes")
		assert.Equal(t, "alpha", got["name"])
		require.NoError(t, tx.Commit(ctx))

		reader, err := repo.Begin(ctx)
		require.NoError(t, err)
		defer func() { _ = reader.Rollback(ctx) }()
		got, err = reader.Get(ctx, "Project", "p1")
		require.NoError(t, err)
		assert.Equal(t, "alpha", got["name"])
	})

	t.Run("Rollback discards writes", func(t *testing.T) {
		tx, err := repo.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Put(ctx, "Project", "p2", map[string]any{"name": "beta"}))
		require.NoError(t, tx.Rollback(ctx))

		reader, err := repo.Begin(ctx)
		require.NoError(t, err)
		defer func() { _ = reader.Rollback(ctx) }()
		_, err = reader.Get(ctx, "Project", "p2")
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	})

	t.Run("Closed transaction", func(t *testing.T) {
		tx, err := repo.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Commit(ctx))
		assert.ErrorIs(t, tx.Put(ctx, "Project", "p3", map[string]any{}), domain.ErrTransactionClosed)
	})

	t.Run("Query filters by type and properties", func(t *testing.T) {
		tx, err := repo.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Put(ctx, "Task", "t1", map[string]any{"status": "open", "title": "one"}))
		require.NoError(t, tx.Put(ctx, "Task", "t2", map[string]any{"status": "done", "title": "two"}))
		require.NoError(t, tx.Put(ctx, "Task", "t3", map[string]any{"status": "open", "title": "three"}))
		require.NoError(t, tx.Put(ctx, "Other", "t4", map[string]any{"status": "open"}))

		open, err := tx.Query(ctx, "Task", map[string]any{"status": "open"})
		require.NoError(t, err)
		require.Len(t, open, 2)
		assert.Equal(t, "one", open[0]["title"])
		assert.Equal(t, "three", open[1]["title"])

		all, err := tx.Query(ctx, "Task", nil)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		require.NoError(t, tx.Delete(ctx, "Task", "t1"))
		open, err = tx.Query(ctx, "Task", map[string]any{"status": "open"})
		require.NoError(t, err)
		assert.Len(t, open, 1)
		require.NoError(t, tx.Rollback(ctx))
	})
}

// RunGraphLoaderContract checks a GraphLoader against the node records it was built from.
// want maps every node ID the loader holds to its expected raw definition.
func RunGraphLoaderContract(t *testing.T, loader GraphLoader, want map[string][]byte) {
	t.Run("GetNode returns the stored record", func(t *testing.T) {
		for id, raw := range want {
			got, err := loader.GetNode(id)
			require.NoError(t, err, id)
			assert.JSONEq(t, string(raw), string(got), id)
		}
	})

	t.Run("GetNode unknown ID", func(t *testing.T) {
		_, err := loader.GetNode("no-such-node")
		assert.ErrorIs(t, err, domain.ErrNodeNotFound)
	})

	t.Run("ListNodes is sorted and complete", func(t *testing.T) {
		ids, err := loader.ListNodes()
		require.NoError(t, err)
		assert.Len(t, ids, len(want))
		assert.IsIncreasing(t, ids)
		for id := range want {
			assert.Contains(t, ids, id)
		}
	})
}
