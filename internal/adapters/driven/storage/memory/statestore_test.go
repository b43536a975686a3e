package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

func memState(key string, team int64, st domain.SourceType, resource, prefix string) domain.IndexingState {
	return domain.IndexingState{
		SourceKey:      key,
		SourceType:     st,
		TeamID:         team,
		APIPath:        st.DefaultAPIPath(),
		ResourceID:     resource,
		DocumentPrefix: prefix,
		ContentHash:    "h",
		ChunkCount:     2,
	}
}

func TestIndexingStateStore_SaveGetDelete(t *testing.T) {
	store := NewIndexingStateStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, memState("k", 1, domain.SourceNotionPage, "r", "p")))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "p", got.DocumentPrefix)

	// The returned state is a copy.
	got.ChunkCount = 99
	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 2, again.ChunkCount)

	require.NoError(t, store.Delete(ctx, "k"))
	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIndexingStateStore_SaveRequiresKey(t *testing.T) {
	err := NewIndexingStateStore().Save(context.Background(), domain.IndexingState{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIndexingStateStore_Queries(t *testing.T) {
	store := NewIndexingStateStore()
	ctx := context.Background()

	for _, st := range []domain.IndexingState{
		memState("b", 1, domain.SourceNotionPage, "abc", "p1"),
		memState("a", 1, domain.SourceNotionBlockChildren, "abc", "p2"),
		memState("c", 2, domain.SourceNotionPage, "abc", "p3"),
		memState("d", 1, domain.SourceNotionSearch, "", "p4"),
	} {
		require.NoError(t, store.Save(ctx, st))
	}

	byResource, err := store.FindByResource(ctx, "", 1, "abc")
	require.NoError(t, err)
	require.Len(t, byResource, 2)
	assert.Equal(t, "a", byResource[0].SourceKey)
	assert.Equal(t, "b", byResource[1].SourceKey)

	pages, err := store.FindByResource(ctx, domain.SourceNotionPage, 1, "abc")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "b", pages[0].SourceKey)

	owner, err := store.FindByPrefix(ctx, "p3")
	require.NoError(t, err)
	assert.Equal(t, "c", owner.SourceKey)

	_, err = store.FindByPrefix(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	team1, err := store.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, team1, 3)
}

func TestIndexingStateStore_Concurrency(t *testing.T) {
	store := NewIndexingStateStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n%26))
			_ = store.Save(ctx, memState(key, 1, domain.SourceNotionPage, key, key))
			_, _ = store.Get(ctx, key)
			_, _ = store.List(ctx, 1)
		}(i)
	}
	wg.Wait()

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 26)
}
