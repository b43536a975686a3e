package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_CopiesSeed(t *testing.T) {
	seed := map[string]any{"pipeline.enabled": true}
	store := NewConfigStore(seed)
	require.NotNil(t, store)

	seed["pipeline.enabled"] = false
	assert.True(t, store.GetBool("pipeline.enabled"))

	empty := NewConfigStore(nil)
	_, ok := empty.Get("anything")
	assert.False(t, ok)
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore(nil)

	require.NoError(t, store.Set("search.top_k", 7))
	require.NoError(t, store.Set("search.top_k", 9))

	val, ok := store.Get("search.top_k")
	assert.True(t, ok)
	assert.Equal(t, 9, val)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore(map[string]any{
		"s":        "value",
		"i":        3,
		"i64":      int64(4),
		"f":        2.5,
		"b":        true,
		"d":        2 * time.Minute,
		"d_string": "45s",
		"d_secs":   int64(10),
		"d_bad":    "soon",
		"list":     []any{"a", 1, "b"},
		"strings":  []string{"x"},
	})

	assert.Equal(t, "value", store.GetString("s"))
	assert.Equal(t, "", store.GetString("i"))
	assert.Equal(t, 3, store.GetInt("i"))
	assert.Equal(t, 4, store.GetInt("i64"))
	assert.Equal(t, 2, store.GetInt("f"))
	assert.Equal(t, 0, store.GetInt("s"))
	assert.Equal(t, 2.5, store.GetFloat("f"))
	assert.Equal(t, 3.0, store.GetFloat("i"))
	assert.True(t, store.GetBool("b"))
	assert.False(t, store.GetBool("s"))
	assert.Equal(t, 2*time.Minute, store.GetDuration("d"))
	assert.Equal(t, 45*time.Second, store.GetDuration("d_string"))
	assert.Equal(t, 10*time.Second, store.GetDuration("d_secs"))
	assert.Equal(t, time.Duration(0), store.GetDuration("d_bad"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("list"))
	assert.Equal(t, []string{"x"}, store.GetStringSlice("strings"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_NoOps(t *testing.T) {
	store := NewConfigStore(nil)
	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore(nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("dispatcher.core_workers", n)
			_ = store.GetInt("dispatcher.core_workers")
		}(i)
	}
	wg.Wait()

	_, ok := store.Get("dispatcher.core_workers")
	assert.True(t, ok)
}
