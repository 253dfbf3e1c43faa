package state

import (
	"testing"

	"github.com/hupe1980/convopilot/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance (compile-time assertion)
var _ core.StateStore = (*InMemoryStore)(nil)

func TestInMemoryStore_GetUnseenSession(t *testing.T) {
	store := NewInMemoryStore()

	st, err := store.Get("unknown")
	require.NoError(t, err)
	assert.Empty(t, st)
}

func TestInMemoryStore_UpdateMerges(t *testing.T) {
	store := NewInMemoryStore()

	require.NoError(t, store.Update("s1", core.ApplicationState{"theme": "dark", "count": 1}))
	require.NoError(t, store.Update("s1", core.ApplicationState{"count": 2}))

	st, err := store.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "dark", st["theme"])
	assert.Equal(t, 2, st["count"])
}

func TestInMemoryStore_GetReturnsCopy(t *testing.T) {
	store := NewInMemoryStore()
	require.NoError(t, store.Update("s1", core.ApplicationState{"k": "v"}))

	st, err := store.Get("s1")
	require.NoError(t, err)
	st["k"] = "mutated"

	again, err := store.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "v", again["k"])
}

func TestInMemoryStore_SessionsAreIsolated(t *testing.T) {
	store := NewInMemoryStore()
	require.NoError(t, store.Update("a", core.ApplicationState{"k": "a"}))
	require.NoError(t, store.Update("b", core.ApplicationState{"k": "b"}))

	sa, _ := store.Get("a")
	sb, _ := store.Get("b")
	assert.Equal(t, "a", sa["k"])
	assert.Equal(t, "b", sb["k"])
}

func TestInMemoryStore_Delete(t *testing.T) {
	store := NewInMemoryStore()
	require.NoError(t, store.Update("s1", core.ApplicationState{"k": "v"}))

	store.Delete("s1")

	st, err := store.Get("s1")
	require.NoError(t, err)
	assert.Empty(t, st)
}
