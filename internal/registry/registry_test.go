package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterRejectsDuplicate(t *testing.T) {
	r := NewBaseRegistry[int]()
	require.NoError(t, r.Register("a", 1))
	err := r.Register("a", 2)
	require.Error(t, err)

	v, ok := r.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)
}

func TestUpsertReplacesAndReportsIt(t *testing.T) {
	r := NewBaseRegistry[string]()
	replaced := r.Upsert("tool", "v1")
	require.False(t, replaced)

	replaced = r.Upsert("tool", "v2")
	require.True(t, replaced)

	v, ok := r.Get("tool")
	require.True(t, ok)
	require.Equal(t, "v2", v)
	require.Equal(t, 1, r.Count())
}

func TestClearRemovesEverything(t *testing.T) {
	r := NewBaseRegistry[int]()
	r.Upsert("a", 1)
	r.Upsert("b", 2)
	r.Clear()
	require.Equal(t, 0, r.Count())
}
