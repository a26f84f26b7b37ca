package ordmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertionOrder(t *testing.T) {
	m := New[int]()
	m.Set("c", 3)
	m.Set("a", 1)
	m.Set("b", 2)

	require.Equal(t, []string{"c", "a", "b"}, m.Keys())
	require.Equal(t, 3, m.Len())

	// Replacing keeps the original position.
	m.Set("a", 10)
	require.Equal(t, []string{"c", "a", "b"}, m.Keys())
	v, ok := m.Get("a")
	require.True(t, ok)
	require.Equal(t, 10, v)
}

func TestDeletePreservesOrder(t *testing.T) {
	m := New[string]()
	m.Set("a", "1")
	m.Set("b", "2")
	m.Set("c", "3")

	m.Delete("b")
	require.Equal(t, []string{"a", "c"}, m.Keys())
	require.False(t, m.Has("b"))

	m.Delete("missing")
	require.Equal(t, 2, m.Len())
}

func TestRangeAndAt(t *testing.T) {
	m := New[int]()
	m.Set("x", 1)
	m.Set("y", 2)

	var keys []string
	m.Range(func(k string, v int) bool {
		keys = append(keys, k)
		return true
	})
	require.Equal(t, []string{"x", "y"}, keys)

	k, v := m.At(1)
	require.Equal(t, "y", k)
	require.Equal(t, 2, v)
}
