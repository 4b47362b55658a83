package match

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterAssignsSequentialIDs(t *testing.T) {
	r := NewRegistry()
	m1 := New(0, "Alice", "id-a", "key-a")
	m2 := New(0, "Bob", "id-b", "key-b")

	id1 := r.Register(m1)
	id2 := r.Register(m2)

	require.Equal(t, 1, id1)
	require.Equal(t, 2, id2)
	require.Equal(t, 2, r.Count())
}

func TestFindOpenOnlyReturnsJoinableMatches(t *testing.T) {
	r := NewRegistry()
	m := New(0, "Alice", "id-a", "key-a")
	id := r.Register(m)

	found, ok := r.FindOpen(id)
	require.True(t, ok)
	require.Same(t, m, found)

	m.Lock()
	m.Join("Bob", "id-b", "key-b")
	m.Unlock()

	_, ok = r.FindOpen(id)
	require.False(t, ok)
}

func TestUnregisterRemoves(t *testing.T) {
	r := NewRegistry()
	m := New(0, "Alice", "id-a", "key-a")
	id := r.Register(m)
	r.Unregister(m)

	_, ok := r.Find(id)
	require.False(t, ok)
	require.Equal(t, 0, r.Count())
}

func TestListOpenEmptyAndPopulated(t *testing.T) {
	r := NewRegistry()
	require.Equal(t, "EMPTY", r.ListOpen())

	m := New(0, "Alice", "id-a", "key-a")
	id := r.Register(m)
	require.Equal(t, "1:Alice", r.ListOpen())
	_ = id

	m2 := New(0, "Carol", "id-c", "key-c")
	r.Register(m2)
	require.Contains(t, r.ListOpen(), "Alice")
	require.Contains(t, r.ListOpen(), "Carol")
}
