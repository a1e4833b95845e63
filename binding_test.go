package livebind

import (
	"testing"

	"github.com/livefir/livebind/internal/dom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropagateDatumStopsAtBoundaries(t *testing.T) {
	store := dom.NewStore()
	nodes, err := dom.ParseFragment(`<div><p><b></b></p><section><i></i></section></div>`)
	require.NoError(t, err)
	root := nodes[0]
	section := root.LastChild
	store.MarkBoundary(section)

	propagateDatum(store, root, "d")

	b := root.FirstChild.FirstChild
	datum, ok := store.Datum(b)
	assert.True(t, ok)
	assert.Equal(t, "d", datum)
	datum, _ = store.Datum(section)
	assert.Equal(t, "d", datum, "boundaries receive the datum")
	_, ok = store.Datum(section.FirstChild)
	assert.False(t, ok, "but do not pass it on")
}

func TestSequence(t *testing.T) {
	items, ok := sequence(repeatGroup, nil, []int{1, 2})
	assert.True(t, ok)
	assert.Equal(t, []any{1, 2}, items)

	items, ok = sequence(repeatGroup, nil, nil)
	assert.True(t, ok)
	assert.Empty(t, items)

	_, ok = sequence(repeatGroup, nil, "not a list")
	assert.False(t, ok)

	items, _ = sequence(ifGroup, "d", 0)
	assert.Empty(t, items)
	items, _ = sequence(ifGroup, "d", "yes")
	assert.Equal(t, []any{"d"}, items)

	items, _ = sequence(withGroup, "d", nil)
	assert.Equal(t, []any{nil}, items)
}

func TestJoinKey(t *testing.T) {
	m := map[string]any{"a": 1}
	k1, ok := joinKey(m)
	require.True(t, ok)
	k2, _ := joinKey(m)
	assert.Equal(t, k1, k2)
	other, _ := joinKey(map[string]any{"a": 1})
	assert.NotEqual(t, k1, other, "maps match by reference")

	k, ok := joinKey(struct{ A int }{1})
	assert.True(t, ok)
	assert.Equal(t, struct{ A int }{1}, k)

	_, ok = joinKey(struct{ Tags []string }{})
	assert.False(t, ok)
}

func TestPropagateDatumOnBoundaryRoot(t *testing.T) {
	store := dom.NewStore()
	nodes, err := dom.ParseFragment(`<ul><li></li></ul>`)
	require.NoError(t, err)
	root := nodes[0]
	store.MarkBoundary(root)
	store.SetDatum(root.FirstChild, "a")

	propagateDatum(store, root, []any{"a"})

	datum, _ := store.Datum(root)
	assert.Equal(t, []any{"a"}, datum)
	datum, _ = store.Datum(root.FirstChild)
	assert.Equal(t, "a", datum, "children of a boundary keep their own datum")
}
