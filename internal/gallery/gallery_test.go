package gallery

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Keshav9835/portfolio/internal/catalog"
)

func TestSelectThenClear(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	for _, p := range c.Projects() {
		var g Gallery
		g.SelectProject(p)

		got, ok := g.Selected()
		require.True(t, ok, p.Slug)
		assert.Same(t, p, got)
		assert.True(t, g.ScrollLocked())

		g.ClearSelection()
		got, ok = g.Selected()
		assert.False(t, ok)
		assert.Nil(t, got)
		assert.False(t, g.ScrollLocked())
	}
}

func TestSelectIsIdempotent(t *testing.T) {
	p := &catalog.Project{Slug: "a", Title: "A"}
	var g Gallery
	g.SelectProject(p)
	g.SelectProject(p)

	snap := g.Snapshot()
	assert.Same(t, p, snap.Selected)
	assert.True(t, snap.ScrollLocked)
}

func TestSelectReplacesPrevious(t *testing.T) {
	a := &catalog.Project{Slug: "a"}
	b := &catalog.Project{Slug: "b"}
	var g Gallery
	g.SelectProject(a)
	g.SelectProject(b)

	got, ok := g.Selected()
	require.True(t, ok)
	assert.Same(t, b, got)
}

func TestClearWithoutSelection(t *testing.T) {
	var g Gallery
	assert.NotPanics(t, g.ClearSelection)
	assert.False(t, g.ScrollLocked())
	_, ok := g.Selected()
	assert.False(t, ok)
}

func TestSelectNilClears(t *testing.T) {
	var g Gallery
	g.SelectProject(&catalog.Project{Slug: "a"})
	g.SelectProject(nil)
	_, ok := g.Selected()
	assert.False(t, ok)
	assert.False(t, g.ScrollLocked())
}

func TestConcurrentAccess(t *testing.T) {
	p := &catalog.Project{Slug: "a"}
	var g Gallery
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); g.SelectProject(p) }()
		go func() { defer wg.Done(); g.ClearSelection() }()
	}
	wg.Wait()

	snap := g.Snapshot()
	assert.Equal(t, snap.Selected != nil, snap.ScrollLocked)
}
