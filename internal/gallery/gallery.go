// Package gallery tracks which catalog project, if any, a visitor has open
// in the detail overlay.
package gallery

import (
	"sync"

	"github.com/Keshav9835/portfolio/internal/catalog"
)

// Gallery owns the selection for one visitor. The zero value has no
// selection and is ready to use.
type Gallery struct {
	mu       sync.Mutex
	selected *catalog.Project
	locked   bool
}

// SelectProject opens p in the overlay and engages the scroll-lock.
// Selecting the already selected project changes nothing.
func (g *Gallery) SelectProject(p *catalog.Project) {
	if p == nil {
		g.ClearSelection()
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.selected = p
	g.locked = true
}

// ClearSelection closes the overlay. The scroll-lock is released even when
// nothing was selected.
func (g *Gallery) ClearSelection() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.selected = nil
	g.locked = false
}

// Selected returns the open project.
func (g *Gallery) Selected() (*catalog.Project, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.selected, g.selected != nil
}

// ScrollLocked reports whether page scrolling should be suspended.
func (g *Gallery) ScrollLocked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.locked
}

// Snapshot is a consistent read of the gallery for rendering.
type Snapshot struct {
	Selected     *catalog.Project
	ScrollLocked bool
}

func (g *Gallery) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Snapshot{Selected: g.selected, ScrollLocked: g.locked}
}
