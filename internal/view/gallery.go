package view

import (
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"github.com/Keshav9835/portfolio/internal/catalog"
	"github.com/Keshav9835/portfolio/internal/gallery"
)

// Gallery is the project section fragment: the card list, plus the detail
// overlay on top when a project is selected.
func Gallery(projects []*catalog.Project, snap gallery.Snapshot) g.Node {
	var overlay g.Node
	if snap.Selected != nil {
		overlay = ProjectOverlay(snap.Selected)
	}
	return h.Section(h.ID("projects"), h.Class("projects"),
		sectionHeader("Featured Projects"),
		h.Div(h.ID("projects-gallery"),
			h.Div(h.Class("project-grid"),
				g.Map(projects, ProjectCard),
			),
			overlay,
		),
	)
}

// ProjectCard opens the overlay on click. Clicks that start inside a link
// are left to the link.
func ProjectCard(p *catalog.Project) g.Node {
	return h.Article(h.Class("project-card"),
		h.Data("slug", p.Slug),
		hx("post", "/projects/"+p.Slug+"/select"),
		hx("trigger", "click[!event.target.closest('a')]"),
		hx("target", "#projects"),
		hx("swap", "outerHTML"),
		h.Img(h.Src(p.Image), h.Alt(p.Title)),
		g.If(p.Featured, h.Span(h.Class("badge"), g.Text("Featured"))),
		h.H3(g.Text(p.Title)),
		h.P(g.Text(p.Description)),
		tags(p.TechStack),
		h.Div(h.Class("project-links"),
			external(p.GitHub, h.Class("project-link"), g.Text("Code")),
			external(p.Demo, h.Class("project-link"), g.Text("Live Demo")),
		),
	)
}

// ProjectOverlay shows the full detail for p. The backdrop and the close
// button both dismiss it.
func ProjectOverlay(p *catalog.Project) g.Node {
	closeAttrs := g.Group([]g.Node{
		hx("post", "/projects/close"),
		hx("target", "#projects"),
		hx("swap", "outerHTML"),
	})
	return h.Div(h.ID("project-backdrop"), h.Class("overlay-backdrop"),
		closeAttrs,
		hx("trigger", "click[event.target.id=='project-backdrop']"),
		h.Div(h.Class("overlay"), h.Role("dialog"), h.Aria("modal", "true"), h.Aria("label", p.Title),
			h.Button(h.Type("button"), h.Class("overlay-close"), h.Aria("label", "Close"), closeAttrs, g.Text("×")),
			h.Img(h.Src(p.Image), h.Alt(p.Title)),
			h.H2(g.Text(p.Title)),
			h.Div(h.Class("overlay-meta"),
				g.If(p.Timeline != "", h.Span(g.Text(p.Timeline))),
				g.If(p.TeamSize != "", h.Span(g.Text(p.TeamSize))),
			),
			h.P(g.Text(p.Detail())),
			list("Key Features", p.Features),
			list("Challenges", p.Challenges),
			list("Key Learnings", p.Learnings),
			h.H3(g.Text("Tech Stack")),
			tags(p.TechStack),
			h.Div(h.Class("project-links"),
				external(p.GitHub, h.Class("btn"), g.Text("View Code")),
				external(p.Demo, h.Class("btn btn-primary"), g.Text("Live Demo")),
			),
		),
	)
}

func list(title string, items []string) g.Node {
	if len(items) == 0 {
		return nil
	}
	return h.Div(h.Class("overlay-list"),
		h.H3(g.Text(title)),
		h.Ul(g.Map(items, func(s string) g.Node { return h.Li(g.Text(s)) })),
	)
}

func tags(stack []string) g.Node {
	return h.Div(h.Class("tags"),
		g.Map(stack, func(s string) g.Node { return h.Span(h.Class("tag"), g.Text(s)) }),
	)
}
