// Package view renders the site with gomponents. Interactive parts are
// HTMX fragments; each fragment has a stable id it swaps itself into.
package view

import (
	"io"

	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"github.com/Keshav9835/portfolio/internal/catalog"
	"github.com/Keshav9835/portfolio/internal/contact"
	"github.com/Keshav9835/portfolio/internal/gallery"
	"github.com/Keshav9835/portfolio/internal/hero"
)

// HTMX events sent in the HX-Trigger response header.
const (
	EventScrollLock   = "scroll-lock"
	EventScrollUnlock = "scroll-unlock"
	EventCVDownload   = "cv-download"
)

// PageData is everything the full page needs from one visitor session.
type PageData struct {
	Catalog  *catalog.Catalog
	Download hero.Status
	Gallery  gallery.Snapshot
	Contact  contact.Snapshot
}

// Render writes n to w.
func Render(w io.Writer, n g.Node) error {
	return n.Render(w)
}

// Page is the whole single-page site.
func Page(d PageData) g.Node {
	p := d.Catalog.Profile
	return layout(p.Name+" | Portfolio", d.Gallery.ScrollLocked,
		h.Main(
			Hero(p, d.Download),
			About(p, d.Catalog.Education),
			Skills(d.Catalog.Skills),
			Gallery(d.Catalog.Projects(), d.Gallery),
			Contact(p, d.Contact),
		),
		Footer(p),
	)
}

func layout(title string, scrollLocked bool, children ...g.Node) g.Node {
	return h.Doctype(
		h.HTML(h.Lang("en"),
			h.Head(
				h.Meta(h.Charset("utf-8")),
				h.Meta(h.Name("viewport"), h.Content("width=device-width, initial-scale=1")),
				h.TitleEl(g.Text(title)),
				h.Link(h.Rel("stylesheet"), h.Href("/static/site.css")),
				h.Script(h.Src("https://unpkg.com/htmx.org@1.9.12"), h.Defer()),
			),
			h.Body(
				g.If(scrollLocked, h.Class("overflow-hidden")),
				g.Group(children),
				h.Script(g.Raw(clientScript)),
			),
		),
	)
}

// clientScript reacts to the HX-Trigger events the server sends.
const clientScript = `
document.body.addEventListener("` + EventScrollLock + `", function () { document.body.classList.add("overflow-hidden"); });
document.body.addEventListener("` + EventScrollUnlock + `", function () { document.body.classList.remove("overflow-hidden"); });
document.body.addEventListener("` + EventCVDownload + `", function (e) {
  var a = document.createElement("a");
  a.href = e.detail.value;
  a.download = "";
  document.body.appendChild(a);
  a.click();
  document.body.removeChild(a);
});
document.body.addEventListener("htmx:beforeSwap", function (e) {
  if ([409, 422, 429, 502].indexOf(e.detail.xhr.status) >= 0) {
    e.detail.shouldSwap = true;
    e.detail.isError = false;
  }
});
`

func hx(name, value string) g.Node {
	return g.Attr("hx-"+name, value)
}

func external(href string, children ...g.Node) g.Node {
	return h.A(h.Href(href), h.Target("_blank"), h.Rel("noopener noreferrer"), g.Group(children))
}

func sectionHeader(title string) g.Node {
	return h.Div(h.Class("section-header"),
		h.H2(g.Text(title)),
		h.Div(h.Class("section-rule")),
	)
}
