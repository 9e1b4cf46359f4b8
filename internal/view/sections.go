package view

import (
	"strings"

	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"github.com/Keshav9835/portfolio/internal/catalog"
	"github.com/Keshav9835/portfolio/internal/hero"
)

func Hero(p catalog.Profile, status hero.Status) g.Node {
	return h.Section(h.ID("home"), h.Class("hero"),
		h.Div(h.Class("hero-text"),
			h.H1(g.Text("Hi, I'm "), h.Span(h.Class("accent"), g.Text(p.Name))),
			h.P(h.Class("tagline"), g.Text(p.Tagline)),
			h.P(h.Class("roles"), g.Text(strings.Join(p.Roles, " • "))),
			h.Div(h.Class("hero-actions"),
				h.A(h.Href("#projects"), h.Class("btn btn-primary"), g.Text("View My Projects")),
				DownloadButton(status),
			),
			h.Div(h.Class("social"),
				g.Map(p.Social, func(l catalog.SocialLink) g.Node {
					return external(l.Href, h.Aria("label", l.Label), g.Text(l.Label))
				}),
			),
		),
		h.Div(h.Class("hero-photo"),
			h.Img(h.Src(p.Photo), h.Alt(p.Name)),
		),
	)
}

// DownloadButton is the CV button fragment. The wrapper polls for the next
// state while the status is not idle; only a click on the button posts.
func DownloadButton(status hero.Status) g.Node {
	return h.Div(h.ID("cv-control"), h.Class("cv-control"),
		h.Data("status", status.String()),
		g.If(status != hero.Idle, g.Group([]g.Node{
			hx("get", "/cv/status"),
			hx("trigger", "every 1s"),
			hx("swap", "outerHTML"),
		})),
		h.Button(h.ID("cv-button"), h.Type("button"),
			h.Class("btn btn-outline status-"+status.String()),
			hx("post", "/cv/download"),
			hx("target", "#cv-control"),
			hx("swap", "outerHTML"),
			g.If(status == hero.Downloading, h.Disabled()),
			g.Text(status.Label()),
		),
	)
}

func About(p catalog.Profile, education []catalog.EducationEntry) g.Node {
	return h.Section(h.ID("about"), h.Class("about"),
		sectionHeader("About Me"),
		h.Div(h.Class("about-grid"),
			h.Div(h.Class("about-story"),
				g.Map(p.Bio, func(para string) g.Node { return h.P(g.Text(para)) }),
				h.H3(g.Text("What Drives Me")),
				h.Ul(g.Map(p.Drives, func(d string) g.Node { return h.Li(g.Text(d)) })),
			),
			h.Div(h.Class("timeline"),
				h.H3(g.Text("Education")),
				g.Map(education, func(e catalog.EducationEntry) g.Node {
					return h.Div(h.Class("timeline-item"),
						h.Span(h.Class("year"), g.Text(e.Year)),
						h.H4(g.Text(e.Degree)),
						h.P(h.Class("institution"), g.Text(e.Institution)),
						h.P(h.Class("meta"),
							h.Span(g.Text(e.Score)),
							h.Span(g.Text(e.Location)),
						),
					)
				}),
			),
		),
	)
}

func Skills(categories []catalog.SkillCategory) g.Node {
	return h.Section(h.ID("skills"), h.Class("skills"),
		sectionHeader("Skills & Technologies"),
		h.Div(h.Class("skills-grid"),
			g.Map(categories, func(c catalog.SkillCategory) g.Node {
				return h.Div(h.Class("skill-card"),
					h.H3(g.Text(c.Title)),
					h.Ul(g.Map(c.Skills, func(s string) g.Node { return h.Li(g.Text(s)) })),
				)
			}),
		),
	)
}

func Footer(p catalog.Profile) g.Node {
	return h.Footer(h.Class("footer"),
		h.Div(
			h.P(g.Text("Made with ♥ by "), h.Span(g.Text(p.Name))),
			h.P(h.Class("copyright"), g.Text(p.Copyright)),
		),
		h.A(h.Href("#home"), h.Class("to-top"), h.Aria("label", "Scroll to top"), g.Text("↑")),
	)
}
