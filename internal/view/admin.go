package view

import (
	"strconv"

	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"github.com/Keshav9835/portfolio/internal/analytics"
	"github.com/Keshav9835/portfolio/internal/catalog"
)

const timeLayout = "2006-01-02 15:04"

func adminLayout(title string, children ...g.Node) g.Node {
	return h.Doctype(
		h.HTML(h.Lang("en"),
			h.Head(
				h.Meta(h.Charset("utf-8")),
				h.Meta(h.Name("robots"), h.Content("noindex")),
				h.TitleEl(g.Text(title)),
				h.Link(h.Rel("stylesheet"), h.Href("/static/site.css")),
			),
			h.Body(h.Class("admin"), g.Group(children)),
		),
	)
}

func adminNav() g.Node {
	return h.Nav(h.Class("admin-nav"),
		h.A(h.Href("/admin/dashboard"), g.Text("Dashboard")),
		h.A(h.Href("/admin/visitors"), g.Text("Visitors")),
		h.A(h.Href("/admin/export/stats"), g.Text("Export")),
		h.A(h.Href("/admin/logout"), g.Text("Log out")),
	)
}

func AdminLogin(errMsg string) g.Node {
	return adminLayout("Admin Login",
		h.Main(h.Class("admin-login"),
			h.H1(g.Text("Admin Login")),
			g.If(errMsg != "", h.P(h.Class("notice notice-error"), g.Text(errMsg))),
			h.Form(h.Method("post"), h.Action("/admin/login"),
				h.Label(h.For("username"), g.Text("Username")),
				h.Input(h.ID("username"), h.Name("username"), h.Type("text"), h.Required()),
				h.Label(h.For("password"), g.Text("Password")),
				h.Input(h.ID("password"), h.Name("password"), h.Type("password"), h.Required()),
				h.Button(h.Type("submit"), h.Class("btn btn-primary"), g.Text("Sign in")),
			),
		),
	)
}

// AdminDashboard shows the aggregate counters. Project slugs are resolved
// to titles through cat where possible.
func AdminDashboard(stats *analytics.Stats, cat *catalog.Catalog) g.Node {
	return adminLayout("Admin Dashboard",
		adminNav(),
		h.Main(
			h.H1(g.Text("Dashboard")),
			h.Div(h.Class("stat-grid"),
				stat("Total visits", stats.TotalVisitors),
				stat("Unique visitors", stats.UniqueVisitors),
				stat("Today", stats.VisitorsToday),
				stat("This week", stats.VisitorsThisWeek),
				stat("Project views", stats.ProjectViews),
				stat("CV downloads", stats.CVDownloads),
				stat("Messages sent", stats.ContactsSent),
				stat("Messages failed", stats.ContactsFailed),
			),
			h.H2(g.Text("Top projects")),
			h.Table(
				h.THead(h.Tr(h.Th(g.Text("Project")), h.Th(g.Text("Views")))),
				h.TBody(g.Map(stats.TopProjects, func(p analytics.ProjectStat) g.Node {
					return h.Tr(h.Td(g.Text(projectTitle(cat, p.Slug))), h.Td(g.Text(strconv.FormatInt(p.Views, 10))))
				})),
			),
			h.H2(g.Text("Recent visitors")),
			visitorTable(stats.RecentVisitors),
			h.Form(h.Method("post"), h.Action("/admin/privacy/cleanup"),
				h.Button(h.Type("submit"), h.Class("btn"), g.Text("Purge expired visitor data")),
			),
		),
	)
}

func AdminVisitors(visitors []analytics.Visitor) g.Node {
	return adminLayout("Visitors",
		adminNav(),
		h.Main(
			h.H1(g.Text("Visitors")),
			visitorTable(visitors),
		),
	)
}

func AdminError(msg string) g.Node {
	return adminLayout("Error",
		adminNav(),
		h.Main(h.P(h.Class("notice notice-error"), g.Text(msg))),
	)
}

func stat(label string, n int64) g.Node {
	return h.Div(h.Class("stat"),
		h.Span(h.Class("stat-value"), g.Text(strconv.FormatInt(n, 10))),
		h.Span(h.Class("stat-label"), g.Text(label)),
	)
}

func visitorTable(visitors []analytics.Visitor) g.Node {
	return h.Table(
		h.THead(h.Tr(
			h.Th(g.Text("Time")), h.Th(g.Text("Visitor")), h.Th(g.Text("Path")), h.Th(g.Text("User agent")),
		)),
		h.TBody(g.Map(visitors, func(v analytics.Visitor) g.Node {
			return h.Tr(
				h.Td(g.Text(v.Timestamp.Format(timeLayout))),
				h.Td(h.Code(g.Text(v.HashedIP))),
				h.Td(g.Text(v.Path)),
				h.Td(g.Text(v.UserAgent)),
			)
		})),
	)
}

func projectTitle(cat *catalog.Catalog, slug string) string {
	if cat == nil {
		return slug
	}
	if p, err := cat.Project(slug); err == nil {
		return p.Title
	}
	return slug
}

// Privacy is the public privacy notice for the visitor analytics.
func Privacy(p catalog.Profile) g.Node {
	return layout("Privacy Policy", false,
		h.Main(h.Class("privacy"),
			h.H1(g.Text("Privacy Policy")),
			h.P(g.Text("This site keeps a small amount of anonymous usage data to see which pages and projects people find useful.")),
			h.Ul(
				h.Li(g.Text("IP addresses are never stored. A salted one-way hash is kept instead.")),
				h.Li(g.Text("Requests sent with Do Not Track are not recorded.")),
				h.Li(g.Text("Visit records are deleted after twelve months.")),
				h.Li(g.Text("Messages from the contact form are forwarded by email and not kept on this server.")),
			),
			h.P(g.Text("Questions? Write to "), h.A(h.Href("mailto:"+p.Email), g.Text(p.Email)), g.Text(".")),
			h.A(h.Href("/"), g.Text("Back to the site")),
		),
	)
}
