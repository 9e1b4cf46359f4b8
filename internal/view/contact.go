package view

import (
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"github.com/Keshav9835/portfolio/internal/catalog"
	"github.com/Keshav9835/portfolio/internal/contact"
)

// Notices shown above the form.
const (
	NoticeFailed      = "Oops! Something went wrong. Please try again later."
	NoticeBusy        = "Your message is still being sent. Please wait."
	NoticeIncomplete  = "Please fill in every field."
	NoticeRateLimited = "Too many messages from your connection. Please try again later."
	NoticeSent        = "Thank you for your message! I'll get back to you soon."
)

func Contact(p catalog.Profile, snap contact.Snapshot) g.Node {
	return h.Section(h.ID("contact"), h.Class("contact"),
		sectionHeader("Get In Touch"),
		h.P(h.Class("lead"), g.Text("I'm open to collaboration, learning opportunities, or just a good tech talk. Let's connect!")),
		h.Div(h.Class("contact-grid"),
			h.Div(h.Class("contact-info"),
				h.H3(g.Text("Let's Start a Conversation")),
				infoRow("Email", p.Email, "mailto:"+p.Email),
				infoRow("Phone", p.Phone, "tel:"+p.Phone),
				infoRow("Location", p.Location, ""),
			),
			ContactForm(snap, ""),
		),
	)
}

func infoRow(label, value, href string) g.Node {
	var v g.Node = h.Span(g.Text(value))
	if href != "" {
		v = h.A(h.Href(href), g.Text(value))
	}
	return h.Div(h.Class("info-row"),
		h.P(h.Class("info-label"), g.Text(label)),
		v,
	)
}

// ContactForm is the swappable form fragment. notice overrides the
// default message derived from the snapshot.
func ContactForm(snap contact.Snapshot, notice string) g.Node {
	if snap.State == contact.Sent {
		return h.Div(h.ID("contact-form"), h.Class("contact-sent"),
			h.H3(g.Text("Message Sent!")),
			h.P(g.Text(NoticeSent)),
		)
	}
	if notice == "" && snap.Failed {
		notice = NoticeFailed
	}
	pending := snap.State == contact.Submitting
	m := snap.Message

	return h.Form(h.ID("contact-form"), h.Class("contact-form"),
		h.Method("post"), h.Action("/contact"),
		hx("post", "/contact"),
		hx("target", "#contact-form"),
		hx("swap", "outerHTML"),
		hx("disabled-elt", "find button"),
		g.If(notice != "", h.Div(h.Class("notice notice-error"), h.Role("alert"), g.Text(notice))),
		field("Name", contact.FieldName, "text", "Your Name", m.Name, pending),
		field("Email", contact.FieldEmail, "email", "your@email.com", m.Email, pending),
		field("Subject", contact.FieldSubject, "text", "What's this about?", m.Subject, pending),
		h.Div(h.Class("field"),
			h.Label(h.For(contact.FieldMessage), g.Text("Message")),
			h.Textarea(h.ID(contact.FieldMessage), h.Name(contact.FieldMessage),
				g.Attr("rows", "6"), h.Required(), h.Placeholder("Tell me about your project or just say hello!"),
				g.If(pending, h.Disabled()),
				fieldSync(),
				g.Text(m.Body),
			),
		),
		h.Button(h.Type("submit"), h.Class("btn btn-primary"),
			g.If(pending, h.Disabled()),
			g.If(pending, g.Text("Sending...")),
			g.If(!pending, g.Text("Send Message")),
		),
	)
}

func field(label, name, typ, placeholder, value string, disabled bool) g.Node {
	return h.Div(h.Class("field"),
		h.Label(h.For(name), g.Text(label)),
		h.Input(h.ID(name), h.Name(name), h.Type(typ), h.Value(value),
			h.Required(), h.Placeholder(placeholder),
			g.If(disabled, h.Disabled()),
			fieldSync(),
		),
	)
}

// fieldSync posts the draft on every change so it survives a failed send.
func fieldSync() g.Node {
	return g.Group([]g.Node{
		hx("post", "/contact/field"),
		hx("trigger", "change"),
		hx("swap", "none"),
	})
}
