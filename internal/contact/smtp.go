package contact

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/mail"
	"net/smtp"
	"strings"
)

// SMTPRelay delivers the message as a plain-text email through an SMTP
// server. The service, template and public key arguments are unused.
type SMTPRelay struct {
	Host     string
	Port     string
	User     string
	Password string
	To       string

	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPRelay(host, port, user, password, to string) *SMTPRelay {
	if host == "" {
		host = "smtp.gmail.com"
	}
	if port == "" {
		port = "587"
	}
	return &SMTPRelay{Host: host, Port: port, User: user, Password: password, To: to, sendMail: smtp.SendMail}
}

func (r *SMTPRelay) Send(ctx context.Context, _, _ string, fields map[string]string, _ string) error {
	if r.User == "" || r.Password == "" {
		return errors.New("SMTP credentials not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	to := r.To
	if to == "" {
		to = r.User
	}

	auth := smtp.PlainAuth("", r.User, r.Password, r.Host)
	if err := r.sendMail(r.Host+":"+r.Port, auth, r.User, []string{to}, composeMail(r.User, to, fields)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// headerValue flattens line breaks so visitor input cannot start a new
// header.
var headerValue = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func composeMail(from, to string, fields map[string]string) []byte {
	subject := mime.QEncoding.Encode("utf-8", headerValue.Replace("Portfolio Contact: "+fields[FieldSubject]))
	body := fmt.Sprintf(`
New contact form submission from your portfolio:

Name: %s
Email: %s
Subject: %s
Message:
%s

---
Sent from your portfolio contact form
`, fields[FieldName], fields[FieldEmail], fields[FieldSubject], fields[FieldMessage])

	var b strings.Builder
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("From: " + from + "\r\n")
	// An address that does not parse is left out rather than passed through.
	if addr, err := mail.ParseAddress(fields[FieldEmail]); err == nil {
		b.WriteString("Reply-To: " + (&mail.Address{Address: addr.Address}).String() + "\r\n")
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body + "\r\n")
	return []byte(b.String())
}
