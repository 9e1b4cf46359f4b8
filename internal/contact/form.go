// Package contact implements the contact form: field state, the
// Idle/Submitting/Sent submission flow and the mail relays that deliver it.
package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrIncomplete is returned by Submit when a required field is empty.
	ErrIncomplete = errors.New("all fields are required")
	// ErrInFlight is returned while a previous submission is still pending.
	ErrInFlight = errors.New("submission already in progress")
	// ErrAlreadySent is returned once the form has been delivered.
	ErrAlreadySent = errors.New("message already sent")
	// ErrUnknownField is returned by UpdateField for names outside the form.
	ErrUnknownField = errors.New("unknown form field")
)

// Template placeholder names, also used as the HTML input names.
const (
	FieldName    = "name"
	FieldEmail   = "email"
	FieldSubject = "subject"
	FieldMessage = "message"
)

// Fields lists the form inputs in display order.
var Fields = []string{FieldName, FieldEmail, FieldSubject, FieldMessage}

// Message is the in-progress contact message.
type Message struct {
	Name    string
	Email   string
	Subject string
	Body    string
}

// Complete reports whether every field is non-empty.
func (m Message) Complete() bool {
	for _, v := range []string{m.Name, m.Email, m.Subject, m.Body} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// TemplateParams maps the message onto the relay template placeholders.
func (m Message) TemplateParams() map[string]string {
	return map[string]string{
		FieldName:    m.Name,
		FieldEmail:   m.Email,
		FieldSubject: m.Subject,
		FieldMessage: m.Body,
	}
}

// Get returns the value of a named field.
func (m Message) Get(field string) string {
	switch field {
	case FieldName:
		return m.Name
	case FieldEmail:
		return m.Email
	case FieldSubject:
		return m.Subject
	case FieldMessage:
		return m.Body
	}
	return ""
}

type State int

const (
	Idle State = iota
	Submitting
	Sent
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Sent:
		return "sent"
	default:
		return "unknown"
	}
}

// Form is one visitor's contact form. It is safe for concurrent use; the
// relay call runs without holding the lock.
type Form struct {
	relay  Relay
	cfg    RelayConfig
	guard  Guard
	key    string
	logger log.FieldLogger

	mu     sync.Mutex
	msg    Message
	state  State
	failed bool
}

type Option func(*Form)

// WithGuard adds a cross-instance in-flight lock identified by key.
func WithGuard(g Guard, key string) Option {
	return func(f *Form) {
		f.guard = g
		f.key = key
	}
}

func WithLogger(l log.FieldLogger) Option {
	return func(f *Form) { f.logger = l }
}

// NewForm creates an empty form in the Idle state.
func NewForm(relay Relay, cfg RelayConfig, opts ...Option) *Form {
	f := &Form{relay: relay, cfg: cfg, logger: log.StandardLogger()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// UpdateField sets one field of the in-progress message. Inputs are
// disabled while a submission is pending and after the form is sent.
func (f *Form) UpdateField(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case Submitting:
		return ErrInFlight
	case Sent:
		return ErrAlreadySent
	}
	switch name {
	case FieldName:
		f.msg.Name = value
	case FieldEmail:
		f.msg.Email = value
	case FieldSubject:
		f.msg.Subject = value
	case FieldMessage:
		f.msg.Body = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

// Submit delivers the message through the relay. A call made while another
// is pending is rejected with ErrInFlight, never queued. On failure the
// message is kept so the visitor can retry.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	switch f.state {
	case Submitting:
		f.mu.Unlock()
		return ErrInFlight
	case Sent:
		f.mu.Unlock()
		return ErrAlreadySent
	}
	if !f.msg.Complete() {
		f.mu.Unlock()
		return ErrIncomplete
	}
	msg := f.msg
	f.state = Submitting
	f.failed = false
	f.mu.Unlock()

	if f.guard != nil {
		ok, err := f.guard.Acquire(ctx, f.key)
		switch {
		case err != nil:
			// The local state already serialises this form; keep going.
			f.logger.WithError(err).Warn("contact guard unavailable")
		case !ok:
			f.setState(Idle, false)
			return ErrInFlight
		default:
			defer func() {
				if err := f.guard.Release(context.WithoutCancel(ctx), f.key); err != nil {
					f.logger.WithError(err).Warn("contact guard release failed")
				}
			}()
		}
	}

	err := f.relay.Send(ctx, f.cfg.ServiceID, f.cfg.TemplateID, msg.TemplateParams(), f.cfg.PublicKey)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = Idle
		f.failed = true
		f.logger.WithError(err).WithField("subject", msg.Subject).Warn("contact relay send failed")
		return fmt.Errorf("send contact message: %w", err)
	}
	f.msg = Message{}
	f.state = Sent
	return nil
}

func (f *Form) setState(s State, failed bool) {
	f.mu.Lock()
	f.state = s
	f.failed = failed
	f.mu.Unlock()
}

// Snapshot is a consistent read of the form for rendering.
type Snapshot struct {
	Message Message
	State   State
	Failed  bool
}

func (f *Form) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot{Message: f.msg, State: f.state, Failed: f.failed}
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Form) Message() Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.msg
}
