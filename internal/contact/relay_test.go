package contact

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestEmailJSRelaySend(t *testing.T) {
	var got emailJSRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()

	relay := NewEmailJSRelay(srv.URL, "priv")
	err := relay.Send(context.Background(), "svc", "tpl", sample.TemplateParams(), "pub")
	require.NoError(t, err)

	assert.Equal(t, "svc", got.ServiceID)
	assert.Equal(t, "tpl", got.TemplateID)
	assert.Equal(t, "pub", got.UserID)
	assert.Equal(t, "priv", got.AccessToken)
	assert.Equal(t, "Hi", got.TemplateParams["message"])
}

func TestEmailJSRelayRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("The public key is invalid"))
	}))
	defer srv.Close()

	err := NewEmailJSRelay(srv.URL, "").Send(context.Background(), "svc", "tpl", nil, "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "public key is invalid")
}

func TestEmailJSRelayForbiddenHint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("API calls are disabled for non-browser applications"))
	}))
	defer srv.Close()

	err := NewEmailJSRelay(srv.URL, "priv").Send(context.Background(), "svc", "tpl", nil, "pub")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
	assert.Contains(t, err.Error(), "non-browser applications enabled")
}

func TestEmailJSRelayDefaultEndpoint(t *testing.T) {
	assert.Equal(t, DefaultEmailJSEndpoint, NewEmailJSRelay("", "").Endpoint)
}

func TestSMTPRelay(t *testing.T) {
	relay := NewSMTPRelay("mail.example.com", "", "me@example.com", "secret", "inbox@example.com")
	var addr, from string
	var to []string
	var msg []byte
	relay.sendMail = func(a string, _ smtp.Auth, f string, t []string, m []byte) error {
		addr, from, to, msg = a, f, t, m
		return nil
	}

	require.NoError(t, relay.Send(context.Background(), "", "", sample.TemplateParams(), ""))
	assert.Equal(t, "mail.example.com:587", addr)
	assert.Equal(t, "me@example.com", from)
	assert.Equal(t, []string{"inbox@example.com"}, to)
	assert.Contains(t, string(msg), "Reply-To: <a@b.com>\r\n")
	assert.Contains(t, string(msg), "Subject: Portfolio Contact: S\r\n")
	assert.True(t, strings.Contains(string(msg), "Hi"))
}

func TestComposeMailKeepsHeadersIntact(t *testing.T) {
	raw := composeMail("me@example.com", "inbox@example.com", map[string]string{
		FieldName:    "Eve",
		FieldEmail:   "a@b.com\r\nBcc: victim@example.net",
		FieldSubject: "hi\r\nBcc: other@example.net",
		FieldMessage: "body",
	})

	msg, err := mail.ReadMessage(strings.NewReader(string(raw)))
	require.NoError(t, err)
	assert.Empty(t, msg.Header.Get("Bcc"))
	assert.Empty(t, msg.Header.Get("Reply-To"))
	assert.Equal(t, "inbox@example.com", msg.Header.Get("To"))

	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Portfolio Contact: hi Bcc: other@example.net", subject)
}

func TestSMTPRelayMissingCredentials(t *testing.T) {
	relay := NewSMTPRelay("", "", "", "", "")
	relay.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("sendMail must not be called")
		return nil
	}
	err := relay.Send(context.Background(), "", "", sample.TemplateParams(), "")
	assert.EqualError(t, err, "SMTP credentials not configured")
}

func TestTracedRelayRecordsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	fail := errors.New("nope")
	calls := 0
	relay := TracedRelay{
		Next: RelayFunc(func(ctx context.Context, s, tpl string, f map[string]string, k string) error {
			calls++
			if calls == 2 {
				return fail
			}
			return nil
		}),
		Tracer: tp.Tracer("test"),
	}

	require.NoError(t, relay.Send(context.Background(), "svc", "tpl", nil, "pub"))
	assert.ErrorIs(t, relay.Send(context.Background(), "svc", "tpl", nil, "pub"), fail)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "contact.relay.send", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
