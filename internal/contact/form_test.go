package contact

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRelay struct {
	mu    sync.Mutex
	calls []map[string]string
	err   error
	block chan struct{}
}

func (s *stubRelay) Send(ctx context.Context, serviceID, templateID string, fields map[string]string, publicKey string) error {
	s.mu.Lock()
	s.calls = append(s.calls, fields)
	s.mu.Unlock()
	if s.block != nil {
		<-s.block
	}
	return s.err
}

func (s *stubRelay) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

var testCfg = RelayConfig{ServiceID: "svc", TemplateID: "tpl", PublicKey: "pub"}

func fill(t *testing.T, f *Form, m Message) {
	t.Helper()
	require.NoError(t, f.UpdateField(FieldName, m.Name))
	require.NoError(t, f.UpdateField(FieldEmail, m.Email))
	require.NoError(t, f.UpdateField(FieldSubject, m.Subject))
	require.NoError(t, f.UpdateField(FieldMessage, m.Body))
}

var sample = Message{Name: "A", Email: "a@b.com", Subject: "S", Body: "Hi"}

func TestSubmitSuccess(t *testing.T) {
	relay := &stubRelay{}
	f := NewForm(relay, testCfg)
	fill(t, f, sample)

	require.NoError(t, f.Submit(context.Background()))

	snap := f.Snapshot()
	assert.Equal(t, Sent, snap.State)
	assert.Equal(t, Message{}, snap.Message)
	assert.False(t, snap.Failed)
	require.Equal(t, 1, relay.count())
	assert.Equal(t, map[string]string{
		"name":    "A",
		"email":   "a@b.com",
		"subject": "S",
		"message": "Hi",
	}, relay.calls[0])
}

func TestSubmitFailureKeepsMessage(t *testing.T) {
	relay := &stubRelay{err: errors.New("provider rejected")}
	f := NewForm(relay, testCfg)
	fill(t, f, sample)

	err := f.Submit(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, relay.err)

	snap := f.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.Equal(t, sample, snap.Message)
	assert.True(t, snap.Failed)
	assert.Equal(t, 1, relay.count())
}

func TestRetryAfterFailure(t *testing.T) {
	relay := &stubRelay{err: errors.New("down")}
	f := NewForm(relay, testCfg)
	fill(t, f, sample)

	require.Error(t, f.Submit(context.Background()))
	relay.err = nil
	require.NoError(t, f.Submit(context.Background()))
	assert.Equal(t, Sent, f.State())
	assert.Equal(t, 2, relay.count())
}

func TestSubmitRequiresAllFields(t *testing.T) {
	for _, field := range Fields {
		t.Run(field, func(t *testing.T) {
			relay := &stubRelay{}
			f := NewForm(relay, testCfg)
			fill(t, f, sample)
			require.NoError(t, f.UpdateField(field, ""))

			err := f.Submit(context.Background())
			assert.ErrorIs(t, err, ErrIncomplete)
			assert.Equal(t, 0, relay.count())
			assert.Equal(t, Idle, f.State())
		})
	}
}

func TestWhitespaceOnlyFieldIsEmpty(t *testing.T) {
	relay := &stubRelay{}
	f := NewForm(relay, testCfg)
	fill(t, f, sample)
	require.NoError(t, f.UpdateField(FieldSubject, "   "))

	assert.ErrorIs(t, f.Submit(context.Background()), ErrIncomplete)
	assert.Equal(t, 0, relay.count())
}

func TestSecondSubmitWhilePendingIsRejected(t *testing.T) {
	relay := &stubRelay{block: make(chan struct{})}
	f := NewForm(relay, testCfg)
	fill(t, f, sample)

	done := make(chan error, 1)
	go func() { done <- f.Submit(context.Background()) }()

	require.Eventually(t, func() bool { return f.State() == Submitting }, time.Second, time.Millisecond)

	assert.ErrorIs(t, f.Submit(context.Background()), ErrInFlight)
	assert.ErrorIs(t, f.UpdateField(FieldName, "B"), ErrInFlight)

	close(relay.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, relay.count())
	assert.Equal(t, Sent, f.State())
}

func TestSentIsTerminal(t *testing.T) {
	relay := &stubRelay{}
	f := NewForm(relay, testCfg)
	fill(t, f, sample)
	require.NoError(t, f.Submit(context.Background()))

	assert.ErrorIs(t, f.Submit(context.Background()), ErrAlreadySent)
	assert.ErrorIs(t, f.UpdateField(FieldName, "again"), ErrAlreadySent)
	assert.Equal(t, 1, relay.count())
}

func TestUpdateFieldUnknown(t *testing.T) {
	f := NewForm(&stubRelay{}, testCfg)
	err := f.UpdateField("phone", "123")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestUpdateFieldAcceptsAnyCharacters(t *testing.T) {
	f := NewForm(&stubRelay{}, testCfg)
	require.NoError(t, f.UpdateField(FieldMessage, "<script>ü\n\t"))
	assert.Equal(t, "<script>ü\n\t", f.Message().Body)
	assert.Equal(t, "<script>ü\n\t", f.Message().Get(FieldMessage))
}

func TestGuardHeldElsewhereRejects(t *testing.T) {
	relay := &stubRelay{}
	guard := NewMemoryGuard()
	_, _ = guard.Acquire(context.Background(), "sess-1")

	f := NewForm(relay, testCfg, WithGuard(guard, "sess-1"))
	fill(t, f, sample)

	assert.ErrorIs(t, f.Submit(context.Background()), ErrInFlight)
	assert.Equal(t, 0, relay.count())
	assert.Equal(t, Idle, f.State())
	assert.Equal(t, sample, f.Message())
}

func TestGuardReleasedAfterSend(t *testing.T) {
	relay := &stubRelay{err: errors.New("boom")}
	guard := NewMemoryGuard()
	f := NewForm(relay, testCfg, WithGuard(guard, "sess-1"))
	fill(t, f, sample)

	require.Error(t, f.Submit(context.Background()))
	ok, err := guard.Acquire(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

type brokenGuard struct{}

func (brokenGuard) Acquire(context.Context, string) (bool, error) { return false, errors.New("redis down") }
func (brokenGuard) Release(context.Context, string) error         { return nil }

func TestGuardErrorDoesNotBlockSend(t *testing.T) {
	relay := &stubRelay{}
	f := NewForm(relay, testCfg, WithGuard(brokenGuard{}, "sess-1"))
	fill(t, f, sample)

	require.NoError(t, f.Submit(context.Background()))
	assert.Equal(t, 1, relay.count())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "submitting", Submitting.String())
	assert.Equal(t, "sent", Sent.String())
	assert.Equal(t, "unknown", State(9).String())
}
