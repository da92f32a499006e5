package chat

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Zachkp/resume-site/internal/reply"
	"github.com/Zachkp/resume-site/internal/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

type memoryHistory struct {
	mu   sync.Mutex
	msgs map[string][]Message
}

func newMemoryHistory() *memoryHistory {
	return &memoryHistory{msgs: make(map[string][]Message)}
}

func (h *memoryHistory) SaveMessage(_ context.Context, sessionID string, m Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs[sessionID] = append(h.msgs[sessionID], m)
	return nil
}

func (h *memoryHistory) LoadMessages(_ context.Context, sessionID string, limit int) ([]Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	msgs := h.msgs[sessionID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func webhookServer(t *testing.T, handler http.HandlerFunc) *webhook.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return webhook.New(webhook.Config{ChatURL: srv.URL, Logger: testLogger()})
}

func TestSubmitHelloEndToEnd(t *testing.T) {
	client := webhookServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"reply":"Hi there!"}`)
	})
	m := NewManager(client, nil, Options{}, testLogger())
	w := m.Widget(context.Background(), "s1")

	ex, err := w.Submit(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, reply.Ok, ex.Outcome)

	snap := w.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, SenderUser, snap.Messages[0].Sender)
	assert.Equal(t, "Hello", snap.Messages[0].Text)
	assert.Equal(t, SenderBot, snap.Messages[1].Sender)
	assert.Equal(t, "Hi there!", snap.Messages[1].Text)
	assert.Less(t, snap.Messages[0].ID, snap.Messages[1].ID)
	assert.False(t, snap.Loading)
	assert.Equal(t, Succeeded, snap.State)
}

func TestGreetingComesFirst(t *testing.T) {
	client := webhookServer(t, func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, `"ok"`) })
	m := NewManager(client, nil, Options{Greeting: DefaultGreeting}, testLogger())
	w := m.Widget(context.Background(), "s1")

	_, err := w.Submit(context.Background(), "Hello")
	require.NoError(t, err)

	snap := w.Snapshot()
	require.Len(t, snap.Messages, 3)
	assert.Equal(t, DefaultGreeting, snap.Messages[0].Text)
	assert.Equal(t, []int64{1, 2, 3}, []int64{snap.Messages[0].ID, snap.Messages[1].ID, snap.Messages[2].ID})
}

func TestSubmitBlankIsIgnored(t *testing.T) {
	client := webhookServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("webhook must not be called for blank input")
	})
	w := NewManager(client, nil, Options{}, testLogger()).Widget(context.Background(), "s1")

	_, err := w.Submit(context.Background(), "   \n")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, w.Snapshot().Messages)
	assert.Equal(t, Idle, w.State())
}

func TestSubmitServerError(t *testing.T) {
	client := webhookServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"message":"something detailed"}`)
	})
	w := NewManager(client, nil, Options{}, testLogger()).Widget(context.Background(), "s1")

	ex, err := w.Submit(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, reply.Error, ex.Outcome)
	assert.Equal(t, SenderError, ex.Reply.Sender)
	assert.Equal(t, reply.TransientServiceText, ex.Reply.Text)
	assert.Equal(t, Failed, w.State())
	assert.False(t, w.Loading())
}

func TestSubmitEmptyReply(t *testing.T) {
	client := webhookServer(t, func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, `{}`) })
	w := NewManager(client, nil, Options{}, testLogger()).Widget(context.Background(), "s1")

	ex, err := w.Submit(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, reply.EmptyOk, ex.Outcome)
	assert.Equal(t, SenderBot, ex.Reply.Sender)
	assert.Equal(t, reply.FallbackText, ex.Reply.Text)
	assert.Equal(t, EmptyReply, w.State())
}

func TestSubmitNotConfigured(t *testing.T) {
	client := webhook.New(webhook.Config{ChatURL: "YOUR_N8N_WEBHOOK_URL_HERE", Logger: testLogger()})
	w := NewManager(client, nil, Options{}, testLogger()).Widget(context.Background(), "s1")

	ex, err := w.Submit(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, reply.NotConfiguredText, ex.Reply.Text)
	assert.Len(t, w.Snapshot().Messages, 2)
}

func TestSubmitTimeoutStillProducesOneMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()
	client := webhook.New(webhook.Config{ChatURL: srv.URL, ChatTimeout: 50 * time.Millisecond, Logger: testLogger()})
	w := NewManager(client, nil, Options{}, testLogger()).Widget(context.Background(), "s1")

	ex, err := w.Submit(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, reply.Error, ex.Outcome)
	assert.Contains(t, ex.Reply.Text, "taking longer than expected")

	snap := w.Snapshot()
	assert.Len(t, snap.Messages, 2)
	assert.False(t, snap.Loading)
}

func TestSubmitSurvivesCallerCancellation(t *testing.T) {
	release := make(chan struct{})
	client := webhookServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		fmt.Fprint(w, `{"output":"late but here"}`)
	})
	w := NewManager(client, nil, Options{}, testLogger()).Widget(context.Background(), "s1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Exchange, 1)
	go func() {
		ex, _ := w.Submit(ctx, "Hello")
		done <- ex
	}()

	require.Eventually(t, w.Loading, time.Second, 5*time.Millisecond)
	cancel()
	close(release)

	ex := <-done
	assert.Equal(t, "late but here", ex.Reply.Text)
}

func TestSubmitWhileBusy(t *testing.T) {
	release := make(chan struct{})
	client := webhookServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		fmt.Fprint(w, `"done"`)
	})
	w := NewManager(client, nil, Options{}, testLogger()).Widget(context.Background(), "s1")

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = w.Submit(context.Background(), "first")
	}()
	require.Eventually(t, w.Loading, time.Second, 5*time.Millisecond)

	_, err := w.Submit(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	<-done

	snap := w.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "first", snap.Messages[0].Text)
	assert.Equal(t, "done", snap.Messages[1].Text)
}

func TestToggle(t *testing.T) {
	client := webhook.New(webhook.Config{Logger: testLogger()})
	w := NewManager(client, nil, Options{}, testLogger()).Widget(context.Background(), "s1")

	assert.False(t, w.Snapshot().Open)
	assert.True(t, w.Toggle())
	assert.False(t, w.Toggle())
	w.SetOpen(true)
	assert.True(t, w.Snapshot().Open)
}

func TestHistoryRestoredAcrossManagers(t *testing.T) {
	client := webhookServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"files":[{"url":"https://x.example/a.pdf","name":"a.pdf"}],"output":"see file"}`)
	})
	history := newMemoryHistory()

	first := NewManager(client, history, Options{Greeting: DefaultGreeting}, testLogger())
	_, err := first.Widget(context.Background(), "s1").Submit(context.Background(), "Hello")
	require.NoError(t, err)

	second := NewManager(client, history, Options{Greeting: DefaultGreeting}, testLogger())
	w := second.Widget(context.Background(), "s1")
	snap := w.Snapshot()
	require.Len(t, snap.Messages, 2, "greeting is not stored, only the exchange")
	assert.Equal(t, "see file", snap.Messages[1].Text)
	require.Len(t, snap.Messages[1].Attachments, 1)

	ex, err := w.Submit(context.Background(), "again")
	require.NoError(t, err)
	assert.Greater(t, ex.User.ID, snap.Messages[1].ID)
}

func TestManagerIsolatesSessions(t *testing.T) {
	client := webhookServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"reply":"`+r.URL.Query().Get("session_id")+`"}`)
	})
	m := NewManager(client, nil, Options{}, testLogger())

	a := m.Widget(context.Background(), "a")
	b := m.Widget(context.Background(), "b")
	assert.NotSame(t, a, b)
	assert.Same(t, a, m.Widget(context.Background(), "a"))

	exA, _ := a.Submit(context.Background(), "hi")
	exB, _ := b.Submit(context.Background(), "hi")
	assert.Equal(t, "a", exA.Reply.Text)
	assert.Equal(t, "b", exB.Reply.Text)
	assert.Equal(t, 2, m.Sessions())

	m.Forget("a")
	assert.Equal(t, 1, m.Sessions())
}

func TestManagerEvictsIdleWidgets(t *testing.T) {
	client := webhook.New(webhook.Config{Logger: testLogger()})
	m := NewManager(client, nil, Options{IdleTTL: 10 * time.Millisecond}, testLogger())

	m.Widget(context.Background(), "old")
	time.Sleep(30 * time.Millisecond)
	m.Widget(context.Background(), "new")

	assert.Equal(t, 1, m.Sessions())
}
