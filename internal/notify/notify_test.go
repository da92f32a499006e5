package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

var ada = Contact{Name: "Ada Lovelace", Email: "ada@example.com", Message: "Loved the engine demo.\nLet's talk."}

func TestBuildMessage(t *testing.T) {
	msg := string(BuildMessage("bot@example.com", "me@example.com", ada))

	headers, body, ok := strings.Cut(msg, "\r\n\r\n")
	require.True(t, ok)
	assert.Contains(t, headers, "To: me@example.com\r\n")
	assert.Contains(t, headers, "Subject: Portfolio Contact: Ada Lovelace\r\n")
	assert.Contains(t, headers, "From: bot@example.com\r\n")
	assert.Contains(t, headers, "Reply-To: ada@example.com")
	assert.Contains(t, body, "Name: Ada Lovelace")
	assert.Contains(t, body, "Loved the engine demo.\nLet's talk.")
}

func TestBuildMessageStripsHeaderInjection(t *testing.T) {
	c := Contact{Name: "Eve\r\nBcc: victim@example.com", Email: "eve@example.com\r\nX-Evil: 1", Message: "hi"}
	headers, _, _ := strings.Cut(string(BuildMessage("bot@example.com", "me@example.com", c)), "\r\n\r\n")

	assert.NotContains(t, headers, "\r\nBcc:")
	assert.NotContains(t, headers, "\r\nX-Evil:")
	assert.Contains(t, headers, "Subject: Portfolio Contact: Eve Bcc: victim@example.com\r\n")
}

func TestEmailNotify(t *testing.T) {
	e := NewEmail(EmailConfig{User: "bot@example.com", Pass: "pw", To: "me@example.com"}, testLogger())

	var gotAddr string
	var gotTo []string
	e.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo = addr, to
		assert.Equal(t, "bot@example.com", from)
		return nil
	}

	require.NoError(t, e.Notify(context.Background(), ada))
	assert.Equal(t, "smtp.gmail.com:587", gotAddr)
	assert.Equal(t, []string{"me@example.com"}, gotTo)
}

func TestEmailNotConfigured(t *testing.T) {
	e := NewEmail(EmailConfig{To: "me@example.com"}, testLogger())
	e.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("must not dial without credentials")
		return nil
	}
	assert.ErrorContains(t, e.Notify(context.Background(), ada), "credentials")
}

type stubNotifier struct {
	name string
	err  error
}

func (s stubNotifier) Name() string { return s.name }
func (s stubNotifier) Notify(context.Context, Contact) error { return s.err }

func TestBroadcast(t *testing.T) {
	boom := errors.New("boom")
	delivered, err := Broadcast(context.Background(), []Notifier{
		stubNotifier{name: "email", err: boom},
		stubNotifier{name: "telegram"},
	}, ada, testLogger())

	assert.Equal(t, []string{"telegram"}, delivered)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "email: boom")

	delivered, err = Broadcast(context.Background(), nil, ada, testLogger())
	assert.Empty(t, delivered)
	assert.NoError(t, err)
}

func TestTelegramNotify(t *testing.T) {
	var (
		mu   sync.Mutex
		sent []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"site","username":"site_bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			mu.Lock()
			sent = append(sent, r.FormValue("chat_id")+"|"+r.FormValue("text"))
			mu.Unlock()
			fmt.Fprint(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tg := NewTelegram(TelegramConfig{
		Token:    "123:abc",
		ChatID:   42,
		Endpoint: srv.URL + "/bot%s/%s",
		Logger:   testLogger(),
	})
	require.NoError(t, tg.Notify(context.Background(), ada))
	require.NoError(t, tg.Notify(context.Background(), ada))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, sent, 2)
	assert.True(t, strings.HasPrefix(sent[0], "42|New contact form submission"))
	assert.Contains(t, sent[0], "Email: ada@example.com")
}

func TestTelegramBadToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"ok":false,"error_code":401,"description":"Unauthorized"}`)
	}))
	defer srv.Close()

	tg := NewTelegram(TelegramConfig{Token: "bad", ChatID: 1, Endpoint: srv.URL + "/bot%s/%s", Logger: testLogger()})
	assert.ErrorContains(t, tg.Notify(context.Background(), ada), "telegram bot init")
}

func stalledBotAPI(t *testing.T) *httptest.Server {
	t.Helper()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/getMe") {
			fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"site","username":"site_bot"}}`)
			return
		}
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })
	return srv
}

func TestTelegramClientTimeout(t *testing.T) {
	srv := stalledBotAPI(t)
	tg := NewTelegram(TelegramConfig{
		Token:    "123:abc",
		ChatID:   42,
		Endpoint: srv.URL + "/bot%s/%s",
		Timeout:  100 * time.Millisecond,
		Logger:   testLogger(),
	})

	start := time.Now()
	assert.ErrorContains(t, tg.Notify(context.Background(), ada), "telegram send")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestTelegramHonoursContext(t *testing.T) {
	srv := stalledBotAPI(t)
	tg := NewTelegram(TelegramConfig{Token: "123:abc", ChatID: 42, Endpoint: srv.URL + "/bot%s/%s", Logger: testLogger()})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := tg.Notify(ctx, ada)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	cancelled, stop := context.WithCancel(context.Background())
	stop()
	assert.ErrorIs(t, tg.Notify(cancelled, ada), context.Canceled)
}
