// Package chat holds the per-visitor chat widget: its conversation, its
// open/closed panel and the single in-flight webhook call it may have.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Zachkp/resume-site/internal/reply"
	"github.com/Zachkp/resume-site/internal/webhook"
)

var (
	// ErrEmptyMessage rejects blank input without touching the conversation.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrBusy rejects a submit while the previous one is still in flight.
	ErrBusy = errors.New("a message is already being sent")
)

// State is where a widget is in its send cycle.
type State int

const (
	Idle State = iota
	Sending
	Succeeded
	EmptyReply
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sending:
		return "sending"
	case Succeeded:
		return "succeeded"
	case EmptyReply:
		return "empty_reply"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Transport sends a visitor message to the chat webhook.
type Transport interface {
	Chat(ctx context.Context, req webhook.ChatRequest) (*webhook.Response, error)
	ChatConfigured() bool
	ChatTimeout() time.Duration
}

// HistoryStore persists conversations across restarts.
type HistoryStore interface {
	SaveMessage(ctx context.Context, sessionID string, m Message) error
	LoadMessages(ctx context.Context, sessionID string, limit int) ([]Message, error)
}

// Exchange is the pair of messages produced by one submit.
type Exchange struct {
	User    Message       `json:"user"`
	Reply   Message       `json:"reply"`
	Outcome reply.Outcome `json:"outcome"`
}

// Snapshot is a consistent copy of the widget for rendering.
type Snapshot struct {
	SessionID string
	Open      bool
	Loading   bool
	State     State
	Messages  []Message
}

// Widget is the owned state of one visitor's chat.
type Widget struct {
	mu         sync.Mutex
	sessionID  string
	source     string
	open       bool
	state      State
	nextID     int64
	messages   []Message
	lastActive time.Time

	transport Transport
	history   HistoryStore
	logger    *slog.Logger
}

func newWidget(sessionID string, opts Options, transport Transport, history HistoryStore, logger *slog.Logger) *Widget {
	return &Widget{
		sessionID:  sessionID,
		source:     opts.Source,
		nextID:     1,
		lastActive: time.Now(),
		transport:  transport,
		history:    history,
		logger:     logger.With("session_id", sessionID),
	}
}

// restore seeds the conversation from stored history, or greets when there is none.
// When the history cannot be read, ids restart from the clock so new messages
// never collide with stored ones, and the error is returned.
func (w *Widget) restore(ctx context.Context, limit int, greeting string) error {
	if w.history != nil {
		msgs, err := w.history.LoadMessages(ctx, w.sessionID, limit)
		if err != nil {
			w.logger.Warn("failed to load chat history", "error", err)
			w.nextID = time.Now().UnixMilli()
			w.greet(greeting)
			return err
		}
		for _, m := range msgs {
			if m.ID >= w.nextID {
				w.nextID = m.ID + 1
			}
		}
		if len(msgs) > 0 {
			w.messages = msgs
			return nil
		}
	}
	w.greet(greeting)
	return nil
}

func (w *Widget) greet(greeting string) {
	if greeting != "" {
		w.messages = append(w.messages, w.newMessageLocked(greeting, SenderBot, nil))
	}
}

func (w *Widget) SessionID() string { return w.sessionID }

// Toggle flips the panel and returns the new open state.
func (w *Widget) Toggle() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.open = !w.open
	w.lastActive = time.Now()
	return w.open
}

func (w *Widget) SetOpen(open bool) {
	w.mu.Lock()
	w.open = open
	w.mu.Unlock()
}

func (w *Widget) Loading() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state == Sending
}

func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Widget) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	msgs := make([]Message, len(w.messages))
	copy(msgs, w.messages)
	return Snapshot{
		SessionID: w.sessionID,
		Open:      w.open,
		Loading:   w.state == Sending,
		State:     w.state,
		Messages:  msgs,
	}
}

// Submit sends one visitor message and always records exactly one terminal reply
// for it, even when ctx is cancelled mid-flight. The webhook call is bounded by
// the transport's chat timeout instead.
func (w *Widget) Submit(ctx context.Context, text string) (Exchange, error) {
	if strings.TrimSpace(text) == "" {
		return Exchange{}, ErrEmptyMessage
	}

	w.mu.Lock()
	if w.state == Sending {
		w.mu.Unlock()
		return Exchange{}, ErrBusy
	}
	user := w.newMessageLocked(text, SenderUser, nil)
	w.messages = append(w.messages, user)
	w.state = Sending
	w.lastActive = time.Now()
	w.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	w.persist(ctx, user)

	result := w.send(ctx, text)

	w.mu.Lock()
	sender := SenderBot
	switch result.Outcome {
	case reply.Ok:
		w.state = Succeeded
	case reply.EmptyOk:
		w.state = EmptyReply
	default:
		w.state = Failed
		sender = SenderError
	}
	bot := w.newMessageLocked(result.Text, sender, result.Attachments)
	w.messages = append(w.messages, bot)
	w.lastActive = time.Now()
	w.mu.Unlock()

	w.persist(ctx, bot)
	w.logger.Info("chat exchange complete", "outcome", result.Outcome.String(), "attachments", len(result.Attachments))

	return Exchange{User: user, Reply: bot, Outcome: result.Outcome}, nil
}

func (w *Widget) send(ctx context.Context, text string) reply.NormalizedReply {
	if !w.transport.ChatConfigured() {
		w.logger.Warn("chat webhook not configured")
		return webhook.Failure(webhook.ErrNotConfigured, w.transport.ChatTimeout())
	}
	resp, err := w.transport.Chat(ctx, webhook.ChatRequest{
		SessionID: w.sessionID,
		Message:   text,
		Source:    w.source,
	})
	if err != nil {
		return webhook.Failure(err, w.transport.ChatTimeout())
	}
	return reply.Normalize(resp.Body)
}

func (w *Widget) persist(ctx context.Context, m Message) {
	if w.history == nil {
		return
	}
	if err := w.history.SaveMessage(ctx, w.sessionID, m); err != nil {
		w.logger.Warn("failed to save chat message", "message_id", m.ID, "error", err)
	}
}

func (w *Widget) newMessageLocked(text string, sender Sender, files []reply.FileAttachment) Message {
	m := Message{
		ID:          w.nextID,
		Text:        text,
		Sender:      sender,
		Timestamp:   time.Now(),
		Attachments: files,
	}
	w.nextID++
	return m
}

func (w *Widget) idleSince() (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastActive, w.state == Sending
}
