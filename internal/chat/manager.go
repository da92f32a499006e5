package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultGreeting     = "Hello! How can I help you with my resume today?"
	DefaultHistoryLimit = 100
	DefaultIdleTTL      = 2 * time.Hour

	restoreTimeout = 10 * time.Second
)

// Options tune widgets created by a Manager.
type Options struct {
	Greeting     string
	HistoryLimit int
	// IdleTTL drops in-memory widgets nobody has touched for this long.
	// Stored history is kept and reloaded on the next visit.
	IdleTTL time.Duration
	// Source is reported to the webhook alongside each message.
	Source string
}

// Manager owns one Widget per session. Widgets never share state.
type Manager struct {
	mu        sync.Mutex
	widgets   map[string]*Widget
	transport Transport
	history   HistoryStore
	opts      Options
	logger    *slog.Logger
}

// NewManager creates a manager. history may be nil for in-memory sessions.
func NewManager(transport Transport, history HistoryStore, opts Options, logger *slog.Logger) *Manager {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	if opts.Source == "" {
		opts.Source = "chatbot"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		widgets:   make(map[string]*Widget),
		transport: transport,
		history:   history,
		opts:      opts,
		logger:    logger,
	}
}

// Widget returns the session's widget, creating and restoring it on first use.
// The history load runs outside the manager lock with its own deadline, so a
// cancelled request does not cut it short.
// A widget whose history failed to load is served but not kept, so the next
// request tries again.
func (m *Manager) Widget(ctx context.Context, sessionID string) *Widget {
	m.mu.Lock()
	m.evictIdleLocked(time.Now())
	if w, ok := m.widgets[sessionID]; ok {
		m.mu.Unlock()
		return w
	}
	m.mu.Unlock()

	w := newWidget(sessionID, m.opts, m.transport, m.history, m.logger)
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), restoreTimeout)
	err := w.restore(rctx, m.opts.HistoryLimit, m.opts.Greeting)
	cancel()
	if err != nil {
		return w
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.widgets[sessionID]; ok {
		return existing
	}
	m.widgets[sessionID] = w
	m.logger.Debug("chat session created", "session_id", sessionID, "restored", len(w.messages))
	return w
}

// Sessions is the number of widgets held in memory.
func (m *Manager) Sessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.widgets)
}

// Forget drops a session's in-memory widget.
func (m *Manager) Forget(sessionID string) {
	m.mu.Lock()
	delete(m.widgets, sessionID)
	m.mu.Unlock()
}

func (m *Manager) evictIdleLocked(now time.Time) {
	for id, w := range m.widgets {
		last, busy := w.idleSince()
		if !busy && now.Sub(last) > m.opts.IdleTTL {
			delete(m.widgets, id)
		}
	}
}
