package store

import (
	"context"

	"github.com/Zachkp/resume-site/internal/chat"
)

// History is a durable chat history backend.
type History interface {
	chat.HistoryStore
	ChatCounter
	ListSessions(ctx context.Context, limit int) ([]SessionSummary, error)
	Close() error
}

var (
	_ History = (*SQLiteStore)(nil)
	_ History = (*PostgresStore)(nil)
)
