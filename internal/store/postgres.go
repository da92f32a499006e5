package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Zachkp/resume-site/internal/chat"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps chat history in Postgres for deployments where the
// site runs on more than one instance.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresStore(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool, logger: logger}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	migration := `
	CREATE TABLE IF NOT EXISTS chat_messages (
		id          BIGSERIAL PRIMARY KEY,
		session_id  TEXT NOT NULL,
		message_id  BIGINT NOT NULL,
		sender      TEXT NOT NULL,
		text        TEXT NOT NULL,
		attachments JSONB,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (session_id, message_id)
	);
	CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, message_id);
	`
	if _, err := s.pool.Exec(ctx, migration); err != nil {
		return fmt.Errorf("run postgres migrations: %w", err)
	}
	s.logger.Info("postgres migrations completed")
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveMessage(ctx context.Context, sessionID string, m chat.Message) error {
	var files []byte
	if len(m.Attachments) > 0 {
		var err error
		if files, err = json.Marshal(m.Attachments); err != nil {
			return fmt.Errorf("encode attachments: %w", err)
		}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_messages (session_id, message_id, sender, text, attachments, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (session_id, message_id) DO NOTHING`,
		sessionID, m.ID, string(m.Sender), m.Text, files, m.Timestamp,
	)
	return err
}

func (s *PostgresStore) LoadMessages(ctx context.Context, sessionID string, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = chat.DefaultHistoryLimit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT message_id, sender, text, attachments, created_at
		 FROM chat_messages WHERE session_id = $1
		 ORDER BY message_id DESC LIMIT $2`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []chat.Message
	for rows.Next() {
		var (
			m      chat.Message
			sender string
			files  []byte
		)
		if err := rows.Scan(&m.ID, &sender, &m.Text, &files, &m.Timestamp); err != nil {
			return nil, err
		}
		m.Sender = chat.Sender(sender)
		if m.Attachments, err = decodeAttachments(string(files)); err != nil {
			s.logger.Warn("dropping unreadable attachments", "session_id", sessionID, "message_id", m.ID, "error", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	reverse(msgs)
	return msgs, nil
}

func (s *PostgresStore) ListSessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT session_id, COUNT(*), MAX(created_at)
		 FROM chat_messages GROUP BY session_id
		 ORDER BY MAX(created_at) DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		if err := rows.Scan(&sum.SessionID, &sum.Messages, &sum.LastActivity); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ChatCounts(ctx context.Context) (sessions, messages int64, err error) {
	err = s.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT session_id), COUNT(*) FROM chat_messages`,
	).Scan(&sessions, &messages)
	return sessions, messages, err
}
