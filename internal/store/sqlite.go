// Package store persists the site's data: chat history, privacy-conscious
// visitor metrics and contact form submissions.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Zachkp/resume-site/internal/chat"
	"github.com/Zachkp/resume-site/internal/reply"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the site database. It also serves as the default chat history backend.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if needed) the database at path and migrates it.
// Use ":memory:" for a throwaway database.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn := "file::memory:?_time_format=sqlite"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// single connection keeps writers serialized and :memory: databases shared
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chat_messages (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id  TEXT NOT NULL,
		message_id  INTEGER NOT NULL,
		sender      TEXT NOT NULL,
		text        TEXT NOT NULL,
		attachments TEXT,
		created_at  DATETIME NOT NULL,
		UNIQUE(session_id, message_id)
	);
	CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, message_id);

	CREATE TABLE IF NOT EXISTS visitors (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		hashed_ip  TEXT NOT NULL,
		user_agent TEXT,
		path       TEXT,
		timestamp  DATETIME NOT NULL,
		country    TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_visitors_time ON visitors(timestamp);

	CREATE TABLE IF NOT EXISTS contact_submissions (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL,
		message    TEXT NOT NULL,
		delivered  TEXT,
		created_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// SaveMessage stores one chat message. Saving the same message twice is a no-op.
func (s *SQLiteStore) SaveMessage(ctx context.Context, sessionID string, m chat.Message) error {
	files, err := encodeAttachments(m.Attachments)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO chat_messages (session_id, message_id, sender, text, attachments, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, m.ID, string(m.Sender), m.Text, files, m.Timestamp.UTC(),
	)
	return err
}

// LoadMessages returns the newest limit messages of a session, oldest first.
func (s *SQLiteStore) LoadMessages(ctx context.Context, sessionID string, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = chat.DefaultHistoryLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, sender, text, attachments, created_at
		 FROM chat_messages WHERE session_id = ?
		 ORDER BY message_id DESC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []chat.Message
	for rows.Next() {
		var (
			m      chat.Message
			sender string
			files  sql.NullString
		)
		if err := rows.Scan(&m.ID, &sender, &m.Text, &files, &m.Timestamp); err != nil {
			return nil, err
		}
		m.Sender = chat.Sender(sender)
		if m.Attachments, err = decodeAttachments(files.String); err != nil {
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

// ListSessions summarizes the most recently active chat sessions.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, COUNT(*), MAX(created_at)
		 FROM chat_messages GROUP BY session_id
		 ORDER BY MAX(created_at) DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var (
			sum  SessionSummary
			last string
		)
		if err := rows.Scan(&sum.SessionID, &sum.Messages, &last); err != nil {
			return nil, err
		}
		sum.LastActivity = parseSQLiteTime(last)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// ChatCounts returns the number of sessions and messages stored.
func (s *SQLiteStore) ChatCounts(ctx context.Context) (sessions, messages int64, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT session_id), COUNT(*) FROM chat_messages`,
	).Scan(&sessions, &messages)
	return sessions, messages, err
}

func encodeAttachments(files []reply.FileAttachment) (sql.NullString, error) {
	if len(files) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(files)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode attachments: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeAttachments(raw string) ([]reply.FileAttachment, error) {
	if raw == "" {
		return nil, nil
	}
	var files []reply.FileAttachment
	if err := json.Unmarshal([]byte(raw), &files); err != nil {
		return nil, err
	}
	return files, nil
}

func reverse(msgs []chat.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}

// parseSQLiteTime reads aggregate results, which come back as text rather than DATETIME.
func parseSQLiteTime(v string) time.Time {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
		time.RFC3339Nano,
	} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
