package store

import (
	"context"
	"time"
)

// SessionSummary describes one stored chat conversation.
type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	Messages     int64     `json:"messages"`
	LastActivity time.Time `json:"last_activity"`
}

// ChatCounter is implemented by history backends that can report totals.
type ChatCounter interface {
	ChatCounts(ctx context.Context) (sessions, messages int64, err error)
}

// AdminStats is the dashboard summary.
type AdminStats struct {
	TotalVisitors      int64               `json:"total_visitors"`
	UniqueVisitors     int64               `json:"unique_visitors"`
	VisitorsToday      int64               `json:"visitors_today"`
	VisitorsThisWeek   int64               `json:"visitors_this_week"`
	ChatSessions       int64               `json:"chat_sessions"`
	ChatMessages       int64               `json:"chat_messages"`
	ContactSubmissions int64               `json:"contact_submissions"`
	RecentVisitors     []VisitorMetric     `json:"recent_visitors"`
	RecentContacts     []ContactSubmission `json:"recent_contacts"`
}

// Stats gathers the dashboard numbers as of now. Chat totals come from chats,
// which may be a different backend than the site database.
func (s *SQLiteStore) Stats(ctx context.Context, now time.Time, chats ChatCounter) (*AdminStats, error) {
	stats := &AdminStats{}
	now = now.UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT hashed_ip) FROM visitors`,
	).Scan(&stats.TotalVisitors, &stats.UniqueVisitors)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, startOfDay,
	).Scan(&stats.VisitorsToday)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, now.Add(-7*24*time.Hour),
	).Scan(&stats.VisitorsThisWeek)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contact_submissions`,
	).Scan(&stats.ContactSubmissions)
	if err != nil {
		return nil, err
	}

	if chats == nil {
		chats = s
	}
	if stats.ChatSessions, stats.ChatMessages, err = chats.ChatCounts(ctx); err != nil {
		s.logger.Warn("failed to count chat history", "error", err)
	}

	if stats.RecentVisitors, err = s.RecentVisitors(ctx, 50); err != nil {
		return nil, err
	}
	if stats.RecentContacts, err = s.RecentContacts(ctx, 10); err != nil {
		return nil, err
	}
	return stats, nil
}
