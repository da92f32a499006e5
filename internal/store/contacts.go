package store

import (
	"context"
	"strings"
	"time"
)

// ContactSubmission is a message left through the contact form.
type ContactSubmission struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	Delivered []string  `json:"delivered"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveContact stores a submission along with the channels that accepted it.
func (s *SQLiteStore) SaveContact(ctx context.Context, c ContactSubmission) (int64, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO contact_submissions (name, email, message, delivered, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.Name, c.Email, c.Message, strings.Join(c.Delivered, ","), c.CreatedAt.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) RecentContacts(ctx context.Context, limit int) ([]ContactSubmission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, message, COALESCE(delivered, ''), created_at
		 FROM contact_submissions ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ContactSubmission
	for rows.Next() {
		var (
			c         ContactSubmission
			delivered string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Message, &delivered, &c.CreatedAt); err != nil {
			return nil, err
		}
		if delivered != "" {
			c.Delivered = strings.Split(delivered, ",")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
