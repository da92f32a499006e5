// Package notify fans contact form submissions out to the site owner.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Contact is a visitor's contact form submission.
type Contact struct {
	Name    string
	Email   string
	Message string
}

type Notifier interface {
	Name() string
	Notify(ctx context.Context, c Contact) error
}

// Broadcast sends c to every notifier and returns the names of those that
// accepted it. Failures are joined into err; a partial delivery returns both.
func Broadcast(ctx context.Context, notifiers []Notifier, c Contact, logger *slog.Logger) (delivered []string, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	var errs []error
	for _, n := range notifiers {
		if nerr := n.Notify(ctx, c); nerr != nil {
			logger.Warn("contact notification failed", "notifier", n.Name(), "error", nerr)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), nerr))
			continue
		}
		delivered = append(delivered, n.Name())
	}
	return delivered, errors.Join(errs...)
}
