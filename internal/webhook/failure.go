package webhook

import (
	"errors"
	"time"

	"github.com/Zachkp/resume-site/internal/reply"
)

// Failure converts an error from this package into the single user-facing
// reply shown for it. timeout is the limit named in the timeout message.
func Failure(err error, timeout time.Duration) reply.NormalizedReply {
	var (
		herr *HTTPError
		terr *TimeoutError
		ferr *ResponseFormatError
	)
	switch {
	case errors.Is(err, ErrNotConfigured):
		return reply.Failed(reply.NotConfiguredText)
	case errors.As(err, &terr):
		if timeout <= 0 {
			timeout = terr.After
		}
		return reply.Failed(reply.TimeoutText(timeout))
	case errors.As(err, &herr):
		return reply.Failed(reply.StatusText(herr.Status, herr.Detail))
	case errors.As(err, &ferr):
		return reply.Failed(reply.ResponseFormatText)
	default:
		return reply.Failed(reply.NetworkErrorText)
	}
}
