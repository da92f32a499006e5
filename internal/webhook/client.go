// Package webhook calls the operator-configured workflow webhooks used by the site:
// chat replies, contact submissions and the resume download.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Zachkp/resume-site/internal/reply"
)

const (
	DefaultChatTimeout = 5 * time.Minute

	maxReplyBytes    = 4 << 20
	maxDownloadBytes = 25 << 20
)

// Config holds the endpoints and credentials. Empty URLs leave the feature unconfigured.
type Config struct {
	ChatURL     string
	ContactURL  string
	ResumeURL   string
	Username    string
	Password    string
	ChatTimeout time.Duration
	// ResumeFileName is used when the download response carries no filename.
	ResumeFileName string
	HTTPClient     *http.Client
	Logger         *slog.Logger
}

// Client talks to the webhooks. It never retries.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// Response is a completed 2xx exchange.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// ChatRequest is one visitor message.
type ChatRequest struct {
	SessionID string
	Message   string
	Source    string
}

// ContactRequest is a validated contact form submission.
type ContactRequest struct {
	Name    string
	Email   string
	Message string
}

func New(cfg Config) *Client {
	if cfg.ChatTimeout <= 0 {
		cfg.ChatTimeout = DefaultChatTimeout
	}
	if cfg.ResumeFileName == "" {
		cfg.ResumeFileName = "resume.pdf"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = newHTTPClient()
	}
	return &Client{cfg: cfg, http: hc, logger: cfg.Logger}
}

// newHTTPClient pools connections to the webhook host. Deadlines come from
// the per-call context, so the client itself has no overall timeout.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// ChatTimeout is the client-side limit applied to chat calls.
func (c *Client) ChatTimeout() time.Duration { return c.cfg.ChatTimeout }

func (c *Client) ChatConfigured() bool    { return Configured(c.cfg.ChatURL) }
func (c *Client) ContactConfigured() bool { return Configured(c.cfg.ContactURL) }
func (c *Client) ResumeConfigured() bool  { return Configured(c.cfg.ResumeURL) }

// Configured reports whether raw looks like a usable absolute http(s) URL
// rather than an empty value or a template placeholder.
func Configured(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(raw, "YOUR_") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Chat posts one message and returns the raw 2xx response for normalization.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*Response, error) {
	if !c.ChatConfigured() {
		return nil, ErrNotConfigured
	}

	u, err := url.Parse(c.cfg.ChatURL)
	if err != nil {
		return nil, ErrNotConfigured
	}
	q := u.Query()
	q.Set("session_id", req.SessionID)
	q.Set("sessionId", req.SessionID)
	u.RawQuery = q.Encode()

	source := req.Source
	if source == "" {
		source = "chatbot"
	}
	payload := map[string]string{
		"message":           req.Message,
		"chatInput":         req.Message,
		"session_id":        req.SessionID,
		"sessionId":         req.SessionID,
		"sessionID":         req.SessionID,
		"memory_session_id": req.SessionID,
		"timestamp":         time.Now().UTC().Format(time.RFC3339Nano),
		"source":            source,
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ChatTimeout)
	defer cancel()

	headers := http.Header{}
	headers.Set("X-Session-ID", req.SessionID)
	headers.Set("Session-ID", req.SessionID)

	c.logger.Debug("sending chat message", "session_id", req.SessionID, "content_len", len(req.Message))
	return c.postJSON(ctx, u.String(), payload, headers)
}

// Contact posts a contact form submission. There is no client-side timeout.
func (c *Client) Contact(ctx context.Context, req ContactRequest) (*Response, error) {
	if !c.ContactConfigured() {
		return nil, ErrNotConfigured
	}
	payload := map[string]string{
		"name":      req.Name,
		"email":     req.Email,
		"message":   req.Message,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"source":    "contact",
	}
	return c.postJSON(ctx, c.cfg.ContactURL, payload, nil)
}

func (c *Client) postJSON(ctx context.Context, target string, payload any, headers http.Header) (*Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/plain;q=0.9, */*;q=0.8")
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return c.do(ctx, req, maxReplyBytes)
}

func (c *Client) do(ctx context.Context, req *http.Request, limit int64) (*Response, error) {
	if c.cfg.Username != "" || c.cfg.Password != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, err, start)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err == nil && int64(len(body)) > limit {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body = body[:limit]
		} else {
			c.logger.Warn("webhook response too large", "host", req.URL.Host, "limit", limit)
			return nil, &ResponseFormatError{Err: errors.New("response too large")}
		}
	}
	if err != nil {
		if ctxErr := c.transportError(ctx, err, start); isTimeout(ctxErr) {
			return nil, ctxErr
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body = nil
		} else {
			return nil, &ResponseFormatError{Err: err}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		herr := &HTTPError{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Detail:     reply.ErrorDetail(body, http.StatusText(resp.StatusCode)),
		}
		c.logger.Warn("webhook error response",
			"status", resp.StatusCode,
			"host", req.URL.Host,
			"detail", herr.Detail,
		)
		return nil, herr
	}

	c.logger.Debug("webhook response", "status", resp.StatusCode, "bytes", len(body), "elapsed", time.Since(start))
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

func (c *Client) transportError(ctx context.Context, err error, start time.Time) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		c.logger.Warn("webhook call timed out", "elapsed", time.Since(start))
		return &TimeoutError{After: c.cfg.ChatTimeout}
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		c.logger.Warn("webhook call timed out", "error", err)
		return &TimeoutError{After: time.Since(start)}
	}
	c.logger.Warn("webhook call failed", "error", err)
	return &NetworkError{Err: err}
}

func isTimeout(err error) bool {
	var terr *TimeoutError
	return errors.As(err, &terr)
}
