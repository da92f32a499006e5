package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const DefaultTelegramTimeout = 30 * time.Second

type TelegramConfig struct {
	Token  string
	ChatID int64
	// Endpoint overrides the Bot API URL format; tests point it at a local server.
	Endpoint   string
	HTTPClient *http.Client
	// Timeout bounds each Bot API call when HTTPClient is not set.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Telegram posts submissions to a chat. The bot connects on first use.
type Telegram struct {
	cfg TelegramConfig

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTelegramTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Telegram{cfg: cfg}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) connect() (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bot != nil {
		return t.bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithClient(t.cfg.Token, t.cfg.Endpoint, t.cfg.HTTPClient)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	t.cfg.Logger.Info("telegram bot connected", "username", bot.Self.UserName)
	t.bot = bot
	return bot, nil
}

// Notify sends the submission. The Bot API client takes no context, so the
// call runs aside and Notify returns as soon as ctx is done.
func (t *Telegram) Notify(ctx context.Context, c Contact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- t.send(c) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("telegram send: %w", ctx.Err())
	}
}

func (t *Telegram) send(c Contact) error {
	bot, err := t.connect()
	if err != nil {
		return err
	}
	text := fmt.Sprintf("New contact form submission\n\nName: %s\nEmail: %s\n\n%s", c.Name, c.Email, c.Message)
	msg := tgbotapi.NewMessage(t.cfg.ChatID, text)
	msg.DisableWebPagePreview = true
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
