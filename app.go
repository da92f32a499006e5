package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/Zachkp/resume-site/internal/chat"
	"github.com/Zachkp/resume-site/internal/config"
	"github.com/Zachkp/resume-site/internal/notify"
	"github.com/Zachkp/resume-site/internal/resume"
	"github.com/Zachkp/resume-site/internal/store"
	"github.com/Zachkp/resume-site/internal/webhook"
)

// app wires the site together. Handlers hang off it.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	site      *store.SQLiteStore
	history   store.History // nil with the memory backend
	hooks     *webhook.Client
	chats     *chat.Manager
	notifiers []notify.Notifier
	resume    *resume.Resume

	accessToken string
	adminToken  string
	hashingSalt string
	now         func() time.Time
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	doc, err := resume.Load(cfg.Resume.File)
	if err != nil {
		return nil, err
	}

	site, err := store.NewSQLiteStore(cfg.History.SQLitePath, logger)
	if err != nil {
		return nil, fmt.Errorf("open site database: %w", err)
	}

	var history store.History
	switch cfg.History.Backend {
	case config.BackendSQLite:
		history = site
	case config.BackendPostgres:
		pg, err := store.NewPostgresStore(ctx, cfg.History.PostgresURL, logger)
		if err != nil {
			site.Close()
			return nil, err
		}
		history = pg
	}

	hooks := webhook.New(webhook.Config{
		ChatURL:        cfg.Webhook.ChatURL,
		ContactURL:     cfg.Webhook.ContactURL,
		ResumeURL:      cfg.Webhook.ResumeURL,
		Username:       cfg.Webhook.Username,
		Password:       cfg.Webhook.Password,
		ChatTimeout:    cfg.Webhook.ChatTimeout,
		ResumeFileName: cfg.Resume.DownloadName,
		Logger:         logger,
	})
	if !hooks.ChatConfigured() {
		logger.Warn("chat webhook not configured; set WEBHOOK_CHAT_URL or WEBHOOK_URL")
	}

	var chatHistory chat.HistoryStore
	if history != nil {
		chatHistory = history
	}
	chats := chat.NewManager(hooks, chatHistory, chat.Options{
		Greeting:     chat.DefaultGreeting,
		HistoryLimit: cfg.History.Limit,
	}, logger)

	var notifiers []notify.Notifier
	if cfg.SMTP.Enabled() {
		notifiers = append(notifiers, notify.NewEmail(notify.EmailConfig{
			Host: cfg.SMTP.Host,
			Port: cfg.SMTP.Port,
			User: cfg.SMTP.User,
			Pass: cfg.SMTP.Pass,
			To:   cfg.SMTP.To,
		}, logger))
	}
	if cfg.Telegram.Enabled() {
		notifiers = append(notifiers, notify.NewTelegram(notify.TelegramConfig{
			Token:  cfg.Telegram.Token,
			ChatID: cfg.Telegram.ChatID,
			Logger: logger,
		}))
	}

	a := &app{
		cfg:         cfg,
		logger:      logger,
		site:        site,
		history:     history,
		hooks:       hooks,
		chats:       chats,
		notifiers:   notifiers,
		resume:      doc,
		accessToken: generateToken(),
		adminToken:  generateToken(),
		hashingSalt: cfg.Admin.IPSalt,
		now:         time.Now,
	}
	if a.hashingSalt == "" {
		a.hashingSalt = generateToken()
	}
	return a, nil
}

func (a *app) Close() error {
	if a.history != nil && a.history != store.History(a.site) {
		a.history.Close()
	}
	return a.site.Close()
}

func generateToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("generate token: %v", err))
	}
	return hex.EncodeToString(b)
}

func (a *app) cleanupOldVisitorData() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := a.site.CleanupVisitors(ctx, a.now()); err != nil {
		a.logger.Error("visitor cleanup failed", "error", err)
	}
}
