// Package config layers the site configuration: built-in defaults, an optional
// config.yaml, then environment variables (webhook.chat_url <-> WEBHOOK_CHAT_URL).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   Server   `mapstructure:"server"`
	Webhook  Webhook  `mapstructure:"webhook"`
	Access   Access   `mapstructure:"access"`
	Admin    Admin    `mapstructure:"admin"`
	History  History  `mapstructure:"history"`
	Resume   Resume   `mapstructure:"resume"`
	SMTP     SMTP     `mapstructure:"smtp"`
	Telegram Telegram `mapstructure:"telegram"`
}

type Server struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// Webhook holds the automation endpoints. ChatURL, ContactURL and ResumeURL
// fall back to URL when unset.
type Webhook struct {
	URL         string        `mapstructure:"url"`
	ChatURL     string        `mapstructure:"chat_url"`
	ContactURL  string        `mapstructure:"contact_url"`
	ResumeURL   string        `mapstructure:"resume_url"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	ChatTimeout time.Duration `mapstructure:"chat_timeout"`
}

// Access gates the chatbot page (or the whole site with LockSite) behind a shared password.
type Access struct {
	Password     string `mapstructure:"password"`
	PasswordHash string `mapstructure:"password_hash"`
	LockSite     bool   `mapstructure:"lock_site"`
}

func (a Access) Enabled() bool { return a.Password != "" || a.PasswordHash != "" }

type Admin struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	IPSalt   string `mapstructure:"ip_salt"`
}

type History struct {
	Backend     string `mapstructure:"backend"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresURL string `mapstructure:"postgres_url"`
	Limit       int    `mapstructure:"limit"`
}

type Resume struct {
	File         string `mapstructure:"file"`
	DownloadName string `mapstructure:"download_name"`
}

type SMTP struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	User string `mapstructure:"user"`
	Pass string `mapstructure:"pass"`
	To   string `mapstructure:"to"`
}

func (s SMTP) Enabled() bool { return s.User != "" && s.Pass != "" && s.To != "" }

type Telegram struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

func (t Telegram) Enabled() bool { return t.Token != "" && t.ChatID != 0 }

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")

	v.SetDefault("webhook.url", "")
	v.SetDefault("webhook.chat_url", "")
	v.SetDefault("webhook.contact_url", "")
	v.SetDefault("webhook.resume_url", "")
	v.SetDefault("webhook.username", "")
	v.SetDefault("webhook.password", "")
	v.SetDefault("webhook.chat_timeout", "5m")

	v.SetDefault("access.password", "")
	v.SetDefault("access.password_hash", "")
	v.SetDefault("access.lock_site", false)

	v.SetDefault("admin.username", "")
	v.SetDefault("admin.password", "")
	v.SetDefault("admin.ip_salt", "")

	v.SetDefault("history.backend", BackendSQLite)
	v.SetDefault("history.sqlite_path", "data/site.db")
	v.SetDefault("history.postgres_url", "")
	v.SetDefault("history.limit", 100)

	v.SetDefault("resume.file", "")
	v.SetDefault("resume.download_name", "resume.pdf")

	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", "587")
	v.SetDefault("smtp.user", "")
	v.SetDefault("smtp.pass", "")
	v.SetDefault("smtp.to", "")

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", 0)
}

// legacy environment names still honoured alongside the dotted-key mapping
var aliases = map[string][]string{
	"server.port":          {"SERVER_PORT", "PORT"},
	"smtp.to":              {"SMTP_TO", "TO_EMAIL"},
	"history.postgres_url": {"HISTORY_POSTGRES_URL", "DATABASE_URL"},
}

// Load builds the configuration. When file is empty, config.yaml is looked up in
// the working directory and ./config; a missing file is not an error.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range aliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyFallbacks()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyFallbacks() {
	c.Webhook.URL = strings.TrimSpace(c.Webhook.URL)
	for _, u := range []*string{&c.Webhook.ChatURL, &c.Webhook.ContactURL, &c.Webhook.ResumeURL} {
		*u = strings.TrimSpace(*u)
		if *u == "" {
			*u = c.Webhook.URL
		}
	}
	c.History.Backend = strings.ToLower(strings.TrimSpace(c.History.Backend))
	if c.History.Limit <= 0 {
		c.History.Limit = 100
	}
	if c.Webhook.ChatTimeout <= 0 {
		c.Webhook.ChatTimeout = 5 * time.Minute
	}
}

// Validate rejects settings the server cannot start with. Missing webhook URLs
// are allowed; they surface to visitors as a configuration message instead.
func (c *Config) Validate() error {
	switch c.History.Backend {
	case BackendMemory, BackendSQLite:
	case BackendPostgres:
		if c.History.PostgresURL == "" {
			return errors.New("history.backend is postgres but history.postgres_url is empty")
		}
	default:
		return fmt.Errorf("unknown history.backend %q (want memory, sqlite or postgres)", c.History.Backend)
	}
	if c.History.SQLitePath == "" {
		return errors.New("history.sqlite_path is required")
	}
	return nil
}
