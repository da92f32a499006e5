package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Zachkp/resume-site/internal/chat"
	"github.com/Zachkp/resume-site/internal/config"
	"github.com/Zachkp/resume-site/internal/store"
	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
)

var (
	logger     *slog.Logger
	configPath string
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:          "resume-site",
		Short:        "Personal resume site with a webhook-backed chat assistant",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a config file (default: ./config.yaml or ./config/config.yaml)")

	root.AddCommand(serveCmd())
	root.AddCommand(askCmd())
	root.AddCommand(historyCmd())
	root.AddCommand(cleanupCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	gin.SetMode(cfg.Server.Mode)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	go a.cleanupOldVisitorData()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "history", cfg.History.Backend, "chat_configured", a.hooks.ChatConfigured())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func askCmd() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Send one message to the chat webhook and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			w := a.chats.Widget(cmd.Context(), sessionID)
			ex, err := w.Submit(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "[%s] %s\n", ex.Outcome, ex.Reply.Text)
			for _, f := range ex.Reply.Attachments {
				size := "unknown size"
				if f.SizeBytes > 0 {
					size = humanize.IBytes(uint64(f.SizeBytes))
				}
				fmt.Fprintf(out, "  %s (%s, %s) %s\n", f.Name, f.MimeType, size, f.URL)
			}
			fmt.Fprintf(out, "session: %s\n", sessionID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id to continue (default: a new one)")
	return cmd
}

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [session]",
		Short: "List stored chat sessions, or print one session's messages",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.history == nil {
				return errors.New("chat history is not stored with history.backend=memory")
			}

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				sessions, err := a.history.ListSessions(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(sessions) == 0 {
					fmt.Fprintln(out, "no chat sessions stored")
				}
				for _, s := range sessions {
					fmt.Fprintf(out, "%s  %3d messages  %s\n", s.SessionID, s.Messages, humanize.Time(s.LastActivity))
				}
				return nil
			}

			msgs, err := a.history.LoadMessages(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			for _, m := range msgs {
				fmt.Fprintf(out, "%s %-5s %s\n", m.Timestamp.Local().Format("2006-01-02 15:04"), m.Sender, m.Text)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", chat.DefaultHistoryLimit, "maximum rows to print")
	return cmd
}

func cleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete visitor records past the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			site, err := store.NewSQLiteStore(cfg.History.SQLitePath, logger)
			if err != nil {
				return err
			}
			defer site.Close()

			n, err := site.CleanupVisitors(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d visitor records older than 12 months\n", n)
			return nil
		},
	}
}
