package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"lifecoach/internal/config"
	"lifecoach/internal/logging"
	"lifecoach/internal/session"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// askCmd answers a single message
var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Send one message and print the coach's reply",
	Example: `  coach ask "I want to start running, what should I eat before a run?"
  coach ask --user maria "¿Cómo organizo mi semana?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

// chatCmd starts the interactive loop
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Reads messages from stdin and answers each one. The config file is
watched while the chat runs; logging changes apply without a restart.

Commands inside the chat:
  /history   show the stored conversation
  /clear     forget the stored conversation
  /quit      leave`,
	RunE: runChat,
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	if err := cfg.Validate(); err != nil {
		return err
	}
	app, err := session.NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeApp(app)

	message := joinArgs(args)
	logger.Info("Processing message", zap.String("user", userID), zap.Int("len", len(message)))

	resp := app.Process(ctx, userID, message)
	logger.Debug("Reply ready",
		zap.String("request_id", resp.RequestID),
		zap.String("method", string(resp.Method)),
		zap.Duration("duration", resp.Duration))

	newRenderer(cmd.OutOrStdout(), plain).Reply(resp)
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate(); err != nil {
		return err
	}
	app, err := session.NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeApp(app)

	if w := watchConfig(ctx); w != nil {
		defer w.Stop()
	}

	out := cmd.OutOrStdout()
	r := newRenderer(out, plain)
	r.Banner(userID, app.Config.Store.Backend, app.Archiver != nil)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		r.Prompt()
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return nil
		case "/history":
			msgs, err := app.History(ctx, userID, cfg.Pipeline.HistoryLimit)
			if err != nil {
				r.Error(err)
				continue
			}
			r.Messages(msgs)
			continue
		case "/clear":
			cleared, err := app.Clear(ctx, userID)
			if err != nil {
				r.Error(err)
				continue
			}
			r.Notice(clearedNotice(cleared))
			continue
		}

		mctx, cancel := context.WithTimeout(ctx, timeout)
		resp := app.Process(mctx, userID, line)
		cancel()
		r.Reply(resp)

		if ctx.Err() != nil {
			break
		}
	}
	return scanner.Err()
}

// watchConfig applies logging changes from the config file while a chat runs.
// A missing file is not watched.
func watchConfig(ctx context.Context) *config.Watcher {
	if _, err := os.Stat(configPath); err != nil {
		return nil
	}
	w, err := config.NewWatcher(configPath, func(c *config.Config) {
		logging.Configure(c.Logging.ToLogging())
		logger.Info("Config reloaded", zap.String("path", configPath), zap.String("log_level", c.Logging.Level))
	})
	if err != nil {
		logger.Warn("Config watch unavailable", zap.Error(err))
		return nil
	}
	if err := w.Start(ctx); err != nil {
		logger.Warn("Config watch failed to start", zap.Error(err))
		return nil
	}
	return w
}

func closeApp(app *session.App) {
	if err := app.Close(); err != nil {
		logger.Warn("Shutdown incomplete", zap.Error(err))
	}
}

func clearedNotice(cleared bool) string {
	if cleared {
		return fmt.Sprintf("Conversation for %s cleared.", userID)
	}
	return fmt.Sprintf("No stored conversation for %s.", userID)
}
