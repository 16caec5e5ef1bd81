// Package bot wires the dialog machine to Telegram via telebot: command
// registry, FSM text/callback routing, middleware and the update loop.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "schedulebot/core/config"
	"schedulebot/core/logger"
	"schedulebot/internal/dialog"
	"schedulebot/internal/storage"
)

// App is the assembled Telegram bot.
type App struct {
	cfg      *coreconfig.Config
	bot      *tele.Bot
	registry *Registry

	machine *dialog.Machine
	svc     *dialog.Service
	stats   *storage.StatsStore
}

// New builds the bot over an initialized dialog service and machine.
// stats may be nil; the /stats command then stays inactive.
func New(cfg *coreconfig.Config, svc *dialog.Service, machine *dialog.Machine, stats *storage.StatsStore) (*App, error) {
	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: buildPoller(cfg),
		Client: buildHTTPClient(),
	}

	b, err := tele.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("bot initialization failed: %w", err)
	}

	return &App{
		cfg:      cfg,
		bot:      b,
		registry: NewRegistry(),
		machine:  machine,
		svc:      svc,
		stats:    stats,
	}, nil
}

// Run registers handlers and processes updates until ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.bot.Use(recoverMiddleware)
	a.bot.Use(rateLimitMiddleware(a.cfg.RateLimit))
	a.bot.Use(loggerMiddleware)

	a.registerCommands()
	a.registry.Setup(a.bot)
	a.bot.Handle(tele.OnText, a.handleText)
	a.bot.Handle(tele.OnCallback, a.handleCallback)

	if a.cfg.Telegram.RunMode == coreconfig.RunModeLongpoll {
		if err := deleteWebhook(a.cfg.Telegram.Token); err != nil {
			logger.TG.Warn("failed to delete webhook",
				slog.String("event", "delete_webhook"),
				slog.String("err", err.Error()),
			)
		}
		logger.TG.Info("polling mode",
			slog.String("event", "mode"),
			slog.String("mode", "polling"),
		)
	} else {
		logger.TG.Info("webhook mode",
			slog.String("event", "mode"),
			slog.String("mode", "webhook"),
			slog.String("public_url", a.cfg.Webhook.URL),
		)
	}

	runDone := make(chan struct{})
	go func() {
		a.bot.Start()
		close(runDone)
	}()

	select {
	case <-ctx.Done():
		a.bot.Stop()
		<-runDone
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}
		return ctx.Err()
	case <-runDone:
		return nil
	}
}

// deleteWebhook clears a stale webhook registration before long polling
// starts; Telegram rejects getUpdates while a webhook is set.
func deleteWebhook(token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("empty token")
	}
	url := fmt.Sprintf("https://api.telegram.org/bot%s/deleteWebhook", token)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader("drop_pending_updates=false"))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("deleteWebhook status: %s", resp.Status)
	}
	return nil
}
