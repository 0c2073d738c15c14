/*
Package main is the entry point for the torwatch service.

It loads configuration, initializes the global logging system, opens the
registry storage, and starts the three long-running pieces: the operator
HTTP server, the Telegram bot loop, and the watchdog scheduler. Operating
system interrupt signals (SIGINT, SIGTERM) trigger a graceful shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"torwatch/internal/app/bot"
	"torwatch/internal/app/conversation"
	"torwatch/internal/app/db"
	"torwatch/internal/app/directory"
	"torwatch/internal/app/feed"
	"torwatch/internal/app/node"
	"torwatch/internal/app/registry"
	"torwatch/internal/app/watchdog"
	"torwatch/internal/configs"
	"torwatch/internal/handler"
	"torwatch/internal/pkg/logx"
	"torwatch/internal/transport/telegram"
)

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Str("storage", cfg.Storage).
		Str("report_mode", cfg.ReportMode).
		Dur("poll_interval", cfg.PollInterval).
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Registry storage
	var store registry.Store
	if cfg.Storage == configs.StoragePostgres {
		pool, err := db.NewPool(cfg.DatabaseDSN)
		if err != nil {
			logx.Fatal(err, "Failed to initialize database")
		}
		defer pool.Close()
		store = registry.NewPostgresStore(pool)
	} else {
		logx.Warn("Using in-memory registry storage; the watch list will not survive a restart")
		store = registry.NewMemoryStore()
	}

	dirClient := directory.NewClient(cfg.OnionooURL, cfg.LookupTimeout, nil)
	tracker := conversation.NewTracker(cfg.PendingTTL)
	hub := feed.NewHub()

	var wg sync.WaitGroup

	// Telegram transport and command dispatcher
	var notifier watchdog.Notifier = logNotifier{}
	if cfg.TelegramToken != "" {
		tgClient := telegram.NewClient(telegram.DefaultBaseURL, cfg.TelegramToken, nil)
		dispatcher := bot.NewDispatcher(store, tracker, dirClient, tgClient)
		tgBot := telegram.NewBot(tgClient, dispatcher, telegram.BotOptions{
			OffsetFile: cfg.TelegramOffsetFile,
		})
		notifier = tgClient

		wg.Add(1)
		go func() {
			defer wg.Done()
			tgBot.Run(ctx)
		}()
	} else {
		logx.Warn("TELEGRAM_TOKEN not set; running without the Telegram transport")
	}

	// Watchdog scheduler
	scheduler := watchdog.NewScheduler(store, dirClient, notifier, hub, watchdog.Config{
		Interval:    cfg.PollInterval,
		Mode:        cfg.ReportMode,
		Concurrency: cfg.LookupConcurrency,
		LookupRate:  cfg.LookupRate,
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Run(ctx)
	}()

	// Operator HTTP server
	router := handler.Router(&handler.AppDeps{
		Config:    cfg,
		Store:     store,
		Directory: dirClient,
		Hub:       hub,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("torwatch operator API listening on http://localhost%s", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	// The bot and scheduler observe ctx cancellation; wait for their loops
	// to drain before closing the feed.
	wg.Wait()
	hub.Shutdown()

	logx.Info("torwatch gracefully stopped.")
}

// logNotifier is the development fallback when no Telegram token is set:
// watchdog notifications go to the log instead of a chat.
type logNotifier struct{}

func (logNotifier) Notify(ctx context.Context, id node.UserID, text string) error {
	logx.Info("Watchdog notification", "user_id", int64(id), "text", text)
	return nil
}
