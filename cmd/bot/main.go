// Package main contains the entrypoint for the intake bot.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/edgard/intakebot/internal/bot"
	"github.com/edgard/intakebot/internal/bot/handlers"
	"github.com/edgard/intakebot/internal/bot/tasks"
	"github.com/edgard/intakebot/internal/catalog"
	"github.com/edgard/intakebot/internal/config"
	"github.com/edgard/intakebot/internal/conversation"
	"github.com/edgard/intakebot/internal/database"
	"github.com/edgard/intakebot/internal/logger"
	"github.com/edgard/intakebot/internal/ratelimit"
	"github.com/edgard/intakebot/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run wires config, logger, database, Telegram client and scheduler, then blocks until
// shutdown. It returns the process exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	messenger := telegram.NewMessenger(log, cfg.Telegram.Delivery)
	desk := handlers.NewDesk(handlers.HandlerDeps{
		Logger:    log,
		Config:    cfg,
		Store:     store,
		Sessions:  conversation.NewStore(),
		Messenger: messenger,
		Catalog:   catalog.Default(),
		Limiter:   ratelimit.New(cfg.RateLimit.PerSecond, cfg.RateLimit.PerMinute, cfg.RateLimit.BlockDuration),
	})

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewDefaultHandler(desk)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}
	messenger.Bind(tg)

	me, err := tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", me.ID, "bot_username", me.Username)

	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(desk)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	taskMap := tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger:    log,
		Store:     store,
		Messenger: messenger,
		Config:    cfg,
	})
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, cfg.Location(), taskMap)
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}
	app := bot.NewBot(log, cfg, db, store, tg, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
