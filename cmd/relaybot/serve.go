package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/edgard/relaybot/internal/bot"
	"github.com/edgard/relaybot/internal/bot/handlers"
	"github.com/edgard/relaybot/internal/bot/tasks"
	"github.com/edgard/relaybot/internal/config"
	"github.com/edgard/relaybot/internal/database"
	"github.com/edgard/relaybot/internal/dialogue"
	"github.com/edgard/relaybot/internal/directory"
	"github.com/edgard/relaybot/internal/registration"
	"github.com/edgard/relaybot/internal/relay"
	"github.com/edgard/relaybot/internal/session"
	"github.com/edgard/relaybot/internal/telegram"
)

// serve wires every component and runs the bot until ctx is canceled.
func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	mode, err := relay.ParseMode(cfg.Relay.Mode)
	if err != nil {
		return err
	}
	scope, err := directory.ParseScope(cfg.Relay.Scope)
	if err != nil {
		return err
	}
	gate, err := dialogue.ParseGate(cfg.Access.Gate)
	if err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.URL, cfg.Database.MaxOpenConns)
	if err != nil {
		log.Error("Failed to connect to database", "url", cfg.Database.URL, "error", err)
		return err
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	var sessions session.Store
	switch cfg.Session.Backend {
	case "sql":
		sessions = session.NewSQLStore(store)
	default:
		sessions = session.NewMemoryStore()
	}
	log.Info("Session store selected", "backend", cfg.Session.Backend)

	// The default handler is an option of the bot it depends on; it is bound
	// once the dialogue and the listener exist.
	var defaultHandler tgbot.HandlerFunc
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, telegram.BotOptions(log, &defaultHandler)...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return err
	}

	me, err := tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return fmt.Errorf("failed to get bot info: %w", err)
	}
	log.Info("Retrieved bot info", "bot_id", me.ID, "bot_username", me.Username)

	client := telegram.NewClient(tg, log)
	dir := directory.New(store, client, scope, log)
	engine := relay.NewEngine(dir, client, relay.Options{
		Mode:        mode,
		Workers:     cfg.Relay.Workers,
		SendTimeout: cfg.Relay.SendTimeout,
	}, log)

	hDeps := handlers.HandlerDeps{
		Logger: log,
		Config: cfg,
		Dialogue: dialogue.New(sessions, engine, dir, client, dialogue.Options{
			Password: cfg.Access.Password,
			Gate:     gate,
			Messages: cfg.Messages,
		}, log),
		Registration: registration.NewListener(me.ID, client, client, dir, cfg.Messages.ChannelLinkedFmt, log),
	}
	defaultHandler = handlers.NewDefaultHandler(hDeps)

	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return err
	}

	tDeps := tasks.TaskDeps{
		Logger:    log,
		Store:     store,
		Sessions:  sessions,
		Directory: dir,
		Config:    cfg,
	}
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return err
	}

	app := bot.NewBot(log, tg, sched, cfg.HTTP.Addr())

	log.Info("Starting bot...", "relay_mode", mode, "scope", scope, "gate", gate)
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return runErr
	}

	log.Info("Bot stopped gracefully.")
	return nil
}
