package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"availability-bot/internal/bot"
	"availability-bot/internal/config"
	"availability-bot/internal/database"
	"availability-bot/internal/dialog"
	"availability-bot/internal/handlers"
	"availability-bot/internal/session"
	"availability-bot/internal/sheets"
	"availability-bot/internal/storesync"
	"availability-bot/internal/tablestore"
	"availability-bot/internal/worker"
	"availability-bot/pkg/logger"
)

// In-flight dialogs get this long to finish after a shutdown signal. Saves
// still running after that go to the fallback log.
const drainTimeout = 30 * time.Second

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	kong.Parse(&cfg,
		kong.Name("availability-bot"),
		kong.Description("Telegram bot that collects monthly date availability."),
		kong.UsageOnError(),
	)

	zapLogger, err := logger.New(cfg.Logger(), logger.DefaultServiceName)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to init logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	zap.ReplaceGlobals(zapLogger)

	if err := run(&cfg, zapLogger); err != nil {
		zapLogger.Error("Bot stopped with error", zap.Error(err))
		_ = zapLogger.Sync()
		os.Exit(1)
	}
	_ = zapLogger.Sync()
}

func run(cfg *config.Config, log *zap.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poll, err := cfg.PollConfig()
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeStore()) }()

	syncer := storesync.New(
		store,
		storesync.NewFallbackLog(cfg.Store.FallbackPath),
		poll,
		cfg.Sync(),
		log.Named("storesync"),
	)
	sessions := session.NewRegistry(poll, cfg.Session.Capacity, cfg.Session.TTL, log.Named("session"))

	b, api, err := bot.New(cfg.BotToken, cfg.APIEndpoint, log)
	if err != nil {
		return err
	}

	machine := dialog.NewMachine(poll, sessions, b, syncer, log.Named("dialog"))
	serial := worker.NewSerial()
	handler := handlers.New(machine, b, serial, log.Named("handlers"))

	// Dialog work outlives the update loop so queued saves can finish.
	workCtx, cancelWork := context.WithCancel(context.Background())
	defer cancelWork()

	log.Info("Bot started successfully",
		zap.String(logger.FieldBackend, cfg.Store.Backend),
		zap.Int("year", poll.Year),
		zap.Stringer("month", poll.Month),
	)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case update, ok := <-updates:
			if !ok {
				break loop
			}
			handler.HandleUpdate(workCtx, update)
		}
	}

	log.Info("Shutting down", zap.Int("active_users", serial.Active()))
	api.StopReceivingUpdates()

	drained := make(chan struct{})
	go func() {
		serial.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-time.After(drainTimeout):
		log.Warn("Drain timeout reached, cancelling in-flight work")
		cancelWork()
		<-drained
	}

	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (tablestore.Store, func() error, error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres, config.BackendSQLite:
		db, err := database.New(ctx, cfg.Database(), log.Named("database"))
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(); err != nil {
			return nil, nil, multierr.Append(err, db.Close())
		}
		return db, db.Close, nil
	default:
		s, err := sheets.New(ctx, cfg.Sheets(), log.Named("sheets"))
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil
	}
}
