package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/suspectuso/surebet-router/internal/config"
	"github.com/suspectuso/surebet-router/internal/ingest"
	"github.com/suspectuso/surebet-router/internal/matcher"
	"github.com/suspectuso/surebet-router/internal/notifier"
	"github.com/suspectuso/surebet-router/internal/payments"
	"github.com/suspectuso/surebet-router/internal/rowsource"
	"github.com/suspectuso/surebet-router/internal/scheduler"
	"github.com/suspectuso/surebet-router/internal/storage"
	"github.com/suspectuso/surebet-router/internal/taxonomy"
	"github.com/suspectuso/surebet-router/internal/telegram"
	"github.com/suspectuso/surebet-router/internal/tonapi"
)

func main() {
	// Load .env file before reading LOG_LEVEL
	envErr := godotenv.Load()

	cfg := config.Load()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(log)

	if envErr != nil {
		log.Debug("no .env file found")
	}

	if cfg.BotToken == "" {
		log.Error("BOT_TOKEN is required")
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("stopped", "error", err)
		os.Exit(1)
	}
	log.Info("bye")
}

func run(cfg *config.Config, log *slog.Logger) error {
	store, err := storage.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	log.Info("storage initialized", "path", cfg.DBPath)

	tax := taxonomy.Default()
	if cfg.TaxonomyPath != "" {
		if tax, err = taxonomy.Load(cfg.TaxonomyPath); err != nil {
			return err
		}
	}
	log.Info("taxonomy loaded", "sports", len(tax.Sports), "bookmakers", len(tax.Bookmakers))

	bot, err := telegram.New(cfg, store, tax, log.With("component", "telegram"))
	if err != nil {
		return err
	}

	receiver := rowsource.NewReceiver(cfg.RowsStaleAfter, log.With("component", "rows"))
	ingester := ingest.New(receiver, store, log.With("component", "ingest"))
	notify := notifier.New(store, matcher.New(tax), bot, cfg.SendDelay, log.With("component", "notifier"))

	tonAPI := tonapi.NewClient(cfg.TonAPIBaseURL, cfg.TonAPIKey)
	watcher := payments.NewWatcher(payments.Config{
		ServiceWallet:    cfg.ServiceWalletAddr,
		PriceTON:         cfg.SubscriptionPriceTON,
		Days:             cfg.SubscriptionDays,
		DefaultMinProfit: cfg.DefaultMinProfit,
	}, tonAPI, store, bot, log.With("component", "payments"))

	sched := scheduler.New(log.With("component", "scheduler"))

	sched.Every("ingest", cfg.IngestInterval, func(ctx context.Context) error {
		_, err := ingester.Tick(ctx)
		if errors.Is(err, ingest.ErrFatalUpstream) {
			return scheduler.Fatal(err)
		}
		return err
	})

	// The cursor lives only here; the scheduler never runs a task twice
	// at once.
	var cursor notifier.Cursor
	sched.Every("match", cfg.MatchInterval, func(ctx context.Context) error {
		next, _, err := notify.Tick(ctx, cursor)
		cursor = next
		return err
	})

	if watcher != nil {
		sched.Every("payments", cfg.PaymentCheckInterval, watcher.Check)
	} else {
		log.Info("payments disabled, no service wallet")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Listener failures reach the scheduler through the ingest task.
		if err := receiver.Start(ctx, cfg.RowsPort); err != nil {
			log.Error("row receiver", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("starting bot polling")
		bot.Start(ctx)
		return nil
	})

	g.Go(func() error {
		err := sched.Run(ctx)
		if err != nil {
			return err
		}
		// Stop the rest on a clean shutdown too.
		stop()
		return nil
	})

	err = g.Wait()
	log.Info("shutting down")
	return err
}
