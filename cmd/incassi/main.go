package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"incassi/internal/amqp"
	"incassi/internal/auth"
	"incassi/internal/cache"
	"incassi/internal/cli"
	"incassi/internal/config"
	"incassi/internal/core"
	"incassi/internal/export"
	apphttp "incassi/internal/http"
	"incassi/internal/log"
	"incassi/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig((*config.Config).Validate)
	if err != nil {
		log.New(log.DefaultConfig()).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting incassi", "port", cfg.Port, "timezone", cfg.Timezone, "locale", cfg.ExportLocale)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	repo, err := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	// Events are optional: without AMQP_URL nothing is mirrored.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			return err
		}
		defer client.Close()
		publisher = client
	} else {
		logger.Info("AMQP disabled - receipt events will not be published")
	}

	records := cache.NewLRUCache[[]core.Receipt](cfg.CacheSize, cfg.CacheTTL)
	ledger := services.NewLedgerService(repo, publisher, records, logger)
	accounts := auth.NewService(repo, logger)
	sessions := auth.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL, cfg.SecureCookies)

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               cfg.Addr(),
		Ledger:             ledger,
		Auth:               accounts,
		Sessions:           sessions,
		Exporter:           export.NewExporter(cfg.Language(), logger),
		DB:                 repo,
		Logger:             logger,
		Location:           cfg.Location(),
		Language:           cfg.Language(),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	})
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	janitor := cache.NewJanitor(logger, records)

	return cli.Run(ctx, logger, cfg.ShutdownTimeout,
		cli.Component{
			Name: "http",
			Run: func(context.Context) error {
				logger.Info("HTTP server listening", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			},
			Shutdown: srv.Shutdown,
		},
		cli.Component{
			Name: "cache-janitor",
			Run: func(ctx context.Context) error {
				return janitor.Run(ctx, time.Minute)
			},
		},
	)
}
