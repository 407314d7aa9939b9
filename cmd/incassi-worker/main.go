package main

import (
	"context"
	"os"

	"incassi/internal/amqp"
	"incassi/internal/cli"
	"incassi/internal/config"
	"incassi/internal/log"
	"incassi/internal/sheets"
	gsheet "incassi/internal/sheets/google"
	mem "incassi/internal/sheets/memory"
	"incassi/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig((*config.Config).ValidateWorker)
	if err != nil {
		log.New(log.DefaultConfig()).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat).WithComponent(log.ComponentWorker)
	logger.Info("Starting incassi-worker", "queue", cfg.AMQPQueue, "sheets_enabled", cfg.SheetsEnabled())

	if err := run(cfg, logger); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext()
	defer stop()

	opts := worker.Options{
		Attempts: cfg.SyncMaxRetries,
		Delay:    cfg.SyncRetryDelay,
	}

	var mirror sheets.ReceiptMirror
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			return err
		}
		if err := client.EnsureHeader(ctx); err != nil {
			logger.Warn("Could not verify sheet header", log.FieldError, err)
		}
		mirror = client
		opts.Retryable = gsheet.Retryable
	} else {
		// Dry run: events are consumed and acknowledged, rows kept in memory.
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, using in-memory mirror")
		mirror = mem.New()
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return err
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(mirror, opts, logger)

	return cli.Run(ctx, logger, cfg.ShutdownTimeout, cli.Component{
		Name: "consumer",
		Run: func(ctx context.Context) error {
			return amqpClient.Consume(ctx, syncWorker.HandleEvent)
		},
	})
}
