// Package cli holds the startup steps shared by cmd/incassi and
// cmd/incassi-worker.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"incassi/internal/config"
	"incassi/internal/log"
	"incassi/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// A missing file is not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig reads the environment and runs validate on the result.
func LoadConfig(validate func(*config.Config) error) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if validate != nil {
		if err := validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(level, format string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Format:    format,
		Component: log.ComponentApp,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// InitSQLite opens the database and applies pending migrations.
func InitSQLite(logger *log.Logger, dbPath string) (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(dbPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	return repo, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Component is a long-running part of a process. Run blocks until ctx is
// done or it fails; Shutdown, when set, is called once ctx is done and gets
// its own deadline.
type Component struct {
	Name     string
	Run      func(ctx context.Context) error
	Shutdown func(ctx context.Context) error
}

// Run starts every component and waits for all of them. The first failure
// cancels the others. A component stopping because ctx was cancelled is a
// clean exit.
func Run(ctx context.Context, logger *log.Logger, timeout time.Duration, components ...Component) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, c := range components {
		g.Go(func() error {
			logger.InfoContext(gctx, "Component started", "name", c.Name, log.FieldOperation, log.OpStartup)
			err := c.Run(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("%s: %w", c.Name, err)
			}
			return nil
		})

		if c.Shutdown == nil {
			continue
		}
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := c.Shutdown(shutdownCtx); err != nil {
				logger.ErrorContext(shutdownCtx, "Component shutdown failed",
					"name", c.Name, log.FieldError, err, log.FieldOperation, log.OpShutdown)
				return fmt.Errorf("%s shutdown: %w", c.Name, err)
			}
			logger.InfoContext(shutdownCtx, "Component stopped", "name", c.Name, log.FieldOperation, log.OpShutdown)
			return nil
		})
	}

	return g.Wait()
}
