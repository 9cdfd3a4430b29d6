package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"clipper/internal/config"
	"clipper/internal/daemon"
	"clipper/internal/logging"
	"clipper/internal/preflight"
	"clipper/internal/storage"
	"clipper/internal/store"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("clipperd exited", logging.Error(err))
		os.Exit(1)
	}
	logger.Info("clipperd shutting down")
}

// run opens the store and clip storage, starts the daemon and blocks until
// ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if err := checkDirectories(cfg); err != nil {
		return err
	}

	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	backend, err := storage.NewFromConfig(ctx, cfg)
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("open clip storage: %w", err)
	}

	d, err := daemon.New(cfg, st, backend, logger)
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}

func checkDirectories(cfg *config.Config) error {
	checks := []preflight.Result{
		preflight.CheckDirectoryAccess("data directory", cfg.Paths.DataDir),
	}
	if cfg.Storage.Backend == config.StorageLocal {
		checks = append(checks, preflight.CheckDirectoryAccess("upload directory", cfg.Paths.UploadDir))
	}
	var errs []error
	for _, c := range checks {
		if !c.Passed {
			errs = append(errs, fmt.Errorf("%s: %s", c.Name, c.Detail))
		}
	}
	return errors.Join(errs...)
}
