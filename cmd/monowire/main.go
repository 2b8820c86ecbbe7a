package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rizkyandriawan/monowire/internal/config"
	"github.com/rizkyandriawan/monowire/internal/engine"
	"github.com/rizkyandriawan/monowire/internal/observability"
	"github.com/rizkyandriawan/monowire/internal/server"
	"github.com/rizkyandriawan/monowire/internal/store"
)

var (
	version = "0.1.0"
	commit  = "none"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "monowire: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("monowire %s (%s)\n", version, commit)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`monowire - Kafka wire protocol front end

Usage:
  monowire <command> [options]

Commands:
  serve     Start the Kafka listener and admin API
  version   Print version information
  help      Print this help message

Run 'monowire serve -help' for serve options.`)
}

// loadConfig applies precedence flags > env > file > defaults. Only flags
// given on the command line override.
func loadConfig(args []string) (*config.Config, error) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)

	configFile := fs.String("config", "", "Path to config file (.yaml or .toml)")
	kafkaAddr := fs.String("kafka-addr", ":9092", "Kafka protocol listen address")
	httpAddr := fs.String("http-addr", ":8080", "Admin HTTP listen address (empty disables)")
	dataDir := fs.String("data-dir", "./data", "Data directory for disk storage")
	logLevel := fs.String("log-level", "info", "Log level (debug, info, warn, error, disabled)")
	backend := fs.String("storage", "memory", "Request journal: memory, badger, badger:memory, sqlite, sqlite:memory")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "kafka-addr":
			cfg.Server.KafkaAddr = *kafkaAddr
		case "http-addr":
			cfg.Server.HTTPAddr = *httpAddr
		case "data-dir":
			cfg.Storage.DataDir = *dataDir
		case "log-level":
			cfg.Logging.Level = *logLevel
		case "storage":
			cfg.Storage.Backend = *backend
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runServe(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	logger, err := observability.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}

	// Acquire data directory lock (disk backends only)
	if cfg.Storage.OnDisk() {
		lockFile, err := acquireDataLock(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("failed to acquire data lock: %w", err)
		}
		defer lockFile.Close()
	}

	journal, err := store.Open(cfg.Storage)
	if err != nil {
		return err
	}
	defer journal.Close()
	logger.Info().Str("backend", cfg.Storage.Backend).Str("data_dir", cfg.Storage.DataDir).Msg("request journal opened")

	metrics := observability.NewMetrics()

	eng, err := engine.New(cfg, journal, metrics, logger)
	if err != nil {
		return err
	}
	eng.Start()
	defer eng.Stop()

	kafkaSrv := server.NewKafkaServer(cfg, eng, metrics, logger)
	errCh := make(chan error, 2)

	go func() {
		if err := kafkaSrv.ListenAndServe(); err != nil {
			errCh <- fmt.Errorf("kafka server: %w", err)
		}
	}()

	var httpSrv *server.HTTPServer
	if cfg.Server.HTTPAddr != "" {
		httpSrv = server.NewHTTPServer(cfg, eng, metrics, logger)
		go func() {
			logger.Info().Str("addr", cfg.Server.HTTPAddr).Msg("admin api listening")
			if err := httpSrv.ListenAndServe(); err != nil {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	// Wait for shutdown signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("server failed, shutting down")
	}

	if httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("http shutdown")
		}
	}
	if err := kafkaSrv.Close(); err != nil {
		logger.Warn().Err(err).Msg("kafka shutdown")
	}

	stats := eng.Stats()
	logger.Info().Uint64("requests", stats.Requests).Uint64("errors", stats.Errors).Msg("stopped")
	return runErr
}
