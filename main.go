package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/archive-ledger/internal/app"
	"github.com/debemdeboas/archive-ledger/internal/config"
	"github.com/debemdeboas/archive-ledger/internal/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file loaded")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	l := logger.New(cfg.Logging.Level)
	app.SetLoggers(l)

	if err := run(cfg, l); err != nil {
		l.Fatal().Err(err).Msg("Server stopped")
	}
}

func run(cfg *config.Config, l zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	provider, err := app.NewAuthProvider(cfg.Auth)
	if err != nil {
		store.Close()
		return err
	}

	a := app.New(cfg, store, provider, l)
	defer a.Close()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info().
			Str("addr", srv.Addr).
			Strs("mounts", cfg.Server.Mounts).
			Str("storage", cfg.Storage.Driver).
			Bool("auth", cfg.Auth.Enabled).
			Msg("Starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	l.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
