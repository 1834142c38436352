package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"chipbot/internal/api"
	"chipbot/internal/games"
	"chipbot/internal/infra/logging"
	"chipbot/internal/infra/snapshot"
	"chipbot/internal/ledger"
	"chipbot/internal/market"
	"chipbot/internal/observability"
	"chipbot/internal/services/arcade"
	"chipbot/pkg/envconf"
	"chipbot/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running chipbot: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	cfg := new(botConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel, slog.String("service", "chipbot"))

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Core components ---
	chips := ledger.New(cfg.Economy.DefaultChips, snapshot.NewStore(cfg.Economy.ChipsFile))
	polls := market.New(snapshot.NewStore(cfg.Economy.PollFile))

	registry := prometheus.NewRegistry()
	metrics := observability.New(registry)

	rounds := arcade.New(chips, games.NewRoller(), metrics,
		cfg.Economy.SuperuserID, cfg.Economy.SuperuserAlwaysWin)

	// --- HTTP server ---
	handler := api.NewHandler(chips, polls, rounds, metrics, cfg.Economy.SuperuserID)
	router := api.NewRouter(handler, cfg.Economy.AdminToken, registry)
	srv := api.NewServer(cfg.Port, router)

	// Register HTTP server graceful shutdown
	shutdownqueue.Add(func(c context.Context) error {
		slog.Info("Shut down server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	// Run server
	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("chipbot started", "port", cfg.Port,
		"chips_file", cfg.Economy.ChipsFile, "poll_file", cfg.Economy.PollFile)

	// --- Wait until either context cancels or server errors out ---
	select {
	case <-ctx.Done():
		// graceful path; deferred shutdownqueue.Shutdown will run
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}
