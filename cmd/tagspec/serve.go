package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/opensource-finance/tagspec/internal/analyzer"
	"github.com/opensource-finance/tagspec/internal/api"
	"github.com/opensource-finance/tagspec/internal/bus"
	"github.com/opensource-finance/tagspec/internal/cache"
	"github.com/opensource-finance/tagspec/internal/domain"
	"github.com/opensource-finance/tagspec/internal/library"
	"github.com/opensource-finance/tagspec/internal/repository"
	"github.com/opensource-finance/tagspec/internal/rules"
	"github.com/opensource-finance/tagspec/internal/validation"
	"github.com/opensource-finance/tagspec/internal/worker"
)

var (
	servePort     int
	serveNoBanner bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the analysis worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		return serve(ctx, cfg, cmd.OutOrStdout())
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveNoBanner, "no-banner", false, "skip the startup banner")
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *domain.Config, out io.Writer) error {
	slog.Info("starting tagspec",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		return eris.Wrap(err, "initialize repository")
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		return eris.Wrap(err, "initialize cache")
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type, "two_phase", cfg.Cache.EnableTwoPhase)

	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		return eris.Wrap(err, "initialize event bus")
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	validator, err := validation.NewValidator()
	if err != nil {
		return eris.Wrap(err, "initialize attribute validator")
	}

	engine := rules.NewEngine(rules.Options{MatchTimeout: cfg.Engine.MatchTimeout()})
	defer engine.Close()
	a := analyzer.New(engine, analyzer.WithValidator(validator))
	store := library.NewStore(repo, cacheImpl, cfg.Cache.SnapshotTTL)

	var asyncWorker *worker.Worker
	if cfg.Engine.Worker {
		asyncWorker = worker.NewWorker(busImpl, store, a)
		if err := asyncWorker.Start(worker.Config{TenantIDs: cfg.Engine.WorkerTenants}); err != nil {
			return eris.Wrap(err, "start analysis worker")
		}
		slog.Info("analysis worker started", "tenants", cfg.Engine.WorkerTenants)
	}

	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, store, engine, a, Version)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("tagspec is ready", "addr", srv.Addr())
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		if asyncWorker != nil {
			if err := asyncWorker.Stop(); err != nil {
				slog.Error("failed to stop analysis worker", "error", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if !serveNoBanner {
		printBanner(out, cfg, Version)
	}

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("tagspec shutdown complete")
	return nil
}

func printBanner(w io.Writer, cfg *domain.Config, version string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  TAGSPEC  transaction tagging engine")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Version:  %s\n", version)
	fmt.Fprintf(w, "  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Endpoints:")
	fmt.Fprintln(w, "    POST /compile/match         - Condition to pattern")
	fmt.Fprintln(w, "    POST /decompile/match       - Pattern to condition")
	fmt.Fprintln(w, "    GET  /libraries             - Rule collection document")
	fmt.Fprintln(w, "    PUT  /libraries             - Replace the rule collection")
	fmt.Fprintln(w, "    POST /definitions           - Add a definition from a form")
	fmt.Fprintln(w, "    POST /transactions          - Upload statement rows")
	fmt.Fprintln(w, "    POST /analyze               - Tag rows")
	fmt.Fprintln(w, "    POST /transactions/publish  - Analyze rows on the worker")
	fmt.Fprintln(w, "    GET  /health                - Health check")
	fmt.Fprintln(w)
}
