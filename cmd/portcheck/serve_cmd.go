// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LorenzBischof/lorenzbischof.github.io/internal/api"
	"github.com/LorenzBischof/lorenzbischof.github.io/internal/check"
	"github.com/LorenzBischof/lorenzbischof.github.io/internal/config"
	"github.com/LorenzBischof/lorenzbischof.github.io/internal/fragment"
	"github.com/LorenzBischof/lorenzbischof.github.io/internal/health"
	"github.com/LorenzBischof/lorenzbischof.github.io/internal/history"
	xglog "github.com/LorenzBischof/lorenzbischof.github.io/internal/log"
	"github.com/LorenzBischof/lorenzbischof.github.io/internal/watch"
)

const shutdownTimeout = 10 * time.Second

func runServe(ctx context.Context, args []string, std streams) int {
	fs := flag.NewFlagSet("portcheck serve", flag.ContinueOnError)
	fs.SetOutput(std.stderr)

	var configPath, listen string
	fs.StringVar(&configPath, "config", "", "path to YAML configuration file")
	fs.StringVar(&configPath, "c", "", "path to YAML configuration file (shorthand)")
	fs.StringVar(&listen, "listen", "", "HTTP listen address (overrides serve.listen)")

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	cfg, err := loadConfig(configPath, fs.Args(), std.stderr)
	if err != nil {
		fmt.Fprintf(std.stderr, "Configuration error:\n  %v\n", err)
		return exitUsage
	}
	if listen != "" {
		cfg.Listen = listen
	}
	if len(cfg.Roots) == 0 {
		fmt.Fprintln(std.stderr, "Error: no fragment directories given (pass dirs, set fragments.roots or PORTCHECK_ROOTS)")
		return exitUsage
	}

	if err := serve(ctx, cfg); err != nil {
		fmt.Fprintf(std.stderr, "Error: %v\n", err)
		return exitFail
	}
	return exitOK
}

// serve runs the initial check, the watcher and the HTTP server until ctx is cancelled or
// one of them fails.
func serve(ctx context.Context, cfg config.AppConfig) error {
	logger := xglog.WithComponent("serve")

	stopTracing, err := startTracing(ctx, cfg)
	if err != nil {
		return err
	}
	defer stopTracing()

	var opts []check.Option
	var store *history.Store
	if cfg.HistoryPath != "" {
		store, err = history.Open(ctx, cfg.HistoryPath, history.DefaultConfig())
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Warn().Err(err).Msg("failed to close history store")
			}
		}()
		opts = append(opts, check.WithRecorder(store))
	}

	runner := check.NewRunner(fragment.NewCollector(cfg.Roots, cfg.Extensions), opts...)
	runOnce := func(ctx context.Context) {
		res := runner.Run(ctx)
		if cfg.ReportOut == "" || res.Status() == check.StatusInvalid || res.Status() == check.StatusError {
			return
		}
		if err := emitReport(ctx, cfg, res, nil); err != nil {
			logger.Error().Err(err).Str(xglog.FieldPath, cfg.ReportOut).Msg("failed to write report")
		}
	}
	runOnce(ctx)

	apiCfg := api.Config{
		Listen:    cfg.Listen,
		RateLimit: cfg.RateLimit,
		Version:   cfg.Version,
		Results:   runner,
		Checkers:  []health.Checker{health.NewRootsChecker(cfg.Roots)},
	}
	if store != nil {
		apiCfg.History = store
	}
	srv, err := api.New(apiCfg)
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	watcher := watch.New(cfg.Roots, cfg.WatchDebounce, runOnce)
	if err := watcher.Start(gctx); err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = srv.Wait()
		return err
	}

	g.Go(srv.Wait)
	g.Go(func() error {
		watcher.Wait()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Str(xglog.FieldEvent, "serve.stopping").Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
