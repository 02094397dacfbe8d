// Package main is the entry point for the vitalmsg service.
//
// It loads configuration, applies schema migrations, connects the database
// pool, and runs two long-lived tasks side by side: the HTTP server that
// accepts messages and serves the retrieval feeds, and the single worker
// loop that drives the conversion pipeline.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM):
// the HTTP listener stops first so no new messages are enqueued, then the
// work queue is closed and the worker loop drains the backlog before the
// process exits.
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
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"vitalmsg/internal/api/handlers"
	"vitalmsg/internal/config"
	"vitalmsg/internal/convert"
	"vitalmsg/internal/core"
	"vitalmsg/internal/db"
	"vitalmsg/internal/metrics"
	"vitalmsg/internal/queue"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on
// error.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("vitalmsg starting",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
		"queue_capacity", cfg.Queue.Size(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.Migrate(cfg.Database.URL); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	store := db.NewStore(pool)

	m := metrics.NewPipeline()
	q := queue.New(cfg.Queue.Size())
	m.ObserveQueue(q.Depth)

	loop := queue.NewLoop(q, logger)
	loop.Register(queue.WorkConvert, convert.NewWorker(store, m, logger))

	srv, err := core.NewServer(cfg, logger, m)
	if err != nil {
		store.Close()
		return fmt.Errorf("creating server: %w", err)
	}
	srv.HealthProbes = []core.HealthProbe{
		core.ProbeFunc{ProbeName: "database", Fn: pool.Ping},
	}
	srv.OnShutdown = append(srv.OnShutdown, func() error {
		store.Close()
		return nil
	})

	msgHandler := handlers.NewMessageHandler(store.Inbound(), q, srv.Validator, m, logger)
	feedHandler := handlers.NewFeedHandler(store.Outgoing(), m, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		func(r chi.Router) { msgHandler.RegisterRoutes(r) },
		func(r chi.Router) { feedHandler.RegisterRoutes(r) },
	)
	srv.MountRoutes()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// The worker loop runs until the queue is closed and drained. It is not
	// cancelled on signal: an in-flight message and the queued backlog finish
	// before the process exits.
	g.Go(func() error {
		return loop.Run(context.Background())
	})

	g.Go(func() error {
		select {
		case <-ctx.Done():
			logger.Info("shutdown signal received")
		case <-gctx.Done():
			// A sibling task failed; unwind the rest.
		}

		// Stop accepting requests first so nothing new is enqueued, then
		// close the queue so the worker loop drains and exits.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
		}
		q.Close()
		return nil
	})

	err = g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
		err = shutdownErr
	}

	if err != nil {
		return err
	}
	logger.Info("vitalmsg stopped cleanly")
	return nil
}

// newLogger creates a structured JSON slog.Logger for the given level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}
