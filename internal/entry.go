// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/faf/internal/api"
	"github.com/starford/faf/internal/checksum"
	"github.com/starford/faf/internal/events"
	"github.com/starford/faf/internal/history"
	"github.com/starford/faf/internal/mcpserver"
	"github.com/starford/faf/internal/mirror"
	"github.com/starford/faf/internal/project"
	"github.com/starford/faf/internal/sse"
	"github.com/starford/faf/internal/storage"
	"github.com/starford/faf/internal/watch"
)

// NewLogger builds the process logger: JSON for long-running servers, text
// for interactive commands. Both write to w.
func NewLogger(w io.Writer, level slog.Level, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// App is the composed application: storage, event bus, mirror engine,
// history and the project service on top.
type App struct {
	Config  *Config
	Logger  *slog.Logger
	Root    string
	Store   *storage.FS
	Bus     *events.Bus
	Engine  *mirror.Engine
	History *history.DB
	Service *project.Service
}

// New wires the application for one project root.
func New(opts ...Option) (*App, error) {
	a := &application{}
	for _, opt := range opts {
		opt(a)
	}
	if a.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := a.config

	logger := a.logger
	if logger == nil {
		logger = NewLogger(os.Stderr, cfg.App.LogLevel, false)
	}

	root := a.root
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	store, err := storage.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	strategy, err := mirror.ParseConflictStrategy(cfg.Mirror.ConflictStrategy)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		Logger: logger,
		Root:   root,
		Store:  store,
		Bus:    events.NewBus(logger),
	}

	structured := project.ResolveStructured(store, cfg.Files.Structured)
	engineOpts := []mirror.Option{
		mirror.WithBus(app.Bus),
		mirror.WithLogger(logger),
		mirror.WithFiles(structured, cfg.Files.Readable),
		mirror.WithConflictStrategy(strategy),
		mirror.WithStateKey(root),
		mirror.WithScoreOptions(cfg.Score.Options()...),
	}
	if cfg.Mirror.Lock {
		engineOpts = append(engineOpts, mirror.WithLock(LockPath(root)))
	}

	if cfg.History.Enabled() && !a.noHistory {
		db, err := openHistory(cfg.History.Path)
		if err != nil {
			// History is an add-on; a broken cache dir must not block syncing.
			logger.Warn("history unavailable", slog.String("error", err.Error()))
		} else {
			app.History = db
			engineOpts = append(engineOpts, mirror.WithStateStore(db))
		}
	}

	app.Engine = mirror.New(store, engineOpts...)
	app.Service = project.NewService(store, app.Engine, app.History, root, cfg.Score.Options()...)

	logger.Debug("application ready",
		slog.String("root", root),
		slog.String("structured", structured),
		slog.String("readable", cfg.Files.Readable),
		slog.Bool("history", app.History != nil))
	return app, nil
}

func openHistory(path string) (*history.DB, error) {
	if path == "" {
		p, err := history.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return history.Open(path)
}

// LockPath returns the advisory lock file used to serialise syncs of root.
func LockPath(root string) string {
	return filepath.Join(os.TempDir(), "faf-"+checksum.Short(checksum.Sum([]byte(root)))+".lock")
}

// Close releases the history database.
func (a *App) Close() error {
	if a.History != nil {
		return a.History.Close()
	}
	return nil
}

// Watch re-syncs whenever either mirrored file changes, until ctx is
// cancelled. onSync, if non-nil, receives every result.
func (a *App) Watch(ctx context.Context, onSync func(mirror.Result)) error {
	structured, readable := a.Engine.Files()
	return watch.Watch(ctx, a.Root, []string{structured, readable}, watch.DefaultDebounce, a.Logger,
		func(ctx context.Context, changed []string) {
			res := a.Engine.Sync(ctx)
			if onSync != nil {
				onSync(res)
			}
		})
}

// ServeMCP runs the MCP server on stdio.
func (a *App) ServeMCP(version string) error {
	return mcpserver.New(a.Service, version).ServeStdio()
}

// Serve runs the HTTP API, the SSE stream and the file watcher until a
// shutdown signal arrives or ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	cfg := a.Config
	logger := a.Logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("root", a.Root),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker fed by the event bus.
	broker := sse.NewBroker(250 * time.Millisecond)
	defer broker.Close()
	sub := broker.Forward(a.Bus)
	defer a.Bus.Unsubscribe(sub)

	apiRouter := api.NewRouter(a.Service, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := a.Service.Load(context.Background()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"no context file"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Initial sync so clients start from a consistent pair.
	if res := a.Engine.Sync(ctx); !res.Success {
		logger.Warn("initial sync failed", slog.String("error", res.Error))
	}

	// File watcher: announce the change, then re-sync.
	g.Go(func() error {
		structured, readable := a.Engine.Files()
		return watch.Watch(gCtx, a.Root, []string{structured, readable}, watch.DefaultDebounce, logger,
			func(ctx context.Context, changed []string) {
				for _, p := range changed {
					broker.PublishFileEvent(p)
				}
				a.Engine.Sync(ctx)
			})
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the errgroup so the watcher stops with the server.
var errShutdown = errors.New("shutdown")
