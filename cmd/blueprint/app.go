package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/rpggio/blueprint/internal/cache"
	"github.com/rpggio/blueprint/internal/config"
	"github.com/rpggio/blueprint/internal/domain/journal"
	"github.com/rpggio/blueprint/internal/domain/project"
	"github.com/rpggio/blueprint/internal/optimistic"
	"github.com/rpggio/blueprint/internal/push"
	"github.com/rpggio/blueprint/internal/remote"
	"github.com/rpggio/blueprint/internal/sqlite"
	"github.com/rpggio/blueprint/internal/status"
	"github.com/rpggio/blueprint/internal/workspace"
)

// app is the wired client: cache, persistence, backend and watchers.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sqlite.DB
	store     *cache.Store
	persister *cache.Persister
	client    *remote.Client
	journal   *journal.Service
	coord     *optimistic.Coordinator
	ws        *workspace.Workspace
	watcher   *status.Watcher

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stopPersist context.CancelFunc
	persisted   chan struct{}

	mu       sync.Mutex
	watching map[string]bool
}

func loadConfig() (config.Config, error) {
	if configPath != "" {
		if err := os.Setenv("BLUEPRINT_CONFIG_PATH", configPath); err != nil {
			return config.Config{}, err
		}
	}
	return config.Load()
}

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))
}

func parseLogLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// newApp opens the local database, warms the cache from it and connects to
// the backend. autoWatch starts a status watcher for every generating project
// that enters the cache.
func newApp(cfg config.Config, logger *slog.Logger, autoWatch bool) (*app, error) {
	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("preparing database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	client, err := remote.New(remote.Options{
		BaseURL:     cfg.API.BaseURL,
		Token:       cfg.API.Token,
		Timeout:     cfg.API.Timeout,
		MaxAttempts: cfg.API.MaxAttempts,
		Backoff:     cfg.API.Backoff,
		Logger:      logger,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &app{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		client:    client,
		persister: cache.NewPersister(sqlite.NewSnapshotRepository(db), logger),
		ctx:       ctx,
		cancel:    cancel,
		watching:  make(map[string]bool),
	}

	observers := []cache.Observer{a.persister.Observe}
	if autoWatch {
		observers = append(observers, a.observeStatus)
	}
	a.store = cache.NewStore(observers...)

	a.journal = journal.NewService(sqlite.NewJournalRepository(db), logger)
	a.coord = optimistic.New(a.store, client, a.journal, logger)
	a.ws = workspace.New(a.coord, a.journal, logger)

	sources := []status.Source{status.NewPoller(client, cfg.Poll.Interval, logger)}
	if cfg.Push.URL != "" {
		sources = append(sources, push.NewSubscriber(cfg.Push.URL, cfg.API.Token, logger))
	}
	a.watcher = status.NewWatcher(a.store, a.coord, logger, sources...)

	n, err := cache.Hydrate(ctx, a.store, sqlite.NewSnapshotRepository(db))
	if err != nil {
		logger.Warn("failed to warm cache", "error", err)
	} else if n > 0 {
		logger.Info("cache warmed from disk", "projects", n)
	}

	persistCtx, stopPersist := context.WithCancel(context.Background())
	a.stopPersist = stopPersist
	a.persisted = make(chan struct{})
	go func() {
		defer close(a.persisted)
		if err := a.persister.Run(persistCtx, a.store); err != nil {
			logger.Error("final snapshot flush failed", "error", err)
		}
	}()
	return a, nil
}

// observeStatus starts one watcher per generating project.
func (a *app) observeStatus(id string, p *project.Project) {
	if p == nil || p.Status.Terminal() {
		return
	}
	a.mu.Lock()
	if a.watching[id] || a.ctx.Err() != nil {
		a.mu.Unlock()
		return
	}
	a.watching[id] = true
	a.wg.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.wg.Done()
		defer func() {
			a.mu.Lock()
			delete(a.watching, id)
			a.mu.Unlock()
		}()
		final, err := a.watcher.Watch(a.ctx, id)
		if err != nil {
			if a.ctx.Err() == nil {
				a.logger.Warn("status watch stopped", "project_id", id, "error", err)
			}
			return
		}
		a.logger.Info("generation settled", "project_id", id, "status", final.Status)
	}()
}

// close stops watchers, then background revalidations, then flushes the
// cache to disk.
func (a *app) close() {
	a.cancel()
	a.wg.Wait()
	a.ws.Close()
	a.stopPersist()
	<-a.persisted
	if err := a.db.Close(); err != nil {
		a.logger.Warn("closing database", "error", err)
	}
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
