package status

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/rpggio/blueprint/internal/cache"
	"github.com/rpggio/blueprint/internal/domain/project"
	"golang.org/x/sync/errgroup"
)

// Loader fetches a project into the cache.
type Loader interface {
	Load(ctx context.Context, projectID string) (*project.Project, error)
}

var errSettled = errors.New("project settled")

// Watcher keeps a generating project fresh until it reaches a terminal state.
// Every source funnels through Reduce, so push and poll behave the same.
type Watcher struct {
	store   *cache.Store
	loader  Loader
	sources []Source
	logger  *slog.Logger
}

// NewWatcher creates a watcher fed by sources.
func NewWatcher(store *cache.Store, loader Loader, logger *slog.Logger, sources ...Source) *Watcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Watcher{store: store, loader: loader, sources: sources, logger: logger}
}

// Watch blocks until the project is ready or failed, then reloads it so the
// generated epics and stories are cached, and returns the final snapshot.
func (w *Watcher) Watch(ctx context.Context, projectID string) (*project.Project, error) {
	cur, ok := w.store.Get(projectID)
	if !ok {
		loaded, err := w.loader.Load(ctx, projectID)
		if err != nil {
			return nil, fmt.Errorf("loading project: %w", err)
		}
		cur = loaded
	}
	if cur.Status.Terminal() {
		return cur, nil
	}

	events := make(chan project.StatusEvent)
	g, gctx := errgroup.WithContext(ctx)
	for _, src := range w.sources {
		g.Go(func() error {
			return src.Stream(gctx, projectID, events)
		})
	}

	var final *project.Project
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case ev := <-events:
				changed, err := Apply(w.store, ev)
				if err != nil {
					w.logger.Warn("dropping status event", "project_id", projectID, "error", err)
					continue
				}
				snap, ok := w.store.Get(projectID)
				if !ok {
					continue
				}
				if changed {
					w.logger.Debug("status updated", "project_id", projectID, "status", snap.Status, "progress", snap.Progress)
				}
				if !snap.Status.Terminal() {
					continue
				}
				loaded, err := w.loader.Load(gctx, projectID)
				if err != nil {
					return fmt.Errorf("reloading settled project: %w", err)
				}
				final = loaded
				return errSettled
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, errSettled) {
		return final, nil
	}
	if err != nil {
		return nil, err
	}
	return nil, ctx.Err()
}
