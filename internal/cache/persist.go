package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sync"

	"github.com/rpggio/blueprint/internal/domain/project"
)

// Persister writes changed snapshots to a repository in the background.
// Bursts of writes to one project collapse into a single save of the latest
// snapshot.
type Persister struct {
	repo   SnapshotRepository
	logger *slog.Logger

	mu    sync.Mutex
	seq   uint64
	dirty map[string]uint64 // id -> seq of the latest Observe
	wake  chan struct{}
}

// NewPersister creates a persister for repo.
func NewPersister(repo SnapshotRepository, logger *slog.Logger) *Persister {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Persister{
		repo:   repo,
		logger: logger,
		dirty:  make(map[string]uint64),
		wake:   make(chan struct{}, 1),
	}
}

// Observe marks a project as needing a save. It is a Store Observer.
func (p *Persister) Observe(id string, _ *project.Project) {
	p.mu.Lock()
	p.seq++
	p.dirty[id] = p.seq
	p.mu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Run saves dirty snapshots until ctx is done, then flushes once more.
func (p *Persister) Run(ctx context.Context, store *Store) error {
	for {
		select {
		case <-ctx.Done():
			return p.Flush(context.WithoutCancel(ctx), store)
		case <-p.wake:
			if err := p.Flush(ctx, store); err != nil {
				p.logger.Warn("failed to persist snapshots", "error", err)
			}
		}
	}
}

// Flush saves the latest snapshot of every dirty project. A project stays
// dirty until a save of it succeeds with no newer change observed meanwhile.
func (p *Persister) Flush(ctx context.Context, store *Store) error {
	p.mu.Lock()
	pending := maps.Clone(p.dirty)
	p.mu.Unlock()

	var errs []error
	for id, seq := range pending {
		snap, ok := store.Get(id)
		if ok {
			if err := p.repo.Save(ctx, snap); err != nil {
				errs = append(errs, fmt.Errorf("saving snapshot %s: %w", id, err))
				continue
			}
		}
		p.mu.Lock()
		if p.dirty[id] == seq {
			delete(p.dirty, id)
		}
		p.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Hydrate loads every persisted snapshot into store. Entries already present
// in the store are left alone.
func Hydrate(ctx context.Context, store *Store, repo SnapshotRepository) (int, error) {
	snaps, err := repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing snapshots: %w", err)
	}
	loaded := 0
	for _, snap := range snaps {
		if _, ok := store.Get(snap.ID); ok {
			continue
		}
		store.Set(snap.ID, snap)
		loaded++
	}
	return loaded, nil
}
