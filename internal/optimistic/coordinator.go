// Package optimistic applies mutations to the project cache before the
// backend confirms them and reverts them when it refuses.
//
// Each mutation runs through a small state machine:
//
//	idle -> optimistic-applied -> committed | rolled-back | rollback-skipped
//
// A rollback only restores the snapshot the mutation itself replaced. When a
// later writer has already replaced the optimistic snapshot the rollback is
// skipped and the post-mutation revalidation reconciles the cache.
package optimistic

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rpggio/blueprint/internal/cache"
	"github.com/rpggio/blueprint/internal/domain/journal"
	"github.com/rpggio/blueprint/internal/domain/project"
)

type phase string

const (
	phaseIdle             phase = "idle"
	phaseApplied          phase = "optimistic_applied"
	phaseCommitted        phase = "committed"
	phaseRolledBack       phase = "rolled_back"
	phaseRollbackSkipped  phase = "rollback_skipped"
	phaseRemoteOnly       phase = "remote_only"
	phaseRemoteOnlyFailed phase = "remote_only_failed"
)

var outcomes = map[phase]journal.Outcome{
	phaseCommitted:        journal.OutcomeCommitted,
	phaseRolledBack:       journal.OutcomeRolledBack,
	phaseRollbackSkipped:  journal.OutcomeRollbackSkipped,
	phaseRemoteOnly:       journal.OutcomeRemoteOnly,
	phaseRemoteOnlyFailed: journal.OutcomeFailed,
}

// Coordinator runs optimistic mutations against a shared cache.
type Coordinator struct {
	store    *cache.Store
	backend  Backend
	recorder Recorder
	logger   *slog.Logger
	aliases  *aliases
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a coordinator. recorder and logger may be nil.
func New(store *cache.Store, backend Backend, recorder Recorder, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		store:    store,
		backend:  backend,
		recorder: recorder,
		logger:   logger,
		aliases:  newAliases(),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Store returns the cache the coordinator writes to.
func (c *Coordinator) Store() *cache.Store {
	return c.store
}

// Snapshot returns the cached project.
func (c *Coordinator) Snapshot(projectID string) (*project.Project, error) {
	p, ok := c.store.Get(projectID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotCached, projectID)
	}
	return p, nil
}

// Load fetches a project and caches it. While a mutation on the project is
// pending the fetched value is discarded and the cached snapshot returned.
func (c *Coordinator) Load(ctx context.Context, projectID string) (*project.Project, error) {
	fctx, token := c.store.BeginRefetch(ctx, projectID)
	defer c.store.EndRefetch(projectID, token)

	p, err := c.backend.FetchProject(fctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("fetching project %s: %w", projectID, err)
	}
	if !c.store.CommitRefetch(projectID, token, p) {
		if cur, ok := c.store.Get(projectID); ok {
			return cur, nil
		}
	}
	return p, nil
}

// Revalidate refetches a project in the background. A mutation started
// before the fetch completes cancels it.
func (c *Coordinator) Revalidate(projectID string) {
	ctx, token := c.store.BeginRefetch(c.ctx, projectID)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.store.EndRefetch(projectID, token)

		p, err := c.backend.FetchProject(ctx, projectID)
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("revalidation failed", "project_id", projectID, "error", err)
			}
			return
		}
		if !c.store.CommitRefetch(projectID, token, p) {
			c.logger.Debug("revalidation superseded", "project_id", projectID)
		}
	}()
}

// Wait blocks until background revalidations finish.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Close cancels background revalidations and waits for them.
func (c *Coordinator) Close() {
	c.cancel()
	c.wg.Wait()
}

type mutation[T any] struct {
	op         string
	projectID  string
	entityID   string
	optimistic func(*project.Project) *project.Project
	remote     func(context.Context) (T, error)
	commit     func(*project.Project, T) *project.Project
}

func run[T any](ctx context.Context, c *Coordinator, m mutation[T]) (T, error) {
	log := c.logger.With("op", m.op, "project_id", m.projectID, "entity_id", m.entityID)
	log.Debug("mutation started", "phase", phaseIdle)

	c.store.Acquire(m.projectID)
	previous, optimistic, applied := c.store.Update(m.projectID, m.optimistic)
	cached := previous != nil
	if applied {
		log.Debug("mutation applied", "phase", phaseApplied)
	}

	result, err := m.remote(ctx)

	var settled phase
	switch {
	case err == nil && !cached:
		settled = phaseRemoteOnly
	case err == nil:
		if m.commit != nil {
			c.store.Update(m.projectID, func(p *project.Project) *project.Project {
				return m.commit(p, result)
			})
		}
		settled = phaseCommitted
	case !cached:
		settled = phaseRemoteOnlyFailed
	case !applied || c.store.CompareAndSwap(m.projectID, optimistic, previous):
		settled = phaseRolledBack
	default:
		settled = phaseRollbackSkipped
	}
	c.store.Release(m.projectID)

	switch settled {
	case phaseRolledBack:
		log.Warn("mutation rolled back", "phase", settled, "error", err)
	case phaseRollbackSkipped:
		log.Warn("rollback skipped, cache superseded", "phase", settled, "error", err)
	default:
		log.Debug("mutation settled", "phase", settled)
	}

	if cached {
		c.Revalidate(m.projectID)
	}
	c.record(ctx, m.op, m.projectID, m.entityID, settled, err)

	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s: %w", m.op, err)
	}
	return result, nil
}

func (c *Coordinator) record(ctx context.Context, op, projectID, entityID string, settled phase, cause error) {
	if c.recorder == nil {
		return
	}
	entry := &journal.Entry{
		ProjectID: projectID,
		Operation: op,
		EntityID:  entityID,
		Outcome:   outcomes[settled],
	}
	if cause != nil {
		entry.Error = cause.Error()
	}
	if err := c.recorder.Record(context.WithoutCancel(ctx), entry); err != nil {
		c.logger.Warn("failed to record mutation", "op", op, "error", err)
	}
}
