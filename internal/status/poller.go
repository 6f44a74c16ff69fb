package status

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/rpggio/blueprint/internal/domain/project"
)

// DefaultInterval is the polling period when none is configured.
const DefaultInterval = 3 * time.Second

// Source delivers status events for one project until ctx is done.
type Source interface {
	Stream(ctx context.Context, projectID string, out chan<- project.StatusEvent) error
}

// Fetcher reads a project from the backend.
type Fetcher interface {
	FetchProject(ctx context.Context, projectID string) (*project.Project, error)
}

// Poller is a Source that fetches the project on a fixed interval.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	logger   *slog.Logger
}

// NewPoller creates a poller. A non-positive interval uses DefaultInterval.
func NewPoller(fetcher Fetcher, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Poller{fetcher: fetcher, interval: interval, logger: logger}
}

// Stream polls until ctx is done. Fetch failures are logged and retried on
// the next tick.
func (p *Poller) Stream(ctx context.Context, projectID string, out chan<- project.StatusEvent) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		proj, err := p.fetcher.FetchProject(ctx, projectID)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Warn("status poll failed", "project_id", projectID, "error", err)
			continue
		}
		select {
		case out <- EventFrom(proj):
		case <-ctx.Done():
			return nil
		}
	}
}
