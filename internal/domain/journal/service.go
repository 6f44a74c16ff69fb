package journal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// DefaultLimit caps Recent when no limit is given.
const DefaultLimit = 50

// Service records mutation outcomes.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new journal service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Record appends an entry, stamping CreatedAt when missing.
func (s *Service) Record(ctx context.Context, entry *Entry) error {
	if entry == nil || entry.ProjectID == "" || entry.Operation == "" || entry.Outcome == "" {
		return ErrInvalidInput
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("appending journal entry: %w", err)
	}
	s.logger.Debug("mutation settled",
		"project_id", entry.ProjectID,
		"operation", entry.Operation,
		"outcome", entry.Outcome,
	)
	return nil
}

// Recent lists entries newest first.
func (s *Service) Recent(ctx context.Context, opts ListOptions) ([]Entry, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	entries, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing journal: %w", err)
	}
	return entries, nil
}
