package optimistic

import "errors"

var (
	// ErrNotCached is returned when a project has not been loaded
	ErrNotCached = errors.New("project not cached")

	// ErrUnconfirmedID is returned when a call refers to an entity whose
	// creation has not been confirmed by the server yet
	ErrUnconfirmedID = errors.New("entity is still being created")
)
