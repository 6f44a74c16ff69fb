package status_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/blueprint/internal/cache"
	"github.com/rpggio/blueprint/internal/domain/project"
	"github.com/rpggio/blueprint/internal/status"
	"github.com/stretchr/testify/require"
)

type scriptedSource struct {
	events []project.StatusEvent
}

func (s scriptedSource) Stream(ctx context.Context, _ string, out chan<- project.StatusEvent) error {
	for _, ev := range s.events {
		select {
		case out <- ev:
		case <-ctx.Done():
			return nil
		}
	}
	<-ctx.Done()
	return nil
}

type storeLoader struct {
	store *cache.Store
	mu    sync.Mutex
	calls int
	next  func() *project.Project
}

func (l *storeLoader) Load(_ context.Context, id string) (*project.Project, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	p := l.next()
	l.store.Set(id, p)
	return p, nil
}

func TestWatcher_StopsAndReloadsOnTerminal(t *testing.T) {
	store := cache.NewStore()
	store.Set("p1", &project.Project{ID: "p1", Status: project.StatusGenerating, Progress: 10})
	loader := &storeLoader{store: store, next: func() *project.Project {
		return &project.Project{ID: "p1", Status: project.StatusReady, Progress: 100, Epics: []*project.Epic{{ID: "e1"}}}
	}}
	src := scriptedSource{events: []project.StatusEvent{
		{ProjectID: "p1", Status: project.StatusGenerating, Progress: 50},
		{ProjectID: "p1", Status: project.StatusGenerating, Progress: 30},
		{ProjectID: "p1", Status: project.StatusReady, Progress: 100},
	}}

	w := status.NewWatcher(store, loader, nil, src)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	final, err := w.Watch(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, project.StatusReady, final.Status)
	require.Len(t, final.Epics, 1)
	require.Equal(t, 1, loader.calls)
}

func TestWatcher_ReturnsImmediatelyWhenTerminal(t *testing.T) {
	store := cache.NewStore()
	done := &project.Project{ID: "p1", Status: project.StatusFailed}
	store.Set("p1", done)

	w := status.NewWatcher(store, &storeLoader{store: store}, nil)
	got, err := w.Watch(context.Background(), "p1")
	require.NoError(t, err)
	require.Same(t, done, got)
}

func TestWatcher_ContextCancelled(t *testing.T) {
	store := cache.NewStore()
	store.Set("p1", &project.Project{ID: "p1", Status: project.StatusGenerating})

	w := status.NewWatcher(store, &storeLoader{store: store}, nil, scriptedSource{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := w.Watch(ctx, "p1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

type flakyFetcher struct {
	mu    sync.Mutex
	calls int
}

func (f *flakyFetcher) FetchProject(_ context.Context, id string) (*project.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls == 1 {
		return nil, errors.New("connection reset")
	}
	return &project.Project{ID: id, Status: project.StatusReady, Progress: 100}, nil
}

func TestWatcher_PollerFallback(t *testing.T) {
	store := cache.NewStore()
	store.Set("p1", &project.Project{ID: "p1", Status: project.StatusGenerating, Progress: 5})
	fetcher := &flakyFetcher{}
	loader := &storeLoader{store: store, next: func() *project.Project {
		return &project.Project{ID: "p1", Status: project.StatusReady, Progress: 100}
	}}

	w := status.NewWatcher(store, loader, nil, status.NewPoller(fetcher, 5*time.Millisecond, nil))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	final, err := w.Watch(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, project.StatusReady, final.Status)
	require.GreaterOrEqual(t, fetcher.calls, 2)
}
