package cache_test

import (
	"context"
	"testing"

	"github.com/rpggio/blueprint/internal/cache"
	"github.com/rpggio/blueprint/internal/domain/project"
	"github.com/stretchr/testify/require"
)

func TestStore_UpdateSkipsIdenticalResult(t *testing.T) {
	calls := 0
	store := cache.NewStore(func(string, *project.Project) { calls++ })
	p := &project.Project{ID: "p1"}
	store.Set("p1", p)
	require.Equal(t, 1, calls)

	prev, next, changed := store.Update("p1", func(cur *project.Project) *project.Project { return cur })
	require.False(t, changed)
	require.Same(t, p, prev)
	require.Same(t, p, next)
	require.Equal(t, 1, calls)
	require.Equal(t, uint64(1), store.Version("p1"))

	_, next, changed = store.Update("p1", func(cur *project.Project) *project.Project {
		cp := *cur
		cp.Progress = 10
		return &cp
	})
	require.True(t, changed)
	require.Equal(t, 10, next.Progress)
	require.Equal(t, 2, calls)
}

func TestStore_UpdateMissingEntry(t *testing.T) {
	store := cache.NewStore()
	_, _, changed := store.Update("nope", func(cur *project.Project) *project.Project { return &project.Project{} })
	require.False(t, changed)
	_, ok := store.Get("nope")
	require.False(t, ok)
}

func TestStore_CompareAndSwap(t *testing.T) {
	store := cache.NewStore()
	a := &project.Project{ID: "p1"}
	b := &project.Project{ID: "p1", Progress: 5}
	store.Set("p1", a)

	require.True(t, store.CompareAndSwap("p1", a, b))
	require.False(t, store.CompareAndSwap("p1", a, a), "stale expectation must not win")
	got, _ := store.Get("p1")
	require.Same(t, b, got)
}

func TestStore_AcquireCancelsRefetch(t *testing.T) {
	store := cache.NewStore()
	store.Set("p1", &project.Project{ID: "p1"})

	ctx, token := store.BeginRefetch(context.Background(), "p1")
	store.Acquire("p1")
	require.ErrorIs(t, ctx.Err(), context.Canceled)
	require.False(t, store.CommitRefetch("p1", token, &project.Project{ID: "p1", Progress: 99}))

	got, _ := store.Get("p1")
	require.Equal(t, 0, got.Progress)
	require.Equal(t, 1, store.Pending("p1"))
	store.Release("p1")
	require.Equal(t, 0, store.Pending("p1"))
}

func TestStore_RefetchDroppedWhileMutationPending(t *testing.T) {
	store := cache.NewStore()
	store.Set("p1", &project.Project{ID: "p1"})
	store.Acquire("p1")

	_, token := store.BeginRefetch(context.Background(), "p1")
	require.False(t, store.CommitRefetch("p1", token, &project.Project{ID: "p1", Progress: 50}))
	store.Release("p1")

	_, token = store.BeginRefetch(context.Background(), "p1")
	require.True(t, store.CommitRefetch("p1", token, &project.Project{ID: "p1", Progress: 50}))
	got, _ := store.Get("p1")
	require.Equal(t, 50, got.Progress)
}

func TestStore_NewerRefetchSupersedesOlder(t *testing.T) {
	store := cache.NewStore()
	ctx1, first := store.BeginRefetch(context.Background(), "p1")
	_, second := store.BeginRefetch(context.Background(), "p1")
	require.Error(t, ctx1.Err())
	require.False(t, store.CommitRefetch("p1", first, &project.Project{ID: "p1"}))
	require.True(t, store.CommitRefetch("p1", second, &project.Project{ID: "p1"}))
}

func TestStore_SubscribeReceivesLatest(t *testing.T) {
	store := cache.NewStore()
	ch, cancel := store.Subscribe("p1")
	defer cancel()

	store.Set("p1", &project.Project{ID: "p1", Progress: 1})
	store.Set("p1", &project.Project{ID: "p1", Progress: 2})

	got := <-ch
	require.Equal(t, 2, got.Progress)
}
