package lifecycle_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/livelist/pkg/adapters/lifecycle"
	"github.com/aretw0/livelist/pkg/adapters/memory"
	"github.com/aretw0/livelist/pkg/core"
)

func next(t *testing.T, events <-chan any) lifecycle.Event {
	t.Helper()
	select {
	case e, ok := <-events:
		require.True(t, ok, "events closed")
		ev, ok := e.(lifecycle.Event)
		require.True(t, ok)
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("no event")
		return lifecycle.Event{}
	}
}

func TestSource_ForwardsChanges(t *testing.T) {
	store := memory.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, store.Set(ctx, "tasks", "a", core.Fields{"rank": 1}))

	src := lifecycle.NewSource(store, store.Collection("tasks").OrderBy("rank", memory.Asc))
	require.NoError(t, src.Start(ctx))

	events := make(chan any)
	go func() {
		defer close(events)
		for e := range src.Events() {
			events <- e
		}
	}()

	first := next(t, events)
	assert.Equal(t, core.Added, first.Change.Type)
	assert.Equal(t, "a", first.Change.Doc.ID)
	assert.Equal(t, 1, first.Size)
	assert.Equal(t, "ADDED a (-1 -> 0) [1]", first.String())

	require.NoError(t, store.Set(ctx, "tasks", "b", core.Fields{"rank": 0}))
	second := next(t, events)
	assert.Equal(t, "b", second.Change.Doc.ID)
	assert.Equal(t, 0, second.Change.NewIndex)
	assert.Equal(t, 2, second.Size)

	store.Interrupt(errors.New("offline"))
	failure := next(t, events)
	assert.EqualError(t, failure.Err, "offline")
	assert.Equal(t, "error: offline", failure.String())

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSource_SubscribeFailure(t *testing.T) {
	store := memory.New()
	src := lifecycle.NewSource(store, memory.New().Collection("tasks"))
	assert.ErrorIs(t, src.Start(context.Background()), core.ErrUnsupportedQuery)
}

// Writers must not wait for a slow reader.
func TestSource_Decoupling(t *testing.T) {
	store := memory.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := lifecycle.NewSource(store, store.Collection("items"))
	require.NoError(t, src.Start(ctx))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			_, _ = store.Add(ctx, "items", core.Fields{"n": i})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("writer blocked on an unread event stream")
	}

	for i := 0; i < 5; i++ {
		select {
		case e := <-src.Events():
			assert.Equal(t, core.Added, e.(lifecycle.Event).Change.Type)
		case <-time.After(time.Second):
			t.Fatalf("event %d never arrived", i)
		}
	}
}
