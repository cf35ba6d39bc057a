package eventloop_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/livelist/pkg/adapters/memory"
	"github.com/aretw0/livelist/pkg/core"
	"github.com/aretw0/livelist/pkg/eventloop"
	"github.com/aretw0/livelist/pkg/reconcile"
)

func startLoop(t *testing.T) *eventloop.Loop {
	t.Helper()
	l := eventloop.New(nil)
	require.NoError(t, l.Start(context.Background()))
	t.Cleanup(func() { _ = l.Stop(context.Background()) })
	return l
}

func TestLoop_RunsInOrder(t *testing.T) {
	l := startLoop(t)

	var got []int
	for i := 0; i < 100; i++ {
		l.Post(func() { got = append(got, i) })
	}
	require.NoError(t, l.Do(context.Background(), func() {}))

	want := make([]int, 100)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got)
}

func TestLoop_PostFromTask(t *testing.T) {
	l := startLoop(t)

	done := make(chan struct{})
	l.Post(func() {
		l.Post(func() { close(done) })
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("nested task never ran")
	}
}

func TestLoop_SurvivesPanic(t *testing.T) {
	l := startLoop(t)

	l.Post(func() { panic("boom") })
	ran := false
	require.NoError(t, l.Do(context.Background(), func() { ran = true }))
	assert.True(t, ran)
}

func TestLoop_Stop(t *testing.T) {
	l := eventloop.New(nil)
	require.NoError(t, l.Start(context.Background()))
	assert.Error(t, l.Start(context.Background()))

	require.NoError(t, l.Stop(context.Background()))
	require.NoError(t, l.Stop(context.Background()))

	ran := false
	l.Post(func() { ran = true })
	assert.ErrorIs(t, l.Do(context.Background(), func() {}), eventloop.ErrStopped)
	assert.False(t, ran)

	state := l.State().(eventloop.LoopState)
	assert.True(t, state.Started)
	assert.True(t, state.Stopped)
	assert.Equal(t, "event-loop", l.ComponentType())
}

func TestLoop_StopBeforeStart(t *testing.T) {
	l := eventloop.New(nil)
	require.NoError(t, l.Stop(context.Background()))
	assert.ErrorIs(t, l.Do(context.Background(), func() {}), eventloop.ErrStopped)
}

func TestLoop_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := eventloop.New(nil)
	require.NoError(t, l.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool {
		return l.State().(eventloop.LoopState).Stopped
	}, 5*time.Second, 10*time.Millisecond)
}

// Writers on other goroutines, reconciler confined to the loop.
func TestLoop_AsReconcilerExecutor(t *testing.T) {
	l := startLoop(t)
	store := memory.New()
	ctx := context.Background()

	var r *reconcile.Reconciler
	var err error
	require.NoError(t, l.Do(ctx, func() {
		r, err = reconcile.New(store, func() core.Query { return store.Collection("items") },
			reconcile.WithExecutor(l))
		if err == nil {
			err = r.StartListening()
		}
	}))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Add(ctx, "items", core.Fields{"n": i})
		}()
	}
	wg.Wait()

	assert.Eventually(t, func() bool {
		count := 0
		_ = l.Do(ctx, func() { count = r.Count() })
		return count == 8
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, l.Do(ctx, func() { r.StopListening() }))
	_, err = store.Add(ctx, "items", core.Fields{"n": 99})
	require.NoError(t, err)

	count := -1
	require.NoError(t, l.Do(ctx, func() { count = r.Count() }))
	assert.Equal(t, 8, count)
}
