package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/livelist/pkg/core"
)

func startSource(t *testing.T, root string) (*Source, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	s := newSource(t, root)
	require.NoError(t, s.Start(ctx))
	t.Cleanup(func() {
		assert.NoError(t, s.Stop(context.Background()))
		cancel()
	})
	return s, ctx
}

func exists(s *Source, collection, id string) func() bool {
	return func() bool {
		_, err := s.Get(context.Background(), collection, id)
		return err == nil
	}
}

func TestWatch_ExternalChanges(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "tasks/a.json", `{"title":"A"}`)
	s, _ := startSource(t, root)

	var rec recorder
	h, err := s.Subscribe(s.Collection("tasks"), rec.listen)
	require.NoError(t, err)
	defer h.Remove()
	require.Equal(t, 1, rec.count())

	writeFile(t, root, "tasks/b.json", `{"title":"B"}`)
	require.Eventually(t, exists(s, "tasks", "b"), 5*time.Second, 10*time.Millisecond)

	writeFile(t, root, "tasks/a.json", `{"title":"A2"}`)
	require.Eventually(t, func() bool {
		doc, err := s.Get(context.Background(), "tasks", "a")
		return err == nil && doc.Fields["title"] == "A2"
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(root, "tasks", "b.json")))
	require.Eventually(t, func() bool { return !exists(s, "tasks", "b")() }, 5*time.Second, 10*time.Millisecond)

	last := rec.last()
	require.Len(t, last.Changes, 1)
	assert.Equal(t, core.Removed, last.Changes[0].Type)
	assert.Equal(t, "b", last.Changes[0].Doc.ID)
}

func TestWatch_NewDirectory(t *testing.T) {
	root := t.TempDir()
	s, _ := startSource(t, root)

	writeFile(t, root, "fresh/nested/c.yaml", "title: C\n")
	require.Eventually(t, exists(s, "fresh", "nested/c"), 5*time.Second, 10*time.Millisecond)
}

func TestWatch_OwnWritesDeliverOnce(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "tasks/a.json", `{"n":1}`)
	s, ctx := startSource(t, root)

	var rec recorder
	h, err := s.Subscribe(s.Collection("tasks"), rec.listen)
	require.NoError(t, err)
	defer h.Remove()

	require.NoError(t, s.Update(ctx, "tasks", "a", "n", 2))
	require.Equal(t, 2, rec.count())

	// the watcher sees our own write; the cache absorbs it
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 2, rec.count())
}

func TestWatch_StartTwice(t *testing.T) {
	s, ctx := startSource(t, t.TempDir())
	assert.Error(t, s.Start(ctx))

	state := s.State().(SourceState)
	assert.True(t, state.WatcherActive)
}

func TestWatch_Stop(t *testing.T) {
	root := t.TempDir()
	s := newSource(t, root)
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))

	assert.False(t, s.State().(SourceState).WatcherActive)
}
