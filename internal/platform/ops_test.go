package platform_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/livelist/internal/platform"
	"github.com/aretw0/livelist/pkg/adapters/fs"
	"github.com/aretw0/livelist/pkg/adapters/memory"
	"github.com/aretw0/livelist/pkg/core"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("Memory Adapter", func(t *testing.T) {
		b, err := platform.Open(ctx, "", platform.WithAdapter(platform.AdapterMemory))
		require.NoError(t, err)
		defer b.Close(ctx)

		_, ok := b.Store.(*memory.Store)
		assert.True(t, ok)
		assert.Equal(t, platform.AdapterMemory, b.Adapter)
	})

	t.Run("Unknown Adapter", func(t *testing.T) {
		_, err := platform.Open(ctx, "", platform.WithAdapter("s3"))
		assert.Error(t, err)
	})

	t.Run("FS Creates Missing Root", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "data")
		b, err := platform.Open(ctx, root, platform.WithWatch(false))
		require.NoError(t, err)
		defer b.Close(ctx)

		info, err := os.Stat(root)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		_, ok := b.Store.(*fs.Source)
		assert.True(t, ok)
	})

	t.Run("FS MustExist Fails On Missing Root", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "missing")
		_, err := platform.Open(ctx, root, platform.WithMustExist(true))
		assert.Error(t, err)
	})

	t.Run("FS Requires Root", func(t *testing.T) {
		_, err := platform.Open(ctx, "")
		assert.Error(t, err)
	})

	t.Run("FS Loads Existing Documents", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, "tasks"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(root, "tasks", "a.yaml"), []byte("title: A\n"), 0644))

		b, err := platform.Open(ctx, root,
			platform.WithWatch(false),
			platform.WithExtension(".yaml"),
			platform.WithIgnore("drafts/**"),
		)
		require.NoError(t, err)
		defer b.Close(ctx)

		doc, err := b.Get(ctx, "tasks", "a")
		require.NoError(t, err)
		assert.Equal(t, "A", doc.Fields["title"])

		require.NoError(t, b.Set(ctx, "tasks", "b", core.Fields{"title": "B"}))
		_, err = os.Stat(filepath.Join(root, "tasks", "b.yaml"))
		assert.NoError(t, err)
	})

	t.Run("FS Watches Directory", func(t *testing.T) {
		root := t.TempDir()
		b, err := platform.Open(ctx, root, platform.WithDebounce(10*time.Millisecond))
		require.NoError(t, err)
		defer b.Close(ctx)

		require.NoError(t, os.MkdirAll(filepath.Join(root, "tasks"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(root, "tasks", "x.json"), []byte(`{"n": 1}`), 0644))

		assert.Eventually(t, func() bool {
			_, err := b.Get(ctx, "tasks", "x")
			return err == nil
		}, 5*time.Second, 20*time.Millisecond)
		require.NoError(t, b.Close(ctx))
	})

	t.Run("Invalid Pattern", func(t *testing.T) {
		_, err := platform.Open(ctx, t.TempDir(), platform.WithInclude("[bad"))
		assert.Error(t, err)
	})
}
