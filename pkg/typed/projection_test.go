package typed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/livelist/pkg/adapters/memory"
	"github.com/aretw0/livelist/pkg/core"
	"github.com/aretw0/livelist/pkg/reconcile"
	"github.com/aretw0/livelist/pkg/typed"
)

type Task struct {
	ID    string `json:"-"`
	Title string `json:"title"`
	Rank  int    `json:"rank"`
}

func (t *Task) SetID(id string) { t.ID = id }

func setupStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "tasks", "a", core.Fields{"title": "Alpha", "rank": 1}))
	require.NoError(t, store.Set(ctx, "tasks", "b", core.Fields{"title": "Beta", "rank": 2}))
	require.NoError(t, store.Set(ctx, "tasks", "c", core.Fields{"title": "Gamma", "rank": 3}))
	return store
}

func newReconciler(t *testing.T, store *memory.Store) *reconcile.Reconciler {
	t.Helper()
	r, err := reconcile.New(store, func() core.Query {
		return store.Collection("tasks").OrderBy("rank", memory.Asc)
	})
	require.NoError(t, err)
	return r
}

func TestProjection_FollowsReconciler(t *testing.T) {
	store := setupStore(t)
	r := newReconciler(t, store)
	p := typed.New(r, typed.JSONDecoder[Task]())
	ctx := context.Background()

	require.NoError(t, r.StartListening())
	require.Equal(t, 3, r.Count())
	assert.Equal(t, r.Count(), p.Count())

	first, err := p.Record(0)
	require.NoError(t, err)
	assert.Equal(t, Task{ID: "a", Title: "Alpha", Rank: 1}, first)

	require.NoError(t, store.Update(ctx, "tasks", "b", "title", "Beta 2"))
	second, err := p.Record(1)
	require.NoError(t, err)
	assert.Equal(t, "Beta 2", second.Title)

	require.NoError(t, store.Delete(ctx, "tasks", "a"))
	assert.Equal(t, 2, r.Count())
	assert.Equal(t, r.Count(), p.Count())
	head, err := p.Record(0)
	require.NoError(t, err)
	assert.Equal(t, "b", head.ID)

	r.Clear()
	assert.Equal(t, 0, p.Count())
	assert.Same(t, r, p.Reconciler())
}

func TestProjection_DecodesOncePerChange(t *testing.T) {
	store := setupStore(t)
	r := newReconciler(t, store)
	p := typed.New(r, typed.JSONDecoder[Task]())

	require.NoError(t, r.StartListening())
	assert.Equal(t, 3, p.Decodes())

	for i := 0; i < 10; i++ {
		_, err := p.Record(i % 3)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, p.Decodes())

	require.NoError(t, store.Update(context.Background(), "tasks", "c", "rank", 30))
	assert.Equal(t, 4, p.Decodes())
}

func TestProjection_DecodeError(t *testing.T) {
	store := setupStore(t)
	require.NoError(t, store.Set(context.Background(), "tasks", "d", core.Fields{"title": "Delta", "rank": 4, "extra": 1}))
	require.NoError(t, store.Set(context.Background(), "tasks", "bad", core.Fields{"title": []any{"not", "a", "string"}, "rank": 5}))

	r := newReconciler(t, store)
	p := typed.New(r, typed.JSONDecoder[Task]())
	require.NoError(t, r.StartListening())
	require.Equal(t, 5, p.Count())

	i := r.IndexOf("bad")
	require.GreaterOrEqual(t, i, 0)

	doc, err := r.Document(i)
	require.NoError(t, err)
	assert.Equal(t, "bad", doc.ID)

	_, err = p.Record(i)
	assert.ErrorIs(t, err, core.ErrDecode)
	var decErr *core.DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, "bad", decErr.ID)

	_, err = p.Model(i)
	assert.ErrorIs(t, err, core.ErrDecode)

	// the neighbours are unaffected
	ok, err := p.Record(r.IndexOf("d"))
	require.NoError(t, err)
	assert.Equal(t, "Delta", ok.Title)
}

func TestProjection_IndexOutOfRange(t *testing.T) {
	store := setupStore(t)
	r := newReconciler(t, store)
	p := typed.New(r, typed.JSONDecoder[Task]())

	_, err := p.Record(0)
	assert.ErrorIs(t, err, core.ErrIndexOutOfRange)

	require.NoError(t, r.StartListening())
	_, err = p.Record(3)
	assert.ErrorIs(t, err, core.ErrIndexOutOfRange)
}

func TestProjection_AttachedLate(t *testing.T) {
	store := setupStore(t)
	r := newReconciler(t, store)
	require.NoError(t, r.StartListening())

	p := typed.New(r, typed.JSONDecoder[Task]())
	assert.Equal(t, 3, p.Count())
	assert.Equal(t, 3, p.Decodes())
}

func TestProjection_Model(t *testing.T) {
	store := setupStore(t)
	r := newReconciler(t, store)
	p := typed.New(r, typed.JSONDecoder[Task]())
	require.NoError(t, r.StartListening())

	m, err := p.Model(2)
	require.NoError(t, err)
	assert.Equal(t, "c", m.ID)
	assert.Equal(t, "Gamma", m.Data.Title)
	require.NotNil(t, m.Ref)

	require.NoError(t, m.Ref.Update(context.Background(), "title", "Gamma 2"))
	updated, err := p.Record(2)
	require.NoError(t, err)
	assert.Equal(t, "Gamma 2", updated.Title)
}
