package reconcile

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aretw0/livelist/pkg/core"
)

type fakeQuery struct {
	after string
}

func (q fakeQuery) StartAfter(doc core.Document) core.Query {
	return fakeQuery{after: doc.ID}
}

type fakeSub struct {
	query    core.Query
	listener core.Listener
	removed  int
}

func (s *fakeSub) Remove() {
	s.removed++
}

// fakeSource records subscriptions; tests deliver batches by hand.
type fakeSource struct {
	subs        []*fakeSub
	err         error
	onSubscribe func(sub *fakeSub)
}

func (s *fakeSource) Subscribe(q core.Query, l core.Listener) (core.Handle, error) {
	if s.err != nil {
		return nil, s.err
	}
	sub := &fakeSub{query: q, listener: l}
	s.subs = append(s.subs, sub)
	if s.onSubscribe != nil {
		s.onSubscribe(sub)
	}
	return sub, nil
}

func (s *fakeSource) send(i int, changes ...core.ChangeEvent) {
	s.subs[i].listener(core.ChangeBatch{Changes: changes}, nil)
}

func (s *fakeSource) fail(i int, err error) {
	s.subs[i].listener(core.ChangeBatch{}, err)
}

func doc(id string) core.Document {
	return core.Document{ID: id, Fields: core.Fields{"name": id}}
}

func added(id string, at int) core.ChangeEvent {
	return core.ChangeEvent{Type: core.Added, Doc: doc(id), OldIndex: -1, NewIndex: at}
}

func modified(d core.Document, from, to int) core.ChangeEvent {
	return core.ChangeEvent{Type: core.Modified, Doc: d, OldIndex: from, NewIndex: to}
}

func removed(id string, at int) core.ChangeEvent {
	return core.ChangeEvent{Type: core.Removed, Doc: doc(id), OldIndex: at, NewIndex: -1}
}

// addedRange reports n new documents "<prefix>0".."<prefix>n-1" at 0..n-1.
func addedRange(prefix string, n int) []core.ChangeEvent {
	changes := make([]core.ChangeEvent, n)
	for i := range changes {
		changes[i] = added(fmt.Sprintf("%s%d", prefix, i), i)
	}
	return changes
}

// recorder is an Observer that writes every call as a short string.
type recorder struct {
	events []string
	errs   []error
}

func (r *recorder) add(format string, args ...any) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) ItemInserted(i int) { r.add("insert %d", i) }
func (r *recorder) ItemChanged(i int) { r.add("change %d", i) }
func (r *recorder) ItemMoved(from, to int) { r.add("move %d %d", from, to) }
func (r *recorder) ItemRemoved(i int) { r.add("remove %d", i) }
func (r *recorder) ItemsReset() { r.add("reset") }
func (r *recorder) BatchApplied() { r.add("applied") }
func (r *recorder) LoadingMoreStarted() { r.add("loading") }
func (r *recorder) LoadingMoreComplete() { r.add("loaded") }
func (r *recorder) HasLoadedAll() { r.add("all") }
func (r *recorder) Error(err error) {
	r.add("error")
	r.errs = append(r.errs, err)
}

func (r *recorder) take() []string {
	e := r.events
	r.events = nil
	return e
}

// hookLog is a Hook that records document-level changes.
type hookLog struct {
	events []string
}

func (h *hookLog) DocumentSet(d core.Document) { h.events = append(h.events, "set "+d.ID) }
func (h *hookLog) DocumentRemoved(d core.Document) { h.events = append(h.events, "removed "+d.ID) }
func (h *hookLog) DocumentsReset() { h.events = append(h.events, "reset") }

func newReconciler(t *testing.T, opts ...Option) (*Reconciler, *fakeSource, *recorder) {
	t.Helper()
	src := &fakeSource{}
	rec := &recorder{}
	r, err := New(src, func() core.Query { return fakeQuery{} }, append([]Option{WithObserver(rec)}, opts...)...)
	require.NoError(t, err)
	return r, src, rec
}

func ids(r *Reconciler) []string {
	out := make([]string, r.Count())
	for i := range out {
		d, err := r.Document(i)
		if err != nil {
			panic(err)
		}
		out[i] = d.ID
	}
	return out
}

// requireUnique fails when the view holds an ID twice.
func requireUnique(t *testing.T, r *Reconciler) {
	t.Helper()
	seen := make(map[string]bool)
	for _, id := range ids(r) {
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
