// Package reconcile maintains an ordered, deduplicated view over the live
// results of one or more paginated document queries and emits the minimal
// insert/change/move/remove operations needed to keep a list in sync.
//
// A Reconciler is not safe for concurrent use. Every method, and every
// delivery from the source, must run on one logical thread; configure an
// Executor (see package eventloop) when the source delivers from its own
// goroutines.
package reconcile

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/livelist/pkg/core"
)

// page is one query of the paginated result, subscribed or not.
type page struct {
	query core.Query
	reg   *registration
}

// registration ties a live handle to the page it serves. Deliveries that
// arrive for an inactive registration are dropped.
type registration struct {
	id     uint64
	page   int
	handle core.Handle
	active bool
}

// Reconciler owns the view of raw documents.
type Reconciler struct {
	source   core.Source
	creator  core.QueryCreator
	policy   Policy
	observer Observer
	executor Executor
	logger   *slog.Logger
	hooks    []Hook

	view       *view
	pages      []*page
	pagination pagination
	listening  bool
	nextID     uint64
	// generation changes on every StopListening; a batch in progress
	// stops applying when it does.
	generation uint64
}

// New creates a Reconciler for the queries produced by creator.
// No query is created until StartListening.
func New(source core.Source, creator core.QueryCreator, opts ...Option) (*Reconciler, error) {
	if source == nil {
		return nil, errors.New("reconcile: source is required")
	}
	if creator == nil {
		return nil, errors.New("reconcile: query creator is required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &Reconciler{
		source:     source,
		creator:    creator,
		policy:     o.policy,
		observer:   o.observer,
		executor:   o.executor,
		logger:     o.logger,
		hooks:      o.hooks,
		view:       newView(),
		pagination: newPagination(),
	}, nil
}

// Attach registers a mutation hook. It sees every later mutation; documents
// already in the view are not replayed.
func (r *Reconciler) Attach(h Hook) {
	r.hooks = append(r.hooks, h)
}

// StartListening subscribes every tracked query that has no active
// subscription, creating the initial query first if there is none.
// Calling it while already listening is a no-op.
func (r *Reconciler) StartListening() error {
	if len(r.pages) == 0 {
		r.pages = append(r.pages, &page{query: r.creator()})
	}
	r.listening = true

	for i := 0; i < len(r.pages); i++ {
		// a synchronous delivery may have stopped or cleared us
		if !r.listening {
			break
		}
		if r.pages[i].reg != nil {
			continue
		}
		if err := r.listen(i); err != nil {
			return fmt.Errorf("subscribe page %d: %w", i, err)
		}
	}
	return nil
}

// StopListening removes every subscription before returning. The view is kept.
func (r *Reconciler) StopListening() {
	for i, p := range r.pages {
		if p.reg == nil {
			continue
		}
		p.reg.active = false
		if p.reg.handle != nil {
			p.reg.handle.Remove()
		}
		r.logger.Debug("subscription removed", "page", i, "registration", p.reg.id)
		p.reg = nil
	}
	r.listening = false
	r.generation++
}

// Clear stops listening, empties the view and forgets every query.
// The next StartListening begins again from one fresh query.
func (r *Reconciler) Clear() {
	r.StopListening()
	r.pages = nil
	r.view.Reset()
	r.pagination.reset()
	for _, h := range r.hooks {
		h.DocumentsReset()
	}
	r.observer.ItemsReset()
}

// Listening reports whether StartListening is in effect.
func (r *Reconciler) Listening() bool {
	return r.listening
}

// Count returns the number of documents in the view.
func (r *Reconciler) Count() int {
	return r.view.Len()
}

// Document returns the document at index.
func (r *Reconciler) Document(index int) (core.Document, error) {
	if index < 0 || index >= r.view.Len() {
		return core.Document{}, &core.IndexError{Index: index, Count: r.view.Len()}
	}
	return r.view.At(index), nil
}

// IndexOf returns the position of the document with the given ID, or -1.
func (r *Reconciler) IndexOf(id string) int {
	return r.view.IndexOf(id)
}

// Pagination returns the state of the pagination controller.
func (r *Reconciler) Pagination() Pagination {
	return r.pagination.snapshot()
}

// Policy returns the reconciliation policy in use.
func (r *Reconciler) Policy() Policy {
	return r.policy
}

// Pages returns the number of tracked queries.
func (r *Reconciler) Pages() int {
	return len(r.pages)
}

// OnChangeBatch applies a batch delivered for page. A non-nil err is
// reported through Observer.Error and nothing is mutated; the same happens
// when the policy rejects the batch.
func (r *Reconciler) OnChangeBatch(page int, batch core.ChangeBatch, err error) {
	if err != nil {
		r.fail(page, err)
		return
	}

	gen := r.generation
	size := r.pagination.sizeAfter(page, batch.Len())
	emit := func(o op) bool {
		r.emit(o)
		return r.generation == gen
	}
	if err := r.policy.apply(r.view, batch, offset(page, size), emit); err != nil {
		r.fail(page, err)
		return
	}
	if r.generation != gen {
		r.logger.Debug("batch abandoned after stop", "page", page)
		return
	}
	r.pagination.pageSize = size
	r.logger.Debug("batch applied", "page", page, "changes", batch.Len(), "count", r.view.Len())
	r.observer.BatchApplied()
	if r.generation != gen {
		return
	}

	if !r.pagination.awaiting(page) {
		return
	}
	exhausted := r.policy.exhausted(batch, r.pagination.pageSize)
	r.pagination.complete(exhausted)
	r.observer.LoadingMoreComplete()
	if exhausted {
		r.logger.Debug("query exhausted", "pages", len(r.pages), "count", r.view.Len())
		r.observer.HasLoadedAll()
	}
}

// OnVisibleRangeChanged is the consumption signal from the list. When the
// visible window reaches the tail, a continuation query starting after the
// last document is subscribed, unless a page is in flight or the query is
// exhausted.
func (r *Reconciler) OnVisibleRangeChanged(firstVisible, visibleCount, totalCount int) {
	if firstVisible+visibleCount < totalCount {
		return
	}
	if !r.listening || r.pagination.state != Idle {
		return
	}
	last, ok := r.view.Last()
	if !ok {
		return
	}

	r.pages = append(r.pages, &page{query: r.creator().StartAfter(last)})
	index := len(r.pages) - 1
	r.pagination.begin(index)
	r.logger.Debug("loading more", "page", index, "after", last.ID)
	r.observer.LoadingMoreStarted()

	if err := r.listen(index); err != nil {
		r.pages = r.pages[:index]
		r.pagination.abort()
		r.fail(index, err)
	}
}

func (r *Reconciler) listen(index int) error {
	r.nextID++
	reg := &registration{id: r.nextID, page: index, active: true}
	p := r.pages[index]
	p.reg = reg

	handle, err := r.source.Subscribe(p.query, func(batch core.ChangeBatch, err error) {
		r.executor.Post(func() {
			r.deliver(reg, batch, err)
		})
	})
	if err != nil {
		reg.active = false
		p.reg = nil
		return err
	}

	// The source may have delivered synchronously and the observer may
	// already have stopped listening.
	if !reg.active {
		handle.Remove()
		return nil
	}
	reg.handle = handle
	r.logger.Debug("subscription added", "page", index, "registration", reg.id)
	return nil
}

func (r *Reconciler) deliver(reg *registration, batch core.ChangeBatch, err error) {
	if !reg.active {
		r.logger.Debug("dropping delivery for removed subscription", "page", reg.page, "registration", reg.id)
		return
	}
	r.OnChangeBatch(reg.page, batch, err)
}

func (r *Reconciler) fail(page int, err error) {
	serr := &core.SubscriptionError{Page: page, Err: err}
	r.logger.Warn("batch rejected", "page", page, "error", err)
	r.observer.Error(serr)
}

func (r *Reconciler) emit(o op) {
	switch o.kind {
	case opInsert:
		for _, h := range r.hooks {
			h.DocumentSet(o.doc)
		}
		r.observer.ItemInserted(o.to)
	case opChange:
		r.replaced(o)
		r.observer.ItemChanged(o.to)
	case opMove:
		r.replaced(o)
		r.observer.ItemMoved(o.from, o.to)
		r.observer.ItemChanged(o.to)
	case opRemove:
		for _, h := range r.hooks {
			h.DocumentRemoved(o.doc)
		}
		r.observer.ItemRemoved(o.from)
	}
}

// replaced notifies hooks of a slot whose document was superseded. Under
// the position policy the new document may carry a different ID.
func (r *Reconciler) replaced(o op) {
	for _, h := range r.hooks {
		if o.prev.ID != "" && o.prev.ID != o.doc.ID {
			h.DocumentRemoved(o.prev)
		}
		h.DocumentSet(o.doc)
	}
}
