// Package typed keeps a decoded copy of every document in a reconciler's
// view. Documents are decoded once per change, when the change is applied,
// and never on read.
package typed

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/livelist/pkg/core"
	"github.com/aretw0/livelist/pkg/reconcile"
)

type entry[T any] struct {
	data T
	err  error
}

// Projection mirrors a Reconciler's view as typed records of T.
// Records are keyed by document ID; their order is the view's order.
// Like the Reconciler, it must only be used from the reconciler's thread.
type Projection[T any] struct {
	reconciler *reconcile.Reconciler
	decode     DecodeFunc[T]
	logger     *slog.Logger
	records    map[string]entry[T]
	decodes    int
}

// Option configures a Projection.
type Option func(*projectionOptions)

type projectionOptions struct {
	logger *slog.Logger
}

// WithLogger sets the logger used to report decode failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *projectionOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New attaches a projection to r. Documents already in the view are decoded
// immediately.
func New[T any](r *reconcile.Reconciler, decode DecodeFunc[T], opts ...Option) *Projection[T] {
	o := &projectionOptions{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(o)
	}

	p := &Projection[T]{
		reconciler: r,
		decode:     decode,
		logger:     o.logger,
		records:    make(map[string]entry[T], r.Count()),
	}
	for i := 0; i < r.Count(); i++ {
		doc, _ := r.Document(i)
		p.DocumentSet(doc)
	}
	r.Attach(p)
	return p
}

// Reconciler returns the underlying reconciler.
func (p *Projection[T]) Reconciler() *reconcile.Reconciler {
	return p.reconciler
}

// Count returns the number of typed records. It always equals the
// reconciler's Count once a batch has been applied.
func (p *Projection[T]) Count() int {
	return len(p.records)
}

// Record returns the typed record at index. It fails with an IndexError for
// an out-of-range index and with the stored DecodeError when the document
// at index could not be decoded.
func (p *Projection[T]) Record(index int) (T, error) {
	var zero T

	doc, err := p.reconciler.Document(index)
	if err != nil {
		return zero, err
	}
	e, ok := p.records[doc.ID]
	if !ok {
		return zero, fmt.Errorf("no typed record for %s: %w", doc.ID, core.ErrNotFound)
	}
	if e.err != nil {
		return zero, e.err
	}
	return e.data, nil
}

// Model returns the typed record at index along with its ID and reference.
func (p *Projection[T]) Model(index int) (*DocumentModel[T], error) {
	data, err := p.Record(index)
	if err != nil {
		return nil, err
	}
	doc, _ := p.reconciler.Document(index)
	return &DocumentModel[T]{ID: doc.ID, Data: data, Ref: doc.Ref}, nil
}

// Decodes returns how many times the decode function has run.
func (p *Projection[T]) Decodes() int {
	return p.decodes
}

// DocumentSet implements reconcile.Hook.
func (p *Projection[T]) DocumentSet(doc core.Document) {
	p.decodes++
	data, err := p.decode(doc)
	if err != nil {
		derr := &core.DecodeError{ID: doc.ID, Err: err}
		p.logger.Warn("decode failed", "id", doc.ID, "error", err)
		p.records[doc.ID] = entry[T]{err: derr}
		return
	}
	p.records[doc.ID] = entry[T]{data: data}
}

// DocumentRemoved implements reconcile.Hook.
func (p *Projection[T]) DocumentRemoved(doc core.Document) {
	delete(p.records, doc.ID)
}

// DocumentsReset implements reconcile.Hook.
func (p *Projection[T]) DocumentsReset() {
	p.records = make(map[string]entry[T])
}

var _ reconcile.Hook = (*Projection[struct{}])(nil)
