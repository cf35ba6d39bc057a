// Package memory is an in-process document query service with live
// subscriptions. Queries filter, order, limit and paginate with cursors;
// every write is pushed to the affected subscriptions as a change batch
// with old/new position hints, the way a cloud document database reports
// them.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/aretw0/livelist/pkg/core"
)

type record struct {
	fields  core.Fields
	version uint64
}

type subscription struct {
	id       uint64
	query    Query
	listener core.Listener
	last     []core.Document
	removed  bool
}

type delivery struct {
	sub   *subscription
	batch core.ChangeBatch
	err   error
}

// Store holds collections of documents in memory.
//
// Deliveries run synchronously on the goroutine that caused them, in the
// order the writes happened. A delivery triggered from inside a listener is
// queued and runs after the current one returns.
type Store struct {
	logger *slog.Logger
	refs   RefFactory

	mu          sync.Mutex
	collections map[string]map[string]*record
	subs        map[uint64]*subscription
	nextSub     uint64
	outbox      []delivery
	draining    bool
	published   uint64
}

// Option configures a Store.
type Option func(*Store)

// RefFactory builds the reference attached to delivered documents.
type RefFactory func(collection, id string) core.DocumentRef

// WithRefs replaces the default references, which write to the store.
// Sources that persist elsewhere use it so callers mutate the real backend.
func WithRefs(f RefFactory) Option {
	return func(s *Store) {
		if f != nil {
			s.refs = f
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		logger:      slog.New(slog.DiscardHandler),
		collections: make(map[string]map[string]*record),
		subs:        make(map[uint64]*subscription),
	}
	s.refs = func(collection, id string) core.DocumentRef {
		return &docRef{store: s, collection: collection, id: id}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Collection starts a query over the named collection.
func (s *Store) Collection(name string) Query {
	return Query{store: s, collection: name}
}

// Doc returns a reference to a document, which need not exist.
func (s *Store) Doc(collection, id string) core.DocumentRef {
	return s.refs(collection, id)
}

// Set creates or replaces a document.
func (s *Store) Set(ctx context.Context, collection, id string, fields core.Fields) error {
	if err := s.SetDeferred(ctx, collection, id, fields); err != nil {
		return err
	}
	s.Flush()
	return nil
}

// SetDeferred is Set without delivery: the resulting batches stay queued
// until the next Flush, or the next write that delivers.
func (s *Store) SetDeferred(ctx context.Context, collection, id string, fields core.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("document ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(collection, id, fields.Clone())
	s.publishLocked()
	return nil
}

// Add creates a document with a generated ID.
func (s *Store) Add(ctx context.Context, collection string, fields core.Fields) (core.DocumentRef, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, fields); err != nil {
		return nil, err
	}
	return s.Doc(collection, id), nil
}

// Get reads the current version of a document.
func (s *Store) Get(ctx context.Context, collection, id string) (core.Document, error) {
	if err := ctx.Err(); err != nil {
		return core.Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.collections[collection][id]
	if !ok {
		return core.Document{}, fmt.Errorf("%s/%s: %w", collection, id, core.ErrNotFound)
	}
	return s.document(collection, id, rec), nil
}

// Update sets one field of an existing document.
func (s *Store) Update(ctx context.Context, collection, id, field string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	rec, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%s/%s: %w", collection, id, core.ErrNotFound)
	}
	fields := rec.fields.Clone()
	if fields == nil {
		fields = make(core.Fields)
	}
	fields[field] = value
	s.put(collection, id, fields)
	s.publishLocked()
	s.mu.Unlock()

	s.drain()
	return nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := s.DeleteDeferred(ctx, collection, id); err != nil {
		return err
	}
	s.Flush()
	return nil
}

// DeleteDeferred is Delete without delivery.
func (s *Store) DeleteDeferred(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if docs, ok := s.collections[collection]; ok {
		delete(docs, id)
	}
	s.publishLocked()
	return nil
}

// Flush delivers every queued batch.
func (s *Store) Flush() {
	s.drain()
}

// Subscribe implements core.Source. q must be a Query built from this store.
// The first batch reports every current result as Added, even when there
// are none.
func (s *Store) Subscribe(q core.Query, l core.Listener) (core.Handle, error) {
	mq, ok := q.(Query)
	if !ok {
		return nil, fmt.Errorf("%T: %w", q, core.ErrUnsupportedQuery)
	}
	if mq.store != nil && mq.store != s {
		return nil, fmt.Errorf("query belongs to another store: %w", core.ErrUnsupportedQuery)
	}
	if l == nil {
		return nil, fmt.Errorf("listener is required")
	}

	s.mu.Lock()
	s.nextSub++
	sub := &subscription{id: s.nextSub, query: mq, listener: l}
	sub.last = mq.evaluate(s.snapshot(mq.collection))
	s.subs[sub.id] = sub
	s.outbox = append(s.outbox, delivery{
		sub:   sub,
		batch: core.ChangeBatch{Changes: initial(sub.last), Size: len(sub.last)},
	})
	s.mu.Unlock()

	s.logger.Debug("subscribed", "subscription", sub.id, "query", mq.String())
	s.drain()
	return &handle{store: s, sub: sub}, nil
}

// Interrupt delivers err to every active subscription, as a service fault would.
func (s *Store) Interrupt(err error) {
	s.mu.Lock()
	for _, sub := range s.sortedSubs() {
		s.outbox = append(s.outbox, delivery{sub: sub, err: err})
	}
	s.mu.Unlock()
	s.drain()
}

func (s *Store) put(collection, id string, fields core.Fields) {
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]*record)
		s.collections[collection] = docs
	}
	var version uint64 = 1
	if rec, ok := docs[id]; ok {
		version = rec.version + 1
	}
	docs[id] = &record{fields: fields, version: version}
}

func (s *Store) document(collection, id string, rec *record) core.Document {
	return core.Document{
		ID:     id,
		Fields: rec.fields.Clone(),
		Ref:    s.refs(collection, id),
	}
}

// snapshot returns the documents of a collection. Callers hold mu.
func (s *Store) snapshot(collection string) []core.Document {
	docs := s.collections[collection]
	out := make([]core.Document, 0, len(docs))
	for id, rec := range docs {
		out = append(out, s.document(collection, id, rec))
	}
	return out
}

// publishLocked queues a batch for every subscription whose results changed.
func (s *Store) publishLocked() {
	s.published++
	for _, sub := range s.sortedSubs() {
		next := sub.query.evaluate(s.snapshot(sub.query.collection))
		changes := diff(sub.last, next, sub.query.compare)
		if len(changes) == 0 {
			continue
		}
		sub.last = next
		s.outbox = append(s.outbox, delivery{
			sub:   sub,
			batch: core.ChangeBatch{Changes: changes, Size: len(next)},
		})
	}
}

func (s *Store) sortedSubs() []*subscription {
	subs := make([]*subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })
	return subs
}

// drain delivers queued batches unless another call is already doing so.
func (s *Store) drain() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true

	for len(s.outbox) > 0 {
		d := s.outbox[0]
		s.outbox = s.outbox[1:]
		if d.sub.removed {
			continue
		}
		s.mu.Unlock()
		s.deliver(d)
		s.mu.Lock()
	}

	s.draining = false
	s.mu.Unlock()
}

// deliver runs one listener; a panicking listener is logged and the
// remaining deliveries go on.
func (s *Store) deliver(d delivery) {
	defer func() {
		if recovered := recover(); recovered != nil {
			s.logger.Error("listener panic", "subscription", d.sub.id, "error", fmt.Errorf("%v", recovered))
		}
	}()
	d.sub.listener(d.batch, d.err)
}

type handle struct {
	store *Store
	sub   *subscription
	once  sync.Once
}

// Remove implements core.Handle.
func (h *handle) Remove() {
	h.once.Do(func() {
		h.store.mu.Lock()
		h.sub.removed = true
		delete(h.store.subs, h.sub.id)
		h.store.mu.Unlock()
		h.store.logger.Debug("unsubscribed", "subscription", h.sub.id)
	})
}

type docRef struct {
	store      *Store
	collection string
	id         string
}

func (r *docRef) ID() string {
	return r.id
}

func (r *docRef) Collection() string {
	return r.collection
}

// Path returns "collection/id".
func (r *docRef) Path() string {
	return r.collection + "/" + r.id
}

func (r *docRef) Update(ctx context.Context, field string, value any) error {
	return r.store.Update(ctx, r.collection, r.id, field, value)
}

func (r *docRef) Delete(ctx context.Context) error {
	return r.store.Delete(ctx, r.collection, r.id)
}
