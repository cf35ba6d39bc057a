package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/livelist/pkg/core"
)

// ErrConflict is returned when a transaction kept losing to concurrent writes.
var ErrConflict = errors.New("transaction conflict")

// MaxAttempts bounds how often RunTransaction retries on conflict.
const MaxAttempts = 5

type txKey struct {
	collection string
	id         string
}

type txWrite struct {
	fields  core.Fields
	deleted bool
}

// Transaction implements core.Transaction with optimistic concurrency:
// reads record versions, commit fails if any of them changed.
type Transaction struct {
	store  *Store
	reads  map[txKey]uint64
	writes map[txKey]*txWrite
	order  []txKey
}

// RunTransaction implements core.Transactor. fn may run several times.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx core.Transaction) error) error {
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		tx := &Transaction{
			store:  s,
			reads:  make(map[txKey]uint64),
			writes: make(map[txKey]*txWrite),
		}
		if err := fn(ctx, tx); err != nil {
			return err
		}

		err := tx.commit()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return err
		}
		s.logger.Debug("transaction conflict, retrying", "attempt", attempt)
	}
	return fmt.Errorf("after %d attempts: %w", MaxAttempts, ErrConflict)
}

// Located is implemented by references that know their collection.
type Located interface {
	Collection() string
	ID() string
}

func (t *Transaction) key(ref core.DocumentRef) (txKey, error) {
	r, ok := ref.(Located)
	if !ok {
		return txKey{}, fmt.Errorf("reference %T has no collection: %w", ref, core.ErrUnsupportedQuery)
	}
	return txKey{collection: r.Collection(), id: r.ID()}, nil
}

// Get implements core.Transaction. Staged writes are visible.
func (t *Transaction) Get(ctx context.Context, ref core.DocumentRef) (core.Document, error) {
	if err := ctx.Err(); err != nil {
		return core.Document{}, err
	}
	k, err := t.key(ref)
	if err != nil {
		return core.Document{}, err
	}

	if w, ok := t.writes[k]; ok {
		if w.deleted {
			return core.Document{}, fmt.Errorf("%s/%s: %w", k.collection, k.id, core.ErrNotFound)
		}
		return core.Document{ID: k.id, Fields: w.fields.Clone(), Ref: ref}, nil
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	rec, ok := t.store.collections[k.collection][k.id]
	if !ok {
		t.reads[k] = 0
		return core.Document{}, fmt.Errorf("%s/%s: %w", k.collection, k.id, core.ErrNotFound)
	}
	t.reads[k] = rec.version
	return t.store.document(k.collection, k.id, rec), nil
}

// Update implements core.Transaction.
func (t *Transaction) Update(ctx context.Context, ref core.DocumentRef, field string, value any) error {
	doc, err := t.Get(ctx, ref)
	if err != nil {
		return err
	}
	k, _ := t.key(ref)
	fields := doc.Fields.Clone()
	if fields == nil {
		fields = make(core.Fields)
	}
	fields[field] = value
	t.stage(k, &txWrite{fields: fields})
	return nil
}

// Delete implements core.Transaction.
func (t *Transaction) Delete(ctx context.Context, ref core.DocumentRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k, err := t.key(ref)
	if err != nil {
		return err
	}
	t.stage(k, &txWrite{deleted: true})
	return nil
}

func (t *Transaction) stage(k txKey, w *txWrite) {
	if _, ok := t.writes[k]; !ok {
		t.order = append(t.order, k)
	}
	t.writes[k] = w
}

func (t *Transaction) commit() error {
	s := t.store
	s.mu.Lock()
	for k, version := range t.reads {
		current := uint64(0)
		if rec, ok := s.collections[k.collection][k.id]; ok {
			current = rec.version
		}
		if current != version {
			s.mu.Unlock()
			return fmt.Errorf("%s/%s changed: %w", k.collection, k.id, ErrConflict)
		}
	}

	if len(t.order) == 0 {
		s.mu.Unlock()
		return nil
	}
	for _, k := range t.order {
		w := t.writes[k]
		if w.deleted {
			delete(s.collections[k.collection], k.id)
			continue
		}
		s.put(k.collection, k.id, w.fields)
	}
	s.publishLocked()
	s.mu.Unlock()

	s.drain()
	return nil
}

var _ core.Transaction = (*Transaction)(nil)
var _ core.Transactor = (*Store)(nil)
var _ core.Source = (*Store)(nil)
