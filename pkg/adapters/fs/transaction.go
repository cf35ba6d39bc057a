package fs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/livelist/pkg/adapters/memory"
	"github.com/aretw0/livelist/pkg/core"
)

type docKey struct {
	collection string
	id         string
}

// Transaction implements core.Transaction for the filesystem.
// Writes are staged and reach disk and subscribers together at commit.
type Transaction struct {
	source  *Source
	staged  map[docKey]core.Fields
	deleted map[docKey]bool
	order   []docKey
	mu      sync.Mutex
	closed  bool
}

// RunTransaction implements core.Transactor. fn runs once, holding the
// source's write lock, so it must not write through the source directly.
func (s *Source) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx core.Transaction) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	tx := &Transaction{
		source:  s,
		staged:  make(map[docKey]core.Fields),
		deleted: make(map[docKey]bool),
	}
	err := fn(ctx, tx)
	if err == nil {
		err = tx.commit(ctx)
	} else {
		tx.close()
	}
	s.writeMu.Unlock()

	s.store.Flush()
	return err
}

func (t *Transaction) key(ref core.DocumentRef) (docKey, error) {
	r, ok := ref.(memory.Located)
	if !ok {
		return docKey{}, fmt.Errorf("reference %T has no collection: %w", ref, core.ErrUnsupportedQuery)
	}
	return docKey{collection: r.Collection(), id: r.ID()}, nil
}

// Get retrieves a document, favoring staged changes.
func (t *Transaction) Get(ctx context.Context, ref core.DocumentRef) (core.Document, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.get(ctx, ref)
}

func (t *Transaction) get(ctx context.Context, ref core.DocumentRef) (core.Document, error) {
	if t.closed {
		return core.Document{}, errors.New("transaction closed")
	}
	k, err := t.key(ref)
	if err != nil {
		return core.Document{}, err
	}
	if t.deleted[k] {
		return core.Document{}, fmt.Errorf("%s/%s: %w", k.collection, k.id, core.ErrNotFound)
	}
	if fields, ok := t.staged[k]; ok {
		return core.Document{ID: k.id, Fields: fields.Clone(), Ref: ref}, nil
	}
	return t.source.store.Get(ctx, k.collection, k.id)
}

// Update stages a field change on an existing document.
func (t *Transaction) Update(ctx context.Context, ref core.DocumentRef, field string, value any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	doc, err := t.get(ctx, ref)
	if err != nil {
		return err
	}
	k, _ := t.key(ref)
	fields := doc.Fields.Clone()
	if fields == nil {
		fields = make(core.Fields)
	}
	fields[field] = value

	t.touch(k)
	t.staged[k] = fields
	delete(t.deleted, k)
	return nil
}

// Delete stages a document for deletion.
func (t *Transaction) Delete(ctx context.Context, ref core.DocumentRef) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return errors.New("transaction closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	k, err := t.key(ref)
	if err != nil {
		return err
	}
	t.touch(k)
	t.deleted[k] = true
	delete(t.staged, k)
	return nil
}

func (t *Transaction) touch(k docKey) {
	if _, ok := t.staged[k]; ok {
		return
	}
	if t.deleted[k] {
		return
	}
	t.order = append(t.order, k)
}

// commit writes staged changes in the order they were first made.
// Callers hold the source's write lock.
func (t *Transaction) commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return errors.New("transaction closed")
	}
	t.closed = true

	s := t.source
	for _, k := range t.order {
		if t.deleted[k] {
			if err := s.unlink(k.collection, k.id); err != nil {
				return err
			}
			if err := s.store.DeleteDeferred(ctx, k.collection, k.id); err != nil {
				return err
			}
			continue
		}
		fields := t.staged[k]
		if err := s.persist(k.collection, k.id, fields); err != nil {
			return err
		}
		if err := s.store.SetDeferred(ctx, k.collection, k.id, fields); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transaction) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}

var _ core.Transaction = (*Transaction)(nil)
