// Package core defines the contracts shared by the reconciler, the typed
// projection and the document sources.
package core

import (
	"context"
	"sort"
)

// Fields represents the named values of a document.
type Fields map[string]any

// Keys returns the field names in sorted order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy of the fields.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	c := make(Fields, len(f))
	for k, v := range f {
		c[k] = v
	}
	return c
}

// Document is an immutable record delivered by a source.
// A modification is delivered as a new Document with the same ID.
type Document struct {
	ID     string
	Fields Fields
	Ref    DocumentRef
}

// Get returns the value of a field.
func (d Document) Get(field string) (any, bool) {
	v, ok := d.Fields[field]
	return v, ok
}

// DocumentRef addresses a document for later mutation by the caller.
type DocumentRef interface {
	ID() string
	Update(ctx context.Context, field string, value any) error
	Delete(ctx context.Context) error
}

// Transaction is a read-modify-write unit of work over document references.
type Transaction interface {
	// Get reads the current version of the referenced document.
	Get(ctx context.Context, ref DocumentRef) (Document, error)

	// Update stages a field change.
	Update(ctx context.Context, ref DocumentRef, field string, value any) error

	// Delete stages a removal.
	Delete(ctx context.Context, ref DocumentRef) error
}

// Transactor is implemented by sources that support atomic read-modify-write.
type Transactor interface {
	// RunTransaction executes fn atomically. Staged changes are discarded if fn fails.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}
