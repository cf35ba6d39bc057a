package fs

import (
	"context"
	"path/filepath"

	"github.com/aretw0/livelist/pkg/core"
)

// fileRef points at a document of a Source. Writes go to disk.
type fileRef struct {
	source     *Source
	collection string
	id         string
}

func (r *fileRef) ID() string {
	return r.id
}

func (r *fileRef) Collection() string {
	return r.collection
}

// Path returns the file holding the document, or where a new one would go.
func (r *fileRef) Path() string {
	rel, ok := r.source.cache.Find(r.collection, r.id)
	if !ok {
		rel = r.source.pathFor(r.collection, r.id)
	}
	return filepath.Join(r.source.root, filepath.FromSlash(rel))
}

func (r *fileRef) Update(ctx context.Context, field string, value any) error {
	return r.source.Update(ctx, r.collection, r.id, field, value)
}

func (r *fileRef) Delete(ctx context.Context) error {
	return r.source.Delete(ctx, r.collection, r.id)
}

var _ core.DocumentRef = (*fileRef)(nil)
