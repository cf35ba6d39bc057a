package platform

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/livelist/pkg/adapters/fs"
	"github.com/aretw0/livelist/pkg/adapters/memory"
	"github.com/aretw0/livelist/pkg/core"
)

// Store is the surface shared by every backend: a live query source that
// also supports writes and transactions.
type Store interface {
	core.Source
	core.Transactor
	Collection(name string) memory.Query
	Doc(collection, id string) core.DocumentRef
	Get(ctx context.Context, collection, id string) (core.Document, error)
	Set(ctx context.Context, collection, id string, fields core.Fields) error
	Add(ctx context.Context, collection string, fields core.Fields) (core.DocumentRef, error)
	Update(ctx context.Context, collection, id, field string, value any) error
	Delete(ctx context.Context, collection, id string) error
}

// Backend is an opened Store. Close releases whatever Open started.
type Backend struct {
	Store
	Adapter string
	close   func(ctx context.Context) error
}

// Close stops background work such as the directory watcher.
func (b *Backend) Close(ctx context.Context) error {
	if b.close == nil {
		return nil
	}
	return b.close(ctx)
}

// Open creates the backend named by the options.
// The uri is adapter-specific: a directory for "fs", ignored for "memory".
func Open(ctx context.Context, uri string, opts ...Option) (*Backend, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	switch o.adapter {
	case AdapterMemory:
		return &Backend{Store: memory.New(memory.WithLogger(o.logger)), Adapter: AdapterMemory}, nil
	case AdapterFS:
		return openFS(ctx, uri, o)
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}
}

func openFS(ctx context.Context, path string, o *options) (*Backend, error) {
	if path == "" {
		return nil, errors.New("fs adapter needs a directory")
	}
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) || o.mustExist {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("create %s: %w", path, err)
		}
		o.logger.Debug("created root directory", "path", path)
	}

	src, err := fs.New(fs.Config{
		Root:         path,
		Include:      o.include,
		Ignore:       o.ignore,
		Extension:    o.extension,
		Strict:       o.strict,
		Debounce:     o.debounce,
		Logger:       o.logger,
		ErrorHandler: o.errorHandler,
	})
	if err != nil {
		return nil, err
	}

	b := &Backend{Store: src, Adapter: AdapterFS}
	if !o.watch {
		if err := src.Load(ctx); err != nil {
			return nil, err
		}
		return b, nil
	}
	if err := src.Start(ctx); err != nil {
		return nil, err
	}
	b.close = src.Stop
	return b, nil
}
