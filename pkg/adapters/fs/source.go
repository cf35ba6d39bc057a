// Package fs serves documents from a directory tree as a live query source.
//
// Every file matching the include glob is a document: the top-level
// directory names its collection and the rest of the path, without
// extension, is its ID. Files at the root belong to the collection "".
// Documents are held in a memory store, so queries, subscriptions and
// transactions behave exactly as they do there; writes through references
// go to disk first.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/aretw0/livelist/pkg/adapters/memory"
	"github.com/aretw0/livelist/pkg/core"
)

const (
	// DefaultInclude matches every supported format.
	DefaultInclude = "**/*.{json,yaml,yml,md}"
	// DefaultDebounce groups bursts of filesystem events.
	DefaultDebounce = 50 * time.Millisecond
	// DefaultExtension is used when a new document is written.
	DefaultExtension = ".json"
)

// Config holds the configuration for the filesystem source.
type Config struct {
	Root      string
	Include   string   // doublestar pattern relative to Root
	Ignore    []string // doublestar patterns relative to Root
	Extension string   // format of new documents, e.g. ".yaml"
	Strict    bool     // fail Load on unparseable files and keep numbers as json.Number
	Debounce  time.Duration
	Logger    *slog.Logger
	// ErrorHandler receives watcher and reload errors. Defaults to logging.
	ErrorHandler func(error)
}

// Source implements core.Source over a directory.
//
// Writes hold writeMu while the file and the store change and deliver to
// subscribers after releasing it, so listeners may write back.
type Source struct {
	root        string
	config      Config
	logger      *slog.Logger
	store       *memory.Store
	serializers map[string]Serializer
	cache       *cache

	writeMu sync.Mutex

	mu            sync.RWMutex
	watcherActive bool
	lastReload    *time.Time
	watch         *watcher
}

// New creates a source. Nothing is read until Load or Start.
func New(config Config) (*Source, error) {
	if config.Root == "" {
		return nil, errors.New("root directory is required")
	}
	root, err := filepath.Abs(config.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	if config.Include == "" {
		config.Include = DefaultInclude
	}
	if !doublestar.ValidatePattern(config.Include) {
		return nil, fmt.Errorf("invalid include pattern %q", config.Include)
	}
	for _, p := range config.Ignore {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid ignore pattern %q", p)
		}
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}

	s := &Source{
		root:        root,
		logger:      config.Logger,
		serializers: DefaultSerializers(config.Strict),
		cache:       newCache(),
	}
	if config.Extension == "" {
		config.Extension = DefaultExtension
	}
	if _, ok := s.serializers[config.Extension]; !ok {
		return nil, fmt.Errorf("unsupported extension %q", config.Extension)
	}
	s.config = config
	s.store = memory.New(
		memory.WithLogger(config.Logger),
		memory.WithRefs(func(collection, id string) core.DocumentRef {
			return &fileRef{source: s, collection: collection, id: id}
		}),
	)
	return s, nil
}

// Root returns the absolute directory the source serves.
func (s *Source) Root() string {
	return s.root
}

// Store exposes the underlying memory store.
func (s *Source) Store() *memory.Store {
	return s.store
}

// Collection starts a query over the named collection.
func (s *Source) Collection(name string) memory.Query {
	return s.store.Collection(name)
}

// Doc returns a reference to a document, which need not exist.
func (s *Source) Doc(collection, id string) core.DocumentRef {
	return s.store.Doc(collection, id)
}

// Subscribe implements core.Source.
func (s *Source) Subscribe(q core.Query, l core.Listener) (core.Handle, error) {
	return s.store.Subscribe(q, l)
}

// Get reads the current version of a document.
func (s *Source) Get(ctx context.Context, collection, id string) (core.Document, error) {
	return s.store.Get(ctx, collection, id)
}

// Load walks the root and brings the store in line with the files on disk.
func (s *Source) Load(ctx context.Context) error {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("failed to create root directory: %w", err)
	}

	s.writeMu.Lock()
	err := s.scan(ctx)
	s.writeMu.Unlock()
	s.store.Flush()
	if err != nil {
		return err
	}
	s.recordReload()
	return nil
}

// scan stages every file under the root. Callers hold writeMu.
func (s *Source) scan(ctx context.Context) error {
	seen := make(map[string]bool)
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel, err := s.rel(path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if rel != "." && s.ignored(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !s.matches(rel) {
			return nil
		}
		seen[rel] = true
		if err := s.reload(ctx, rel); err != nil {
			if s.config.Strict {
				return err
			}
			s.report(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for rel, entry := range s.cache.Prune(seen) {
		s.logger.Debug("document file gone", "path", rel)
		if err := s.store.DeleteDeferred(ctx, entry.Collection, entry.ID); err != nil {
			return err
		}
	}
	return nil
}

// reload parses one file and stages its document. A missing file removes it.
// Callers hold writeMu and flush the store afterwards.
func (s *Source) reload(ctx context.Context, rel string) error {
	info, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(rel)))
	if errors.Is(err, fs.ErrNotExist) {
		return s.forget(ctx, rel)
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return nil
	}
	if _, hit := s.cache.Get(rel, info.ModTime(), info.Size()); hit {
		return nil
	}

	collection, id := s.locate(rel)
	fields, err := s.parse(rel)
	if err != nil {
		return err
	}
	if prev, ok := s.cache.Find(collection, id); ok && prev != rel {
		s.logger.Warn("document defined twice, last one wins", "id", id, "path", rel, "previous", prev)
		s.cache.Delete(prev)
	}
	s.cache.Set(rel, &cacheEntry{
		Collection:   collection,
		ID:           id,
		Fields:       fields,
		LastModified: info.ModTime(),
		Size:         info.Size(),
	})
	return s.store.SetDeferred(ctx, collection, id, fields)
}

func (s *Source) forget(ctx context.Context, rel string) error {
	entry, ok := s.cache.Lookup(rel)
	if !ok {
		return nil
	}
	s.cache.Delete(rel)
	return s.store.DeleteDeferred(ctx, entry.Collection, entry.ID)
}

func (s *Source) parse(rel string) (core.Fields, error) {
	ser, ok := s.serializers[filepath.Ext(rel)]
	if !ok {
		return nil, fmt.Errorf("%s: no serializer for extension", rel)
	}
	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fields, err := ser.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rel, err)
	}
	return fields, nil
}

// Set creates or replaces a document, on disk and in the store.
func (s *Source) Set(ctx context.Context, collection, id string, fields core.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.writeMu.Lock()
	err := s.persist(collection, id, fields)
	if err == nil {
		err = s.store.SetDeferred(ctx, collection, id, fields)
	}
	s.writeMu.Unlock()
	s.store.Flush()
	return err
}

// Add creates a document with a generated ID.
func (s *Source) Add(ctx context.Context, collection string, fields core.Fields) (core.DocumentRef, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, fields); err != nil {
		return nil, err
	}
	return s.Doc(collection, id), nil
}

// Update sets one field of an existing document.
func (s *Source) Update(ctx context.Context, collection, id, field string, value any) error {
	s.writeMu.Lock()
	err := s.update(ctx, collection, id, field, value)
	s.writeMu.Unlock()
	s.store.Flush()
	return err
}

func (s *Source) update(ctx context.Context, collection, id, field string, value any) error {
	doc, err := s.store.Get(ctx, collection, id)
	if err != nil {
		return err
	}
	fields := doc.Fields.Clone()
	if fields == nil {
		fields = make(core.Fields)
	}
	fields[field] = value
	if err := s.persist(collection, id, fields); err != nil {
		return err
	}
	return s.store.SetDeferred(ctx, collection, id, fields)
}

// Delete removes a document file. Deleting a missing document is not an error.
func (s *Source) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.writeMu.Lock()
	err := s.unlink(collection, id)
	if err == nil {
		err = s.store.DeleteDeferred(ctx, collection, id)
	}
	s.writeMu.Unlock()
	s.store.Flush()
	return err
}

// persist writes fields to the document's file. Callers hold writeMu.
func (s *Source) persist(collection, id string, fields core.Fields) error {
	if id == "" {
		return errors.New("document ID cannot be empty")
	}
	rel, ok := s.cache.Find(collection, id)
	if !ok {
		rel = s.pathFor(collection, id)
	}
	ser := s.serializers[filepath.Ext(rel)]
	data, err := ser.Serialize(fields)
	if err != nil {
		return fmt.Errorf("serialize %s: %w", rel, err)
	}

	path := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := writeFileAtomic(path, data, 0644); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	s.cache.Set(rel, &cacheEntry{
		Collection:   collection,
		ID:           id,
		Fields:       fields.Clone(),
		LastModified: info.ModTime(),
		Size:         info.Size(),
	})
	return nil
}

// unlink removes the document's file. Callers hold writeMu.
func (s *Source) unlink(collection, id string) error {
	rel, ok := s.cache.Find(collection, id)
	if !ok {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", rel, err)
	}
	s.cache.Delete(rel)
	return nil
}

// locate maps a relative path to its collection and ID.
func (s *Source) locate(rel string) (collection, id string) {
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		return rel[:i], rel[i+1:]
	}
	return "", rel
}

func (s *Source) pathFor(collection, id string) string {
	rel := id + s.config.Extension
	if collection != "" {
		rel = collection + "/" + rel
	}
	return rel
}

func (s *Source) rel(path string) (string, error) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// matches reports whether a relative file path is a document.
func (s *Source) matches(rel string) bool {
	if isTempFile(rel) || s.ignored(rel) {
		return false
	}
	if _, ok := s.serializers[filepath.Ext(rel)]; !ok {
		return false
	}
	ok, err := doublestar.Match(s.config.Include, rel)
	return err == nil && ok
}

func (s *Source) ignored(rel string) bool {
	if strings.HasPrefix(rel, ".git/") {
		return true
	}
	for _, p := range s.config.Ignore {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, strings.TrimSuffix(rel, "/")); ok {
			return true
		}
	}
	return false
}

func (s *Source) report(err error) {
	if s.config.ErrorHandler != nil {
		s.config.ErrorHandler(err)
		return
	}
	s.logger.Warn("skipping document file", "error", err)
}

func (s *Source) recordReload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.lastReload = &now
}

func (s *Source) setWatcherActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watcherActive = active
}

func (s *Source) serializerNames() []string {
	names := make([]string, 0, len(s.serializers))
	for ext := range s.serializers {
		names = append(names, ext)
	}
	sort.Strings(names)
	return names
}

var _ core.Source = (*Source)(nil)
var _ core.Transactor = (*Source)(nil)
