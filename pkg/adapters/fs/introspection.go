package fs

import (
	"time"

	"github.com/aretw0/introspection"

	"github.com/aretw0/livelist/pkg/adapters/memory"
)

// SourceState exposes internal state for observability.
type SourceState struct {
	Root          string            `json:"root"`
	Include       string            `json:"include"`
	Documents     int               `json:"documents"`
	CacheHits     uint64            `json:"cache_hits"`
	CacheMisses   uint64            `json:"cache_misses"`
	Strict        bool              `json:"strict"`
	Serializers   []string          `json:"serializers"`
	WatcherActive bool              `json:"watcher_active"`
	LastReload    *time.Time        `json:"last_reload,omitempty"`
	Store         memory.StoreState `json:"store"`
}

// State implements introspection.Introspectable.
func (s *Source) State() any {
	hits, misses := s.cache.stats()
	store, _ := s.store.State().(memory.StoreState)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return SourceState{
		Root:          s.root,
		Include:       s.config.Include,
		Documents:     s.cache.Len(),
		CacheHits:     hits,
		CacheMisses:   misses,
		Strict:        s.config.Strict,
		Serializers:   s.serializerNames(),
		WatcherActive: s.watcherActive,
		LastReload:    s.lastReload,
		Store:         store,
	}
}

// ComponentType implements introspection.Component.
func (s *Source) ComponentType() string {
	return "fs-source"
}

var _ introspection.Introspectable = (*Source)(nil)
var _ introspection.Component = (*Source)(nil)
