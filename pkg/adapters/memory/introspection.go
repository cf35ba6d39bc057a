package memory

import (
	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Collections   map[string]int `json:"collections"`
	Subscriptions int            `json:"subscriptions"`
	Pending       int            `json:"pending_deliveries"`
	Publishes     uint64         `json:"publishes"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()

	collections := make(map[string]int, len(s.collections))
	for name, docs := range s.collections {
		collections[name] = len(docs)
	}
	return StoreState{
		Collections:   collections,
		Subscriptions: len(s.subs),
		Pending:       len(s.outbox),
		Publishes:     s.published,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "memory-store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
