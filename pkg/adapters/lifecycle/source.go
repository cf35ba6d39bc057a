// Package lifecycle exposes a live query as a lifecycle.Source, one event
// per document change.
package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/livelist/pkg/core"
)

// Event is a single change, or a subscription failure, with the size of
// the result set after the batch it belongs to.
type Event struct {
	Change core.ChangeEvent
	Size   int
	Err    error
}

func (e Event) String() string {
	if e.Err != nil {
		return "error: " + e.Err.Error()
	}
	return fmt.Sprintf("%s [%d]", e.Change, e.Size)
}

type querySource struct {
	source core.Source
	query  core.Query
	out    chan lifecycle.Event

	mu      sync.Mutex
	pending []Event
	wake    chan struct{}
}

// NewSource creates a lifecycle.Source that emits the changes of q.
// Sources may deliver on the writer's goroutine, so changes are queued
// without bound and forwarded by a tracked goroutine.
func NewSource(source core.Source, q core.Query) lifecycle.Source {
	return &querySource{
		source: source,
		query:  q,
		out:    make(chan lifecycle.Event),
		wake:   make(chan struct{}, 1),
	}
}

func (s *querySource) Events() <-chan lifecycle.Event {
	return s.out
}

// Start subscribes and forwards events until ctx is done, then unsubscribes
// and closes the events channel.
func (s *querySource) Start(ctx context.Context) error {
	h, err := s.source.Subscribe(s.query, s.listen)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		defer h.Remove()
		for {
			for _, e := range s.take() {
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
			select {
			case <-ctx.Done():
				return nil
			case <-s.wake:
			}
		}
	})
	return nil
}

func (s *querySource) listen(batch core.ChangeBatch, err error) {
	s.mu.Lock()
	if err != nil {
		s.pending = append(s.pending, Event{Err: err})
	}
	for _, c := range batch.Changes {
		s.pending = append(s.pending, Event{Change: c, Size: batch.Size})
	}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *querySource) take() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.pending
	s.pending = nil
	return events
}
