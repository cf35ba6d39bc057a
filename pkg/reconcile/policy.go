package reconcile

import (
	"fmt"

	"github.com/aretw0/livelist/pkg/core"
)

type opKind int

const (
	opInsert opKind = iota
	opChange
	opMove
	opRemove
)

// op is a single mutation already applied to the view.
type op struct {
	kind opKind
	from int
	to   int
	doc  core.Document
	// prev is the document that occupied the slot before a change or move.
	prev core.Document
}

// Policy decides how a change batch maps onto the view.
//
// Implementations validate the whole batch before mutating anything: apply
// either returns an error with the view untouched or applies every change.
type Policy interface {
	String() string

	// emit reports whether the batch should go on; once it returns false
	// apply stops without touching the view again.
	apply(v *view, batch core.ChangeBatch, offset int, emit func(op) bool) error

	// exhausted reports whether a batch that completes a load-more means the
	// query has no further results.
	exhausted(batch core.ChangeBatch, pageSize int) bool
}

var (
	// IdentityPolicy locates documents by ID and ignores source position hints.
	// Added documents are appended at the tail. It stays correct when several
	// page subscriptions deliver interleaved batches. This is the default.
	IdentityPolicy Policy = identityPolicy{}

	// PositionPolicy trusts the source's old/new indices, offset by the page
	// ordinal times the first observed page size. It is only meaningful while
	// every page has the same size and pages do not overlap.
	PositionPolicy Policy = positionPolicy{}
)

// ParsePolicy resolves a policy by name ("identity" or "position").
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "", IdentityPolicy.String():
		return IdentityPolicy, nil
	case PositionPolicy.String():
		return PositionPolicy, nil
	default:
		return nil, fmt.Errorf("unknown reconciliation policy %q", name)
	}
}

type identityPolicy struct{}

func (identityPolicy) String() string { return "identity" }

func (identityPolicy) apply(v *view, batch core.ChangeBatch, _ int, emit func(op) bool) error {
	for _, change := range batch.Changes {
		doc := change.Doc
		switch change.Type {
		case core.Added, core.Modified:
			// An Added for a known ID happens when pages overlap; it is the
			// same document, so it is replaced where it already is.
			if i := v.IndexOf(doc.ID); i >= 0 {
				prev := v.Replace(i, doc)
				if !emit(op{kind: opChange, from: i, to: i, doc: doc, prev: prev}) {
					return nil
				}
				continue
			}
			i := v.Append(doc)
			if !emit(op{kind: opInsert, from: -1, to: i, doc: doc}) {
				return nil
			}
		case core.Removed:
			i := v.IndexOf(doc.ID)
			if i < 0 {
				continue
			}
			old := v.RemoveAt(i)
			if !emit(op{kind: opRemove, from: i, to: -1, doc: old}) {
				return nil
			}
		}
	}
	return nil
}

func (identityPolicy) exhausted(batch core.ChangeBatch, _ int) bool {
	return batch.Empty()
}

type positionPolicy struct{}

func (positionPolicy) String() string { return "position" }

func (p positionPolicy) apply(v *view, batch core.ChangeBatch, offset int, emit func(op) bool) error {
	if err := p.validate(v.IDs(), batch, offset); err != nil {
		return err
	}

	for _, change := range batch.Changes {
		doc := change.Doc
		oldIndex := change.OldIndex + offset
		newIndex := change.NewIndex + offset
		var o op
		switch change.Type {
		case core.Added:
			v.Insert(newIndex, doc)
			o = op{kind: opInsert, from: -1, to: newIndex, doc: doc}
		case core.Modified:
			if oldIndex == newIndex {
				prev := v.Replace(oldIndex, doc)
				o = op{kind: opChange, from: oldIndex, to: oldIndex, doc: doc, prev: prev}
				break
			}
			prev := v.Move(oldIndex, newIndex, doc)
			o = op{kind: opMove, from: oldIndex, to: newIndex, doc: doc, prev: prev}
		case core.Removed:
			old := v.RemoveAt(oldIndex)
			o = op{kind: opRemove, from: oldIndex, to: -1, doc: old}
		}
		if !emit(o) {
			return nil
		}
	}
	return nil
}

// validate replays the batch over a copy of the ordered IDs.
func (positionPolicy) validate(ids []string, batch core.ChangeBatch, offset int) error {
	present := make(map[string]bool, len(ids))
	for _, id := range ids {
		present[id] = true
	}

	for n, change := range batch.Changes {
		oldIndex := change.OldIndex + offset
		newIndex := change.NewIndex + offset
		id := change.Doc.ID
		switch change.Type {
		case core.Added:
			if newIndex < 0 || newIndex > len(ids) {
				return fmt.Errorf("change %d (%s): insert at %d with %d items: %w", n, change, newIndex, len(ids), core.ErrPositionOutOfRange)
			}
			if present[id] {
				return fmt.Errorf("change %d (%s): document already in view: %w", n, change, core.ErrPositionOutOfRange)
			}
			ids = append(ids, "")
			copy(ids[newIndex+1:], ids[newIndex:])
			ids[newIndex] = id
			present[id] = true
		case core.Modified:
			if oldIndex < 0 || oldIndex >= len(ids) || newIndex < 0 || newIndex >= len(ids) {
				return fmt.Errorf("change %d (%s): modify %d -> %d with %d items: %w", n, change, oldIndex, newIndex, len(ids), core.ErrPositionOutOfRange)
			}
			if ids[oldIndex] != id && present[id] {
				return fmt.Errorf("change %d (%s): document already in view: %w", n, change, core.ErrPositionOutOfRange)
			}
			delete(present, ids[oldIndex])
			ids = append(ids[:oldIndex], ids[oldIndex+1:]...)
			ids = append(ids, "")
			copy(ids[newIndex+1:], ids[newIndex:])
			ids[newIndex] = id
			present[id] = true
		case core.Removed:
			if oldIndex < 0 || oldIndex >= len(ids) {
				return fmt.Errorf("change %d (%s): remove at %d with %d items: %w", n, change, oldIndex, len(ids), core.ErrPositionOutOfRange)
			}
			delete(present, ids[oldIndex])
			ids = append(ids[:oldIndex], ids[oldIndex+1:]...)
		default:
			return fmt.Errorf("change %d: unknown change type %q", n, change.Type)
		}
	}
	return nil
}

func (positionPolicy) exhausted(batch core.ChangeBatch, pageSize int) bool {
	return batch.Len() < pageSize
}
