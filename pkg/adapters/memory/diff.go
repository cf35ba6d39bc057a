package memory

import (
	"reflect"
	"sort"

	"github.com/aretw0/livelist/pkg/core"
)

// diff computes the changes that turn prev into next. Both are sorted by
// cmp, which must be a total order.
//
// Indices are sequential: every OldIndex/NewIndex refers to the list as it
// stands after the preceding changes of the same batch were applied. The
// working list stays sorted by cmp over each entry's current version, so a
// modified document is positioned against the not yet updated ones.
// Removals come first, then additions, then content modifications, each in
// result order. Documents whose content did not change are never reported.
func diff(prev, next []core.Document, cmp func(a, b core.Document) int) []core.ChangeEvent {
	inNext := make(map[string]core.Document, len(next))
	for _, d := range next {
		inNext[d.ID] = d
	}
	inPrev := make(map[string]core.Document, len(prev))
	working := make([]core.Document, 0, len(prev)+len(next))
	for _, d := range prev {
		inPrev[d.ID] = d
		working = append(working, d)
	}

	var changes []core.ChangeEvent

	for _, d := range prev {
		if _, ok := inNext[d.ID]; ok {
			continue
		}
		i := indexOf(working, d.ID)
		working = removeAt(working, i)
		changes = append(changes, core.ChangeEvent{Type: core.Removed, Doc: d, OldIndex: i, NewIndex: -1})
	}

	for _, d := range next {
		if _, ok := inPrev[d.ID]; ok {
			continue
		}
		j := insertionPoint(working, d, cmp)
		working = insertAt(working, j, d)
		changes = append(changes, core.ChangeEvent{Type: core.Added, Doc: d, OldIndex: -1, NewIndex: j})
	}

	for _, d := range next {
		old, ok := inPrev[d.ID]
		if !ok || reflect.DeepEqual(old.Fields, d.Fields) {
			continue
		}
		i := indexOf(working, d.ID)
		working = removeAt(working, i)
		j := insertionPoint(working, d, cmp)
		working = insertAt(working, j, d)
		changes = append(changes, core.ChangeEvent{Type: core.Modified, Doc: d, OldIndex: i, NewIndex: j})
	}

	return changes
}

// initial reports every document of a first snapshot as added.
func initial(docs []core.Document) []core.ChangeEvent {
	changes := make([]core.ChangeEvent, len(docs))
	for i, d := range docs {
		changes[i] = core.ChangeEvent{Type: core.Added, Doc: d, OldIndex: -1, NewIndex: i}
	}
	return changes
}

// insertionPoint returns the position of d in the sorted working list.
func insertionPoint(working []core.Document, d core.Document, cmp func(a, b core.Document) int) int {
	return sort.Search(len(working), func(i int) bool {
		return cmp(working[i], d) >= 0
	})
}

func indexOf(docs []core.Document, id string) int {
	for i, d := range docs {
		if d.ID == id {
			return i
		}
	}
	return -1
}

func removeAt(docs []core.Document, i int) []core.Document {
	return append(docs[:i], docs[i+1:]...)
}

func insertAt(docs []core.Document, i int, d core.Document) []core.Document {
	docs = append(docs, core.Document{})
	copy(docs[i+1:], docs[i:])
	docs[i] = d
	return docs
}
