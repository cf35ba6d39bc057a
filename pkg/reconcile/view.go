package reconcile

import "github.com/aretw0/livelist/pkg/core"

// view is the ordered, identifier-unique list of documents being rendered.
//
// Documents live in a map keyed by ID; order holds the IDs in display order.
// pos caches each ID's position. Appends and in-place replacements keep it
// valid; inserts, removals and moves mark it stale and it is rebuilt on the
// next lookup.
type view struct {
	order []string
	docs  map[string]core.Document
	pos   map[string]int
	stale bool
}

func newView() *view {
	return &view{
		docs: make(map[string]core.Document),
		pos:  make(map[string]int),
	}
}

func (v *view) Len() int {
	return len(v.order)
}

func (v *view) At(i int) core.Document {
	return v.docs[v.order[i]]
}

func (v *view) Contains(id string) bool {
	_, ok := v.docs[id]
	return ok
}

// IndexOf returns the position of id, or -1.
func (v *view) IndexOf(id string) int {
	if !v.Contains(id) {
		return -1
	}
	if v.stale {
		v.reindex()
	}
	return v.pos[id]
}

func (v *view) Last() (core.Document, bool) {
	if len(v.order) == 0 {
		return core.Document{}, false
	}
	return v.At(len(v.order) - 1), true
}

func (v *view) Append(doc core.Document) int {
	i := len(v.order)
	v.order = append(v.order, doc.ID)
	v.docs[doc.ID] = doc
	if !v.stale {
		v.pos[doc.ID] = i
	}
	return i
}

func (v *view) Insert(i int, doc core.Document) {
	if i == len(v.order) {
		v.Append(doc)
		return
	}
	v.order = append(v.order, "")
	copy(v.order[i+1:], v.order[i:])
	v.order[i] = doc.ID
	v.docs[doc.ID] = doc
	v.stale = true
}

// Replace swaps the document at i and returns the previous one.
// The new document may carry a different ID.
func (v *view) Replace(i int, doc core.Document) core.Document {
	old := v.order[i]
	prev := v.docs[old]
	if old != doc.ID {
		delete(v.docs, old)
		delete(v.pos, old)
		v.order[i] = doc.ID
		if !v.stale {
			v.pos[doc.ID] = i
		}
	}
	v.docs[doc.ID] = doc
	return prev
}

func (v *view) RemoveAt(i int) core.Document {
	id := v.order[i]
	doc := v.docs[id]
	v.order = append(v.order[:i], v.order[i+1:]...)
	delete(v.docs, id)
	delete(v.pos, id)
	if i != len(v.order) {
		v.stale = true
	}
	return doc
}

// Move relocates the entry at from to to, replacing it with doc, and
// returns the previous document.
func (v *view) Move(from, to int, doc core.Document) core.Document {
	prev := v.RemoveAt(from)
	v.Insert(to, doc)
	v.stale = true
	return prev
}

func (v *view) Reset() {
	v.order = nil
	v.docs = make(map[string]core.Document)
	v.pos = make(map[string]int)
	v.stale = false
}

// IDs returns a copy of the ordered IDs.
func (v *view) IDs() []string {
	ids := make([]string, len(v.order))
	copy(ids, v.order)
	return ids
}

func (v *view) reindex() {
	v.pos = make(map[string]int, len(v.order))
	for i, id := range v.order {
		v.pos[id] = i
	}
	v.stale = false
}
