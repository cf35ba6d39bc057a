package core

import "fmt"

// ChangeType represents the kind of change reported for a document.
type ChangeType string

const (
	Added    ChangeType = "ADDED"
	Modified ChangeType = "MODIFIED"
	Removed  ChangeType = "REMOVED"
)

// ChangeEvent is a single change within a batch.
// OldIndex and NewIndex are position hints relative to the query that
// produced the batch; -1 means not applicable.
type ChangeEvent struct {
	Type     ChangeType
	Doc      Document
	OldIndex int
	NewIndex int
}

func (e ChangeEvent) String() string {
	return fmt.Sprintf("%s %s (%d -> %d)", e.Type, e.Doc.ID, e.OldIndex, e.NewIndex)
}

// ChangeBatch is the ordered set of changes produced by one activation of a
// subscription.
type ChangeBatch struct {
	Changes []ChangeEvent
	// Size is the number of documents in the query result after the batch.
	Size int
}

// Len returns the number of changes in the batch.
func (b ChangeBatch) Len() int {
	return len(b.Changes)
}

// Empty reports whether the batch carries no changes.
func (b ChangeBatch) Empty() bool {
	return len(b.Changes) == 0
}
