package core

// Query describes a bounded, ordered document query.
type Query interface {
	// StartAfter returns a new query that begins immediately after doc in
	// this query's ordering. The receiver is not modified.
	StartAfter(doc Document) Query
}

// QueryCreator produces a fresh query on each call.
type QueryCreator func() Query

// Listener receives either a batch or an error for one subscription.
type Listener func(batch ChangeBatch, err error)

// Handle is a live subscription.
type Handle interface {
	// Remove unsubscribes. No delivery starts after Remove returns.
	Remove()
}

// Source is a document query service that supports live subscriptions.
type Source interface {
	Subscribe(q Query, l Listener) (Handle, error)
}
