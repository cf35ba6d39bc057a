package reconcile

import "github.com/aretw0/livelist/pkg/core"

// Observer receives view mutations and lifecycle notifications.
// All methods are called on the reconciler's thread.
type Observer interface {
	ItemInserted(index int)
	ItemChanged(index int)
	ItemMoved(from, to int)
	ItemRemoved(index int)
	ItemsReset()

	// BatchApplied is called once after every applied batch.
	BatchApplied()

	LoadingMoreStarted()
	LoadingMoreComplete()
	HasLoadedAll()

	Error(err error)
}

// NopObserver ignores every notification. Embed it to implement only part of Observer.
type NopObserver struct{}

func (NopObserver) ItemInserted(int) {}
func (NopObserver) ItemChanged(int) {}
func (NopObserver) ItemMoved(int, int) {}
func (NopObserver) ItemRemoved(int) {}
func (NopObserver) ItemsReset() {}
func (NopObserver) BatchApplied() {}
func (NopObserver) LoadingMoreStarted() {}
func (NopObserver) LoadingMoreComplete() {}
func (NopObserver) HasLoadedAll() {}
func (NopObserver) Error(error) {}

var _ Observer = NopObserver{}

// Funcs adapts optional functions to Observer. Nil fields are skipped.
type Funcs struct {
	OnItemInserted        func(index int)
	OnItemChanged         func(index int)
	OnItemMoved           func(from, to int)
	OnItemRemoved         func(index int)
	OnItemsReset          func()
	OnBatchApplied        func()
	OnLoadingMoreStarted  func()
	OnLoadingMoreComplete func()
	OnHasLoadedAll        func()
	OnError               func(err error)
}

func (f Funcs) ItemInserted(index int) {
	if f.OnItemInserted != nil {
		f.OnItemInserted(index)
	}
}

func (f Funcs) ItemChanged(index int) {
	if f.OnItemChanged != nil {
		f.OnItemChanged(index)
	}
}

func (f Funcs) ItemMoved(from, to int) {
	if f.OnItemMoved != nil {
		f.OnItemMoved(from, to)
	}
}

func (f Funcs) ItemRemoved(index int) {
	if f.OnItemRemoved != nil {
		f.OnItemRemoved(index)
	}
}

func (f Funcs) ItemsReset() {
	if f.OnItemsReset != nil {
		f.OnItemsReset()
	}
}

func (f Funcs) BatchApplied() {
	if f.OnBatchApplied != nil {
		f.OnBatchApplied()
	}
}

func (f Funcs) LoadingMoreStarted() {
	if f.OnLoadingMoreStarted != nil {
		f.OnLoadingMoreStarted()
	}
}

func (f Funcs) LoadingMoreComplete() {
	if f.OnLoadingMoreComplete != nil {
		f.OnLoadingMoreComplete()
	}
}

func (f Funcs) HasLoadedAll() {
	if f.OnHasLoadedAll != nil {
		f.OnHasLoadedAll()
	}
}

func (f Funcs) Error(err error) {
	if f.OnError != nil {
		f.OnError(err)
	}
}

var _ Observer = Funcs{}

// Hook is notified of document-level changes in the same pass that mutates
// the view, before the Observer. Typed caches attach as hooks.
type Hook interface {
	// DocumentSet is called when doc was inserted, changed or moved.
	DocumentSet(doc core.Document)
	// DocumentRemoved is called after doc left the view.
	DocumentRemoved(doc core.Document)
	// DocumentsReset is called when the view was cleared.
	DocumentsReset()
}
