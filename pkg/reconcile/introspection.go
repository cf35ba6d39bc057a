package reconcile

import (
	"github.com/aretw0/introspection"
)

// ReconcilerState exposes internal state for observability.
type ReconcilerState struct {
	Policy              string `json:"policy"`
	Count               int    `json:"count"`
	Pages               int    `json:"pages"`
	ActiveSubscriptions int    `json:"active_subscriptions"`
	Listening           bool   `json:"listening"`
	Pagination          string `json:"pagination"`
	PageSize            int    `json:"page_size"`
	Hooks               int    `json:"hooks"`
}

// State implements introspection.Introspectable.
func (r *Reconciler) State() any {
	active := 0
	for _, p := range r.pages {
		if p.reg != nil && p.reg.active {
			active++
		}
	}

	return ReconcilerState{
		Policy:              r.policy.String(),
		Count:               r.view.Len(),
		Pages:               len(r.pages),
		ActiveSubscriptions: active,
		Listening:           r.listening,
		Pagination:          r.pagination.state.String(),
		PageSize:            r.pagination.pageSize,
		Hooks:               len(r.hooks),
	}
}

// ComponentType implements introspection.Component.
func (r *Reconciler) ComponentType() string {
	return "reconciler"
}

var _ introspection.Introspectable = (*Reconciler)(nil)
var _ introspection.Component = (*Reconciler)(nil)
