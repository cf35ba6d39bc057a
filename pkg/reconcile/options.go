package reconcile

import "log/slog"

// Executor runs delivered batches on the reconciler's thread.
type Executor interface {
	Post(fn func())
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(fn func())

// Post implements Executor.
func (f ExecutorFunc) Post(fn func()) { f(fn) }

// Inline runs each delivery on the calling goroutine.
// Use it only when the source already delivers on the reconciler's thread.
var Inline Executor = ExecutorFunc(func(fn func()) { fn() })

// options holds the configuration of a Reconciler.
type options struct {
	policy   Policy
	observer Observer
	executor Executor
	logger   *slog.Logger
	hooks    []Hook
}

// Option defines a functional option for configuring a Reconciler.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		policy:   IdentityPolicy,
		observer: NopObserver{},
		executor: Inline,
		logger:   slog.New(slog.DiscardHandler),
	}
}

// WithPolicy selects the reconciliation policy. Defaults to IdentityPolicy.
func WithPolicy(p Policy) Option {
	return func(o *options) {
		if p != nil {
			o.policy = p
		}
	}
}

// WithObserver sets the receiver of view mutations and lifecycle callbacks.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithExecutor sets where deliveries from the source run. Defaults to Inline.
func WithExecutor(e Executor) Option {
	return func(o *options) {
		if e != nil {
			o.executor = e
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHook attaches a mutation hook at construction.
func WithHook(h Hook) Option {
	return func(o *options) {
		if h != nil {
			o.hooks = append(o.hooks, h)
		}
	}
}
