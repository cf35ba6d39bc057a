package platform

import (
	"log/slog"
	"time"
)

// Adapter names accepted by WithAdapter.
const (
	AdapterFS     = "fs"
	AdapterMemory = "memory"
)

// options holds the configuration used to open a backend.
type options struct {
	logger       *slog.Logger
	adapter      string
	include      string
	ignore       []string
	extension    string
	strict       bool
	watch        bool
	debounce     time.Duration
	errorHandler func(error)
	mustExist    bool
}

// Option defines a functional option for opening a backend.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		logger:  slog.New(slog.DiscardHandler),
		adapter: AdapterFS,
		watch:   true,
	}
}

// WithLogger sets the logger handed to the backend.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithAdapter selects the backend by name ("fs" or "memory").
// Defaults to "fs".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithInclude sets the doublestar pattern of files served by the fs adapter.
func WithInclude(pattern string) Option {
	return func(o *options) {
		o.include = pattern
	}
}

// WithIgnore adds doublestar patterns the fs adapter skips.
func WithIgnore(patterns ...string) Option {
	return func(o *options) {
		o.ignore = append(o.ignore, patterns...)
	}
}

// WithExtension sets the format of documents created through the fs adapter.
func WithExtension(ext string) Option {
	return func(o *options) {
		o.extension = ext
	}
}

// WithStrict enables strict mode for the default serializers.
// Numbers are kept as json.Number and unparseable files fail the load.
func WithStrict(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// WithWatch controls whether the fs adapter follows changes on disk.
// By default it does.
func WithWatch(enabled bool) Option {
	return func(o *options) {
		o.watch = enabled
	}
}

// WithDebounce sets how long the watcher waits for a burst of events to settle.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		o.debounce = d
	}
}

// WithWatcherErrorHandler registers a callback for errors raised while
// following the directory. They are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errorHandler = fn
	}
}

// WithMustExist makes Open fail when the fs root is missing instead of
// creating it.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}
