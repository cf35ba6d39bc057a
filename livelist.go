package livelist

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/livelist/internal/platform"
	"github.com/aretw0/livelist/pkg/core"
	"github.com/aretw0/livelist/pkg/eventloop"
	"github.com/aretw0/livelist/pkg/reconcile"
	"github.com/aretw0/livelist/pkg/typed"
)

// Version of the library.
const Version = "0.1.0"

// --- Types ---

type (
	// Document is an immutable snapshot of a stored document.
	Document = core.Document
	// Fields holds the named values of a document.
	Fields = core.Fields
	// ChangeBatch is one delivery from a subscription.
	ChangeBatch = core.ChangeBatch
	// Query is a bounded, ordered document query.
	Query = core.Query
	// QueryCreator builds the first-page query.
	QueryCreator = core.QueryCreator
	// Source is a document query service with live subscriptions.
	Source = core.Source

	// Reconciler keeps the merged, ordered view of every page.
	Reconciler = reconcile.Reconciler
	// Observer receives view mutations.
	Observer = reconcile.Observer
	// ObserverFuncs adapts optional callbacks to Observer.
	ObserverFuncs = reconcile.Funcs
	// Policy decides how change batches map onto the view.
	Policy = reconcile.Policy
	// Pagination is the load-more state.
	Pagination = reconcile.Pagination
	// Executor runs deliveries on the reconciler's thread.
	Executor = reconcile.Executor
	// Option configures a Reconciler.
	Option = reconcile.Option

	// Store is an opened backend: a source that also accepts writes.
	Store = platform.Store
	// Backend is a Store together with its background work.
	Backend = platform.Backend
	// OpenOption configures Open.
	OpenOption = platform.Option
	// Config is the content of a project configuration file.
	Config = platform.Config

	// EventLoop is a serial executor for reconcilers.
	EventLoop = eventloop.Loop
)

// Projection is a typed view over a reconciler.
type Projection[T any] = typed.Projection[T]

// DecodeFunc converts a raw document into a record.
type DecodeFunc[T any] = typed.DecodeFunc[T]

// DocumentModel pairs a decoded record with its document identity.
type DocumentModel[T any] = typed.DocumentModel[T]

// Reconciliation policies.
var (
	IdentityPolicy = reconcile.IdentityPolicy
	PositionPolicy = reconcile.PositionPolicy
)

// --- Reconciler options ---

// WithPolicy selects the reconciliation policy.
func WithPolicy(p Policy) Option {
	return reconcile.WithPolicy(p)
}

// WithObserver sets the receiver of view mutations.
func WithObserver(obs Observer) Option {
	return reconcile.WithObserver(obs)
}

// WithExecutor sets where deliveries run, typically an EventLoop.
func WithExecutor(e Executor) Option {
	return reconcile.WithExecutor(e)
}

// WithLogger sets the reconciler's logger.
func WithLogger(logger *slog.Logger) Option {
	return reconcile.WithLogger(logger)
}

// --- Factories ---

// New creates a reconciler over the queries built by creator.
func New(source Source, creator QueryCreator, opts ...Option) (*Reconciler, error) {
	return reconcile.New(source, creator, opts...)
}

// NewTyped creates a reconciler and a projection decoding its documents.
// A nil decode uses JSON field mapping.
func NewTyped[T any](source Source, creator QueryCreator, decode DecodeFunc[T], opts ...Option) (*Projection[T], error) {
	r, err := reconcile.New(source, creator, opts...)
	if err != nil {
		return nil, err
	}
	if decode == nil {
		decode = typed.JSONDecoder[T]()
	}
	return typed.New(r, decode), nil
}

// NewEventLoop creates an event loop. Start it before use.
func NewEventLoop(logger *slog.Logger) *EventLoop {
	return eventloop.New(logger)
}

// ParsePolicy resolves a policy by name ("identity" or "position").
func ParsePolicy(name string) (Policy, error) {
	return reconcile.ParsePolicy(name)
}

// --- Backends ---

// Open creates a backend. The uri is a directory for the "fs" adapter and
// ignored by "memory".
func Open(ctx context.Context, uri string, opts ...OpenOption) (*Backend, error) {
	return platform.Open(ctx, uri, opts...)
}

// WithAdapter selects the backend ("fs" or "memory").
func WithAdapter(name string) OpenOption {
	return platform.WithAdapter(name)
}

// WithSourceLogger sets the backend's logger.
func WithSourceLogger(logger *slog.Logger) OpenOption {
	return platform.WithLogger(logger)
}

// WithInclude sets the pattern of files served by the fs adapter.
func WithInclude(pattern string) OpenOption {
	return platform.WithInclude(pattern)
}

// WithIgnore adds patterns the fs adapter skips.
func WithIgnore(patterns ...string) OpenOption {
	return platform.WithIgnore(patterns...)
}

// WithExtension sets the format of new documents in the fs adapter.
func WithExtension(ext string) OpenOption {
	return platform.WithExtension(ext)
}

// WithStrict keeps numbers as json.Number and fails on unparseable files.
func WithStrict(strict bool) OpenOption {
	return platform.WithStrict(strict)
}

// WithWatch controls whether the fs adapter follows changes on disk.
func WithWatch(enabled bool) OpenOption {
	return platform.WithWatch(enabled)
}

// WithDebounce sets how long the watcher waits for events to settle.
func WithDebounce(d time.Duration) OpenOption {
	return platform.WithDebounce(d)
}

// WithWatcherErrorHandler receives errors raised while following the directory.
func WithWatcherErrorHandler(fn func(error)) OpenOption {
	return platform.WithWatcherErrorHandler(fn)
}

// WithMustExist makes Open fail when the fs root is missing.
func WithMustExist(must bool) OpenOption {
	return platform.WithMustExist(must)
}

// --- Utils ---

// FindRoot looks upwards for a directory with a configuration file or .git.
func FindRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}

// LoadConfig reads the configuration file in dir.
func LoadConfig(dir string) (Config, error) {
	return platform.LoadConfig(dir)
}
