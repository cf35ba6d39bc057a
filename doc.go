// Package livelist binds the live result set of paginated document queries
// to an ordered list a UI can render incrementally.
//
// A Reconciler subscribes to one query per loaded page and merges every
// change batch into a single deduplicated view, reporting each insert,
// change, move and removal to an Observer. Scrolling near the tail starts
// the next page; the reconciler tracks when loading finishes and when the
// query has nothing more to give. A Projection decodes each document into a
// typed record exactly once per change.
//
// Features:
//
//   - **Identity and position policies**: merge by document ID (the default)
//     or trust the source's index hints.
//   - **Pagination**: cursor pages opened on demand, with loading and
//     loaded-all notifications.
//   - **Typed records**: `NewTyped[T]` decodes once per change, never while rendering.
//   - **Single-threaded by construction**: deliveries hop onto an EventLoop.
//   - **Backends**: an in-memory query service, and a directory of
//     JSON/YAML/Markdown files followed with fsnotify.
//
// Usage:
//
//	backend, err := livelist.Open(ctx, "./data")
//	loop := livelist.NewEventLoop(logger)
//	_ = loop.Start(ctx)
//
//	tasks, err := livelist.NewTyped[Task](backend, func() livelist.Query {
//		return backend.Collection("tasks").OrderBy("rank", memory.Asc).Limit(20)
//	}, nil, livelist.WithExecutor(loop))
//
//	loop.Post(func() { _ = tasks.Reconciler().StartListening() })
package livelist
