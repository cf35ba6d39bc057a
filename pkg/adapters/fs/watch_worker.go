package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/fsnotify/fsnotify"
)

// watcher turns filesystem events into document upserts and removals.
// Events are collected for Config.Debounce before the affected files are
// reloaded together, so one save delivers one change batch.
type watcher struct {
	source  *Source
	fsw     *fsnotify.Watcher
	pending map[string]struct{}
	cancel  context.CancelFunc
	done    chan struct{}
}

// Start loads the directory and keeps the store in sync with it until
// ctx is done or Stop is called.
func (s *Source) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.mu.RLock()
	running := s.watch != nil
	s.mu.RUnlock()
	if running {
		return errors.New("watcher already started")
	}

	if err := s.Load(ctx); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	w := &watcher{
		source:  s,
		fsw:     fsw,
		pending: make(map[string]struct{}),
		done:    make(chan struct{}),
	}
	if err := w.recursiveAdd(s.root); err != nil {
		_ = fsw.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	s.mu.Lock()
	s.watch = w
	s.watcherActive = true
	s.mu.Unlock()

	lifecycle.Go(runCtx, w.run, lifecycle.WithErrorHandler(func(err error) {
		s.report(fmt.Errorf("watcher: %w", err))
	}))
	return nil
}

// Stop ends the watcher and waits for it to exit.
func (s *Source) Stop(ctx context.Context) error {
	s.mu.Lock()
	w := s.watch
	s.watch = nil
	s.mu.Unlock()
	if w == nil {
		return nil
	}

	w.cancel()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// recursiveAdd watches dir and every directory below it that is not ignored.
func (w *watcher) recursiveAdd(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := w.source.rel(path)
		if err != nil {
			return err
		}
		if rel != "." && w.source.ignored(rel+"/") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", rel, err)
		}
		return nil
	})
}

// run is the main event loop for the watcher.
func (w *watcher) run(ctx context.Context) (err error) {
	logger := w.source.logger
	defer func() {
		if recovered := recover(); recovered != nil {
			panicErr := fmt.Errorf("watcher panic: %v", recovered)

			// Stack only when debug logging is on.
			if logger.Enabled(ctx, slog.LevelDebug) {
				logger.Error("watcher panic", "error", panicErr, "stack", string(debug.Stack()))
			} else {
				logger.Error("watcher panic", "error", panicErr)
			}
			err = panicErr
		}
	}()
	defer close(w.done)
	defer w.source.setWatcherActive(false)
	defer w.fsw.Close()

	return w.mainEventLoop(ctx)
}

// mainEventLoop is the core select loop that processes filesystem and watcher events.
func (w *watcher) mainEventLoop(ctx context.Context) error {
	timer := time.NewTimer(w.source.config.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("watcher events channel closed")
			}
			if w.processFilesystemEvent(event) {
				timer.Reset(w.source.config.Debounce)
			}

		case <-timer.C:
			w.flush(ctx)

		case wErr, ok := <-w.fsw.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("watcher errors channel closed")
			}
			w.handleWatcherError(wErr)
		}
	}
}

// processFilesystemEvent records the path an event touched.
// Returns true if the event is relevant to some document.
func (w *watcher) processFilesystemEvent(event fsnotify.Event) bool {
	s := w.source
	s.logger.Debug("event received", "name", event.Name, "op", event.Op.String())

	if isTempFile(event.Name) || event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return false
	}
	rel, err := s.rel(event.Name)
	if err != nil {
		return false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if s.ignored(rel + "/") {
				return false
			}
			if err := w.recursiveAdd(event.Name); err != nil {
				w.handleWatcherError(err)
			}
			// files may have landed before the directory was watched
			w.pending[rel+"/"] = struct{}{}
			return true
		}
	}

	if !s.matches(rel) {
		// a removed or renamed directory takes its documents with it
		if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
			w.pending[rel+"/"] = struct{}{}
			return true
		}
		return false
	}
	w.pending[rel] = struct{}{}
	return true
}

// flush reloads every pending path and delivers the result.
func (w *watcher) flush(ctx context.Context) {
	if len(w.pending) == 0 {
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	clear(w.pending)

	s := w.source
	s.writeMu.Lock()
	for _, rel := range paths {
		var err error
		if dir, ok := cutDir(rel); ok {
			err = s.reloadDir(ctx, dir)
		} else {
			err = s.reload(ctx, rel)
		}
		if err != nil {
			s.report(err)
		}
	}
	s.writeMu.Unlock()
	s.store.Flush()
	s.recordReload()
}

// handleWatcherError processes errors from the fsnotify watcher.
func (w *watcher) handleWatcherError(err error) {
	w.source.logger.Error("fsnotify error", "error", err)
	if w.source.config.ErrorHandler != nil {
		w.source.config.ErrorHandler(err)
	}
}

func cutDir(rel string) (string, bool) {
	if len(rel) > 0 && rel[len(rel)-1] == '/' {
		return rel[:len(rel)-1], true
	}
	return "", false
}

// reloadDir reconciles every cached document under dir with the disk.
// Callers hold writeMu.
func (s *Source) reloadDir(ctx context.Context, dir string) error {
	prefix := dir + "/"
	var known []string
	s.cache.mu.RLock()
	for rel := range s.cache.entries {
		if len(rel) > len(prefix) && rel[:len(prefix)] == prefix {
			known = append(known, rel)
		}
	}
	s.cache.mu.RUnlock()
	sort.Strings(known)

	for _, rel := range known {
		if err := s.reload(ctx, rel); err != nil {
			return err
		}
	}

	root := filepath.Join(s.root, filepath.FromSlash(dir))
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := s.rel(path)
		if err != nil {
			return err
		}
		if !s.matches(rel) {
			return nil
		}
		return s.reload(ctx, rel)
	})
}
