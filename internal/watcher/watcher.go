// Package watcher turns filesystem events on the vault into note
// commands. Events are debounced per path, so an editor writing a file
// in several bursts produces one update.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"notechain/internal/vault"
)

// Handler receives note-level changes. Paths are vault-relative.
// Callbacks run on timer goroutines and must be safe to call
// concurrently.
type Handler struct {
	OnUpdate func(path string)
	OnDelete func(path string)
	OnRename func(oldPath, newPath string)
}

// Watcher watches a vault directory tree for note changes
type Watcher struct {
	vault        *vault.Vault
	handler      Handler
	debounce     time.Duration
	renameWindow time.Duration
	log          zerolog.Logger

	mu       sync.Mutex
	updates  map[string]*time.Timer // pending debounced updates
	pending  map[string]string      // basename -> old path awaiting a matching create
	expiries map[string]*time.Timer // old path -> rename expiry timer
}

// New creates a new vault watcher
func New(v *vault.Vault, handler Handler, log zerolog.Logger) *Watcher {
	return &Watcher{
		vault:        v,
		handler:      handler,
		debounce:     500 * time.Millisecond,
		renameWindow: time.Second,
		log:          log,
		updates:      make(map[string]*time.Timer),
		pending:      make(map[string]string),
		expiries:     make(map[string]*time.Timer),
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	if w.renameWindow < d {
		w.renameWindow = d
	}
	return w
}

// Watch starts watching the vault for changes
// It blocks until the context is cancelled or an error occurs
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := w.addRecursive(watcher, w.vault.Root()); err != nil {
		return err
	}

	w.log.Info().Str("root", w.vault.Root()).Msg("watching vault for changes")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(watcher, event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error().Err(err).Msg("watcher error")

		case <-ctx.Done():
			w.stopTimers()
			return ctx.Err()
		}
	}
}

func (w *Watcher) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event) {
	// New directories need their own watch before notes land in them.
	if event.Op&fsnotify.Create != 0 && isDir(event.Name) {
		if err := w.addRecursive(watcher, event.Name); err != nil {
			w.log.Error().Err(err).Str("dir", event.Name).Msg("failed to watch new directory")
		}
		return
	}
	if !vault.IsNote(event.Name) {
		return
	}
	rel, ok := w.vault.Rel(event.Name)
	if !ok {
		return
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		if old, matched := w.takePending(rel); matched {
			w.log.Debug().Str("old", old).Str("new", rel).Msg("rename correlated")
			w.handler.OnRename(old, rel)
			return
		}
		w.scheduleUpdate(rel)

	case event.Op&fsnotify.Write != 0:
		w.scheduleUpdate(rel)

	case event.Op&fsnotify.Rename != 0:
		// A move emits Rename for the old path; the new path arrives as
		// a Create. Hold the old path briefly so the two halves can be
		// matched up. If nothing claims it, it was a delete.
		w.holdForRename(rel)

	case event.Op&fsnotify.Remove != 0:
		w.cancelUpdate(rel)
		w.handler.OnDelete(rel)
	}
}

func (w *Watcher) scheduleUpdate(rel string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, exists := w.updates[rel]; exists {
		timer.Stop()
	}
	w.updates[rel] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.updates, rel)
		w.mu.Unlock()
		w.handler.OnUpdate(rel)
	})
}

func (w *Watcher) cancelUpdate(rel string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, exists := w.updates[rel]; exists {
		timer.Stop()
		delete(w.updates, rel)
	}
}

// holdForRename parks an old path until a matching create shows up or
// the window expires and it becomes a delete.
func (w *Watcher) holdForRename(rel string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	base := filepath.Base(rel)
	w.pending[base] = rel
	if timer, exists := w.expiries[rel]; exists {
		timer.Stop()
	}
	w.expiries[rel] = time.AfterFunc(w.renameWindow, func() {
		w.mu.Lock()
		if w.pending[base] == rel {
			delete(w.pending, base)
		}
		delete(w.expiries, rel)
		w.mu.Unlock()
		w.handler.OnDelete(rel)
	})
}

// takePending claims a parked old path whose basename matches the newly
// created one.
func (w *Watcher) takePending(rel string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	base := filepath.Base(rel)
	old, ok := w.pending[base]
	if !ok {
		return "", false
	}
	delete(w.pending, base)
	if timer, exists := w.expiries[old]; exists {
		timer.Stop()
		delete(w.expiries, old)
	}
	return old, true
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, timer := range w.updates {
		timer.Stop()
	}
	for _, timer := range w.expiries {
		timer.Stop()
	}
}

// addRecursive watches a directory and everything under it, skipping
// hidden directories.
func (w *Watcher) addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
