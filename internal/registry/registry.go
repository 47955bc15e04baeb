// Package registry discovers named SQL statements on disk.
//
// Every *.sql file under the root directory becomes a statement whose key is
// its relative path with separators replaced by dots and the extension
// dropped: root/users/by_id.sql is "users.by_id".
package registry

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentReads bounds file reads during Load.
const maxConcurrentReads = 8

// reloadDebounce coalesces bursts of file events into one reload.
const reloadDebounce = 100 * time.Millisecond

// Statement is a named SQL template. It is never mutated after load.
type Statement struct {
	// Key is the dotted lookup key ("users.by_id").
	Key string
	// Name is Key with dots replaced by underscores, used in events.
	Name string
	// Path is the file the statement was read from.
	Path string
	// Text is the raw template.
	Text string
}

// StatementNotFoundError is returned by Lookup for unknown keys.
type StatementNotFoundError struct {
	Key string
}

func (e *StatementNotFoundError) Error() string {
	return fmt.Sprintf("statement %q not found", e.Key)
}

// Registry maps statement keys to templates.
// It is safe for concurrent use; Reload swaps the whole set atomically.
type Registry struct {
	root   string
	logger *slog.Logger

	mu    sync.RWMutex
	byKey map[string]Statement
}

// New returns an empty registry rooted at root. Call Reload to populate it.
func New(root string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		root:   root,
		logger: logger,
		byKey:  make(map[string]Statement),
	}
}

// Load creates a registry and reads every statement under root.
// An empty root yields an empty registry.
func Load(ctx context.Context, root string, logger *slog.Logger) (*Registry, error) {
	r := New(root, logger)
	if err := r.Reload(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Root returns the directory statements are loaded from.
func (r *Registry) Root() string {
	return r.root
}

// Reload re-reads all statements from disk and replaces the current set.
// On error the previous set is kept.
func (r *Registry) Reload(ctx context.Context) error {
	if r.root == "" {
		return nil
	}

	paths, err := discover(r.root)
	if err != nil {
		return fmt.Errorf("failed to scan statements in %s: %w", r.root, err)
	}

	stmts := make([]Statement, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path) //nolint:gosec // path comes from walking the statement root
			if err != nil {
				return fmt.Errorf("failed to read statement %s: %w", path, err)
			}
			key, err := KeyForPath(r.root, path)
			if err != nil {
				return err
			}
			stmts[i] = Statement{
				Key:  key,
				Name: NameForKey(key),
				Path: path,
				Text: string(data),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	byKey := make(map[string]Statement, len(stmts))
	for _, s := range stmts {
		byKey[s.Key] = s
	}

	r.mu.Lock()
	r.byKey = byKey
	r.mu.Unlock()

	r.logger.Debug("statements loaded", slog.String("root", r.root), slog.Int("count", len(byKey)))
	return nil
}

// discover returns every *.sql file under root, skipping hidden entries.
func discover(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && filepath.Ext(path) == ".sql" {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

// KeyForPath derives the statement key for a file under root.
func KeyForPath(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve statement key for %s: %w", path, err)
	}
	rel = strings.TrimSuffix(filepath.ToSlash(rel), ".sql")
	return strings.ReplaceAll(rel, "/", "."), nil
}

// NameForKey returns the event name for a statement key.
func NameForKey(key string) string {
	return strings.ReplaceAll(key, ".", "_")
}

// Lookup returns the statement registered under key.
func (r *Registry) Lookup(key string) (Statement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byKey[key]
	if !ok {
		return Statement{}, &StatementNotFoundError{Key: key}
	}
	return s, nil
}

// Len returns the number of loaded statements.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey)
}

// Statements returns all statements sorted by key.
func (r *Registry) Statements() []Statement {
	r.mu.RLock()
	out := make([]Statement, 0, len(r.byKey))
	for _, s := range r.byKey {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Watch reloads the registry whenever a statement file changes. It blocks
// until ctx is cancelled. Reload failures are logged and the previous set
// stays active.
func (r *Registry) Watch(ctx context.Context) error {
	if r.root == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watchDirRecursive(watcher, r.root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", r.root, err)
	}

	var (
		timerMu       sync.Mutex
		debounceTimer *time.Timer
	)
	defer func() {
		timerMu.Lock()
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watchDirRecursive(watcher, event.Name); err != nil {
						r.logger.Warn("failed to watch new directory", slog.String("dir", event.Name), slog.Any("error", err))
					}
				}
			}
			if filepath.Ext(event.Name) != ".sql" && event.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			timerMu.Lock()
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(reloadDebounce, func() {
				r.logger.Debug("statement changed, reloading", slog.String("file", event.Name))
				if err := r.Reload(ctx); err != nil {
					r.logger.Error("statement reload failed", slog.Any("error", err))
				}
			})
			timerMu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Error("watcher error", slog.Any("error", err))
		}
	}
}

// watchDirRecursive adds a directory and all non-hidden subdirectories to the watcher.
func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
