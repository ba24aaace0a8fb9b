// Package watch turns a hot folder into a stream of PDFs to preflight.
package watch

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/crypto/blake2b"

	"github.com/wudi/preflight/observability"
)

const eventBuffer = 256

// Config configures a Watcher.
type Config struct {
	// Debounce is how long changes are collected before they are emitted.
	Debounce time.Duration
	// Patterns are doublestar patterns matched against base names.
	Patterns []string
}

func (c Config) withDefaults() Config {
	if c.Debounce <= 0 {
		c.Debounce = 500 * time.Millisecond
	}
	if len(c.Patterns) == 0 {
		c.Patterns = []string{"*.pdf"}
	}
	return c
}

// Op is the kind of change reported for a file.
type Op string

const (
	OpCreate Op = "create"
	OpModify Op = "modify"
)

// Event reports a file whose content is new to the watcher.
type Event struct {
	Path string
	Op   Op
	Hash string
}

// Watcher emits an Event once per distinct content of each matching file.
type Watcher struct {
	cfg    Config
	dir    string
	fsw    *fsnotify.Watcher
	logger observability.Logger

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	hashMu sync.RWMutex
	hashes map[string]string

	events   chan Event
	deferred atomic.Int64
}

func New(dir string, cfg Config, logger observability.Logger) (*Watcher, error) {
	for _, p := range cfg.Patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid pattern %q", p)
		}
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = observability.NopLogger{}
	}
	return &Watcher{
		cfg:     cfg.withDefaults(),
		dir:     dir,
		fsw:     fsw,
		logger:  logger,
		pending: make(map[string]fsnotify.Op),
		hashes:  make(map[string]string),
		events:  make(chan Event, eventBuffer),
	}, nil
}

// Events is closed when the watcher stops.
func (w *Watcher) Events() <-chan Event { return w.events }

// Start watches the folder until ctx is done or Stop is called. Files
// already present are reported first.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	if err := w.fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() && w.matches(e.Name()) {
			w.queue(filepath.Join(w.dir, e.Name()), fsnotify.Create)
		}
	}
	go w.loop(ctx)
	w.logger.Info("hot folder watcher started",
		observability.String("dir", w.dir),
		observability.String("debounce", w.cfg.Debounce.String()),
		observability.String("patterns", strings.Join(w.cfg.Patterns, ",")))
	return nil
}

func (w *Watcher) Stop() error { return w.fsw.Close() }

// Deferred returns how many times an event was held back because the
// channel was full. Deferred files are retried on the next tick.
func (w *Watcher) Deferred() int64 { return w.deferred.Load() }

func (w *Watcher) matches(name string) bool {
	for _, p := range w.cfg.Patterns {
		if ok, _ := doublestar.Match(p, strings.ToLower(name)); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.events)
	ticker := time.NewTicker(w.cfg.Debounce)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", observability.Error("error", err))
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !w.matches(filepath.Base(ev.Name)) {
		return
	}
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		w.hashMu.Lock()
		delete(w.hashes, ev.Name)
		w.hashMu.Unlock()
		w.pendingMu.Lock()
		delete(w.pending, ev.Name)
		w.pendingMu.Unlock()
		return
	}
	if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
		w.queue(ev.Name, ev.Op)
	}
}

func (w *Watcher) queue(path string, op fsnotify.Op) {
	w.pendingMu.Lock()
	w.pending[path] |= op
	w.pendingMu.Unlock()
	w.logger.Debug("change detected", observability.String("path", path), observability.String("op", op.String()))
}

// flush emits the files that settled since the last tick.
func (w *Watcher) flush(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	batch := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	for path, op := range batch {
		if ctx.Err() != nil {
			return
		}
		hash, err := HashFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				w.logger.Warn("cannot hash file", observability.String("path", path), observability.Error("error", err))
			}
			continue
		}
		w.hashMu.Lock()
		old, seen := w.hashes[path]
		w.hashMu.Unlock()
		if seen && old == hash {
			continue
		}
		ev := Event{Path: path, Hash: hash, Op: OpModify}
		if op.Has(fsnotify.Create) || !seen {
			ev.Op = OpCreate
		}
		if !w.send(ev) {
			w.queue(path, op)
			continue
		}
		w.hashMu.Lock()
		w.hashes[path] = hash
		w.hashMu.Unlock()
	}
}

// send reports whether the event was accepted. The hash of a rejected
// event is not recorded, so the file stays eligible.
func (w *Watcher) send(ev Event) bool {
	select {
	case w.events <- ev:
		return true
	default:
		n := w.deferred.Add(1)
		w.logger.Warn("event channel full, deferring event",
			observability.String("path", ev.Path), observability.Int64("total_deferred", n))
		return false
	}
}

// HashFile returns the hex BLAKE2b-256 digest of a file's content.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
