// Package watcher provides live reload of the weakbus config file.
//
// The watcher monitors the directory holding the config file with fsnotify,
// so editors that save by renaming a temporary file are seen as well.
// Bursts of changes are debounced into a single reload, and every reload is
// delivered as a Reload value on a channel.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/weakbus/internal/config"
)

// DefaultDebounce is the quiet period before a change triggers a reload.
const DefaultDebounce = 100 * time.Millisecond

// ErrClosed is returned when Run is called on a watcher that already ran
// or was closed.
var ErrClosed = errors.New("config watcher is closed")

// Operation represents the type of file operation.
type Operation int

const (
	// OpWrite indicates the file was modified.
	OpWrite Operation = iota

	// OpCreate indicates the file was created or renamed into place.
	OpCreate

	// OpRemove indicates the file was deleted or renamed away.
	OpRemove
)

// String returns the operation name.
func (op Operation) String() string {
	switch op {
	case OpWrite:
		return "write"
	case OpCreate:
		return "create"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Reload is the outcome of reloading the config file after a change.
type Reload struct {
	// Path is the absolute path of the config file.
	Path string

	// Op is the last operation seen before the reload.
	Op Operation

	// Config is the reloaded configuration; nil when Err is set.
	Config *config.Config

	// Err is the load or validation error, if any.
	Err error

	// Time is when the reload happened.
	Time time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce duration for rapid changes.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the watcher's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithLoader replaces config.Load as the reload function.
func WithLoader(load func(path string) (*config.Config, error)) Option {
	return func(w *Watcher) {
		if load != nil {
			w.load = load
		}
	}
}

// Watcher reloads a config file whenever it changes on disk.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
	load     func(path string) (*config.Config, error)

	fsw     *fsnotify.Watcher
	reloads chan Reload

	mu        sync.Mutex
	ran       bool
	closeOnce sync.Once
	closeErr  error
}

// New creates a watcher for the config file at path. The file itself may
// not exist yet, but its directory must.
func New(path string, opts ...Option) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     absPath,
		debounce: DefaultDebounce,
		logger:   slog.New(slog.DiscardHandler),
		load:     config.Load,
		reloads:  make(chan Reload, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "config-watcher", "path", absPath)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(absPath), err)
	}
	w.fsw = fsw

	return w, nil
}

// Path returns the absolute path of the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Reloads returns the channel reloads are delivered on. It is closed when
// Run returns.
func (w *Watcher) Reloads() <-chan Reload {
	return w.reloads
}

// Run watches until ctx is cancelled or the watcher is closed. It may be
// called once.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.ran {
		w.mu.Unlock()
		return ErrClosed
	}
	w.ran = true
	w.mu.Unlock()

	defer close(w.reloads)
	defer w.Close()

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		lastOp  Operation
		pending bool
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			op, relevant := w.classify(ev)
			if !relevant {
				continue
			}
			w.logger.Debug("config file changed", "op", op)
			lastOp = op
			pending = true

			if w.debounce == 0 {
				if !w.reload(ctx, lastOp) {
					return nil
				}
				pending = false
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-fire:
			fire = nil
			if !pending {
				continue
			}
			pending = false
			if !w.reload(ctx, lastOp) {
				return nil
			}
		}
	}
}

// Close stops watching and releases the fsnotify watcher. A running Run
// returns and closes Reloads; if Run never started, Reloads is closed here
// and later calls to Run fail with ErrClosed. Close is safe to call more
// than once.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		started := w.ran
		w.ran = true
		w.mu.Unlock()

		w.closeErr = w.fsw.Close()
		if !started {
			close(w.reloads)
		}
	})
	return w.closeErr
}

// classify maps an fsnotify event to an Operation on the watched file.
func (w *Watcher) classify(ev fsnotify.Event) (Operation, bool) {
	if filepath.Clean(ev.Name) != w.path {
		return 0, false
	}
	switch {
	case ev.Has(fsnotify.Create):
		return OpCreate, true
	case ev.Has(fsnotify.Write):
		return OpWrite, true
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return OpRemove, true
	}
	return 0, false
}

// reload loads the file and delivers the result. It reports false if ctx
// was cancelled before delivery.
func (w *Watcher) reload(ctx context.Context, op Operation) bool {
	r := Reload{Path: w.path, Op: op, Time: time.Now()}
	r.Config, r.Err = w.load(w.path)
	if r.Err != nil {
		r.Config = nil
		w.logger.Warn("config reload failed", "error", r.Err)
	} else {
		w.logger.Info("config reloaded", "op", op)
	}

	select {
	case w.reloads <- r:
		return true
	case <-ctx.Done():
		return false
	}
}
