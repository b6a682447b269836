// Package app wires configuration, telemetry, scripts and the event bus
// into the weakbus console and runs its owner-goroutine loop.
package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/weakbus/internal/config"
	"github.com/dshills/weakbus/internal/config/watcher"
	"github.com/dshills/weakbus/internal/event"
	"github.com/dshills/weakbus/internal/script"
	"github.com/dshills/weakbus/internal/telemetry"
)

// Application owns the bus and every handler registered on it.
//
// The bus only holds handlers weakly, so the Application keeps the console
// handler and each loaded script reachable for as long as they should
// receive events.
type Application struct {
	config *config.Config
	logger *slog.Logger
	out    io.Writer

	console *consoleHandler
	scripts []*script.Handler

	watcher         *watcher.Watcher
	tracingShutdown telemetry.ShutdownFunc

	running  atomic.Bool
	shutOnce sync.Once
}

// Options configures the application. Non-empty fields override the
// config file and environment.
type Options struct {
	// ConfigPath is the path to the configuration file.
	ConfigPath string

	// ScriptsDir overrides scripts.dir.
	ScriptsDir string

	// LogLevel overrides logging.level.
	LogLevel string

	// Enforcement overrides bus.enforcement.
	Enforcement string

	// Watch enables config live reload regardless of watch.enabled.
	Watch bool

	// Output receives command responses and delivered events.
	// Defaults to os.Stdout.
	Output io.Writer

	// LogOutput receives log records. Defaults to os.Stderr.
	LogOutput io.Writer
}

// New creates a new Application with the given options.
func New(opts Options) (*Application, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, &InitError{Component: "config", Err: err}
	}
	applyOverrides(cfg, opts)
	if err := cfg.Validate(); err != nil {
		return nil, &InitError{Component: "config", Err: err}
	}

	app := &Application{
		config: cfg,
		out:    opts.Output,
	}
	if app.out == nil {
		app.out = os.Stdout
	}

	logOut := opts.LogOutput
	if logOut == nil {
		logOut = os.Stderr
	}
	app.logger = telemetry.NewLogger(cfg.Logging.Level, cfg.Logging.Format, logOut)

	if err := app.bootstrap(opts); err != nil {
		app.Shutdown()
		return nil, err
	}
	return app, nil
}

// applyOverrides copies non-empty options over cfg.
func applyOverrides(cfg *config.Config, opts Options) {
	if opts.ScriptsDir != "" {
		cfg.Scripts.Dir = opts.ScriptsDir
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.Enforcement != "" {
		cfg.Bus.Enforcement = config.Enforcement(opts.Enforcement)
	}
	if opts.Watch {
		cfg.Watch.Enabled = true
	}
}

// bootstrap initializes components in dependency order.
func (app *Application) bootstrap(opts Options) error {
	// 1. Tracing
	shutdown, err := telemetry.SetupTracing(context.Background(), app.config.Tracing)
	if err != nil {
		return &InitError{Component: "tracing", Err: err}
	}
	app.tracingShutdown = shutdown

	// 2. Console handler
	app.console = newConsoleHandler(app.out)

	// 3. Scripts
	if dir := app.config.Scripts.Dir; dir != "" {
		scripts, err := script.LoadDir(dir,
			script.WithTimeout(app.config.Scripts.Timeout.Std()),
			script.WithLogger(app.logger),
		)
		if err != nil {
			return &InitError{Component: "scripts", Err: err}
		}
		app.scripts = scripts
		app.logger.Info("scripts loaded", "dir", dir, "count", len(scripts))
	}

	// 4. Config watcher
	if app.config.Watch.Enabled && opts.ConfigPath != "" {
		w, err := watcher.New(opts.ConfigPath,
			watcher.WithDebounce(app.config.Watch.Debounce.Std()),
			watcher.WithLogger(app.logger),
		)
		if err != nil {
			return &InitError{Component: "watcher", Err: err}
		}
		app.watcher = w
	}

	return nil
}

// Config returns the active configuration.
func (app *Application) Config() *config.Config {
	return app.config
}

// IsRunning reports whether Run is in progress.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// newBus creates the bus selected by bus.enforcement. It must be called on
// the goroutine that will own the bus.
func (app *Application) newBus() event.Dispatcher {
	opts := []event.BusOption{
		event.WithIdentifier(app.config.Bus.Identifier),
		event.WithInitialCapacity(app.config.Bus.InitialCapacity),
		event.WithLogger(app.logger),
	}

	switch app.config.Bus.Enforcement {
	case config.EnforceOwner:
		return event.NewBus(append(opts, event.WithEnforcer(event.OwnerGoroutine()))...)
	case config.EnforceLocked:
		return event.NewSyncBus(opts...)
	default:
		return event.NewBus(opts...)
	}
}

// Shutdown stops the config watcher, releases scripts and flushes
// tracing. It is safe to call more than once.
func (app *Application) Shutdown() {
	app.shutOnce.Do(func() {
		if app.watcher != nil {
			if err := app.watcher.Close(); err != nil {
				app.logger.Warn("config watcher close failed", "error", err)
			}
		}

		for _, s := range app.scripts {
			s.Close()
		}

		if app.tracingShutdown != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := app.tracingShutdown(ctx); err != nil {
				app.logger.Warn("tracing shutdown failed", "error", err)
			}
		}
	})
}
