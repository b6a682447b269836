package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/weakbus/internal/config/watcher"
	"github.com/dshills/weakbus/internal/event"
)

// Run reads commands from in until quit, end of input, or ctx is
// cancelled.
//
// Every bus call happens on a single loop goroutine, which also creates the
// bus so that owner enforcement binds to it. Input lines and config reloads
// reach the loop through channels.
func (app *Application) Run(ctx context.Context, in io.Reader) error {
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	var reloads <-chan watcher.Reload
	if app.watcher != nil {
		reloads = app.watcher.Reloads()
		g.Go(func() error {
			err := app.watcher.Run(gctx)
			if errors.Is(err, watcher.ErrClosed) {
				// Stopped by Shutdown or an earlier Run; the loop goes on
				// without live reload.
				app.logger.Warn("config watcher not running", "error", err)
				return nil
			}
			return err
		})
	}

	// The reader is not part of the group: a blocked read cannot be
	// interrupted, and it exits on its own once the loop stops listening.
	lines := make(chan string)
	go readLines(in, lines, gctx.Done())

	g.Go(func() error {
		defer cancel()
		return app.loop(gctx, lines, reloads)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// readLines sends each line of in to lines and closes it at end of input.
func readLines(in io.Reader, lines chan<- string, done <-chan struct{}) {
	defer close(lines)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		select {
		case lines <- sc.Text():
		case <-done:
			return
		}
	}
}

// loop is the owner goroutine.
func (app *Application) loop(ctx context.Context, lines <-chan string, reloads <-chan watcher.Reload) error {
	bus := app.newBus()

	if err := app.registerHandlers(bus); err != nil {
		return err
	}
	app.logger.Info("bus ready", "bus", bus.Identifier(), "handlers", bus.HandlersCount(),
		"enforcement", app.config.Bus.Enforcement)

	for {
		select {
		case <-ctx.Done():
			return nil

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := app.execute(ctx, bus, line)
			if errors.Is(err, ErrQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintf(app.out, "error: %v\n", err)
			}

		case r, ok := <-reloads:
			if !ok {
				reloads = nil
				continue
			}
			if err := app.applyReload(ctx, bus, r); err != nil {
				fmt.Fprintf(app.out, "error: %v\n", err)
			}
		}
	}
}

// registerHandlers registers the console and every loaded script.
func (app *Application) registerHandlers(bus event.Dispatcher) error {
	if err := bus.Register(app.console); err != nil {
		return &InitError{Component: "console handler", Err: err}
	}
	for _, s := range app.scripts {
		if err := bus.Register(s); err != nil {
			return &InitError{Component: "script " + s.Name(), Err: err}
		}
	}
	return nil
}

// applyReload posts a reloaded config as a setting event, or a failed
// reload as an alert.
func (app *Application) applyReload(ctx context.Context, bus event.Dispatcher, r watcher.Reload) error {
	if r.Err != nil {
		return bus.PostContext(ctx, event.NewMessage(event.FlagAlert,
			fmt.Sprintf("config reload failed: %v", r.Err), "config-watcher"))
	}

	return bus.PostContext(ctx, event.NewMessage(event.FlagSetting, map[string]any{
		"path":          r.Path,
		"op":            r.Op.String(),
		"identifier":    r.Config.Bus.Identifier,
		"enforcement":   string(r.Config.Bus.Enforcement),
		"logging.level": r.Config.Logging.Level,
	}, "config-watcher"))
}
