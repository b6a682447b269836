package app

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/dshills/weakbus/internal/event"
	"github.com/dshills/weakbus/internal/script"
)

// source is the Message.Source of events posted from the console.
const source = "console"

// command is a console command run on the loop goroutine.
type command struct {
	usage string
	help  string
	run   func(app *Application, ctx context.Context, bus event.Dispatcher, args string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"alert":   {"alert <text>", "post an alert", postKind(event.FlagAlert)},
		"dialog":  {"dialog <text>", "post a dialog message", postKind(event.FlagDialog)},
		"setting": {"setting <key>=<value>", "post a setting change", (*Application).cmdSetting},
		"post":    {"post <flags> [text]", "post with explicit flags, e.g. post 0x3 hello", (*Application).cmdPost},
		"count":   {"count", "print the number of live handlers", (*Application).cmdCount},
		"stats":   {"stats", "print bus statistics", (*Application).cmdStats},
		"gc":      {"gc", "run the garbage collector and drop reclaimed handlers", (*Application).cmdGC},
		"scripts": {"scripts", "list loaded scripts", (*Application).cmdScripts},
		"unload":  {"unload <script>", "unregister and close a script", (*Application).cmdUnload},
		"help":    {"help", "list commands", (*Application).cmdHelp},
		"quit":    {"quit", "exit", func(*Application, context.Context, event.Dispatcher, string) error { return ErrQuit }},
	}
}

// execute parses and runs one console line. Blank lines are ignored.
func (app *Application) execute(ctx context.Context, bus event.Dispatcher, line string) error {
	name, args, _ := strings.Cut(strings.TrimSpace(line), " ")
	if name == "" {
		return nil
	}

	cmd, ok := commands[name]
	if !ok {
		return &CommandError{Command: name, Err: ErrUnknownCommand}
	}
	if err := cmd.run(app, ctx, bus, strings.TrimSpace(args)); err != nil {
		if errors.Is(err, ErrQuit) {
			return err
		}
		return &CommandError{Command: name, Err: err}
	}
	return nil
}

func postKind(kind event.Flags) func(*Application, context.Context, event.Dispatcher, string) error {
	return func(_ *Application, ctx context.Context, bus event.Dispatcher, args string) error {
		if args == "" {
			return ErrUsage
		}
		return bus.PostContext(ctx, event.NewMessage(kind, args, source))
	}
}

func (app *Application) cmdSetting(ctx context.Context, bus event.Dispatcher, args string) error {
	key, value, ok := strings.Cut(args, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return ErrUsage
	}
	payload := map[string]any{key: strings.TrimSpace(value)}
	return bus.PostContext(ctx, event.NewMessage(event.FlagSetting, payload, source))
}

func (app *Application) cmdPost(ctx context.Context, bus event.Dispatcher, args string) error {
	raw, text, _ := strings.Cut(args, " ")
	flags, err := strconv.ParseUint(raw, 0, 32)
	if err != nil {
		return fmt.Errorf("%w: flags %q", ErrUsage, raw)
	}
	if text == "" {
		return bus.PostContext(ctx, event.Flags(flags))
	}
	return bus.PostContext(ctx, event.NewMessage(event.Flags(flags), strings.TrimSpace(text), source))
}

func (app *Application) cmdCount(_ context.Context, bus event.Dispatcher, _ string) error {
	_, err := fmt.Fprintf(app.out, "handlers: %d\n", bus.HandlersCount())
	return err
}

func (app *Application) cmdStats(_ context.Context, bus event.Dispatcher, _ string) error {
	s := bus.Stats()
	_, err := fmt.Fprintf(app.out, "posted=%d delivered=%d filtered=%d errors=%d compactions=%d\n",
		s.EventsPosted, s.Deliveries, s.Filtered, s.HandlerErrors, s.Compactions)
	return err
}

func (app *Application) cmdGC(ctx context.Context, bus event.Dispatcher, _ string) error {
	runtime.GC()
	if err := bus.Collect(); err != nil {
		return err
	}
	return app.cmdCount(ctx, bus, "")
}

func (app *Application) cmdScripts(_ context.Context, _ event.Dispatcher, _ string) error {
	if len(app.scripts) == 0 {
		_, err := fmt.Fprintln(app.out, "no scripts loaded")
		return err
	}
	for _, s := range app.scripts {
		if _, err := fmt.Fprintf(app.out, "%s id=%d interest=%s calls=%d\n",
			s.Name(), s.ID(), s.InterestFlags(), s.Calls()); err != nil {
			return err
		}
	}
	return nil
}

func (app *Application) cmdUnload(_ context.Context, bus event.Dispatcher, args string) error {
	i := slices.IndexFunc(app.scripts, func(s *script.Handler) bool { return s.Name() == args })
	if i < 0 {
		return fmt.Errorf("%w: no script %q", ErrUsage, args)
	}

	s := app.scripts[i]
	if err := bus.Unregister(s); err != nil {
		return err
	}
	s.Close()
	app.scripts = slices.Delete(app.scripts, i, i+1)

	_, err := fmt.Fprintf(app.out, "unloaded %s\n", args)
	return err
}

func (app *Application) cmdHelp(_ context.Context, _ event.Dispatcher, _ string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		cmd := commands[name]
		if _, err := fmt.Fprintf(app.out, "  %-24s %s\n", cmd.usage, cmd.help); err != nil {
			return err
		}
	}
	return nil
}
