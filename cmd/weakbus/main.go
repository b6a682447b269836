// Package main is the entry point for the weakbus console.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dshills/weakbus/internal/app"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// A .env file is optional; its values only fill unset variables.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error: reading .env: %v\n", err)
		return 1
	}

	opts, exit, code := parseFlags(os.Args[1:])
	if exit {
		return code
	}

	application, err := app.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	// Ensure cleanup on all exit paths
	defer application.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx, os.Stdin); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}

// parseFlags parses args into app options. exit reports that the program
// should stop with code, as after -help or -version.
func parseFlags(args []string) (opts app.Options, exit bool, code int) {
	fset := flag.NewFlagSet("weakbus", flag.ContinueOnError)
	fset.SetOutput(os.Stderr)

	var showVersion bool

	fset.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file (.toml, .yaml)")
	fset.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	fset.StringVar(&opts.ScriptsDir, "scripts", "", "Directory of Lua handler scripts")
	fset.StringVar(&opts.ScriptsDir, "s", "", "Directory of Lua handler scripts (shorthand)")
	fset.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fset.StringVar(&opts.Enforcement, "enforcement", "", "Bus enforcement (none, owner, locked)")
	fset.BoolVar(&opts.Watch, "watch", false, "Reload the config file when it changes")
	fset.BoolVar(&opts.Watch, "w", false, "Reload the config file when it changes (shorthand)")
	fset.BoolVar(&showVersion, "version", false, "Show version information")
	fset.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	fset.Usage = func() {
		fmt.Fprintf(os.Stderr, "weakbus - console for a weak-reference event bus\n\n")
		fmt.Fprintf(os.Stderr, "Usage: weakbus [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fset.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  weakbus                         Start with defaults\n")
		fmt.Fprintf(os.Stderr, "  weakbus -c weakbus.toml -w      Load and watch a config file\n")
		fmt.Fprintf(os.Stderr, "  weakbus -s ./handlers           Register Lua handlers\n")
		fmt.Fprintf(os.Stderr, "\nType help at the prompt for commands.\n")
	}

	if err := fset.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return opts, true, 0
		}
		return opts, true, 2
	}

	if showVersion {
		fmt.Printf("weakbus %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		return opts, true, 0
	}

	if fset.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected arguments: %v\n", fset.Args())
		return opts, true, 2
	}

	return opts, false, 0
}
