// Package main is the entry point for the opspilot binary. It runs
// the desktop console runtime: a local HTTP and WebSocket API that
// keeps live caches of watched Kubernetes objects.
//
// Dependencies are assembled via Google Wire; see wire.go.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ankitjain91/opspilot/internal/cmd"
	"github.com/ankitjain91/opspilot/internal/cmd/console"
	"github.com/ankitjain91/opspilot/internal/config"
	"github.com/ankitjain91/opspilot/internal/core"
)

// version is injected at build time via -ldflags
// (e.g. -ldflags "-X main.version=v1.2.3").
var version = "devel"

func main() {
	// Cancel on SIGINT (Ctrl+C) or SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		// Cobra is configured with SilenceErrors: true, so we
		// print the error here for consistent formatting.
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires all dependencies and executes the root Cobra command.
func run(ctx context.Context) error {
	rootCmd, cleanup, err := wireCmd()
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer cleanup()

	return rootCmd.ExecuteContext(ctx)
}

// newCmd is a Wire provider that constructs the root Cobra command and
// registers the console subcommand.
func newCmd(conf *config.Config) (*cobra.Command, error) {
	c := &cobra.Command{
		Use:           "opspilot",
		Short:         "OpsPilot: a live cluster console runtime with local watch caches.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			setupLogging(conf)
		},
	}

	consoleCmd, err := cmd.NewConsoleCommand(conf, func() (*console.Console, func(), error) {
		return wireConsole(conf)
	})
	if err != nil {
		return nil, err
	}

	c.AddCommand(consoleCmd)

	return c, nil
}

func setupLogging(conf *config.Config) {
	level := slog.LevelInfo
	if conf.ConsoleDebugEnabled() {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// provideSessionManagerOptions is a Wire provider that maps the watch
// configuration keys onto the session manager.
func provideSessionManagerOptions(conf *config.Config) core.SessionManagerOptions {
	return core.SessionManagerOptions{
		FlushInterval: conf.WatchFlushInterval(),
		StartTimeout:  conf.WatchStartTimeout(),
		StopTimeout:   conf.WatchStopTimeout(),
	}
}

// provideDiscoveryOptions is a Wire provider for the discovery cache
// configuration.
func provideDiscoveryOptions(conf *config.Config) core.DiscoveryOptions {
	return core.DiscoveryOptions{
		CacheTTL: conf.DiscoveryCacheTTL(),
	}
}
