package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ankitjain91/opspilot/internal/cmd/console"
	"github.com/ankitjain91/opspilot/internal/config"
)

type ConsoleInjector func() (*console.Console, func(), error)

// NewConsoleCommand returns the console subcommand. Dependency
// construction is deferred to the injector so that flags are parsed
// before anything touches the cluster.
func NewConsoleCommand(conf *config.Config, newConsole ConsoleInjector) (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:     "console",
		Short:   "Start the console runtime serving the live resource cache over HTTP and WebSocket",
		Example: "opspilot console --address=127.0.0.1:8321",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, cleanup, err := newConsole()
			if err != nil {
				return fmt.Errorf("failed to initialize console: %w", err)
			}
			defer cleanup()

			cfg := console.Config{
				Address:        conf.ConsoleAddress(),
				AllowedOrigins: conf.ConsoleAllowedOrigins(),
			}

			return c.Run(cmd.Context(), cfg)
		},
	}

	if err := conf.BindFlags(cmd.Flags(), config.ConsoleOptions); err != nil {
		return nil, err
	}

	return cmd, nil
}
