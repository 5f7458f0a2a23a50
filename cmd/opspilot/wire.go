//go:build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/spf13/cobra"

	"github.com/ankitjain91/opspilot/internal/cmd"
	"github.com/ankitjain91/opspilot/internal/cmd/console"
	"github.com/ankitjain91/opspilot/internal/config"
	"github.com/ankitjain91/opspilot/internal/core"
	"github.com/ankitjain91/opspilot/internal/handler"
	"github.com/ankitjain91/opspilot/internal/kubernetes"
	"github.com/ankitjain91/opspilot/internal/mux"
)

func wireCmd() (*cobra.Command, func(), error) {
	panic(wire.Build(
		newCmd,
		config.ProviderSet,
	))
}

func wireConsole(conf *config.Config) (*console.Console, func(), error) {
	panic(wire.Build(
		cmd.ProviderSet,
		mux.ProviderSet,
		handler.ProviderSet,
		core.ProviderSet,
		kubernetes.ProviderSet,
		provideSessionManagerOptions,
		provideDiscoveryOptions,
	))
}
