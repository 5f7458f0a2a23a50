// Package cmd defines the Cobra subcommands and their Wire provider
// sets. It bridges configuration, dependency injection, and the
// runtime layer.
package cmd

import (
	"github.com/google/wire"

	"github.com/ankitjain91/opspilot/internal/cmd/console"
)

// ProviderSet is the Wire provider set for the CLI layer.
var ProviderSet = wire.NewSet(
	console.NewConsole,
)
