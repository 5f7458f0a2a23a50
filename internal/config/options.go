package config

import (
	"strings"
	"time"
)

// Option describes a single configuration entry: its viper key, the
// corresponding CLI flag name, the compiled default, and a
// human-readable description shown in --help output.
type Option struct {
	Key         string
	Flag        string
	Default     any
	Description string
}

// ConsoleOptions defines the configuration entries available to the
// console command. Each entry is registered as a viper default and a
// CLI flag.
var ConsoleOptions = []Option{
	{Key: keyConsoleAddress, Flag: toFlag(keyConsoleAddress), Default: "127.0.0.1:8321", Description: "Console listen address"},
	{Key: keyConsoleAllowedOrigins, Flag: toFlag(keyConsoleAllowedOrigins), Default: []string{}, Description: "Console allowed origins"},
	{Key: keyConsoleCluster, Flag: toFlag(keyConsoleCluster), Default: "default", Description: "Console cluster name"},
	{Key: keyConsoleKubeconfig, Flag: toFlag(keyConsoleKubeconfig), Default: "", Description: "Path to kubeconfig (empty uses in-cluster config or the default path)"},
	{Key: keyConsoleDebugEnabled, Flag: toFlag(keyConsoleDebugEnabled), Default: false, Description: "Console debug logging"},
	{Key: keyWatchFlushInterval, Flag: toFlag(keyWatchFlushInterval), Default: 100 * time.Millisecond, Description: "Watch cache flush interval"},
	{Key: keyWatchStartTimeout, Flag: toFlag(keyWatchStartTimeout), Default: 10 * time.Second, Description: "Watch start timeout"},
	{Key: keyWatchStopTimeout, Flag: toFlag(keyWatchStopTimeout), Default: 5 * time.Second, Description: "Watch stop notification timeout"},
	{Key: keyDiscoveryCacheTTL, Flag: toFlag(keyDiscoveryCacheTTL), Default: 10 * time.Minute, Description: "Discovery cache TTL"},
}

// toFlag converts a viper key like "watch.flush_interval" into a CLI
// flag like "watch-flush-interval" by lower-casing and replacing dots
// and underscores with hyphens. The "console-" prefix is stripped so
// the common flags read naturally.
func toFlag(key string) string {
	flag := strings.ToLower(key)
	flag = strings.ReplaceAll(flag, ".", "-")
	flag = strings.ReplaceAll(flag, "_", "-")
	flag = strings.TrimPrefix(flag, "console-")
	return flag
}
