// Package config provides unified configuration loading from files,
// environment variables, and CLI flags using viper and pflag.
//
// Resolution order (highest wins):
//  1. CLI flags
//  2. Environment variables (prefix OPSPILOT_)
//  3. Config file (config.yaml in . or /etc/opspilot/)
//  4. Compiled defaults
package config

// Viper keys for the console runtime.
const (
	keyConsoleAddress        = "console.address"
	keyConsoleAllowedOrigins = "console.allowed_origins"
	keyConsoleCluster        = "console.cluster"
	keyConsoleKubeconfig     = "console.kubeconfig"
	keyConsoleDebugEnabled   = "console.debug.enabled"
)

// Viper keys for the watch synchronization layer.
const (
	keyWatchFlushInterval = "watch.flush_interval"
	keyWatchStartTimeout  = "watch.start_timeout"
	keyWatchStopTimeout   = "watch.stop_timeout"
)

// Viper keys for discovery caching.
const (
	keyDiscoveryCacheTTL = "discovery.cache_ttl"
)
