package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config wraps a viper instance configured with the opspilot
// defaults, config file locations, and environment bindings.
type Config struct {
	v *viper.Viper
}

// New loads configuration from defaults, config file, and
// environment. Flag bindings happen later via BindFlags, once the
// command's flag set exists.
func New() (*Config, error) {
	v := viper.New()

	for _, o := range ConsoleOptions {
		v.SetDefault(o.Key, o.Default)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/opspilot/")

	if err := v.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !(errors.As(err, &notFoundErr) || errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("OPSPILOT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return &Config{v: v}, nil
}

// BindFlags registers each option as a CLI flag on fs and binds it to
// its viper key.
func (c *Config) BindFlags(fs *pflag.FlagSet, options []Option) error {
	for _, o := range options {
		switch v := o.Default.(type) {
		case string:
			fs.String(o.Flag, v, o.Description)
		case int:
			fs.Int(o.Flag, v, o.Description)
		case bool:
			fs.Bool(o.Flag, v, o.Description)
		case []string:
			fs.StringSlice(o.Flag, v, o.Description)
		case time.Duration:
			fs.Duration(o.Flag, v, o.Description)
		default:
			return fmt.Errorf("unsupported flag type for key: %s", o.Key)
		}

		if err := c.v.BindPFlag(o.Key, fs.Lookup(o.Flag)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", o.Flag, err)
		}
	}

	return nil
}

func (c *Config) ConsoleAddress() string {
	return c.v.GetString(keyConsoleAddress) // OPSPILOT_CONSOLE_ADDRESS
}

func (c *Config) ConsoleAllowedOrigins() []string {
	return c.v.GetStringSlice(keyConsoleAllowedOrigins) // OPSPILOT_CONSOLE_ALLOWED_ORIGINS
}

func (c *Config) ConsoleCluster() string {
	return c.v.GetString(keyConsoleCluster) // OPSPILOT_CONSOLE_CLUSTER
}

func (c *Config) ConsoleKubeconfig() string {
	return c.v.GetString(keyConsoleKubeconfig) // OPSPILOT_CONSOLE_KUBECONFIG
}

func (c *Config) ConsoleDebugEnabled() bool {
	return c.v.GetBool(keyConsoleDebugEnabled) // OPSPILOT_CONSOLE_DEBUG_ENABLED
}

func (c *Config) WatchFlushInterval() time.Duration {
	return c.v.GetDuration(keyWatchFlushInterval) // OPSPILOT_WATCH_FLUSH_INTERVAL
}

func (c *Config) WatchStartTimeout() time.Duration {
	return c.v.GetDuration(keyWatchStartTimeout) // OPSPILOT_WATCH_START_TIMEOUT
}

func (c *Config) WatchStopTimeout() time.Duration {
	return c.v.GetDuration(keyWatchStopTimeout) // OPSPILOT_WATCH_STOP_TIMEOUT
}

func (c *Config) DiscoveryCacheTTL() time.Duration {
	return c.v.GetDuration(keyDiscoveryCacheTTL) // OPSPILOT_DISCOVERY_CACHE_TTL
}
