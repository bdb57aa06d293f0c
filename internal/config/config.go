package config

import (
	"encoding/json"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/errors"
)

// EnvPrefix is prepended to every environment override, e.g.
// BRIDGE_LOGGING_LEVEL=debug.
const EnvPrefix = "BRIDGE"

// Config represents the complete bridge configuration
type Config struct {
	Peer     PeerConfig     `mapstructure:"peer"`
	Channel  ChannelConfig  `mapstructure:"channel"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Settings SettingsConfig `mapstructure:"settings"`
	Demo     DemoConfig     `mapstructure:"demo"`
	Trace    TraceConfig    `mapstructure:"trace"`
}

// PeerConfig selects which side this process speaks for in interactive
// commands.
type PeerConfig struct {
	// Side is "inject" or "content" (default: "inject")
	Side string `mapstructure:"side"`
}

// ChannelConfig lists the frequencies both sides open at startup.
type ChannelConfig struct {
	// Frequencies must be agreed by both peers; there is no discovery.
	Frequencies []string `mapstructure:"frequencies"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Enabled controls whether logs are written at all (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is the directory for bridge.log. Empty logs to stderr.
	Dir string `mapstructure:"dir"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
	// Compress gzips rotated files
	Compress bool `mapstructure:"compress"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// SettingsConfig controls the settings sync between the peers.
type SettingsConfig struct {
	// Enabled opens the "settings" frequency and runs the handshake (default: true)
	Enabled bool `mapstructure:"enabled"`
	// File is an optional JSON object merged over the built-in defaults.
	// Settings names are case sensitive, which viper keys are not.
	File string `mapstructure:"file"`
}

// DemoConfig controls the demo command
type DemoConfig struct {
	Messages  int    `mapstructure:"messages"`
	Frequency string `mapstructure:"frequency"`
}

// TraceConfig controls the ledger tracer
type TraceConfig struct {
	// Pattern is a glob matched against raw ledger keys, e.g. "l?demo".
	// Empty disables tracing.
	Pattern string `mapstructure:"pattern"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Peer: PeerConfig{
			Side: "inject",
		},
		Channel: ChannelConfig{
			Frequencies: []string{"demo"},
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			Dir:        "",
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   false,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
		Settings: SettingsConfig{
			Enabled: true,
		},
		Demo: DemoConfig{
			Messages:  5,
			Frequency: "demo",
		},
	}
}

// DefaultSettings returns the built-in settings values the primary side
// starts from.
func DefaultSettings() map[string]any {
	return map[string]any{
		"replaceKanaMultipleChoiceWithTyping":  true,
		"replaceKanjiTypingWithMultipleChoice": true,
		"makeKanjiMultipleChoicesMoreSimilar":  true,
		"alwaysPauseTimer":                     true,
		"preventUnpausing":                     true,
		"timerClickToggle":                     true,
		"autocompleteOnTab":                    true,
		"useWanakana":                          true,
		"showKanjiAfterCorrect":                true,
		"useCustomThings":                      true,
		"noOnscreenKeyboard":                   true,
		"noAutoAccept":                         true,
		"customThings":                         map[string]any{},
	}
}

// Values returns DefaultSettings with the contents of File, if any,
// replacing top-level keys.
func (c *SettingsConfig) Values() (map[string]any, error) {
	values := DefaultSettings()
	if c.File == "" {
		return values, nil
	}
	data, err := os.ReadFile(c.File)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read settings file")
	}
	var overrides map[string]any
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, errors.Wrapf(err, "failed to parse settings file %s", c.File)
	}
	maps.Copy(values, overrides)
	return values, nil
}

// SetDefaults registers default values with viper
func SetDefaults() {
	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("peer.side", defaults.Peer.Side)

	v.SetDefault("channel.frequencies", defaults.Channel.Frequencies)

	// Logging defaults
	v.SetDefault("logging.enabled", defaults.Logging.Enabled)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.dir", defaults.Logging.Dir)
	v.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	v.SetDefault("logging.compress", defaults.Logging.Compress)

	v.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
	v.SetDefault("metrics.addr", defaults.Metrics.Addr)

	v.SetDefault("settings.enabled", defaults.Settings.Enabled)
	v.SetDefault("settings.file", defaults.Settings.File)

	v.SetDefault("demo.messages", defaults.Demo.Messages)
	v.SetDefault("demo.frequency", defaults.Demo.Frequency)

	v.SetDefault("trace.pattern", defaults.Trace.Pattern)
}

// BindEnv makes every key overridable through BRIDGE_* variables.
func BindEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom is Load for a specific viper instance.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "bridge")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bridge"
	}
	return filepath.Join(home, ".config", "bridge")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
