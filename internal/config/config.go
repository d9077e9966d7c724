package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete mediaidle configuration.
// The polling interval is deliberately absent: it is a required command line
// argument.
type Config struct {
	Helper   HelperConfig   `mapstructure:"helper"`
	Provider ProviderConfig `mapstructure:"provider"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// HelperConfig controls the idle inhibitor helper process
type HelperConfig struct {
	// Program is the helper executable, looked up in PATH (default: "swayidle").
	// It is always argv[0] of the launched helper.
	Program string `mapstructure:"program"`
	// GracePeriod is how long to wait after SIGTERM before SIGKILL when
	// stopping the helper. Zero kills immediately (default: 0).
	GracePeriod time.Duration `mapstructure:"grace_period"`
}

// ProviderConfig controls how the PipeWire graph is observed
type ProviderConfig struct {
	// Command is the pw-dump compatible executable (default: "pw-dump")
	Command string `mapstructure:"command"`
	// Args are passed to Command; they must make it stream updates
	// (default: ["--monitor", "--no-colors"])
	Args []string `mapstructure:"args"`
	// ConnectTimeout bounds the wait for the initial object set (default: 10s)
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// File is the log file path; empty logs to stderr (default: "")
	File string `mapstructure:"file"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Helper: HelperConfig{
			Program:     "swayidle",
			GracePeriod: 0, // Force kill, matching the helper's expected interruptibility
		},
		Provider: ProviderConfig{
			Command:        "pw-dump",
			Args:           []string{"--monitor", "--no-colors"},
			ConnectTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// SetDefaults registers default values with v
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	// Helper defaults
	v.SetDefault("helper.program", defaults.Helper.Program)
	v.SetDefault("helper.grace_period", defaults.Helper.GracePeriod)

	// Provider defaults
	v.SetDefault("provider.command", defaults.Provider.Command)
	v.SetDefault("provider.args", defaults.Provider.Args)
	v.SetDefault("provider.connect_timeout", defaults.Provider.ConnectTimeout)

	// Logging defaults
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.file", defaults.Logging.File)
	v.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
}

// Load reads the configuration from v into a Config struct and validates it
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mediaidle")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mediaidle"
	}
	return filepath.Join(home, ".config", "mediaidle")
}

// ConfigFile returns the path to the default config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
