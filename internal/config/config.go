package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lehigh-university-libraries/medreport/internal/providers"
	"github.com/lehigh-university-libraries/medreport/internal/report"
)

// EnvPrefix is prepended to every environment variable the config reads
const EnvPrefix = "MEDREPORT"

// Config holds the resolved settings for one invocation
type Config struct {
	Provider          string        `mapstructure:"provider"`
	Model             string        `mapstructure:"model"`
	OllamaHost        string        `mapstructure:"ollama_host"`
	OpenAIBaseURL     string        `mapstructure:"openai_base_url"`
	Temperature       float64       `mapstructure:"temperature"`
	Format            string        `mapstructure:"format"`
	Output            string        `mapstructure:"output"`
	Timeout           time.Duration `mapstructure:"timeout"`
	DiscoveryAttempts uint          `mapstructure:"discovery_attempts"`
	DiscoveryDelay    time.Duration `mapstructure:"discovery_delay"`
	Instructions      string        `mapstructure:"instructions"`
	InstructionsFile  string        `mapstructure:"instructions_file"`
	LogLevel          string        `mapstructure:"log_level"`
}

// Defaults returns the configuration used when nothing overrides it
func Defaults() Config {
	return Config{
		Provider:          "ollama",
		OpenAIBaseURL:     "http://localhost:1234/v1",
		Temperature:       0,
		Format:            string(providers.FormatSchema),
		Output:            report.OutputText,
		Timeout:           5 * time.Minute,
		DiscoveryAttempts: 3,
		DiscoveryDelay:    time.Second,
		Instructions:      report.DefaultInstructions,
		LogLevel:          "info",
	}
}

// flag name -> config key, for flags whose names differ from their key
var flagKeys = map[string]string{
	"provider":          "provider",
	"model":             "model",
	"host":              "ollama_host",
	"openai-base-url":   "openai_base_url",
	"temperature":       "temperature",
	"format":            "format",
	"output":            "output",
	"timeout":           "timeout",
	"instructions-file": "instructions_file",
	"log-level":         "log_level",
}

// Load merges defaults, the config file, MEDREPORT_* environment variables
// and any flags that were set, in increasing order of precedence
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	defaults := Defaults()
	v.SetDefault("provider", defaults.Provider)
	v.SetDefault("model", defaults.Model)
	v.SetDefault("ollama_host", defaults.OllamaHost)
	v.SetDefault("openai_base_url", defaults.OpenAIBaseURL)
	v.SetDefault("temperature", defaults.Temperature)
	v.SetDefault("format", defaults.Format)
	v.SetDefault("output", defaults.Output)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("discovery_attempts", defaults.DiscoveryAttempts)
	v.SetDefault("discovery_delay", defaults.DiscoveryDelay)
	v.SetDefault("instructions", defaults.Instructions)
	v.SetDefault("instructions_file", defaults.InstructionsFile)
	v.SetDefault("log_level", defaults.LogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("medreport")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/medreport")
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		slog.Debug("Loaded config file", "path", v.ConfigFileUsed())
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.InstructionsFile != "" {
		b, err := os.ReadFile(cfg.InstructionsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read instructions file: %w", err)
		}
		cfg.Instructions = string(b)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	switch c.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("unsupported provider: %s (supported: ollama, openai)", c.Provider)
	}
	if _, err := providers.ParseFormatMode(c.Format); err != nil {
		return err
	}
	if !report.ValidOutput(c.Output) {
		return fmt.Errorf("unsupported output format: %s (supported: text, json, yaml)", c.Output)
	}
	if c.Temperature < 0 {
		return fmt.Errorf("temperature must not be negative, got %g", c.Temperature)
	}
	if c.DiscoveryAttempts < 1 {
		return fmt.Errorf("discovery_attempts must be at least 1")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}

// FormatMode returns the validated output constraint mode
func (c *Config) FormatMode() providers.FormatMode {
	mode, err := providers.ParseFormatMode(c.Format)
	if err != nil {
		return providers.FormatSchema
	}
	return mode
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
