// Package config handles configuration loading for crewkit. It supports
// XDG config paths, project-level overrides, environment variables, and
// YAML crew definition files.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application-level configuration for crewkit.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
	Debug     DebugConfig     `mapstructure:"debug"`
	State     StateConfig     `mapstructure:"state"`
}

// AnthropicConfig holds model provider settings.
type AnthropicConfig struct {
	// APIKey authenticates direct Anthropic API access.
	APIKey string `mapstructure:"api_key"`
	// Model names the model used for crew agents.
	Model string `mapstructure:"model"`
	// MaxTokens caps the tokens requested per model call.
	MaxTokens int `mapstructure:"max_tokens"`
	// UseAWSBedrock routes model calls through AWS Bedrock.
	UseAWSBedrock bool `mapstructure:"use_aws_bedrock"`
	// AWSRegion selects the Bedrock region.
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile selects the AWS credentials profile.
	AWSProfile string `mapstructure:"aws_profile"`
}

// DefaultsConfig holds default values applied to crews that do not set
// their own.
type DefaultsConfig struct {
	// Process is the routing topology when a definition omits one.
	Process string `mapstructure:"process"`
	// MaxRPM caps model requests per minute. Zero means unlimited.
	MaxRPM int `mapstructure:"max_rpm"`
	// Verbose enables per-task console output.
	Verbose bool `mapstructure:"verbose"`
	// CheckpointPath is where task output journals are written.
	CheckpointPath string `mapstructure:"checkpoint_path"`
}

// DebugConfig holds debug logging settings.
type DebugConfig struct {
	// LogPath enables file-backed debug logging when non-empty.
	LogPath string `mapstructure:"log_path"`
}

// StateConfig holds run history storage settings.
type StateConfig struct {
	// DBPath overrides the run history database location.
	DBPath string `mapstructure:"db_path"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables. Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.crewkit.yaml in current directory or parent)
// 3. User config (~/.config/crewkit/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("anthropic.model", "CREWKIT_MODEL")
	v.BindEnv("anthropic.aws_region", "AWS_REGION")
	v.BindEnv("anthropic.aws_profile", "AWS_PROFILE")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.max_tokens", 8192)
	v.SetDefault("anthropic.use_aws_bedrock", false)

	v.SetDefault("defaults.process", "sequential")
	v.SetDefault("defaults.max_rpm", 0)
	v.SetDefault("defaults.verbose", false)
	v.SetDefault("defaults.checkpoint_path", "crewkit_tasks_output.json")

	v.SetDefault("debug.log_path", "")
	v.SetDefault("state.db_path", "")
}

// getUserConfigDir returns the XDG config directory for crewkit.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "crewkit")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "crewkit")
	}
	return filepath.Join(home, ".config", "crewkit")
}

// findProjectConfig searches for .crewkit.yaml in the current directory
// and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".crewkit.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			MaxTokens: 8192,
		},
		Defaults: DefaultsConfig{
			Process:        "sequential",
			CheckpointPath: "crewkit_tasks_output.json",
		},
	}
}
