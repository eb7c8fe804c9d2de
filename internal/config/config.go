package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	Mail     MailConfig
	LLM      LLMConfig
	Scan     ScanConfig
	Log      LogConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// MailConfig holds mailbox provider settings.
type MailConfig struct {
	Provider   string
	FixtureDir string `mapstructure:"fixture_dir"`
}

// LLMConfig holds extraction provider settings.
type LLMConfig struct {
	Provider  string
	APIKeyEnv string `mapstructure:"api_key_env"`
	APIKey    string `mapstructure:"api_key"`
	Model     string
}

// ScanConfig holds pipeline tunables.
type ScanConfig struct {
	MaxResults int `mapstructure:"max_results"`
	Currency   string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string
	Dev   bool
}

// Load reads configuration from file and env. Env var overrides use prefix JASKCLOSET_.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "jaskcloset", "jaskcloset.db"))
	v.SetDefault("mail.provider", "fixture")
	v.SetDefault("mail.fixture_dir", "")
	v.SetDefault("llm.provider", "heuristic")
	v.SetDefault("llm.api_key_env", "ANTHROPIC_API_KEY")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "claude-haiku-4-5-20251001")
	v.SetDefault("scan.max_results", 50)
	v.SetDefault("scan.currency", "USD")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.dev", false)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("JASKCLOSET_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "jaskcloset"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("JASKCLOSET")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// APIKeyResolved returns the extraction API key, preferring the explicit config
// value over the environment variable named by APIKeyEnv.
func (c Config) APIKeyResolved() string {
	if c.LLM.APIKey != "" {
		return c.LLM.APIKey
	}
	if c.LLM.APIKeyEnv != "" {
		return os.Getenv(c.LLM.APIKeyEnv)
	}
	return ""
}
