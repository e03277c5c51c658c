// Package config loads runtime settings from flags, environment variables
// and an optional config file via viper.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds the resolved runtime settings
type Config struct {
	SkillsDir   string
	ToolsDir    string // directory holding the dynamic tool-definition store
	Provider    string
	Model       string
	MaxTokens   int
	BaseURL     string
	MaxTurns    int
	ToolTimeout time.Duration
	ServerAddr  string
	Watch       bool
	LogLevel    string
	LogFormat   string
}

// Init wires viper's environment and config-file sources. Call once at
// startup, before flag binding.
func Init() {
	viper.SetEnvPrefix("SKILLET")
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.skillet")
	viper.AddConfigPath(".")

	viper.SetDefault("skills_dir", "skills")
	viper.SetDefault("tools_dir", "skills")
	viper.SetDefault("max_turns", 8)
	viper.SetDefault("tool_timeout", "60s")
	viper.SetDefault("server_addr", ":8080")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")

	// a missing config file is fine
	_ = viper.ReadInConfig()
}

// Load resolves the current configuration
func Load() Config {
	return Config{
		SkillsDir:   viper.GetString("skills_dir"),
		ToolsDir:    viper.GetString("tools_dir"),
		Provider:    viper.GetString("provider"),
		Model:       viper.GetString("model"),
		MaxTokens:   viper.GetInt("max_tokens"),
		BaseURL:     viper.GetString("base_url"),
		MaxTurns:    viper.GetInt("max_turns"),
		ToolTimeout: viper.GetDuration("tool_timeout"),
		ServerAddr:  viper.GetString("server_addr"),
		Watch:       viper.GetBool("watch"),
		LogLevel:    viper.GetString("log_level"),
		LogFormat:   viper.GetString("log_format"),
	}
}
