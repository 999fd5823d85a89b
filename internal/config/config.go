package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const configPathEnv = "NEWSDESK_CONFIG"

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr       string `yaml:"listen_addr"`
	Port             string `yaml:"port"`
	DatabasePath     string `yaml:"database_path"`
	SessionSecret    string `yaml:"session_secret"`
	GinMode          string `yaml:"gin_mode"`
	LogLevel         string `yaml:"log_level"`
	BuildMaxAttempts int    `yaml:"build_max_attempts"`
	RootUserName     string `yaml:"root_user_name"`
	RootPassword     string `yaml:"root_password"`
	RootScopes       string `yaml:"root_scopes"`
}

// Load reads the YAML config file named by NEWSDESK_CONFIG (when present),
// applies environment overrides and fills safe defaults. A .env file is
// honored before anything else.
func Load() AppConfig {
	_ = godotenv.Load()

	var cfg AppConfig
	if path := strings.TrimSpace(os.Getenv(configPathEnv)); path != "" {
		if raw, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(raw, &cfg)
		}
	}

	cfg.applyEnvOverrides()
	cfg.setDefaults()
	return cfg
}

func (c *AppConfig) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		c.Port = v
	}
	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		c.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_PATH")); v != "" {
		c.DatabasePath = v
	}
	if v := strings.TrimSpace(os.Getenv("SESSION_SECRET")); v != "" {
		c.SessionSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("GIN_MODE")); v != "" {
		c.GinMode = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("ROOT_USER_NAME")); v != "" {
		c.RootUserName = v
	}
	if v := strings.TrimSpace(os.Getenv("ROOT_PASSWORD")); v != "" {
		c.RootPassword = v
	}
	if v := strings.TrimSpace(os.Getenv("ROOT_SCOPES")); v != "" {
		c.RootScopes = v
	}
}

func (c *AppConfig) setDefaults() {
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.ListenAddr == "" {
		c.ListenAddr = fmt.Sprintf(":%s", c.Port)
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "newsdesk.db"
	}
	if c.SessionSecret == "" {
		c.SessionSecret = "newsdesk-dev-secret"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.BuildMaxAttempts <= 0 {
		c.BuildMaxAttempts = 3
	}
	if c.RootScopes == "" {
		c.RootScopes = "global:admin"
	}
}
