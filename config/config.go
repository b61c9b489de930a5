// Package config loads runtime configuration: built-in defaults, an
// optional YAML file, then environment variable overrides, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds everything the binaries need to wire the pipeline.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`

	OpenAIAPIKey   string `yaml:"openai_api_key"`
	OpenAIBaseURL  string `yaml:"openai_base_url"`
	Model          string `yaml:"model"`
	VisionModel    string `yaml:"vision_model"`
	EmbeddingModel string `yaml:"embedding_model"`

	DatabaseURL string `yaml:"database_url"`

	// CheckpointBackend selects the saver: memory, sqlite, postgres, redis.
	CheckpointBackend string `yaml:"checkpoint_backend"`
	SQLitePath        string `yaml:"sqlite_path"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	LeadQueueKey  string `yaml:"lead_queue_key"`

	GoogleSearchAPIKey   string `yaml:"google_search_api_key"`
	GoogleSearchEngineID string `yaml:"google_search_engine_id"`

	DiscordWebhookURL string `yaml:"discord_webhook_url"`
	DiscordAppID      string `yaml:"discord_app_id"`

	DefaultNiche  string `yaml:"default_niche"`
	UseStrategist bool   `yaml:"use_strategist"`
	DispatchLeads bool   `yaml:"dispatch_leads"`
}

// Load builds the configuration. path may be empty; a missing explicit file
// is an error, env vars always win.
func Load(path string) (*Config, error) {
	cfg := &Config{
		ListenAddr:        ":8080",
		LogLevel:          "info",
		Model:             "gpt-4o",
		VisionModel:       "gpt-4o",
		EmbeddingModel:    "text-embedding-3-small",
		CheckpointBackend: "memory",
		SQLitePath:        "beastmode.db",
		RedisAddr:         "localhost:6379",
		DefaultNiche:      "Solar Installers",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.ListenAddr, "LISTEN_ADDR")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&c.OpenAIBaseURL, "OPENAI_BASE_URL")
	setString(&c.Model, "MODEL")
	setString(&c.VisionModel, "VISION_MODEL")
	setString(&c.EmbeddingModel, "EMBEDDING_MODEL")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.CheckpointBackend, "CHECKPOINT_BACKEND")
	setString(&c.SQLitePath, "SQLITE_PATH")
	setString(&c.RedisAddr, "REDIS_ADDR")
	setString(&c.RedisPassword, "REDIS_PASSWORD")
	setString(&c.LeadQueueKey, "LEAD_QUEUE_KEY")
	setString(&c.GoogleSearchAPIKey, "GOOGLE_SEARCH_API_KEY")
	setString(&c.GoogleSearchEngineID, "GOOGLE_SEARCH_ENGINE_ID")
	setString(&c.DiscordWebhookURL, "DISCORD_WEBHOOK_URL")
	setString(&c.DiscordAppID, "DISCORD_APP_ID")
	setString(&c.DefaultNiche, "DEFAULT_NICHE")
	setBool(&c.UseStrategist, "USE_STRATEGIST")
	setBool(&c.DispatchLeads, "DISPATCH_LEADS")
}

// Validate checks the keys every binary needs.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	switch c.CheckpointBackend {
	case "memory", "sqlite", "postgres", "redis":
	default:
		return fmt.Errorf("unknown checkpoint backend %q", c.CheckpointBackend)
	}
	if c.DispatchLeads && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required when lead dispatch is enabled")
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*dst = parsed
		}
	}
}
