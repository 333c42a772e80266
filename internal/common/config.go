package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"examextractor/constants"
)

// Config holds all application configuration
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
	Cache   CacheConfig   `yaml:"cache"`
	LLM     LLMConfig     `yaml:"llm"`
}

// StorageConfig holds persistence-related configuration
type StorageConfig struct {
	Path        string        `yaml:"path"`
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
}

// CacheConfig holds artifact-cache behavior configuration
type CacheConfig struct {
	ExtractionTTL time.Duration `yaml:"extraction_ttl"`
	PredictionTTL time.Duration `yaml:"prediction_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	ReplayEnabled bool          `yaml:"replay_enabled"`
}

// LLMConfig holds extraction-provider configuration
type LLMConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Model         string        `yaml:"model"`
	APIKey        string        `yaml:"-"`
	Temperature   float32       `yaml:"temperature"`
	PromptVersion string        `yaml:"prompt_version"`
	Timeout       time.Duration `yaml:"timeout"`
}

// LoadConfig loads configuration from environment variables. If path is
// non-empty, the YAML file there is read first and env vars override it.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Storage: StorageConfig{
			Path:        "./data/examextractor.db",
			BusyTimeout: 5 * time.Second,
		},
		Server: ServerConfig{
			GRPCAddr: ":8080",
		},
		Cache: CacheConfig{
			ExtractionTTL: constants.DefaultExtractionTTL,
			PredictionTTL: constants.DefaultPredictionTTL,
			SweepInterval: 0,
		},
		LLM: LLMConfig{
			BaseURL:       "https://api.openai.com/v1",
			Model:         "gpt-4o-mini",
			Temperature:   0.0,
			PromptVersion: "v3",
			Timeout:       90 * time.Second,
		},
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError("CONFIG_ERROR", fmt.Sprintf("read config file %s", path), err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "parse config file", err)
		}
	}

	cfg.Storage.Path = getEnv("STORE_PATH", cfg.Storage.Path)
	cfg.Storage.BusyTimeout = getEnvAsDuration("STORE_BUSY_TIMEOUT", cfg.Storage.BusyTimeout)
	cfg.Server.GRPCAddr = getEnv("GRPC_ADDR", cfg.Server.GRPCAddr)
	cfg.Cache.ExtractionTTL = getEnvAsDuration("EXTRACTION_TTL", cfg.Cache.ExtractionTTL)
	cfg.Cache.PredictionTTL = getEnvAsDuration("PREDICTION_TTL", cfg.Cache.PredictionTTL)
	cfg.Cache.SweepInterval = getEnvAsDuration("SWEEP_INTERVAL", cfg.Cache.SweepInterval)
	cfg.Cache.ReplayEnabled = getEnvAsBool("REPLAY_ENABLED", cfg.Cache.ReplayEnabled)
	cfg.LLM.BaseURL = getEnv("OPENAI_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.Model = getEnv("OPENAI_MODEL", cfg.LLM.Model)
	cfg.LLM.APIKey = getEnv("OPENAI_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.Temperature = getEnvAsFloat32("OPENAI_TEMPERATURE", cfg.LLM.Temperature)
	cfg.LLM.PromptVersion = getEnv("PROMPT_VERSION", cfg.LLM.PromptVersion)
	cfg.LLM.Timeout = getEnvAsDuration("OPENAI_TIMEOUT", cfg.LLM.Timeout)

	return cfg, nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.Storage.Path == "" {
		return NewAppError("CONFIG_ERROR", "STORE_PATH is required", ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "GRPC_ADDR is required", ErrInvalidInput)
	}
	if c.Cache.ExtractionTTL < 0 || c.Cache.PredictionTTL < 0 {
		return NewAppError("CONFIG_ERROR", "TTLs must be non-negative", ErrInvalidInput)
	}
	return nil
}
