package openai

import (
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Config for the OpenAI extraction client.
type Config struct {
	APIKey        string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL       string        // default https://api.openai.com/v1
	Model         string        // e.g. "gpt-4o-mini"
	Temperature   float32       // 0..2
	PromptVersion string        // tagged onto every artifact's provider block
	Timeout       time.Duration // http client timeout
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.PromptVersion == "" {
		cfg.PromptVersion = "v3"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

// PromptVersion returns the configured prompt tag.
func (c *Client) PromptVersion() string { return c.cfg.PromptVersion }
