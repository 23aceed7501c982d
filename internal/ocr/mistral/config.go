package mistral

import (
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Config for the Mistral OCR client.
type Config struct {
	APIKey             string        // if empty, falls back to env MISTRAL_API_KEY
	BaseURL            string        // default https://api.mistral.ai/v1
	Model              string        // e.g., "mistral-ocr-latest"
	Timeout            time.Duration // http client timeout
	IncludeImageBase64 bool
	SignedURLExpiry    int // hours; default 24
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("MISTRAL_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mistral.ai/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "mistral-ocr-latest"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.SignedURLExpiry <= 0 {
		cfg.SignedURLExpiry = 24
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Model returns the configured OCR model name.
func (c *Client) Model() string { return c.cfg.Model }
