package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// MissingAPIKeyMessage is printed verbatim when the OCR credential is absent.
const MissingAPIKeyMessage = "Error: MISTRAL_API_KEY environment variable not set"

// Config holds all application configuration
type Config struct {
	Paths       PathsConfig
	OCR         OCRConfig
	Placeholder PlaceholderConfig
	Extract     ExtractConfig
	Ledger      LedgerConfig
	Report      ReportConfig
	Watch       WatchConfig
}

// PathsConfig holds input/output locations
type PathsConfig struct {
	InDir  string
	OutDir string
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine             string // "mistral" | "textlayer"
	APIKey             string
	BaseURL            string
	Model              string
	Timeout            time.Duration
	IncludeImageBase64 bool
	SignedURLExpiry    int // hours
}

// PlaceholderConfig holds placeholder rendering configuration
type PlaceholderConfig struct {
	FontPath string
	FontSize float64
}

// ExtractConfig holds raw PDF image extraction configuration
type ExtractConfig struct {
	Enabled bool
	MinSide int // images smaller than this on either axis are ignored
}

// LedgerConfig holds run-ledger database configuration
type LedgerConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ReportConfig holds batch report configuration
type ReportConfig struct {
	Path string
}

// WatchConfig holds watch-mode configuration
type WatchConfig struct {
	Debounce time.Duration
}

const (
	EngineMistral   = "mistral"
	EngineTextLayer = "textlayer"
)

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			InDir:  getEnv("MOCR_IN_DIR", "./in"),
			OutDir: getEnv("MOCR_OUT_DIR", "./out"),
		},
		OCR: OCRConfig{
			Engine:             strings.ToLower(getEnv("MOCR_ENGINE", EngineMistral)),
			APIKey:             getEnv("MISTRAL_API_KEY", ""),
			BaseURL:            getEnv("MISTRAL_BASE_URL", "https://api.mistral.ai/v1"),
			Model:              getEnv("MISTRAL_OCR_MODEL", "mistral-ocr-latest"),
			Timeout:            getEnvAsDuration("MISTRAL_TIMEOUT", 120*time.Second),
			IncludeImageBase64: getEnvAsBool("MISTRAL_INCLUDE_IMAGE_BASE64", true),
			SignedURLExpiry:    getEnvAsInt("MISTRAL_SIGNED_URL_EXPIRY_HOURS", 24),
		},
		Placeholder: PlaceholderConfig{
			FontPath: getEnv("MOCR_PLACEHOLDER_FONT", ""),
			FontSize: getEnvAsFloat64("MOCR_PLACEHOLDER_FONT_SIZE", 20),
		},
		Extract: ExtractConfig{
			Enabled: getEnvAsBool("MOCR_EXTRACT_PDF_IMAGES", false),
			MinSide: getEnvAsInt("MOCR_PDF_IMAGE_MIN_SIDE", 16),
		},
		Ledger: LedgerConfig{
			DSN:             getEnv("MOCR_LEDGER_DSN", ""),
			MaxConns:        getEnvAsInt32("MOCR_LEDGER_MAX_CONNS", 4),
			MinConns:        getEnvAsInt32("MOCR_LEDGER_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("MOCR_LEDGER_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("MOCR_LEDGER_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("MOCR_LEDGER_DIAL_TIMEOUT", 3*time.Second),
		},
		Report: ReportConfig{
			Path: getEnv("MOCR_REPORT_PATH", ""),
		},
		Watch: WatchConfig{
			Debounce: getEnvAsDuration("MOCR_WATCH_DEBOUNCE", 2*time.Second),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration. The OCR credential is only
// required when the hosted engine will actually be called.
func (c *Config) Validate(dryRun bool) error {
	if !dryRun && c.OCR.Engine == EngineMistral && c.OCR.APIKey == "" {
		return NewAppError("CONFIG_ERROR", MissingAPIKeyMessage, ErrMissingAPIKey)
	}
	switch c.OCR.Engine {
	case EngineMistral, EngineTextLayer:
	default:
		return NewAppError("CONFIG_ERROR", "unknown OCR engine "+strconv.Quote(c.OCR.Engine), ErrInvalidInput)
	}
	if strings.TrimSpace(c.Paths.InDir) == "" {
		return NewAppError("CONFIG_ERROR", "input directory is required", ErrInvalidInput)
	}
	if strings.TrimSpace(c.Paths.OutDir) == "" {
		return NewAppError("CONFIG_ERROR", "output directory is required", ErrInvalidInput)
	}
	return nil
}
