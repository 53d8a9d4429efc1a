package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Extractor backends.
const (
	ExtractorGemini = "gemini"
	ExtractorOpenAI = "openai"
)

type Config struct {
	ListenAddr string

	// GoogleClientID is the OAuth client the extension obtains tokens for;
	// bearer credentials must name it as their audience.
	GoogleClientID string

	// ExtensionID restricts CORS to the installed extension's origin.
	ExtensionID string

	Extractor struct {
		Backend      string
		GeminiAPIKey string
		OpenAIAPIKey string
	}

	// DB.DSN is optional; when empty, usage telemetry is disabled.
	DB struct {
		DSN string
	}

	PrometheusEnabled bool
	TrustedProxies    []string
}

// Load reads configuration from the environment, consulting a .env file
// first when one is present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := &Config{}

	cfg.ListenAddr = getenvDefault("APP_LISTEN_ADDR", ":8080")
	cfg.GoogleClientID = os.Getenv("APP_GOOGLE_CLIENT_ID")
	cfg.ExtensionID = os.Getenv("APP_EXTENSION_ID")

	cfg.Extractor.Backend = getenvDefault("APP_EXTRACTOR", ExtractorGemini)
	cfg.Extractor.GeminiAPIKey = os.Getenv("APP_GEMINI_API_KEY")
	cfg.Extractor.OpenAIAPIKey = os.Getenv("APP_OPENAI_API_KEY")

	cfg.DB.DSN = os.Getenv("APP_DB_DSN")
	if cfg.DB.DSN == "" {
		host := os.Getenv("APP_DB_HOST")
		name := os.Getenv("APP_DB_NAME")
		user := os.Getenv("APP_DB_USER")
		password := os.Getenv("APP_DB_PASSWORD")
		port := getenvDefault("APP_DB_PORT", "5432")
		sslmode := getenvDefault("APP_DB_SSLMODE", "disable")

		if host != "" && name != "" && user != "" && password != "" {
			cfg.DB.DSN = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, password, host, port, name, sslmode)
		}
	}

	cfg.PrometheusEnabled = getenvBool("APP_PROMETHEUS_ENDPOINT_ENABLED", false)
	cfg.TrustedProxies = getenvList("APP_TRUSTED_PROXIES")

	if cfg.GoogleClientID == "" {
		return nil, errors.New("APP_GOOGLE_CLIENT_ID is required")
	}
	if cfg.ExtensionID == "" {
		return nil, errors.New("APP_EXTENSION_ID is required")
	}

	switch cfg.Extractor.Backend {
	case ExtractorGemini:
		if cfg.Extractor.GeminiAPIKey == "" {
			return nil, errors.New("APP_GEMINI_API_KEY is required for the gemini extractor")
		}
	case ExtractorOpenAI:
		if cfg.Extractor.OpenAIAPIKey == "" {
			return nil, errors.New("APP_OPENAI_API_KEY is required for the openai extractor")
		}
	default:
		return nil, fmt.Errorf("unknown extractor backend %q (want %q or %q)", cfg.Extractor.Backend, ExtractorGemini, ExtractorOpenAI)
	}

	if len(cfg.TrustedProxies) == 0 {
		fmt.Println("WARNING: No APP_TRUSTED_PROXIES configured. EventSync will trust all proxies - Not recommended for public environments.")
	}

	return cfg, nil
}

// AllowedOrigin returns the extension origin permitted by CORS.
func (c *Config) AllowedOrigin() string {
	return "chrome-extension://" + c.ExtensionID
}

// TelemetryEnabled reports whether a telemetry database is configured.
func (c *Config) TelemetryEnabled() bool {
	return c.DB.DSN != ""
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return def
}

func getenvList(key string) []string {
	if v := os.Getenv(key); v != "" {
		var result []string
		for _, item := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return nil
}
