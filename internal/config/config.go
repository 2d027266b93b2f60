package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string

	// Processor (hosted checkout) settings.
	TossClientKey   string
	CheckoutBaseURL string

	// Base URL the processor redirects back to. The success and failure
	// return paths are derived from it.
	ReturnBaseURL string

	// Ledger (backend confirmation) settings.
	LedgerBaseURL  string
	ConfirmTimeout time.Duration

	// Circuit breaker guarding the ledger confirmation endpoint.
	CircuitConfirmMinReq      int
	CircuitConfirmFailureRate float64
	CircuitConfirmOpenFor     time.Duration

	IdempotencyTTL  time.Duration
	RateLimitWindow time.Duration
	RateLimitMax    int

	// Settlement notification delivery.
	NotifyEnabled     bool
	NotifyFromAddress string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		TossClientKey:   k.String("TOSS_CLIENT_KEY"),
		CheckoutBaseURL: strings.TrimSpace(k.String("CHECKOUT_BASE_URL")),
		ReturnBaseURL:   valueOrDefault(strings.TrimSpace(k.String("RETURN_BASE_URL")), "http://localhost:8080"),

		LedgerBaseURL:  strings.TrimSpace(k.String("LEDGER_BASE_URL")),
		ConfirmTimeout: parseDuration(k.String("CONFIRM_TIMEOUT"), "10s"),

		CircuitConfirmMinReq:      parseInt(k.String("CIRCUIT_CONFIRM_MIN_REQUESTS"), 5),
		CircuitConfirmFailureRate: parseFloat(k.String("CIRCUIT_CONFIRM_FAILURE_RATE"), 0.5),
		CircuitConfirmOpenFor:     parseDuration(k.String("CIRCUIT_CONFIRM_OPEN_FOR"), "30s"),

		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		RateLimitWindow: parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:    parseInt(k.String("RATE_LIMIT_MAX"), 30),

		NotifyEnabled:     parseBool(valueOrDefault(k.String("NOTIFY_ENABLED"), "true")),
		NotifyFromAddress: valueOrDefault(k.String("NOTIFY_FROM_ADDRESS"), "no-reply@points.local"),
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.TossClientKey == "" {
		return nil, errors.New("TOSS_CLIENT_KEY is required")
	}
	if cfg.LedgerBaseURL == "" {
		return nil, errors.New("LEDGER_BASE_URL is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// SuccessReturnURL is the application-owned URL the processor redirects to on success.
func (c *Config) SuccessReturnURL() string {
	return strings.TrimRight(c.ReturnBaseURL, "/") + "/payments/success"
}

// FailReturnURL is the application-owned URL the processor redirects to on failure.
func (c *Config) FailReturnURL() string {
	return strings.TrimRight(c.ReturnBaseURL, "/") + "/payments/fail"
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	var parsed int
	if _, err := fmt.Sscanf(trimmed, "%d", &parsed); err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	var parsed float64
	if _, err := fmt.Sscanf(trimmed, "%g", &parsed); err != nil {
		return fallback
	}
	return parsed
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
