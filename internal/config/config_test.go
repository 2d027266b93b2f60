package config

import (
	"testing"
	"time"
)

func baseEnv() map[string]string {
	return map[string]string{
		"REDIS_URL":       "redis://localhost:6379/0",
		"TOSS_CLIENT_KEY": "test_ck_1",
		"LEDGER_BASE_URL": "http://ledger.local",
		"APP_ENV":         "",
		"PORT":            "",
		"RETURN_BASE_URL": "",
		"CONFIRM_TIMEOUT": "",
		"RATE_LIMIT_MAX":  "",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AppEnv != "development" {
		t.Fatalf("unexpected app env: %q", cfg.AppEnv)
	}
	if cfg.HTTPAddr() != ":8080" {
		t.Fatalf("unexpected addr: %q", cfg.HTTPAddr())
	}
	if cfg.ConfirmTimeout != 10*time.Second {
		t.Fatalf("unexpected confirm timeout: %s", cfg.ConfirmTimeout)
	}
	if cfg.RateLimitMax != 30 {
		t.Fatalf("unexpected rate limit: %d", cfg.RateLimitMax)
	}
}

func TestLoadRequiredVariables(t *testing.T) {
	for _, missing := range []string{"REDIS_URL", "TOSS_CLIENT_KEY", "LEDGER_BASE_URL"} {
		env := baseEnv()
		env[missing] = ""
		if _, err := LoadForTests(env); err == nil {
			t.Fatalf("expected error when %s is missing", missing)
		}
	}
}

func TestReturnURLDerivation(t *testing.T) {
	env := baseEnv()
	env["RETURN_BASE_URL"] = "https://points.example.com/"
	cfg, err := LoadForTests(env)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SuccessReturnURL() != "https://points.example.com/payments/success" {
		t.Fatalf("unexpected success url: %q", cfg.SuccessReturnURL())
	}
	if cfg.FailReturnURL() != "https://points.example.com/payments/fail" {
		t.Fatalf("unexpected fail url: %q", cfg.FailReturnURL())
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	env := baseEnv()
	env["CONFIRM_TIMEOUT"] = "3s"
	env["RATE_LIMIT_MAX"] = "5"
	env["CORS_ALLOWED_ORIGINS"] = "https://a.example, https://b.example"
	cfg, err := LoadForTests(env)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ConfirmTimeout != 3*time.Second {
		t.Fatalf("override ignored: %s", cfg.ConfirmTimeout)
	}
	if cfg.RateLimitMax != 5 {
		t.Fatalf("override ignored: %d", cfg.RateLimitMax)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %v", cfg.CORSAllowedOrigins)
	}
}
