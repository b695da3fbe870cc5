package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(map[string]string{
			"API_FIREBASE_PROJECT_ID": "demo-project",
		}),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Fatalf("unexpected read timeout %v", cfg.Server.ReadTimeout)
	}
	if cfg.Firestore.ProjectID != "demo-project" {
		t.Fatalf("firestore project should default to firebase project, got %q", cfg.Firestore.ProjectID)
	}
	if cfg.Events.ProjectID != "demo-project" {
		t.Fatalf("events project should default to firestore project, got %q", cfg.Events.ProjectID)
	}
	if cfg.Events.Enabled {
		t.Fatal("event publishing should be disabled by default")
	}
	if cfg.Events.OrderTopic != "order-events" || cfg.Events.ReviewTopic != "review-events" {
		t.Fatalf("unexpected default topics %q %q", cfg.Events.OrderTopic, cfg.Events.ReviewTopic)
	}
	if !cfg.Features.EnableCoupons {
		t.Fatal("coupons should be enabled by default")
	}
}

func TestLoadEnvMapOverrides(t *testing.T) {
	cfg, err := Load(
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(map[string]string{
			"API_SERVER_PORT":            "9090",
			"API_SERVER_READ_TIMEOUT":    "5s",
			"API_FIREBASE_PROJECT_ID":    "demo-project",
			"API_FIRESTORE_PROJECT_ID":   "store-project",
			"API_EVENTS_ENABLED":         "true",
			"API_EVENTS_ORDER_TOPIC":     "orders-topic",
			"API_RATELIMIT_AUTH_PER_MIN": "60",
			"API_FEATURE_COUPONS":        "off",
		}),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Fatalf("expected read timeout 5s, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Firestore.ProjectID != "store-project" {
		t.Fatalf("expected explicit firestore project, got %q", cfg.Firestore.ProjectID)
	}
	if !cfg.Events.Enabled || cfg.Events.OrderTopic != "orders-topic" {
		t.Fatalf("unexpected events config %+v", cfg.Events)
	}
	if cfg.RateLimits.AuthenticatedPerMinute != 60 {
		t.Fatalf("expected auth rate limit 60, got %d", cfg.RateLimits.AuthenticatedPerMinute)
	}
	if cfg.Features.EnableCoupons {
		t.Fatal("coupons should be disabled by override")
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# local overrides\nexport API_FIREBASE_PROJECT_ID=dotenv-project\nAPI_SERVER_PORT=\"7070\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(WithoutSystemEnv(), WithEnvFile(path))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Firebase.ProjectID != "dotenv-project" {
		t.Fatalf("expected project from dotenv, got %q", cfg.Firebase.ProjectID)
	}
	if cfg.Server.Port != "7070" {
		t.Fatalf("expected quoted port value to be unwrapped, got %q", cfg.Server.Port)
	}
}

func TestLoadValidation(t *testing.T) {
	_, err := Load(WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error without a project id")
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	fields := verr.Fields()
	if len(fields) == 0 {
		t.Fatal("expected at least one missing field")
	}
}
