package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.TemplatesDir != "templates" {
		t.Errorf("TemplatesDir = %q, want templates", cfg.TemplatesDir)
	}
	if cfg.AccessTokenTTL.Duration() != 15*time.Minute {
		t.Errorf("AccessTokenTTL = %s, want 15m", cfg.AccessTokenTTL.Duration())
	}
	if cfg.RefreshTokenTTL.Duration() != 7*24*time.Hour {
		t.Errorf("RefreshTokenTTL = %s, want 168h", cfg.RefreshTokenTTL.Duration())
	}
}

func TestParseFullConfig(t *testing.T) {
	yaml := `
port: 9090
database_url: postgres://localhost/resumes
ai_service_url: http://ai:8000
templates_dir: /opt/templates
language: pt
render_pdf: true
access_token_ttl: 30m
refresh_token_ttl: 24h
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://localhost/resumes" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if !cfg.RenderPDF {
		t.Error("RenderPDF not set")
	}
	if cfg.AccessTokenTTL.Duration() != 30*time.Minute {
		t.Errorf("AccessTokenTTL = %s", cfg.AccessTokenTTL.Duration())
	}
}

func TestParseExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_DB_URL", "postgres://db/prod")

	cfg, err := Parse([]byte("database_url: ${TEST_DB_URL}\nai_service_url: ${TEST_UNSET_AI:-http://fallback}\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.DatabaseURL != "postgres://db/prod" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.AIServiceURL != "http://fallback" {
		t.Errorf("AIServiceURL = %q, want the default", cfg.AIServiceURL)
	}
}

func TestParseUnsetEnvVarWithoutDefault(t *testing.T) {
	if _, err := Parse([]byte("database_url: ${DEFINITELY_NOT_SET_ANYWHERE}\n")); err == nil {
		t.Fatal("expected an error for an unset variable without a default")
	}
}

func TestParseEmptyDefault(t *testing.T) {
	cfg, err := Parse([]byte("database_url: ${ALSO_NOT_SET:-}\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want empty", cfg.DatabaseURL)
	}
}

func TestParseInvalidDuration(t *testing.T) {
	if _, err := Parse([]byte("access_token_ttl: soon\n")); err == nil {
		t.Fatal("expected an error for an invalid duration")
	}
}

func TestParseInvalidPort(t *testing.T) {
	if _, err := Parse([]byte("port: 70000\n")); err == nil {
		t.Fatal("expected an error for an out-of-range port")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want default", cfg.Port)
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: 8181\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8181 {
		t.Errorf("Port = %d, want 8181", cfg.Port)
	}
}
