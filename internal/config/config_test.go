package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APPLICATION_ID", "app-123")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TENANT_ID", "")
	t.Setenv("SESSION_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TenantID != "common" {
		t.Errorf("expected tenant common, got %q", cfg.TenantID)
	}
	if cfg.Authority() != "https://login.microsoftonline.com/common" {
		t.Errorf("unexpected authority %q", cfg.Authority())
	}
	if cfg.ModelID != "gpt-4o-mini" {
		t.Errorf("expected default model, got %q", cfg.ModelID)
	}
	if len(cfg.SessionSecret) != 64 {
		t.Errorf("expected generated 32-byte hex secret, got %d chars", len(cfg.SessionSecret))
	}
	if cfg.SecureCookies() {
		t.Error("http redirect URI should not produce secure cookies")
	}
}

func TestLoadRequiresApplicationID(t *testing.T) {
	t.Setenv("APPLICATION_ID", "")
	t.Setenv("CONFIG_FILE", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without APPLICATION_ID")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("APPLICATION_ID", "app")
	t.Setenv("TENANT_ID", "contoso")
	t.Setenv("SESSION_MAX_AGE", "2h")
	t.Setenv("GRAPH_BASE_URL", "http://graph.local/v1.0/")
	t.Setenv("SUMMARY_MAX_INPUT_CHARS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TenantID != "contoso" {
		t.Errorf("expected contoso, got %q", cfg.TenantID)
	}
	if cfg.SessionMaxAge != 2*time.Hour {
		t.Errorf("expected 2h, got %v", cfg.SessionMaxAge)
	}
	if cfg.GraphBaseURL != "http://graph.local/v1.0" {
		t.Errorf("trailing slash not trimmed: %q", cfg.GraphBaseURL)
	}
	if cfg.SummaryMaxInput != 100000 {
		t.Errorf("invalid int should fall back to default, got %d", cfg.SummaryMaxInput)
	}
}

func TestLoadYAMLFileWithEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "explorer.yaml")
	content := "application_id: from-file\nredirect_uri: https://explorer.example.com/auth/callback\nmodel_id: gpt-4o\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("APPLICATION_ID", "")
	t.Setenv("REDIRECT_URI", "")
	t.Setenv("GITHUB_MODELS_MODEL_ID", "phi-4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ApplicationID != "from-file" {
		t.Errorf("expected application id from file, got %q", cfg.ApplicationID)
	}
	if cfg.ModelID != "phi-4" {
		t.Errorf("env should win over file, got %q", cfg.ModelID)
	}
	if !cfg.SecureCookies() {
		t.Error("https redirect URI should produce secure cookies")
	}
}

func TestValidateTLSPair(t *testing.T) {
	cfg := Defaults()
	cfg.ApplicationID = "app"
	cfg.TLSCertFile = "cert.pem"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when only the certificate is set")
	}
}
