// Package config loads configuration from environment variables.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all explorer server configuration.
type Config struct {
	// Server
	ListenAddr  string `yaml:"listen_addr"`
	MetricsAddr string `yaml:"metrics_addr"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// TLS (optional, HTTPS when both are set)
	TLSCertFile string `yaml:"tls_cert_file"`
	TLSKeyFile  string `yaml:"tls_key_file"`

	// Entra ID application registration
	ApplicationID     string `yaml:"application_id"`
	ApplicationSecret string `yaml:"application_secret"`
	RedirectURI       string `yaml:"redirect_uri"`
	TenantID          string `yaml:"tenant_id"`
	AuthorityHost     string `yaml:"authority_host"`
	OIDCDiscovery     bool   `yaml:"oidc_discovery"`

	// Sessions
	SessionSecret string        `yaml:"session_secret"`
	SessionMaxAge time.Duration `yaml:"session_max_age"`

	// EphemeralSecret is set when no session secret was configured and a
	// random one was generated.
	EphemeralSecret bool `yaml:"-"`

	// Microsoft Graph
	GraphBaseURL string        `yaml:"graph_base_url"`
	GraphTimeout time.Duration `yaml:"graph_timeout"`

	// Summarization model (OpenAI-compatible, GitHub Models by default)
	ModelToken      string `yaml:"model_token"`
	ModelID         string `yaml:"model_id"`
	ModelBaseURL    string `yaml:"model_base_url"`
	SummaryMaxInput int    `yaml:"summary_max_input_chars"`
}

// Defaults returns a config populated with the documented defaults.
func Defaults() *Config {
	return &Config{
		ListenAddr:      ":8000",
		MetricsAddr:     ":9090",
		LogLevel:        "info",
		LogFormat:       "json",
		RedirectURI:     "http://localhost:8000/auth/callback",
		TenantID:        "common",
		AuthorityHost:   "https://login.microsoftonline.com",
		SessionMaxAge:   14 * 24 * time.Hour,
		GraphBaseURL:    "https://graph.microsoft.com/v1.0",
		GraphTimeout:    60 * time.Second,
		ModelID:         "gpt-4o-mini",
		ModelBaseURL:    "https://models.inference.ai.azure.com",
		SummaryMaxInput: 100000,
	}
}

// Load reads configuration from an optional YAML file (CONFIG_FILE) and
// environment variables. Environment variables take precedence.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.ListenAddr = envOr("LISTEN_ADDR", cfg.ListenAddr)
	cfg.MetricsAddr = envOr("METRICS_ADDR", cfg.MetricsAddr)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envOr("LOG_FORMAT", cfg.LogFormat)
	cfg.TLSCertFile = envOr("TLS_CERT_FILE", cfg.TLSCertFile)
	cfg.TLSKeyFile = envOr("TLS_KEY_FILE", cfg.TLSKeyFile)
	cfg.ApplicationID = envOr("APPLICATION_ID", cfg.ApplicationID)
	cfg.ApplicationSecret = envOr("APPLICATION_SECRET", cfg.ApplicationSecret)
	cfg.RedirectURI = envOr("REDIRECT_URI", cfg.RedirectURI)
	cfg.TenantID = envOr("TENANT_ID", cfg.TenantID)
	cfg.AuthorityHost = strings.TrimRight(envOr("AUTHORITY_HOST", cfg.AuthorityHost), "/")
	cfg.OIDCDiscovery = envBool("OIDC_DISCOVERY", cfg.OIDCDiscovery)
	cfg.SessionSecret = envOr("SESSION_SECRET", cfg.SessionSecret)
	cfg.SessionMaxAge = envDuration("SESSION_MAX_AGE", cfg.SessionMaxAge)
	cfg.GraphBaseURL = strings.TrimRight(envOr("GRAPH_BASE_URL", cfg.GraphBaseURL), "/")
	cfg.GraphTimeout = envDuration("GRAPH_TIMEOUT", cfg.GraphTimeout)
	cfg.ModelToken = envOr("GITHUB_TOKEN", cfg.ModelToken)
	cfg.ModelID = envOr("GITHUB_MODELS_MODEL_ID", cfg.ModelID)
	cfg.ModelBaseURL = envOr("GITHUB_MODELS_BASE_URL", cfg.ModelBaseURL)
	cfg.SummaryMaxInput = envInt("SUMMARY_MAX_INPUT_CHARS", cfg.SummaryMaxInput)

	if cfg.SessionSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		cfg.SessionSecret = secret
		cfg.EphemeralSecret = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings for the web server.
func (c *Config) Validate() error {
	if c.ApplicationID == "" {
		return fmt.Errorf("APPLICATION_ID is required")
	}
	if c.TenantID == "" {
		return fmt.Errorf("TENANT_ID must not be empty")
	}
	if c.SessionMaxAge <= 0 {
		return fmt.Errorf("SESSION_MAX_AGE must be positive")
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	return nil
}

// Authority returns the tenant-scoped login authority URL.
func (c *Config) Authority() string {
	return c.AuthorityHost + "/" + c.TenantID
}

// SecureCookies reports whether session cookies should carry the Secure flag.
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.RedirectURI, "https://")
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
