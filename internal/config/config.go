// Package config parses the server's YAML configuration.
//
// Example:
//
//	port: 8080
//	database_url: ${DATABASE_URL:-}
//	ai_service_url: ${AI_SERVICE_URL:-}
//	chrome_path: ${CHROME_PATH:-}
//	templates_dir: templates
//	language: en
//	access_token_ttl: 15m
//	refresh_token_ttl: 168h
//
// Every value may be omitted; the server falls back to in-memory storage
// and deterministic composition when the database and AI service are not
// configured.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration. It maps directly to the YAML file.
type Config struct {
	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// DatabaseURL is the Postgres DSN. Empty selects the in-memory store.
	DatabaseURL string `yaml:"database_url"`

	// AIServiceURL is the enhancement service base URL. Empty disables
	// AI enhancement; documents are composed from the profile directly.
	AIServiceURL string `yaml:"ai_service_url"`

	// ChromePath overrides browser discovery for PDF rendering. Empty
	// lets chromedp locate the browser itself; rendering is gated by
	// RenderPDF.
	ChromePath string `yaml:"chrome_path"`

	// TemplatesDir holds resume.html.tmpl, resume.schema.json and
	// style.css. Defaults to "templates".
	TemplatesDir string `yaml:"templates_dir"`

	// Language is the default output language for generated resumes.
	Language string `yaml:"language"`

	// RenderPDF enables headless-Chrome PDF rendering.
	RenderPDF bool `yaml:"render_pdf"`

	AccessTokenTTL  Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL Duration `yaml:"refresh_token_ttl"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with
// environment values. A reference without a default to an unset
// variable is an error.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}
		sub := envVarPattern.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		name := sub[1]
		hasDefault := len(sub) > 2 && sub[2] != ""
		defaultVal := ""
		if hasDefault && len(sub) > 3 {
			defaultVal = sub[3]
		}
		value, exists := os.LookupEnv(name)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", name)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file. A missing file yields
// the defaults rather than an error, so the server can start bare.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Parse(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data, expands environment variables
// and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.TemplatesDir == "" {
		cfg.TemplatesDir = "templates"
	}
	if cfg.AccessTokenTTL == 0 {
		cfg.AccessTokenTTL = Duration(15 * time.Minute)
	}
	if cfg.RefreshTokenTTL == 0 {
		cfg.RefreshTokenTTL = Duration(7 * 24 * time.Hour)
	}

	for _, field := range []*string{&cfg.DatabaseURL, &cfg.AIServiceURL, &cfg.ChromePath, &cfg.TemplatesDir} {
		expanded, err := expandEnvVars(*field)
		if err != nil {
			return nil, err
		}
		*field = expanded
	}

	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port out of range: %d", cfg.Port)
	}
	return &cfg, nil
}
