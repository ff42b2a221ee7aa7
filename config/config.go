// File: /config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server          ServerConfig          `koanf:"server"`
	Database        DatabaseConfig        `koanf:"database"`
	Auth            AuthConfig            `koanf:"auth"`
	Geocoder        GeocoderConfig        `koanf:"geocoder"`
	Email           EmailConfig           `koanf:"email"`
	Pagination      PaginationConfig      `koanf:"pagination"`
	Recommendations RecommendationsConfig `koanf:"recommendations"`
	Validation      ValidationConfig      `koanf:"validation"`
	RateLimit       RateLimitConfig       `koanf:"rate_limit"`
	Logging         LoggingConfig         `koanf:"logging"`
	CORS            CORSConfig            `koanf:"cors"`
}

type ServerConfig struct {
	Port            string        `koanf:"port"`
	Mode            string        `koanf:"mode"` // debug, release, test
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver string `koanf:"driver"` // mysql or sqlite
	DSN    string `koanf:"dsn"`
	Debug  bool   `koanf:"debug"`
}

type AuthConfig struct {
	JWTSecret          string        `koanf:"jwt_secret"`
	TokenTTL           time.Duration `koanf:"token_ttl"`
	ActivationRequired bool          `koanf:"activation_required"`
	ActivationTTL      time.Duration `koanf:"activation_ttl"`
	CleanupInterval    time.Duration `koanf:"cleanup_interval"`
}

type GeocoderConfig struct {
	APIKey     string        `koanf:"api_key"`
	BaseURL    string        `koanf:"base_url"`
	Timeout    time.Duration `koanf:"timeout"`
	MaxRetries uint64        `koanf:"max_retries"`
}

type EmailConfig struct {
	Enabled       bool   `koanf:"enabled"`
	SMTPHost      string `koanf:"smtp_host"`
	SMTPPort      int    `koanf:"smtp_port"`
	SMTPUsername  string `koanf:"smtp_username"`
	SMTPPassword  string `koanf:"smtp_password"`
	UseSSL        bool   `koanf:"use_ssl"`
	FromEmail     string `koanf:"from_email"`
	FromName      string `koanf:"from_name"`
	ActivationURL string `koanf:"activation_url"` // contains {uid} and {token}
}

type PaginationConfig struct {
	PageSize int `koanf:"page_size"`
}

type RecommendationsConfig struct {
	// Limit caps the recommendation list; 0 keeps every matching event.
	Limit int `koanf:"limit"`
}

type ValidationConfig struct {
	// StrictBirthYear rejects implied ages outside [5, 120].
	StrictBirthYear bool `koanf:"strict_birth_year"`
}

type RateLimitConfig struct {
	Enabled           bool `koanf:"enabled"`
	RequestsPerMinute int  `koanf:"requests_per_minute"`
	Burst             int  `koanf:"burst"`
	// LoginPerMinute caps login attempts per client IP.
	LoginPerMinute int `koanf:"login_per_minute"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

const ConfigPathEnvVar = "CONFIG_PATH"

var DefaultConfigPaths = []string{"config.yaml", "config.yml", "/etc/eventhub/config.yaml"}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Mode:            "debug",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "mysql",
			DSN:    "user:password@tcp(localhost:3306)/eventhub?charset=utf8mb4&parseTime=True&loc=Local",
		},
		Auth: AuthConfig{
			JWTSecret:          "your-secret-key",
			TokenTTL:           7 * 24 * time.Hour,
			ActivationRequired: true,
			ActivationTTL:      24 * time.Hour,
			CleanupInterval:    time.Hour,
		},
		Geocoder: GeocoderConfig{
			BaseURL:    "https://geocode-maps.yandex.ru/1.x/",
			Timeout:    5 * time.Second,
			MaxRetries: 2,
		},
		Email: EmailConfig{
			Enabled:       true,
			SMTPHost:      "localhost",
			SMTPPort:      465,
			UseSSL:        true,
			FromEmail:     "noreply@eventhub.local",
			FromName:      "EventHub",
			ActivationURL: "http://localhost:3000/#/activation/{uid}/{token}",
		},
		Pagination: PaginationConfig{PageSize: 10},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 120,
			Burst:             30,
			LoginPerMinute:    10,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		CORS:    CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

// Load merges struct defaults, an optional YAML file and environment
// variables, in that order of precedence (env wins).
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := splitCommaList(k, "cors.allowed_origins"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// legacyEnv keeps the flat variable names deployments already use.
var legacyEnv = map[string]string{
	"port":          "server.port",
	"database_url":  "database.dsn",
	"db_driver":     "database.driver",
	"jwt_secret":    "auth.jwt_secret",
	"api_key":       "geocoder.api_key",
	"smtp_host":     "email.smtp_host",
	"smtp_port":     "email.smtp_port",
	"smtp_username": "email.smtp_username",
	"smtp_password": "email.smtp_password",
	"from_email":    "email.from_email",
	"from_name":     "email.from_name",
	"log_level":     "logging.level",
	"log_format":    "logging.format",
}

var sections = []string{
	"server", "database", "auth", "geocoder", "email", "pagination",
	"recommendations", "validation", "rate_limit", "logging", "cors",
}

// envTransformFunc maps SECTION_KEY_NAME to section.key_name. Variables that
// belong to no known section are dropped.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)
	if mapped, ok := legacyEnv[key]; ok {
		return mapped
	}
	for _, s := range sections {
		if strings.HasPrefix(key, s+"_") {
			return s + "." + strings.TrimPrefix(key, s+"_")
		}
	}
	return ""
}

func splitCommaList(k *koanf.Koanf, path string) error {
	raw, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if err := k.Set(path, out); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be mysql or sqlite, got %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.Pagination.PageSize <= 0 {
		errs = append(errs, errors.New("pagination.page_size must be positive"))
	}
	if c.Recommendations.Limit < 0 {
		errs = append(errs, errors.New("recommendations.limit must not be negative"))
	}
	if c.Geocoder.Timeout <= 0 {
		errs = append(errs, errors.New("geocoder.timeout must be positive"))
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("rate_limit.requests_per_minute must be positive"))
	}
	if c.Email.Enabled && c.Auth.ActivationRequired && !strings.Contains(c.Email.ActivationURL, "{token}") {
		errs = append(errs, errors.New("email.activation_url must contain {token}"))
	}

	return errors.Join(errs...)
}
