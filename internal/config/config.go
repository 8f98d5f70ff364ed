// Package config assembles process settings from built-in defaults, an
// optional TOML file named by CONFIG_FILE, and environment variables, in
// that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	EnvConfigFile           = "CONFIG_FILE"
	DefaultCategoryFetchCap = 1000
)

type S3 struct {
	Endpoint       string `toml:"endpoint"`
	PublicEndpoint string `toml:"public_endpoint"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	Region         string `toml:"region"`
	MaxUploadBytes int64  `toml:"max_upload_bytes"`
}

type AI struct {
	Enabled bool   `toml:"enabled"`
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
}

// Notifications are optional moderation alerts sent by the background
// workers.
type Notifications struct {
	WebhookURL      string `toml:"webhook_url"`
	WebhookSecret   string `toml:"webhook_secret"`
	SlackWebhookURL string `toml:"slack_webhook_url"`
}

type RateLimit struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

type Config struct {
	Port              string        `toml:"port"`
	DatabaseURL       string        `toml:"database_url"`
	JWTSecret         string        `toml:"jwt_secret"`
	BaseURL           string        `toml:"base_url"`
	S3                S3            `toml:"s3"`
	AI                AI            `toml:"ai"`
	ProcessingEnabled bool          `toml:"processing_enabled"`
	GeoIPDBPath       string        `toml:"geoip_db_path"`
	LogLevel          string        `toml:"log_level"`
	LogFormat         string        `toml:"log_format"`
	CategoryFetchCap  int           `toml:"category_fetch_cap"`
	PublicRateLimit   RateLimit     `toml:"public_rate_limit"`
	AdminRateLimit    RateLimit     `toml:"admin_rate_limit"`
	Notifications     Notifications `toml:"notifications"`
	DocsEnabled       bool          `toml:"docs_enabled"`
}

func Defaults() Config {
	return Config{
		Port:    "8080",
		BaseURL: "http://localhost:8080",
		S3: S3{
			Endpoint:       "http://localhost:3900",
			Bucket:         "testimonies",
			Region:         "eu-central-1",
			MaxUploadBytes: 4 * 1024 * 1024 * 1024,
		},
		AI: AI{
			Model: "mistral-small-latest",
		},
		LogLevel:         "info",
		LogFormat:        "json",
		CategoryFetchCap: DefaultCategoryFetchCap,
		PublicRateLimit:  RateLimit{RequestsPerSecond: 10, Burst: 30},
		AdminRateLimit:   RateLimit{RequestsPerSecond: 2, Burst: 10},
	}
}

// Load reads the layered configuration. It does not validate; call Validate.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv(EnvConfigFile); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.BaseURL, "BASE_URL")
	setString(&c.S3.Endpoint, "S3_ENDPOINT")
	setString(&c.S3.PublicEndpoint, "S3_PUBLIC_ENDPOINT")
	setString(&c.S3.Bucket, "S3_BUCKET")
	setString(&c.S3.AccessKey, "S3_ACCESS_KEY")
	setString(&c.S3.SecretKey, "S3_SECRET_KEY")
	setString(&c.S3.Region, "S3_REGION")
	setString(&c.AI.BaseURL, "AI_BASE_URL")
	setString(&c.AI.APIKey, "AI_API_KEY")
	setString(&c.AI.Model, "AI_MODEL")
	setString(&c.GeoIPDBPath, "GEOIP_DB_PATH")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")
	setString(&c.Notifications.WebhookURL, "WEBHOOK_URL")
	setString(&c.Notifications.WebhookSecret, "WEBHOOK_SECRET")
	setString(&c.Notifications.SlackWebhookURL, "SLACK_WEBHOOK_URL")

	var errs []error
	errs = append(errs,
		setInt64(&c.S3.MaxUploadBytes, "MAX_UPLOAD_BYTES"),
		setBool(&c.AI.Enabled, "AI_ENABLED"),
		setBool(&c.ProcessingEnabled, "PROCESSING_ENABLED"),
		setBool(&c.DocsEnabled, "API_DOCS_ENABLED"),
		setInt(&c.CategoryFetchCap, "CATEGORY_FETCH_CAP"),
		setFloat(&c.PublicRateLimit.RequestsPerSecond, "RATE_LIMIT_RPS"),
		setInt(&c.PublicRateLimit.Burst, "RATE_LIMIT_BURST"),
	)
	return errors.Join(errs...)
}

// Validate reports every missing or out-of-range setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.CategoryFetchCap < 1 {
		errs = append(errs, fmt.Errorf("CATEGORY_FETCH_CAP must be positive, got %d", c.CategoryFetchCap))
	}
	if c.AI.Enabled && c.AI.BaseURL == "" {
		errs = append(errs, errors.New("AI_BASE_URL is required when AI_ENABLED is true"))
	}
	if c.Notifications.WebhookURL != "" && c.Notifications.WebhookSecret == "" {
		errs = append(errs, errors.New("WEBHOOK_SECRET is required when WEBHOOK_URL is set"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func setInt64(dst *int64, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setInt(dst *int, key string) error {
	n := int64(*dst)
	if err := setInt64(&n, key); err != nil {
		return err
	}
	*dst = int(n)
	return nil
}

func setFloat(dst *float64, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}
