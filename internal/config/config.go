package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Log          LogConfig          `yaml:"log"`
	Confirmation ConfirmationConfig `yaml:"confirmation"`
	Cache        CacheConfig        `yaml:"cache"`
	Relay        RelayConfig        `yaml:"relay"`
	CORS         CORSConfig         `yaml:"cors"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_seconds"`
}

// RedisConfig enables the confirmation event stream. Empty URL disables it.
type RedisConfig struct {
	URL    string `yaml:"url"`
	Stream string `yaml:"stream"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// Hash policies for confirmation messages.
const (
	// HashPolicyFresh assigns a new random hash to every confirmation message.
	HashPolicyFresh = "fresh"
	// HashPolicySubscriber reuses the subscriber's stored hash.
	HashPolicySubscriber = "subscriber"
)

// ConfirmationConfig holds the confirmation email identity and template.
type ConfirmationConfig struct {
	Subject       string `yaml:"subject"`
	FromName      string `yaml:"from_name"`
	FromEmail     string `yaml:"from_email"`
	Template      string `yaml:"template"`
	TemplatePath  string `yaml:"template_path"`
	ConfirmURL    string `yaml:"confirm_url"`
	HashPolicy    string `yaml:"hash_policy"`
	OpenTracking  *bool  `yaml:"open_tracking"`
	ClickTracking *bool  `yaml:"click_tracking"`
}

// TrackingEnabled returns the open and click tracking flags for
// confirmation messages. Both default to on.
func (c ConfirmationConfig) TrackingEnabled() (open, click bool) {
	return boolOr(c.OpenTracking, true), boolOr(c.ClickTracking, true)
}

// RedactEnabled reports whether emails are masked in logs. Defaults to on.
func (c LogConfig) RedactEnabled() bool { return boolOr(c.RedactPII, true) }

// ConnMaxLifetimeDuration returns the pool connection lifetime.
func (c DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(c.ConnMaxLifetime) * time.Second
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

// CacheConfig controls the email service lookup cache.
type CacheConfig struct {
	EmailServiceTTLSeconds int `yaml:"email_service_ttl_seconds"`
}

// EmailServiceTTL returns the cache TTL. Zero disables caching.
func (c CacheConfig) EmailServiceTTL() time.Duration {
	return time.Duration(c.EmailServiceTTLSeconds) * time.Second
}

// RelayConfig holds provider endpoints and timeouts for the relay.
type RelayConfig struct {
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
	SparkPostBaseURL string `yaml:"sparkpost_base_url"`
	MailgunBaseURL   string `yaml:"mailgun_base_url"`
	SendGridBaseURL  string `yaml:"sendgrid_base_url"`
	SESRegion        string `yaml:"ses_region"`
}

// Timeout returns the configured timeout as a duration
func (c RelayConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CORSConfig holds the allowed browser origins for the public endpoints.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Defaults for the confirmation message identity.
const (
	DefaultConfirmationSubject   = "Confirm registration to our mailing list"
	DefaultConfirmationFromName  = "Developer & Designers Italia mailing list"
	DefaultConfirmationFromEmail = "no-reply@developers.italia.it"
	DefaultConfirmationTemplate  = `<p>Hi{% if first_name != "" %} {{ first_name }}{% endif %},</p>
<p>please confirm your subscription by following this link:</p>
<p><a href="{{ confirmation_url }}">{{ confirmation_url }}</a></p>`
)

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects settings that would otherwise fall back silently.
func (cfg *Config) validate() error {
	switch cfg.Confirmation.HashPolicy {
	case HashPolicyFresh, HashPolicySubscriber:
		return nil
	default:
		return fmt.Errorf("confirmation.hash_policy: unknown value %q (want %q or %q)",
			cfg.Confirmation.HashPolicy, HashPolicyFresh, HashPolicySubscriber)
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 20
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 300
	}
	if cfg.Redis.Stream == "" {
		cfg.Redis.Stream = "subscriber:events"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Confirmation.Subject == "" {
		cfg.Confirmation.Subject = DefaultConfirmationSubject
	}
	if cfg.Confirmation.FromName == "" {
		cfg.Confirmation.FromName = DefaultConfirmationFromName
	}
	if cfg.Confirmation.FromEmail == "" {
		cfg.Confirmation.FromEmail = DefaultConfirmationFromEmail
	}
	if cfg.Confirmation.Template == "" && cfg.Confirmation.TemplatePath == "" {
		cfg.Confirmation.Template = DefaultConfirmationTemplate
	}
	if cfg.Confirmation.HashPolicy == "" {
		cfg.Confirmation.HashPolicy = HashPolicyFresh
	}
	if cfg.Relay.TimeoutSeconds == 0 {
		cfg.Relay.TimeoutSeconds = 30
	}
	if cfg.Relay.SparkPostBaseURL == "" {
		cfg.Relay.SparkPostBaseURL = "https://api.sparkpost.com/api/v1"
	}
	if cfg.Relay.MailgunBaseURL == "" {
		cfg.Relay.MailgunBaseURL = "https://api.mailgun.net/v3"
	}
	if cfg.Relay.SendGridBaseURL == "" {
		cfg.Relay.SendGridBaseURL = "https://api.sendgrid.com/v3"
	}
	if cfg.Relay.SESRegion == "" {
		cfg.Relay.SESRegion = "us-east-1"
	}
}

// ConfirmationTemplate returns the template source, reading TemplatePath
// when set.
func (c ConfirmationConfig) ConfirmationTemplate() (string, error) {
	if c.TemplatePath == "" {
		return c.Template, nil
	}
	data, err := os.ReadFile(c.TemplatePath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) before reading env vars, so secrets
// can live in .env locally and in real env vars in production. A missing
// config file is not an error: defaults plus env are enough to run.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if os.IsNotExist(err) {
		cfg = &Config{}
		cfg.applyDefaults()
	} else if err != nil {
		return nil, err
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Redis.URL = redisURL
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if v := os.Getenv("CONFIRMATION_SUBJECT"); v != "" {
		cfg.Confirmation.Subject = v
	}
	if v := os.Getenv("CONFIRMATION_FROM_NAME"); v != "" {
		cfg.Confirmation.FromName = v
	}
	if v := os.Getenv("CONFIRMATION_FROM_EMAIL"); v != "" {
		cfg.Confirmation.FromEmail = v
	}
	if v := os.Getenv("CONFIRMATION_URL"); v != "" {
		cfg.Confirmation.ConfirmURL = v
	}
	if v := os.Getenv("CONFIRMATION_HASH_POLICY"); v != "" {
		cfg.Confirmation.HashPolicy = v
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
