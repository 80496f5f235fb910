// Package config loads the server configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/PaulFidika/projectkit/core"
	oidckit "github.com/PaulFidika/projectkit/oidc"
	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

// Config is the full server configuration.
type Config struct {
	TenantID       string        `env:"AZURE_TENANT_ID,required,notEmpty"`
	ClientID       string        `env:"AZURE_CLIENT_ID,required,notEmpty"`
	ClientSecret   string        `env:"AZURE_CLIENT_SECRET"`
	Audience       string        `env:"AZURE_AUDIENCE"`
	Authority      string        `env:"AZURE_AUTHORITY" envDefault:"https://login.microsoftonline.com"`
	KeysTimeout    time.Duration `env:"AZURE_KEYS_TIMEOUT" envDefault:"10s"`
	KeysTTL        time.Duration `env:"AZURE_KEYS_TTL" envDefault:"1h"`
	ClockLeeway    time.Duration `env:"AZURE_CLOCK_LEEWAY" envDefault:"0s"`
	UseDiscovery   bool          `env:"AZURE_USE_DISCOVERY" envDefault:"false"`
	AdminGroup     string        `env:"AZURE_ADMIN_GROUP_ID"`
	ManagerGroup   string        `env:"AZURE_MANAGER_GROUP_ID"`
	DeveloperGroup string        `env:"AZURE_DEVELOPER_GROUP_ID"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	Migrate        bool          `env:"DATABASE_MIGRATE" envDefault:"false"`
	RedisURL       string        `env:"REDIS_URL"`
	HTTPAddr       string        `env:"HTTP_ADDR" envDefault:":8000"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string        `env:"LOG_FORMAT" envDefault:"text"`
	ReadPerMin     int           `env:"RATE_LIMIT_READ_PER_MINUTE" envDefault:"300"`
	WritePerMin    int           `env:"RATE_LIMIT_WRITE_PER_MINUTE" envDefault:"60"`
	ProvisionTTL   time.Duration `env:"PROVISION_CACHE_TTL" envDefault:"10m"`
	ShutdownGrace  time.Duration `env:"SHUTDOWN_GRACE" envDefault:"15s"`
}

// Load parses the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if c.KeysTimeout <= 0 || c.KeysTTL <= 0 {
		return fmt.Errorf("AZURE_KEYS_TIMEOUT and AZURE_KEYS_TTL must be positive")
	}
	if c.ReadPerMin <= 0 || c.WritePerMin <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	return nil
}

// OIDC returns the verifier configuration.
func (c Config) OIDC(log logrus.FieldLogger) oidckit.Config {
	return oidckit.Config{
		TenantID:     c.TenantID,
		ClientID:     c.ClientID,
		Audience:     c.Audience,
		Authority:    c.Authority,
		FetchTimeout: c.KeysTimeout,
		CacheTTL:     c.KeysTTL,
		Leeway:       c.ClockLeeway,
		Logger:       log,
	}
}

// Roles returns the group-to-role mapping.
func (c Config) Roles() core.RoleResolver {
	return core.RoleResolver{
		AdminGroupID:     c.AdminGroup,
		ManagerGroupID:   c.ManagerGroup,
		DeveloperGroupID: c.DeveloperGroup,
	}
}

// Logger builds the process logger.
func (c Config) Logger() *logrus.Logger {
	log := logrus.New()
	if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	if strings.EqualFold(c.LogFormat, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// Database is the subset of configuration the migrate command needs.
type Database struct {
	URL string `env:"DATABASE_URL,required,notEmpty"`
}

// LoadDatabase parses only the database settings.
func LoadDatabase() (Database, error) {
	var db Database
	if err := env.Parse(&db); err != nil {
		return Database{}, fmt.Errorf("parse env: %w", err)
	}
	return db, nil
}

// TokenScope is the client-credentials scope for calling this API.
func (c Config) TokenScope() string {
	resource := c.Audience
	if resource == "" {
		resource = "api://" + c.ClientID
	}
	return strings.TrimSuffix(resource, "/") + "/.default"
}

// TokenURL is the provider's v2 token endpoint for the tenant.
func (c Config) TokenURL() string {
	return strings.TrimSuffix(c.Authority, "/") + "/" + c.TenantID + "/oauth2/v2.0/token"
}
