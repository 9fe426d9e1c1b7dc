// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override, e.g. CARDKEY_DATABASE_URL.
const EnvPrefix = "CARDKEY"

// LegacyCardSalt keeps fingerprints compatible with cards issued by the
// previous deployment. Change it only together with a full re-issue.
const LegacyCardSalt = "xiaoxiaoguai_card_system_2024"

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port         int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	CORSOrigins  []string      `yaml:"cors_origins" envconfig:"CORS_ORIGINS"`
}

type LogConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`       // trace|debug|info|warn|error
	Format   string `yaml:"format" envconfig:"FORMAT"`     // json|console
	Sampling bool   `yaml:"sampling" envconfig:"SAMPLING"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url" envconfig:"URL"`
	MaxConns int32  `yaml:"max_conns" envconfig:"MAX_CONNS"`
}

type RedisConfig struct {
	URL      string        `yaml:"url" envconfig:"URL"`
	Password string        `yaml:"password" envconfig:"PASSWORD"`
	DB       int           `yaml:"db" envconfig:"DB"`
	TTL      time.Duration `yaml:"ttl" envconfig:"TTL"`
}

type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret" envconfig:"JWT_SECRET"`
	TokenTTL      time.Duration `yaml:"token_ttl" envconfig:"TOKEN_TTL"`
	BcryptCost    int           `yaml:"bcrypt_cost" envconfig:"BCRYPT_COST"`
	AdminUsername string        `yaml:"admin_username" envconfig:"ADMIN_USERNAME"`
	AdminPassword string        `yaml:"admin_password" envconfig:"ADMIN_PASSWORD"`
	LoginPerMin   int           `yaml:"login_per_minute" envconfig:"LOGIN_PER_MINUTE"`
}

type SecurityConfig struct {
	CardSalt string `yaml:"card_salt" envconfig:"CARD_SALT"`
}

type VerifyConfig struct {
	StoreTimeout       time.Duration `yaml:"store_timeout" envconfig:"STORE_TIMEOUT"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute" envconfig:"RATE_LIMIT_PER_MINUTE"`
	Locale             string        `yaml:"locale" envconfig:"LOCALE"`
}

type SchedulerConfig struct {
	StatsInterval time.Duration `yaml:"stats_interval" envconfig:"STATS_INTERVAL"`
}

type EventsConfig struct {
	NATSURL string `yaml:"nats_url" envconfig:"NATS_URL"`
	Subject string `yaml:"subject" envconfig:"SUBJECT"`
}

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled" envconfig:"ENABLED"`
	ServiceName string `yaml:"service_name" envconfig:"SERVICE_NAME"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Log       LogConfig       `yaml:"log" envconfig:"LOG"`
	Database  DatabaseConfig  `yaml:"database" envconfig:"DATABASE"`
	Redis     RedisConfig     `yaml:"redis" envconfig:"REDIS"`
	Auth      AuthConfig      `yaml:"auth" envconfig:"AUTH"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Verify    VerifyConfig    `yaml:"verify" envconfig:"VERIFY"`
	Scheduler SchedulerConfig `yaml:"scheduler" envconfig:"SCHEDULER"`
	Events    EventsConfig    `yaml:"events" envconfig:"EVENTS"`
	Tracing   TracingConfig   `yaml:"tracing" envconfig:"TRACING"`

	Runtime RuntimeConfig `yaml:"-" ignored:"true"`
}

// LoadConfig parses -config and -dev and loads the configuration from there.
func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()
	return Load(configPath, dev)
}

// Load reads .env (optional), then the YAML file (optional when absent), then
// applies CARDKEY_* environment overrides, defaults and validation.
func Load(configPath string, dev bool) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	b, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env-only deployment
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (c *Config) normalize() {
	if c.Server.Port <= 0 {
		c.Server.Port = 3000
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	c.Redis.TTL = normalizeTTL(c.Redis.TTL)
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Auth.BcryptCost <= 0 {
		c.Auth.BcryptCost = 10
	}
	if c.Auth.AdminUsername == "" {
		c.Auth.AdminUsername = "admin"
	}
	if c.Auth.LoginPerMin <= 0 {
		c.Auth.LoginPerMin = 10
	}
	if c.Security.CardSalt == "" {
		c.Security.CardSalt = LegacyCardSalt
	}
	if c.Verify.StoreTimeout <= 0 {
		c.Verify.StoreTimeout = 3 * time.Second
	}
	if c.Verify.Locale == "" {
		c.Verify.Locale = "zh"
	}
	if c.Scheduler.StatsInterval <= 0 {
		c.Scheduler.StatsInterval = time.Minute
	}
	if c.Events.Subject == "" {
		c.Events.Subject = "card.verified"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "cardkey-service"
	}
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Verify.RateLimitPerMinute < 0 {
		return errors.New("verify.rate_limit_per_minute must not be negative")
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
