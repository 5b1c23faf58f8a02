package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is built once at startup and handed to constructors; nothing below
// cmd/ reads the environment.
type Config struct {
	Env       string    `yaml:"env" env:"ENV" env-default:"local"`
	BaseURL   string    `yaml:"base_url" env:"BASE_URL"`
	Postgres  Postgres  `yaml:"postgres"`
	Server    Server    `yaml:"server"`
	Session   Session   `yaml:"session"`
	GitHub    GitHub    `yaml:"github"`
	RateLimit RateLimit `yaml:"rate_limit"`
}

type Postgres struct {
	Username        string        `yaml:"username" env:"POSTGRES_USER" env-required:"true"`
	Password        string        `yaml:"password" env:"POSTGRES_PASSWORD" env-required:"true"`
	Host            string        `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port            string        `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	Database        string        `yaml:"database" env:"POSTGRES_DB" env-required:"true"`
	SSLMode         string        `yaml:"sslmode" env:"POSTGRES_SSLMODE" env-default:"disable"`
	MaxOpenConns    int           `yaml:"max_open_conns" env-default:"50"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env-default:"10"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env-default:"5m"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" env-default:"1m"`
}

type Server struct {
	Host         string        `yaml:"host" env:"HTTP_HOST" env-default:"localhost"`
	Port         string        `yaml:"port" env:"PORT" env-default:"8080"`
	Timeout      time.Duration `yaml:"timeout" env-default:"10s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env-default:"60s"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" env-default:"26214400"`
}

type Session struct {
	Secret     string        `yaml:"secret" env:"SECRET_KEY" env-required:"true"`
	CookieName string        `yaml:"cookie_name" env-default:"gitdone_session"`
	TTL        time.Duration `yaml:"ttl" env-default:"168h"`
}

type GitHub struct {
	ClientID      string        `yaml:"client_id" env:"GITHUB_CLIENT_ID"`
	ClientSecret  string        `yaml:"client_secret" env:"GITHUB_CLIENT_SECRET"`
	WebhookSecret string        `yaml:"webhook_secret" env:"GITHUB_WEBHOOK_SECRET" env-required:"true"`
	APIBaseURL    string        `yaml:"api_base_url" env:"GITHUB_API_URL"`
	Timeout       time.Duration `yaml:"timeout" env-default:"5s"`
	HealthTimeout time.Duration `yaml:"health_timeout" env-default:"2s"`
}

type RateLimit struct {
	RPS   float64 `yaml:"rps" env:"RATE_RPS" env-default:"5"`
	Burst int     `yaml:"burst" env:"RATE_BURST" env-default:"20"`
}

func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		return nil, errors.New("CONFIG_PATH is not set")
	}

	return LoadFile(configPath)
}

func LoadFile(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("config file does not exist: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}

	return cfg
}

// DSN renders the lib/pq connection URL.
func (p Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.Username, p.Password, p.Host, p.Port, p.Database, p.SSLMode,
	)
}

// WebhookURL is where GitHub delivers events. Empty when no public base URL
// is configured, which disables hook registration.
func (c *Config) WebhookURL() string {
	if c.BaseURL == "" {
		return ""
	}

	return c.BaseURL + "/api/github-webhook"
}

// PublicBaseURL is used for links in API responses.
func (c *Config) PublicBaseURL() string {
	if c.BaseURL == "" {
		return "http://" + c.Server.Host + ":" + c.Server.Port
	}

	return c.BaseURL
}

// SecureCookies is true when the deployment is served over https.
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.BaseURL, "https")
}
