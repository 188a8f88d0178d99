package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const devJWTSecret = "profileapp-dev-secret"

// Config holds the application configuration.
type Config struct {
	Env        string `yaml:"env" env:"APP_ENV" env-default:"development"`
	ServerPort int    `yaml:"port" env:"PORT" env-default:"8080"`
	LogLevel   string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	DatabasePath     string `yaml:"database_path" env:"DATABASE_PATH" env-default:"./profileapp.db"`
	SeedDemoProfiles bool   `yaml:"seed_demo_profiles" env:"SEED_DEMO_PROFILES" env-default:"true"`

	Upload UploadConfig `yaml:"upload"`
	Auth   AuthConfig   `yaml:"auth"`
	HTTP   HTTPConfig   `yaml:"http"`
	Redis  RedisConfig  `yaml:"redis"`
	Jobs   JobsConfig   `yaml:"jobs"`
}

// UploadConfig controls where profile images land and how they are served.
type UploadConfig struct {
	Dir             string `yaml:"dir" env:"UPLOAD_DIR" env-default:"./uploads"`
	MaxBytes        int64  `yaml:"max_bytes" env:"MAX_UPLOAD_BYTES" env-default:"5242880"`
	PublicBaseURL   string `yaml:"public_base_url" env:"PUBLIC_BASE_URL"`
	DefaultImageURL string `yaml:"default_image_url" env:"DEFAULT_IMAGE_URL" env-default:"https://images.unsplash.com/photo-1517841905240-472988babdf9?w=500&h=500&fit=crop"`
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"TOKEN_TTL" env-default:"24h"`
}

// HTTPConfig holds settings for the public HTTP server.
type HTTPConfig struct {
	AllowedOrigins []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000,http://localhost:5173"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"15s"`
}

// RedisConfig is optional; an empty address disables the profile cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	CacheTTL time.Duration `yaml:"cache_ttl" env:"PROFILE_CACHE_TTL" env-default:"10m"`
}

// JobsConfig holds cron specs for background maintenance.
type JobsConfig struct {
	UploadSweepSchedule string        `yaml:"upload_sweep_schedule" env:"UPLOAD_SWEEP_SCHEDULE" env-default:"@every 1h"`
	UploadOrphanGrace   time.Duration `yaml:"upload_orphan_grace" env:"UPLOAD_ORPHAN_GRACE" env-default:"1h"`
	TokenPurgeSchedule  string        `yaml:"token_purge_schedule" env:"TOKEN_PURGE_SCHEDULE" env-default:"@every 6h"`
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads an optional YAML file named by CONFIG_PATH, overlays environment
// variables and applies defaults.
func Load() (*Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %q: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid PORT %d", c.ServerPort)
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.Auth.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		c.Auth.JWTSecret = devJWTSecret
	}
	return nil
}
