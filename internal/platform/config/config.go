// Package config loads the service settings from an optional YAML file,
// an optional .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App         App         `yaml:"app"`
	Application Application `yaml:"application"`
	Images      Images      `yaml:"images"`
	Database    Database    `yaml:"database"`
	SMTP        SMTP        `yaml:"smtp"`
	JWT         JWT         `yaml:"jwt"`
	Redis       Redis       `yaml:"redis"`
	RateLimit   RateLimit   `yaml:"rate-limit"`
}

type App struct {
	Env      string `yaml:"env"`
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log-level"`
}

type Application struct {
	BaseURLAPI             string        `yaml:"base-url-api"`
	BaseURLFront           string        `yaml:"base-url-front"`
	ImagePathProducts      string        `yaml:"image-path-products"`
	ImagePathStores        string        `yaml:"image-path-stores"`
	ImagePathUsers         string        `yaml:"image-path-users"`
	ImagePathStoresDefault string        `yaml:"image-path-stores-default"`
	RecoveryTokenTTL       time.Duration `yaml:"recovery-token-ttl"`
	MaxImageBytes          int64         `yaml:"max-image-bytes"`
	CatalogCacheTTL        time.Duration `yaml:"catalog-cache-ttl"`
}

// Images mirrors the images.path.users.default key.
type Images struct {
	Path struct {
		Users struct {
			Default string `yaml:"default"`
		} `yaml:"users"`
	} `yaml:"path"`
}

type Database struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max-open-conns"`
	MaxIdleConns    int           `yaml:"max-idle-conns"`
	ConnMaxLifetime time.Duration `yaml:"conn-max-lifetime"`
}

type SMTP struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	TLSMode  string `yaml:"tls-mode"`
}

type JWT struct {
	Secret   string        `yaml:"secret"`
	Issuer   string        `yaml:"issuer"`
	Lifetime time.Duration `yaml:"lifetime"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type RateLimit struct {
	Max    int           `yaml:"max"`
	Window time.Duration `yaml:"window"`
}

// Default returns the settings used when neither file nor environment
// provide a value.
func Default() *Config {
	c := &Config{}
	c.App.Env = "dev"
	c.App.Port = "8080"
	c.App.LogLevel = "info"
	c.Application.ImagePathProducts = "images/products"
	c.Application.ImagePathStores = "images/stores"
	c.Application.ImagePathUsers = "images/users"
	c.Application.RecoveryTokenTTL = time.Hour
	c.Application.MaxImageBytes = 5 << 20
	c.Application.CatalogCacheTTL = 10 * time.Minute
	c.Database.MaxOpenConns = 25
	c.Database.MaxIdleConns = 25
	c.Database.ConnMaxLifetime = 5 * time.Minute
	c.SMTP.Port = 587
	c.SMTP.TLSMode = "auto"
	c.JWT.Issuer = "marketplace-api"
	c.JWT.Lifetime = 24 * time.Hour
	c.RateLimit.Max = 10
	c.RateLimit.Window = time.Minute
	return c
}

// Load reads path (a missing file is skipped), then .env, then the
// environment, and validates the result.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, c); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	_ = godotenv.Load()

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate reports settings the service cannot start without.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if c.Database.URL == "" {
		return errors.New("config: DATABASE_URL is required")
	}
	if c.Application.MaxImageBytes <= 0 {
		return errors.New("config: max image size must be positive")
	}
	if c.Application.RecoveryTokenTTL <= 0 {
		return errors.New("config: RECOVERY_TOKEN_TTL must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("config: rate limit window must be positive")
	}
	return nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"APP_ENV":                   &c.App.Env,
		"APP_PORT":                  &c.App.Port,
		"LOG_LEVEL":                 &c.App.LogLevel,
		"DATABASE_URL":              &c.Database.URL,
		"BASE_URL_API":              &c.Application.BaseURLAPI,
		"BASE_URL_FRONT":            &c.Application.BaseURLFront,
		"IMAGE_PATH_PRODUCTS":       &c.Application.ImagePathProducts,
		"IMAGE_PATH_STORES":         &c.Application.ImagePathStores,
		"IMAGE_PATH_USERS":          &c.Application.ImagePathUsers,
		"IMAGE_PATH_STORES_DEFAULT": &c.Application.ImagePathStoresDefault,
		"IMAGE_PATH_USERS_DEFAULT":  &c.Images.Path.Users.Default,
		"SMTP_HOST":                 &c.SMTP.Host,
		"SMTP_USER":                 &c.SMTP.User,
		"SMTP_PASSWORD":             &c.SMTP.Password,
		"SMTP_FROM":                 &c.SMTP.From,
		"SMTP_TLS_MODE":             &c.SMTP.TLSMode,
		"JWT_SECRET":                &c.JWT.Secret,
		"JWT_ISSUER":                &c.JWT.Issuer,
		"REDIS_ADDR":                &c.Redis.Addr,
		"REDIS_PASSWORD":            &c.Redis.Password,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"SMTP_PORT":      &c.SMTP.Port,
		"REDIS_DB":       &c.Redis.DB,
		"RATE_LIMIT_MAX": &c.RateLimit.Max,
	}
	for key, dst := range ints {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", key, err)
			}
			*dst = n
		}
	}

	if v, ok := os.LookupEnv("MAX_IMAGE_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: MAX_IMAGE_BYTES: %w", err)
		}
		c.Application.MaxImageBytes = n
	}

	durations := map[string]*time.Duration{
		"JWT_LIFETIME":       &c.JWT.Lifetime,
		"RECOVERY_TOKEN_TTL": &c.Application.RecoveryTokenTTL,
		"RATE_LIMIT_WINDOW":  &c.RateLimit.Window,
		"CATALOG_CACHE_TTL":  &c.Application.CatalogCacheTTL,
	}
	for key, dst := range durations {
		if v, ok := os.LookupEnv(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", key, err)
			}
			*dst = d
		}
	}
	return nil
}
