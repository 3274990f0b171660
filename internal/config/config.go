// Package config loads the storefront CLI configuration.
//
// Sources, highest priority first:
//  1. an explicit --config path;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. environment variables only.
//
// Environment variables always overlay whatever file was read.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type StoreKind string

const (
	StoreFile   StoreKind = "file"
	StoreSQLite StoreKind = "sqlite"
	StoreRedis  StoreKind = "redis"
	StoreMemory StoreKind = "memory"
)

type Config struct {
	Env   string      `yaml:"env" env:"STOREFRONT_ENV" env-default:"local"`
	API   APIConfig   `yaml:"api"`
	Store StoreConfig `yaml:"store"`
}

// APIConfig locates the storefront API and bounds calls to it.
type APIConfig struct {
	BaseURL        string        `yaml:"base_url"        env:"STOREFRONT_API_URL"         env-default:"http://127.0.0.1:8000/api"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"STOREFRONT_REQUEST_TIMEOUT" env-default:"30s"`
	RefreshTimeout time.Duration `yaml:"refresh_timeout" env:"STOREFRONT_REFRESH_TIMEOUT" env-default:"10s"`
	SignInRoute    string        `yaml:"sign_in_route"   env:"STOREFRONT_SIGN_IN_ROUTE"   env-default:"/login"`
}

// StoreConfig picks where the session is kept between invocations. Path is
// the credential file for "file" and the database for "sqlite".
type StoreConfig struct {
	Kind        StoreKind `yaml:"kind"         env:"STOREFRONT_STORE"        env-default:"file"`
	Path        string    `yaml:"path"         env:"STOREFRONT_STORE_PATH"`
	RedisAddr   string    `yaml:"redis_addr"   env:"STOREFRONT_REDIS_ADDR"   env-default:"127.0.0.1:6379"`
	RedisPrefix string    `yaml:"redis_prefix" env:"STOREFRONT_REDIS_PREFIX" env-default:"storefront:session"`
}

// SessionPath returns the configured store path, or a file under the user
// config directory named for the store kind.
func (s StoreConfig) SessionPath() (string, error) {
	if s.Path != "" {
		return s.Path, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("couldn't locate config directory: %w", err)
	}
	name := "session.json"
	if s.Kind == StoreSQLite {
		name = "session.db"
	}
	return filepath.Join(dir, "storefront", name), nil
}

func (c *Config) Validate() error {
	switch c.Store.Kind {
	case StoreFile, StoreSQLite, StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}
	if c.API.RequestTimeout <= 0 || c.API.RefreshTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

	readFile := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		return validated(&cfg)
	}

	if path != "" {
		return readFile(path)
	}
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return readFile(envPath)
	}
	if _, err := os.Stat("local.yaml"); err == nil {
		return readFile("local.yaml")
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env: %w", err)
	}
	return validated(&cfg)
}

func validated(cfg *Config) (*Config, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
