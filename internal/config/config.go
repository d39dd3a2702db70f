package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the analysis service and CLI.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Logging   LoggingConfig   `yaml:"logging"`
	Policy    PolicyConfig    `yaml:"policy"`
	Cache     CacheConfig     `yaml:"cache"`
}

// ServerConfig controls gRPC listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address" validate:"required"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout" validate:"gte=0"`
}

// StorageConfig selects where snapshot logs live.
type StorageConfig struct {
	Driver string `yaml:"driver" validate:"oneof=sqlite memory"`
	Path   string `yaml:"path" validate:"required_if=Driver sqlite"`
}

// ExtractorConfig selects how free text becomes structured fields.
type ExtractorConfig struct {
	Provider string        `yaml:"provider" validate:"oneof=labeled gemini http"`
	Model    string        `yaml:"model"`
	APIKey   string        `yaml:"apiKey" validate:"required_if=Provider gemini"`
	BaseURL  string        `yaml:"baseURL" validate:"required_if=Provider http"`
	Path     string        `yaml:"path"`
	Timeout  time.Duration `yaml:"timeout" validate:"gte=0"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// PolicyConfig points at the YAML policy pack with evaluation thresholds
// and experiment templates.
type PolicyConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig controls the Valkey connection used for the latest-snapshot
// cache and the cross-process analysis lock.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr" validate:"required_if=Enabled true"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db" validate:"gte=0"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	LatestTTL    time.Duration `yaml:"latestTTL"`
	LockTTL      time.Duration `yaml:"lockTTL"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("REALITYCHECK_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   "data/realitycheck.db",
		},
		Extractor: ExtractorConfig{
			Provider: "labeled",
			Model:    "gemini-2.0-flash",
			Path:     "/v1/extract",
			Timeout:  30 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Policy:  PolicyConfig{Path: "configs/policy/default.yaml"},
		Cache: CacheConfig{
			Enabled:      false,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
			LatestTTL:    5 * time.Minute,
			LockTTL:      2 * time.Minute,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REALITYCHECK_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("REALITYCHECK_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("REALITYCHECK_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("REALITYCHECK_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("REALITYCHECK_EXTRACTOR_PROVIDER"); v != "" {
		cfg.Extractor.Provider = v
	}
	if v := os.Getenv("REALITYCHECK_EXTRACTOR_MODEL"); v != "" {
		cfg.Extractor.Model = v
	}
	if v := os.Getenv("REALITYCHECK_EXTRACTOR_BASE_URL"); v != "" {
		cfg.Extractor.BaseURL = v
	}
	if v := os.Getenv("REALITYCHECK_EXTRACTOR_PATH"); v != "" {
		cfg.Extractor.Path = v
	}
	if v := os.Getenv("REALITYCHECK_EXTRACTOR_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Extractor.Timeout = d
		}
	}
	// GEMINI_API_KEY is the variable the genai SDK documents; the prefixed
	// one wins when both are set.
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Extractor.APIKey = v
	}
	if v := os.Getenv("REALITYCHECK_EXTRACTOR_API_KEY"); v != "" {
		cfg.Extractor.APIKey = v
	}
	if v := os.Getenv("REALITYCHECK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("REALITYCHECK_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("REALITYCHECK_POLICY_PATH"); v != "" {
		cfg.Policy.Path = v
	}
	if v := os.Getenv("REALITYCHECK_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("REALITYCHECK_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("REALITYCHECK_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("REALITYCHECK_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("REALITYCHECK_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("REALITYCHECK_CACHE_TLS"); strings.EqualFold(v, "true") || strings.EqualFold(v, "1") {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("REALITYCHECK_CACHE_DIAL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.DialTimeout = d
		}
	}
	if v := os.Getenv("REALITYCHECK_CACHE_MAX_RETRIES"); v != "" {
		if retry, err := strconv.Atoi(v); err == nil {
			cfg.Cache.MaxRetries = retry
		}
	}
	if v := os.Getenv("REALITYCHECK_CACHE_LATEST_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.LatestTTL = d
		}
	}
	if v := os.Getenv("REALITYCHECK_CACHE_LOCK_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.LockTTL = d
		}
	}
}
