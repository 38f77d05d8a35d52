package config

import (
	"errors"
	"flag"
	"fmt"
	"github.com/ilyakaznacheev/cleanenv"
	"log/slog"
	"net/url"
	"os"
	"sync"
	"time"
)

const (
	DriverFile   = "file"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

type Config struct {
	API        APIConfig        `yaml:"api"`
	Storage    StorageConfig    `yaml:"storage"`
	Redis      StorageRedis     `yaml:"redis"`
	Inactivity InactivityConfig `yaml:"inactivity"`
	Env        string           `yaml:"env" env:"ENV" env-default:"local"`
}

type APIConfig struct {
	BaseURL     string        `yaml:"base_url" env:"API_BASE_URL" env-default:"http://localhost:8000/api"`
	Timeout     time.Duration `yaml:"timeout" env:"API_TIMEOUT" env-default:"10s"`
	RefreshSkew time.Duration `yaml:"refresh_skew" env:"API_REFRESH_SKEW" env-default:"30s"`
}

type StorageConfig struct {
	Driver    string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"file"`
	Path      string `yaml:"path" env:"STORAGE_PATH"`
	Namespace string `yaml:"namespace" env:"STORAGE_NAMESPACE" env-default:"pharmacy"`
}

type StorageRedis struct {
	Host        string        `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port        string        `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password    string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB          int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	MaxAttempts int           `yaml:"max_attempts" env:"REDIS_MAX_ATTEMPTS" env-default:"5"`
	RefreshTTL  time.Duration `yaml:"refresh_ttl" env:"REDIS_REFRESH_TTL" env-default:"24h"`
}

type InactivityConfig struct {
	Timeout time.Duration `yaml:"timeout" env:"INACTIVITY_TIMEOUT" env-default:"60s"`
	Warning time.Duration `yaml:"warning" env:"INACTIVITY_WARNING" env-default:"20s"`
}

const (
	flagConfigPath = "config"
	envConfigPath  = "CONFIG_PATH"
)

var instance *Config
var once sync.Once

// GetConfig parses the command line once and exits on invalid configuration.
func GetConfig() *Config {
	once.Do(func() {
		var configPath string
		flag.StringVar(&configPath, flagConfigPath, "", "config file path")
		flag.Parse()

		if path, ok := os.LookupEnv(envConfigPath); ok {
			configPath = path
		}

		cfg, err := ReadConfig(configPath)
		if err != nil {
			if desc, errDesc := cleanenv.GetDescription(&Config{}, nil); errDesc == nil {
				slog.Info(desc)
			}
			slog.Error("failed to read config",
				slog.String("err", err.Error()),
				slog.String("path", configPath))
			os.Exit(1)
		}
		instance = cfg
	})
	return instance
}

// ReadConfig reads the yaml file at path (if any), then the environment, which wins.
func ReadConfig(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	u, err := url.Parse(cfg.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", cfg.API.BaseURL)
	}
	switch cfg.Storage.Driver {
	case DriverFile, DriverRedis, DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if cfg.Inactivity.Timeout <= 0 {
		return errors.New("INACTIVITY_TIMEOUT must be positive")
	}
	if cfg.Inactivity.Warning < 0 || cfg.Inactivity.Warning >= cfg.Inactivity.Timeout {
		return errors.New("INACTIVITY_WARNING must be shorter than INACTIVITY_TIMEOUT")
	}
	return nil
}
