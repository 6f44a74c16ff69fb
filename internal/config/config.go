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

// Config defines client configuration.
type Config struct {
	API    APIConfig    `yaml:"api"`
	Push   PushConfig   `yaml:"push"`
	Poll   PollConfig   `yaml:"poll"`
	DB     DBConfig     `yaml:"db"`
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
}

// APIConfig points at the blueprint backend.
type APIConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Token       string        `yaml:"token"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff"`
}

// PushConfig configures the status websocket. An empty URL disables push and
// leaves polling as the only status source.
type PushConfig struct {
	URL string `yaml:"url"`
}

type PollConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type ServerConfig struct {
	Transport string `yaml:"transport"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		API: APIConfig{
			Timeout:     15 * time.Second,
			MaxAttempts: 3,
			Backoff:     200 * time.Millisecond,
		},
		Poll: PollConfig{
			Interval: 3 * time.Second,
		},
		DB: DBConfig{
			Path: "blueprint.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Transport: "stdio",
			Host:      "127.0.0.1",
			Port:      8080,
		},
	}
}

// Load reads configuration from an optional .env file, an optional YAML file
// named by BLUEPRINT_CONFIG_PATH and BLUEPRINT_* environment variables, in
// that order of increasing precedence.
func Load() (Config, error) {
	envFile := os.Getenv("BLUEPRINT_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load env file: %w", err)
		}
	}

	cfg := Default()
	if path := os.Getenv("BLUEPRINT_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no command can run with.
func (c Config) Validate() error {
	var errs []error
	switch c.Server.Transport {
	case "stdio", "http":
	default:
		errs = append(errs, fmt.Errorf("server.transport must be stdio or http, got %q", c.Server.Transport))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.API.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("api.max_attempts must be at least 1"))
	}
	return errors.Join(errs...)
}

func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"BLUEPRINT_API_BASE_URL":     &cfg.API.BaseURL,
		"BLUEPRINT_API_TOKEN":        &cfg.API.Token,
		"BLUEPRINT_PUSH_URL":         &cfg.Push.URL,
		"BLUEPRINT_DB_PATH":          &cfg.DB.Path,
		"BLUEPRINT_LOG_LEVEL":        &cfg.Log.Level,
		"BLUEPRINT_SERVER_TRANSPORT": &cfg.Server.Transport,
		"BLUEPRINT_SERVER_HOST":      &cfg.Server.Host,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"BLUEPRINT_API_MAX_ATTEMPTS": &cfg.API.MaxAttempts,
		"BLUEPRINT_SERVER_PORT":      &cfg.Server.Port,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"BLUEPRINT_API_TIMEOUT":   &cfg.API.Timeout,
		"BLUEPRINT_API_BACKOFF":   &cfg.API.Backoff,
		"BLUEPRINT_POLL_INTERVAL": &cfg.Poll.Interval,
	}
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
