// Package config loads the server configuration from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/padelhub/gamenight/go/internal/auth"
	"github.com/padelhub/gamenight/go/internal/dbconfig"
	"github.com/padelhub/gamenight/go/internal/draw"
	"github.com/padelhub/gamenight/go/internal/gateway"
	"github.com/padelhub/gamenight/go/internal/leaderboard"
	"github.com/padelhub/gamenight/go/internal/notify"
	"github.com/padelhub/gamenight/go/internal/scheduler"
	"github.com/padelhub/gamenight/go/internal/store"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	AuthJWT    = "jwt"
	AuthHeader = "header"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Storage     StorageConfig     `yaml:"storage"`
	Auth        AuthConfig        `yaml:"auth"`
	Draw        draw.Config       `yaml:"draw"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
	Notify      NotifyConfig      `yaml:"notify"`
	Scheduler   scheduler.Config  `yaml:"scheduler"`
	Gateway     gateway.Config    `yaml:"gateway"`
}

type ServerConfig struct {
	Port            string        `yaml:"port" env:"PORT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Pretty bool   `yaml:"pretty" env:"LOG_PRETTY"`
}

type StorageConfig struct {
	Driver   string          `yaml:"driver" env:"STORAGE_DRIVER"`
	Migrate  bool            `yaml:"migrate" env:"DB_MIGRATE"`
	Database dbconfig.Config `yaml:"database"`
	Policy   store.Policy    `yaml:"policy"`
}

type AuthConfig struct {
	Mode string         `yaml:"mode" env:"AUTH_MODE"`
	JWT  auth.JWTConfig `yaml:"jwt"`
}

type LeaderboardConfig struct {
	Settings    leaderboard.Config `yaml:",inline"`
	WinWeight   float64            `yaml:"win_weight"`
	DeltaWeight float64            `yaml:"delta_weight"`
}

// EngineConfig returns the engine settings with the configured weights.
func (c LeaderboardConfig) EngineConfig() leaderboard.Config {
	cfg := c.Settings
	cfg.Strategy = leaderboard.Weighted{WinWeight: c.WinWeight, DeltaWeight: c.DeltaWeight}
	return cfg
}

type NotifyConfig struct {
	Dispatcher notify.DispatcherConfig `yaml:"dispatcher"`
	// JetStream publishing is skipped unless enabled.
	JetStreamEnabled bool                   `yaml:"jetstream_enabled" env:"NATS_ENABLED"`
	JetStream        notify.JetStreamConfig `yaml:"jetstream"`
}

// Default returns the configuration used for anything the file and
// environment leave unset.
func Default() *Config {
	lb := leaderboard.DefaultConfig()
	weights := leaderboard.DefaultStrategy()
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Log: LogConfig{Level: "info"},
		Storage: StorageConfig{
			Driver:   StorageMemory,
			Database: dbconfig.Default(),
			Policy:   store.DefaultPolicy(),
		},
		Auth:        AuthConfig{Mode: AuthJWT, JWT: auth.JWTConfig{Leeway: 30 * time.Second}},
		Draw:        draw.DefaultConfig(),
		Leaderboard: LeaderboardConfig{Settings: lb, WinWeight: weights.WinWeight, DeltaWeight: weights.DeltaWeight},
		Notify: NotifyConfig{
			Dispatcher: notify.DefaultDispatcherConfig(),
			JetStream:  notify.DefaultJetStreamConfig(),
		},
		Scheduler: scheduler.Config{Workers: 2},
		Gateway:   gateway.DefaultConfig(),
	}
}

// Load reads path over the defaults, then applies environment variables.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that would otherwise fail at startup.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case StorageMemory, StoragePostgres:
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver))
	}
	switch c.Auth.Mode {
	case AuthJWT:
		if c.Auth.JWT.Secret == "" {
			errs = append(errs, errors.New("auth.jwt.secret: required when auth.mode is jwt"))
		}
	case AuthHeader:
	default:
		errs = append(errs, fmt.Errorf("auth.mode: unknown mode %q", c.Auth.Mode))
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Storage.Policy.MaxTries == 0 {
		errs = append(errs, errors.New("storage.policy.max_tries: must be positive"))
	}
	return errors.Join(errs...)
}
