package config

import (
	"fmt"
	"time"

	"todoapp/pkg/config"
)

// TasksConfig controls due-date classification.
type TasksConfig struct {
	DueTodayMode string `yaml:"due_today_mode"`
	Timezone     string `yaml:"timezone"`
}

// AuthConfig password hashing settings.
type AuthConfig struct {
	BcryptCost int `yaml:"bcrypt_cost"`
}

type Config struct {
	Server config.ServerConfig `yaml:"server"`
	Log    config.LogConfig    `yaml:"log"`
	Store  config.StoreConfig  `yaml:"store"`
	DB     config.DBConfig     `yaml:"db"`
	Redis  config.RedisConfig  `yaml:"redis"`
	MQ     config.MQConfig     `yaml:"mq"`
	JWT    config.JWTConfig    `yaml:"jwt"`
	CSRF   config.CSRFConfig   `yaml:"csrf"`
	Auth   AuthConfig          `yaml:"auth"`
	Tasks  TasksConfig         `yaml:"tasks"`
}

// Load reads config/<env>.yaml over config/base.yaml, then applies env overrides.
func Load(env, dir string) (*Config, error) {
	raw, err := config.LoadConfig(env, dir)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := config.Decode(raw, &cfg); err != nil {
		return nil, err
	}

	// 环境变量覆盖
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideStoreFromEnv(&cfg.Store)
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideCSRFFromEnv(&cfg.CSRF)

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":3000"
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "sqlite"
	}
	if cfg.JWT.TTL == 0 {
		cfg.JWT.TTL = 24 * time.Hour
	}
	if cfg.CSRF.TTL == 0 {
		cfg.CSRF.TTL = 12 * time.Hour
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Tasks.Timezone == "" {
		cfg.Tasks.Timezone = "UTC"
	}
}

// Validate rejects configs the server cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.CSRF.Secret == "" {
		return fmt.Errorf("csrf.secret is required")
	}
	if _, err := time.LoadLocation(c.Tasks.Timezone); err != nil {
		return fmt.Errorf("tasks.timezone: %w", err)
	}
	switch c.Tasks.DueTodayMode {
	case "", "instant", "calendar_day":
	default:
		return fmt.Errorf("unknown tasks.due_today_mode %q", c.Tasks.DueTodayMode)
	}
	return nil
}
