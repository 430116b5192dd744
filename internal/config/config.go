package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/example/lingoprogress/internal/progress"
)

// Storage drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Effects   EffectsConfig   `mapstructure:"effects"`
}

type AppConfig struct {
	Mode     string `mapstructure:"mode"`
	LogFile  string `mapstructure:"log_file"`
	Timezone string `mapstructure:"timezone"`
}

type StorageConfig struct {
	Driver        string `mapstructure:"driver"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	Key           string `mapstructure:"key"`
}

type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

type SchedulerConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CheckpointInterval time.Duration `mapstructure:"checkpoint_interval"`
	ReminderTime       string        `mapstructure:"reminder_time"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type EffectsConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// Location resolves App.Timezone. Load has already validated it.
func (c *Config) Location() *time.Location {
	if c.App.Timezone == "" || c.App.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Load reads dir/.env and dir/config.yaml (both optional) and applies
// environment overrides on top of the defaults.
func Load(dir string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetDefault("app.mode", "release")
	v.SetDefault("app.log_file", "logs/progress.log")
	v.SetDefault("app.timezone", "Local")
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.sqlite_path", "data/progress.db")
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.redis_db", 0)
	v.SetDefault("storage.key", progress.StorageKey)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.checkpoint_interval", "30s")
	v.SetDefault("scheduler.reminder_time", "18:00")
	v.SetDefault("effects.timeout", "5s")

	// App
	v.BindEnv("app.mode", "APP_MODE")
	v.BindEnv("app.log_file", "LOG_FILE")
	v.BindEnv("app.timezone", "APP_TIMEZONE")

	// Storage
	v.BindEnv("storage.driver", "DB_TYPE")
	v.BindEnv("storage.sqlite_path", "SQLITE_PATH")
	v.BindEnv("storage.postgres_dsn", "POSTGRES_DSN")
	v.BindEnv("storage.redis_addr", "REDIS_ADDR")
	v.BindEnv("storage.redis_password", "REDIS_PASSWORD")
	v.BindEnv("storage.redis_db", "REDIS_DB")
	v.BindEnv("storage.key", "PROGRESS_KEY")

	// Telegram
	v.BindEnv("telegram.token", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID")

	// Scheduler
	v.BindEnv("scheduler.enabled", "ENABLE_SCHEDULER")
	v.BindEnv("scheduler.checkpoint_interval", "CHECKPOINT_INTERVAL")
	v.BindEnv("scheduler.reminder_time", "REMINDER_TIME")

	// Metrics
	v.BindEnv("metrics.addr", "METRICS_ADDR")

	// Effects
	v.BindEnv("effects.timeout", "EFFECT_TIMEOUT")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverSQLite, DriverPostgres, DriverRedis:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == DriverPostgres && c.Storage.PostgresDSN == "" {
		return errors.New("storage.postgres_dsn is required for the postgres driver")
	}
	if c.Storage.Key == "" {
		return errors.New("storage.key must not be empty")
	}
	if _, err := time.Parse("15:04", c.Scheduler.ReminderTime); err != nil {
		return fmt.Errorf("invalid reminder_time %q, want HH:MM", c.Scheduler.ReminderTime)
	}
	if c.Scheduler.CheckpointInterval <= 0 {
		return fmt.Errorf("checkpoint_interval must be positive, got %s", c.Scheduler.CheckpointInterval)
	}
	if c.App.Timezone != "" && c.App.Timezone != "Local" {
		if _, err := time.LoadLocation(c.App.Timezone); err != nil {
			return fmt.Errorf("unknown timezone %q: %w", c.App.Timezone, err)
		}
	}
	return nil
}
