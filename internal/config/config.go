package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Run modes selected by app.mode.
const (
	ModeScrape = "scrape"
	ModeClean  = "clean"
	ModeServe  = "serve"
	ModeAll    = "all"
)

var Modes = []string{ModeScrape, ModeClean, ModeServe, ModeAll}

// Where the clean stage reads listings from.
const (
	SourceFiles    = "files"
	SourceDatabase = "database"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Output   OutputConfig   `mapstructure:"output"`
	Database DatabaseConfig `mapstructure:"database"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Server   ServerConfig   `mapstructure:"server"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type AppConfig struct {
	Mode string `mapstructure:"mode"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// ScraperConfig holds store website configuration
type ScraperConfig struct {
	BaseURL              string   `mapstructure:"base_url"`
	BrandsPath           string   `mapstructure:"brands_path"`
	UserAgent            string   `mapstructure:"user_agent"`
	Timeout              int      `mapstructure:"timeout"`
	MaxRetries           int      `mapstructure:"max_retries"`
	MaxWorkers           int      `mapstructure:"max_workers"`
	MaxRequestsPerSecond int      `mapstructure:"max_requests_per_second"`
	SaveInterval         int      `mapstructure:"save_interval"`
	Proxies              []string `mapstructure:"proxies"`
}

// PipelineConfig controls the cleaning run
type PipelineConfig struct {
	Source             string   `mapstructure:"source"`
	InputGlob          string   `mapstructure:"input_glob"`
	Workers            int      `mapstructure:"workers"`
	ChunkSize          int      `mapstructure:"chunk_size"`
	Interval           int      `mapstructure:"interval"` // seconds between runs in all mode
	ExcludedCategories []string `mapstructure:"excluded_categories"`
}

// OutputConfig controls file exports of a cleaning run
type OutputConfig struct {
	Dir  string `mapstructure:"dir"`
	CSV  bool   `mapstructure:"csv"`
	XLSX bool   `mapstructure:"xlsx"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN is the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Password      string `mapstructure:"password"`
	Database      int    `mapstructure:"database"`
	ConsumerGroup string `mapstructure:"consumer_group"`
	StreamPrefix  string `mapstructure:"stream_prefix"`
	MinIdleTime   int    `mapstructure:"min_idle_time"`
}

// ServerConfig holds dashboard API configuration
type ServerConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load loads configuration from config.yaml in the working directory with
// .env and environment variable overrides. A missing config.yaml leaves
// the defaults in place.
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom reads config.yaml and .env from dir.
func LoadFrom(dir string) (*Config, error) {
	if err := godotenv.Load(dir + "/.env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	if !slices.Contains(Modes, c.App.Mode) {
		return fmt.Errorf("invalid app.mode %q, want one of %s", c.App.Mode, strings.Join(Modes, ", "))
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid database.driver %q, want postgres or sqlite", c.Database.Driver)
	}
	switch c.Pipeline.Source {
	case SourceFiles, SourceDatabase:
	default:
		return fmt.Errorf("invalid pipeline.source %q, want %s or %s", c.Pipeline.Source, SourceFiles, SourceDatabase)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.mode", ModeClean)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("scraper.base_url", "https://www.sephora.com")
	v.SetDefault("scraper.brands_path", "/brands-list")
	v.SetDefault("scraper.user_agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	v.SetDefault("scraper.timeout", 30)
	v.SetDefault("scraper.max_retries", 3)
	v.SetDefault("scraper.max_workers", 4)
	v.SetDefault("scraper.max_requests_per_second", 2)
	v.SetDefault("scraper.save_interval", 10)
	v.SetDefault("scraper.proxies", []string{})

	v.SetDefault("pipeline.source", SourceFiles)
	v.SetDefault("pipeline.input_glob", "./data/products/*.json")
	v.SetDefault("pipeline.workers", 0)
	v.SetDefault("pipeline.chunk_size", 512)
	v.SetDefault("pipeline.interval", 600)
	v.SetDefault("pipeline.excluded_categories", []string{
		"Accessories",
		"Value & Gift Sets",
		"Beauty Tools",
		"High Tech Tools",
		"Wellness",
		"Hair Tools",
		"Tools",
		"Brushes & Applicators",
		"Other Needs",
	})

	v.SetDefault("output.dir", "./data")
	v.SetDefault("output.csv", true)
	v.SetDefault("output.xlsx", false)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "unitprice")
	v.SetDefault("database.user", "unitprice_user")
	v.SetDefault("database.password", "unitprice_pass")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("sqlite.path", "./data/products.db")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.consumer_group", "unitprice_consumer")
	v.SetDefault("redis.stream_prefix", "unitprice:stream:")
	v.SetDefault("redis.min_idle_time", 120)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 10)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
