// Package config provides configuration management for inkwell.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultListenAddr is the default HTTP listen address.
	DefaultListenAddr = ":8080"

	// DefaultMaxConns is the default maximum number of open connections.
	DefaultMaxConns = 10

	// DefaultConnMaxLifetime bounds how long a pooled connection is reused.
	DefaultConnMaxLifetime = 1 * time.Hour

	// DefaultConnMaxIdleTime bounds how long an idle connection is kept.
	DefaultConnMaxIdleTime = 10 * time.Minute
)

// SupportedDrivers are the database backends inkwell can connect to.
var SupportedDrivers = []string{"sqlite", "postgres", "mysql"}

// Database holds database connection settings.
type Database struct {
	// Driver selects the backend: sqlite, postgres or mysql.
	Driver string `yaml:"driver"`

	// DSN is the full connection string. When set it takes precedence
	// over the discrete fields below.
	DSN string `yaml:"dsn"`

	// Discrete connection fields, used when DSN is empty.
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`

	// Path is the database file path for the sqlite driver.
	Path string `yaml:"path"`

	// Pool settings.
	MaxConns        int           `yaml:"max_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// Config holds the application configuration.
type Config struct {
	ListenAddr string   `yaml:"listen_addr"`
	LogLevel   string   `yaml:"log_level"`
	Database   Database `yaml:"database"`
}

// Default returns a configuration with sensible defaults for local use.
func Default() *Config {
	return &Config{
		ListenAddr: DefaultListenAddr,
		LogLevel:   "info",
		Database: Database{
			Driver:          "sqlite",
			Path:            "inkwell.db",
			MaxConns:        DefaultMaxConns,
			ConnMaxLifetime: DefaultConnMaxLifetime,
			ConnMaxIdleTime: DefaultConnMaxIdleTime,
		},
	}
}

// Load reads configuration from an optional YAML file, then applies
// environment overrides. A missing file is not an error; a malformed
// file is. An .env file in the working directory is loaded first so
// INKWELL_* variables can live there during development.
func Load(path string) (*Config, error) {
	// Best effort: absence of .env is the normal case.
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays INKWELL_* environment variables onto the config.
func applyEnv(cfg *Config) {
	if v := os.Getenv("INKWELL_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("INKWELL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("INKWELL_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("INKWELL_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("INKWELL_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("INKWELL_DB_MAX_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Database.MaxConns = n
		}
	}
}

// Validate checks the configuration for basic correctness.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported database driver %q (supported: %v)", c.Database.Driver, SupportedDrivers)
	}

	if c.Database.Driver == "sqlite" && c.Database.DSN == "" && c.Database.Path == "" {
		return fmt.Errorf("sqlite driver requires database.path or database.dsn")
	}
	if c.Database.Driver != "sqlite" && c.Database.DSN == "" && c.Database.Host == "" {
		return fmt.Errorf("%s driver requires database.dsn or database.host", c.Database.Driver)
	}
	return nil
}

// BuildDSN returns the connection string for the configured backend.
// An explicit DSN wins; otherwise one is assembled from the discrete
// fields using each driver's native format.
func (d Database) BuildDSN() string {
	if d.DSN != "" {
		return d.DSN
	}

	switch d.Driver {
	case "sqlite":
		// Foreign keys are off by default in SQLite; the schema relies on them.
		return d.Path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON"

	case "postgres":
		host := d.Host
		if d.Port != 0 {
			host = fmt.Sprintf("%s:%d", d.Host, d.Port)
		}
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(d.User, d.Password),
			Host:   host,
			Path:   "/" + d.Name,
		}
		if d.SSLMode != "" {
			q := url.Values{}
			q.Set("sslmode", d.SSLMode)
			u.RawQuery = q.Encode()
		}
		return u.String()

	case "mysql":
		port := d.Port
		if port == 0 {
			port = 3306
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			d.User, d.Password, d.Host, port, d.Name)
	}
	return ""
}
