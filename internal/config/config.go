package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Env      string         `json:"env" yaml:"env"`
	Server   ServerConfig   `json:"server" yaml:"server"`
	Database DatabaseConfig `json:"database" yaml:"database"`
	Session  SessionConfig  `json:"session" yaml:"session"`
	Import   ImportConfig   `json:"import" yaml:"import"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host            string        `json:"host" yaml:"host"`
	Port            int           `json:"port" yaml:"port"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// DatabaseConfig represents database configuration. Driver is either
// "sqlite" (DSN is a file path) or "postgres".
type DatabaseConfig struct {
	Driver         string `json:"driver" yaml:"driver"`
	DSN            string `json:"dsn" yaml:"dsn"`
	Host           string `json:"host" yaml:"host"`
	Port           int    `json:"port" yaml:"port"`
	User           string `json:"user" yaml:"user"`
	Password       string `json:"password" yaml:"password"`
	DBName         string `json:"db_name" yaml:"db_name"`
	SSLMode        string `json:"ssl_mode" yaml:"ssl_mode"`
	MaxConnections int    `json:"max_connections" yaml:"max_connections"`
	MaxIdleConns   int    `json:"max_idle_conns" yaml:"max_idle_conns"`
}

// SessionConfig controls the session cookie and onboarding state lifetime
type SessionConfig struct {
	Secret     string        `json:"secret" yaml:"secret"`
	CookieName string        `json:"cookie_name" yaml:"cookie_name"`
	TTL        time.Duration `json:"ttl" yaml:"ttl"`
	Secure     bool          `json:"secure" yaml:"secure"`
}

// ImportConfig controls the photo importer and folder watcher
type ImportConfig struct {
	InputDirs     []string `json:"input_dirs" yaml:"input_dirs"`
	WatchSchedule string   `json:"watch_schedule" yaml:"watch_schedule"`
	Workers       int      `json:"workers" yaml:"workers"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
}

// Default returns the configuration used when nothing else is supplied
func Default() *Config {
	return &Config{
		Env: "prd",
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8888,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:         "sqlite",
			DSN:            filepath.Join("data", "photonix.db"),
			Host:           "127.0.0.1",
			Port:           5432,
			User:           "postgres",
			DBName:         "photonix",
			SSLMode:        "disable",
			MaxConnections: 25,
			MaxIdleConns:   5,
		},
		Session: SessionConfig{
			CookieName: "photonix_session",
			TTL:        24 * time.Hour,
		},
		Import: ImportConfig{
			WatchSchedule: "@every 1m",
			Workers:       4,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from an optional .env file, the config
// file (JSON or YAML by extension) and environment variables, in that order
// of increasing precedence.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	config := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := decode(configPath, data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	overrideWithEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func decode(path string, data []byte, config *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	default:
		return json.Unmarshal(data, config)
	}
}

func overrideWithEnv(config *Config) {
	if env := os.Getenv("ENV"); env != "" {
		config.Env = env
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if driver := os.Getenv("DATABASE_DRIVER"); driver != "" {
		config.Database.Driver = driver
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}
	if dbHost := os.Getenv("POSTGRES_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbName := os.Getenv("POSTGRES_DB"); dbName != "" {
		config.Database.DBName = dbName
	}
	if dbUser := os.Getenv("POSTGRES_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("POSTGRES_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		config.Session.Secret = secret
	}
	if dirs := os.Getenv("PHOTO_INPUT_DIRS"); dirs != "" {
		config.Import.InputDirs = strings.Split(dirs, string(os.PathListSeparator))
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Import.Workers <= 0 {
		c.Import.Workers = 1
	}
	return nil
}

// Debug reports whether the app runs outside production
func (c *Config) Debug() bool {
	return c.Env != "prd"
}

// GetDatabaseURL returns the connection string for the configured driver
func (c *DatabaseConfig) GetDatabaseURL() string {
	if c.Driver == "postgres" {
		if c.DSN != "" && strings.HasPrefix(c.DSN, "postgres://") {
			return c.DSN
		}
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
	}
	return c.DSN
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
