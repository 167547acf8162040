// Package config loads server configuration from an optional .env file,
// an optional YAML file and the environment, in increasing precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StorageMongo    = "mongo"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Config is the complete server configuration
type Config struct {
	Server      ServerConfig  `yaml:"server"`
	LogLevel    string        `yaml:"log_level"`
	Storage     StorageConfig `yaml:"storage"`
	Auth        AuthConfig    `yaml:"auth"`
	CORSOrigins []string      `yaml:"cors_origins"`
	Admin       AdminConfig   `yaml:"admin"`
	Email       EmailConfig   `yaml:"email"`
}

// ServerConfig is the listen address
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig selects and locates the storage backend
type StorageConfig struct {
	Type          string `yaml:"type"`
	RedisURL      string `yaml:"redis_url"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
	DatabaseURL   string `yaml:"database_url"`
	SQLitePath    string `yaml:"sqlite_path"`
}

// AuthConfig configures bearer tokens
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// AdminConfig is the bootstrap admin account, created at startup when
// both username and password are set
type AdminConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Email    string `yaml:"email"`
}

// Enabled reports whether a bootstrap admin is configured
func (a AdminConfig) Enabled() bool {
	return a.Username != "" && a.Password != ""
}

// EmailConfig configures approval notifications. Notifications are only
// logged when From is empty.
type EmailConfig struct {
	From      string `yaml:"from"`
	FromName  string `yaml:"from_name"`
	AdminTo   string `yaml:"admin_to"`
	AWSRegion string `yaml:"aws_region"`
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		Server:   ServerConfig{Port: 8080},
		LogLevel: "info",
		Storage: StorageConfig{
			Type:          StorageMemory,
			RedisURL:      "redis://localhost:6379",
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "joyverse",
			SQLitePath:    "joyverse.db",
		},
		Auth:        AuthConfig{TokenTTL: 24 * time.Hour},
		CORSOrigins: []string{"https://joy-verse.vercel.app", "http://localhost:5173"},
		Email:       EmailConfig{FromName: "JoyVerse", AWSRegion: "us-east-1"},
	}
}

// Load builds the configuration. Variables from envFiles (".env" when
// none are given) are added to the environment without overriding it;
// missing files are skipped. A non-empty path names a YAML file read
// next, and environment variables override both.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := Default()
	if path != "" {
		if err := cfg.readYAML(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) readYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	str("JOYVERSE_HOST", &c.Server.Host)
	if v, ok := lookup("JOYVERSE_PORT"); ok {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("JOYVERSE_PORT: %w", err)
		}
		c.Server.Port = port
	}
	str("JOYVERSE_LOG_LEVEL", &c.LogLevel)

	str("STORAGE_TYPE", &c.Storage.Type)
	str("REDIS_URL", &c.Storage.RedisURL)
	str("MONGO_URI", &c.Storage.MongoURI)
	str("MONGO_DATABASE", &c.Storage.MongoDatabase)
	str("DATABASE_URL", &c.Storage.DatabaseURL)
	str("SQLITE_PATH", &c.Storage.SQLitePath)

	str("JWT_SECRET", &c.Auth.JWTSecret)
	if v, ok := lookup("TOKEN_TTL"); ok {
		ttl, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("TOKEN_TTL: %w", err)
		}
		c.Auth.TokenTTL = ttl
	}

	if v, ok := lookup("CORS_ORIGINS"); ok {
		c.CORSOrigins = splitList(v)
	}

	str("ADMIN_USERNAME", &c.Admin.Username)
	str("ADMIN_PASSWORD", &c.Admin.Password)
	str("ADMIN_EMAIL", &c.Admin.Email)

	str("EMAIL_FROM", &c.Email.From)
	str("EMAIL_FROM_NAME", &c.Email.FromName)
	str("EMAIL_ADMIN_TO", &c.Email.AdminTo)
	str("AWS_REGION", &c.Email.AWSRegion)
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}

	switch c.Storage.Type {
	case StorageMemory:
	case StorageRedis:
		if c.Storage.RedisURL == "" {
			return errors.New("REDIS_URL required when STORAGE_TYPE=redis")
		}
	case StorageMongo:
		if c.Storage.MongoURI == "" || c.Storage.MongoDatabase == "" {
			return errors.New("MONGO_URI and MONGO_DATABASE required when STORAGE_TYPE=mongo")
		}
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("DATABASE_URL required when STORAGE_TYPE=postgres")
		}
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			return errors.New("SQLITE_PATH required when STORAGE_TYPE=sqlite")
		}
	default:
		return fmt.Errorf("invalid STORAGE_TYPE %q: must be one of memory, redis, mongo, postgres, sqlite", c.Storage.Type)
	}

	// persistent deployments sign with their own secret
	if c.Storage.Type != StorageMemory && c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET required with persistent storage")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if (c.Admin.Username == "") != (c.Admin.Password == "") {
		return errors.New("ADMIN_USERNAME and ADMIN_PASSWORD must be set together")
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// SlogLevel returns the configured log level
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
