package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

var envKeys = []string{
	"JOYVERSE_HOST", "JOYVERSE_PORT", "JOYVERSE_LOG_LEVEL",
	"STORAGE_TYPE", "REDIS_URL", "MONGO_URI", "MONGO_DATABASE", "DATABASE_URL", "SQLITE_PATH",
	"JWT_SECRET", "TOKEN_TTL", "CORS_ORIGINS",
	"ADMIN_USERNAME", "ADMIN_PASSWORD", "ADMIN_EMAIL",
	"EMAIL_FROM", "EMAIL_FROM_NAME", "EMAIL_ADMIN_TO", "AWS_REGION",
}

type ConfigSuite struct {
	suite.Suite
	dir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) SetupTest() {
	// Setenv registers a restore; the unset leaves the key absent
	for _, key := range envKeys {
		s.T().Setenv(key, "")
		s.Require().NoError(os.Unsetenv(key))
	}
	s.dir = s.T().TempDir()
}

func (s *ConfigSuite) write(name, content string) string {
	path := filepath.Join(s.dir, name)
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (s *ConfigSuite) missingEnvFile() string {
	return filepath.Join(s.dir, "absent.env")
}

func (s *ConfigSuite) TestDefaults() {
	cfg, err := Load("", s.missingEnvFile())
	s.Require().NoError(err)

	s.Equal(8080, cfg.Server.Port)
	s.Equal(StorageMemory, cfg.Storage.Type)
	s.Equal(24*time.Hour, cfg.Auth.TokenTTL)
	s.Equal([]string{"https://joy-verse.vercel.app", "http://localhost:5173"}, cfg.CORSOrigins)
	s.Equal(slog.LevelInfo, cfg.SlogLevel())
	s.False(cfg.Admin.Enabled())
	s.Equal(":8080", cfg.Addr())
}

func (s *ConfigSuite) TestYAMLFile() {
	path := s.write("joyverse.yaml", `
server:
  host: 127.0.0.1
  port: 9000
log_level: debug
storage:
  type: sqlite
  sqlite_path: /tmp/joy.db
auth:
  jwt_secret: s3cret
  token_ttl: 2h
cors_origins:
  - https://example.org
`)

	cfg, err := Load(path, s.missingEnvFile())
	s.Require().NoError(err)

	s.Equal("127.0.0.1:9000", cfg.Addr())
	s.Equal(slog.LevelDebug, cfg.SlogLevel())
	s.Equal(StorageSQLite, cfg.Storage.Type)
	s.Equal("/tmp/joy.db", cfg.Storage.SQLitePath)
	s.Equal(2*time.Hour, cfg.Auth.TokenTTL)
	s.Equal([]string{"https://example.org"}, cfg.CORSOrigins)
}

func (s *ConfigSuite) TestYAMLRejectsUnknownKeys() {
	path := s.write("bad.yaml", "storage:\n  kind: redis\n")

	_, err := Load(path, s.missingEnvFile())
	s.Error(err)
}

func (s *ConfigSuite) TestEnvironmentOverridesYAML() {
	path := s.write("joyverse.yaml", "server:\n  port: 9000\n")
	s.T().Setenv("JOYVERSE_PORT", "9100")
	s.T().Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	s.T().Setenv("TOKEN_TTL", "30m")

	cfg, err := Load(path, s.missingEnvFile())
	s.Require().NoError(err)

	s.Equal(9100, cfg.Server.Port)
	s.Equal([]string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	s.Equal(30*time.Minute, cfg.Auth.TokenTTL)
}

func (s *ConfigSuite) TestDotEnvDoesNotOverrideEnvironment() {
	envFile := s.write(".env", "STORAGE_TYPE=redis\nJWT_SECRET=from-file\nREDIS_URL=redis://cache:6379\n")
	s.T().Setenv("JWT_SECRET", "from-env")

	cfg, err := Load("", envFile)
	s.Require().NoError(err)

	s.Equal(StorageRedis, cfg.Storage.Type)
	s.Equal("redis://cache:6379", cfg.Storage.RedisURL)
	s.Equal("from-env", cfg.Auth.JWTSecret)
}

func (s *ConfigSuite) TestInvalidNumbers() {
	s.T().Setenv("JOYVERSE_PORT", "eighty")
	_, err := Load("", s.missingEnvFile())
	s.Error(err)

	s.T().Setenv("JOYVERSE_PORT", "8080")
	s.T().Setenv("TOKEN_TTL", "a day")
	_, err = Load("", s.missingEnvFile())
	s.Error(err)
}

func (s *ConfigSuite) TestValidate() {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"unknown storage", func(c *Config) { c.Storage.Type = "cassandra" }, false},
		{"persistent storage needs secret", func(c *Config) { c.Storage.Type = StorageRedis }, false},
		{"persistent storage with secret", func(c *Config) {
			c.Storage.Type = StorageRedis
			c.Auth.JWTSecret = "x"
		}, true},
		{"postgres needs dsn", func(c *Config) {
			c.Storage.Type = StoragePostgres
			c.Auth.JWTSecret = "x"
		}, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, false},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, false},
		{"zero ttl", func(c *Config) { c.Auth.TokenTTL = 0 }, false},
		{"admin without password", func(c *Config) { c.Admin.Username = "root" }, false},
		{"admin complete", func(c *Config) {
			c.Admin.Username = "root"
			c.Admin.Password = "hunter22"
		}, true},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				s.NoError(err)
			} else {
				s.Error(err)
			}
		})
	}
}
