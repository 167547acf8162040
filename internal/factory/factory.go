package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/joyverse/joyverse-backend/internal/api"
	"github.com/joyverse/joyverse-backend/internal/config"
	"github.com/joyverse/joyverse-backend/internal/dependencies/clock"
	"github.com/joyverse/joyverse-backend/internal/dependencies/ids"
	"github.com/joyverse/joyverse-backend/internal/feed"
	"github.com/joyverse/joyverse-backend/internal/services/auth"
	"github.com/joyverse/joyverse-backend/internal/services/notify"
	"github.com/joyverse/joyverse-backend/internal/services/profile"
	"github.com/joyverse/joyverse-backend/internal/services/report"
	"github.com/joyverse/joyverse-backend/internal/services/sessions"
	"github.com/joyverse/joyverse-backend/internal/storage"
	"github.com/joyverse/joyverse-backend/internal/storage/memory"
	mongostorage "github.com/joyverse/joyverse-backend/internal/storage/mongo"
	redisstorage "github.com/joyverse/joyverse-backend/internal/storage/redis"
	sqlstorage "github.com/joyverse/joyverse-backend/internal/storage/sql"
)

// Storage type constants
const (
	StorageTypeMemory   = config.StorageMemory
	StorageTypeRedis    = config.StorageRedis
	StorageTypeMongo    = config.StorageMongo
	StorageTypePostgres = config.StoragePostgres
	StorageTypeSQLite   = config.StorageSQLite
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock    clock.Clock
	IDs      ids.Generator
	Notifier notify.Notifier

	// Services
	AuthService    *auth.Service
	ProfileService *profile.Service
	SessionService *sessions.Service
	ReportService  *report.Service
	Feed           *feed.Feed

	Logger *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service (optional)
	// Zero fields fall back to auth.DefaultConfig()
	AuthConfig auth.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend
	// If empty, defaults to "memory"
	StorageType string
	// Backend settings, required for the matching StorageType
	RedisConfig *redisstorage.Config
	MongoConfig *mongostorage.Config
	SQLConfig   *sqlstorage.Config
	// Email configures approval notifications; without a sender they
	// are only logged
	Email notify.SESConfig
}

// ConfigFrom maps loaded server configuration onto a factory Config
func ConfigFrom(c *config.Config, logger *slog.Logger) Config {
	cfg := Config{
		Logger:      logger,
		StorageType: c.Storage.Type,
		AuthConfig: auth.Config{
			Secret:   c.Auth.JWTSecret,
			TokenTTL: c.Auth.TokenTTL,
		},
		Email: notify.SESConfig{
			Region:   c.Email.AWSRegion,
			From:     c.Email.From,
			FromName: c.Email.FromName,
			AdminTo:  c.Email.AdminTo,
		},
	}

	switch c.Storage.Type {
	case StorageTypeRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.Storage.RedisURL
		cfg.RedisConfig = &redisCfg
	case StorageTypeMongo:
		mongoCfg := mongostorage.DefaultConfig()
		mongoCfg.URI = c.Storage.MongoURI
		mongoCfg.Database = c.Storage.MongoDatabase
		cfg.MongoConfig = &mongoCfg
	case StorageTypePostgres:
		sqlCfg := sqlstorage.DefaultConfig()
		sqlCfg.DSN = c.Storage.DatabaseURL
		cfg.SQLConfig = &sqlCfg
	case StorageTypeSQLite:
		sqlCfg := sqlstorage.DefaultConfig()
		sqlCfg.Driver = sqlstorage.DriverSQLite
		sqlCfg.DSN = c.Storage.SQLitePath
		cfg.SQLConfig = &sqlCfg
	}
	return cfg
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	notifier, err := notify.New(ctx, cfg.Email, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return newWithDependencies(store, clock.New(), ids.New(), notifier, cfg.AuthConfig, logger), nil
}

func openStorage(ctx context.Context, cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		return redisstorage.New(*cfg.RedisConfig)
	case StorageTypeMongo:
		if cfg.MongoConfig == nil {
			return nil, errors.New("MongoConfig required when StorageType is mongo")
		}
		return mongostorage.New(ctx, *cfg.MongoConfig)
	case StorageTypePostgres, StorageTypeSQLite:
		if cfg.SQLConfig == nil {
			return nil, fmt.Errorf("SQLConfig required when StorageType is %s", storageType)
		}
		return sqlstorage.New(*cfg.SQLConfig)
	default:
		return nil, fmt.Errorf("invalid StorageType %q", storageType)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, idGen ids.Generator, notifier notify.Notifier, authCfg auth.Config, logger *slog.Logger) *App {
	profileService := profile.New(store, clk, notifier, logger)

	return &App{
		Storage:        store,
		Clock:          clk,
		IDs:            idGen,
		Notifier:       notifier,
		AuthService:    auth.New(store, clk, idGen, notifier, logger, authCfg),
		ProfileService: profileService,
		SessionService: sessions.New(store, profileService, clk, idGen, logger),
		ReportService:  report.New(profileService, store, logger),
		Feed:           feed.New(clk, logger),
		Logger:         logger,
	}
}

// Router builds the HTTP API for the app
func (a *App) Router(corsOrigins []string) http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:         a.Logger,
		AuthService:    a.AuthService,
		ProfileService: a.ProfileService,
		SessionService: a.SessionService,
		ReportService:  a.ReportService,
		Feed:           a.Feed,
		CORSOrigins:    corsOrigins,
	})
}

// RunBackground runs periodic housekeeping until ctx is done
func (a *App) RunBackground(ctx context.Context) {
	go a.AuthService.RunPruner(ctx, 10*time.Minute)
	go a.Feed.RunCleanup(ctx, time.Minute)
}

// Close stops the live feed and releases storage connections
func (a *App) Close() error {
	a.Feed.Close()
	return a.Storage.Close()
}
