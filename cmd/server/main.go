package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joyverse/joyverse-backend/internal/api"
	"github.com/joyverse/joyverse-backend/internal/config"
	"github.com/joyverse/joyverse-backend/internal/factory"
)

func main() {
	configPath := flag.String("config", os.Getenv("JOYVERSE_CONFIG"), "Path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath, ".env")
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := factory.New(ctx, factory.ConfigFrom(cfg, logger))
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to close application", slog.String("error", err.Error()))
		}
	}()

	if cfg.Admin.Enabled() {
		admin, err := app.AuthService.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password, cfg.Admin.Email)
		if err != nil {
			logger.Error("failed to provision admin", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("admin account ready", slog.String("username", admin.Username))
	}

	app.RunBackground(ctx)

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Server.Host
	serverConfig.Port = cfg.Server.Port
	server := api.NewServer(app.Router(cfg.CORSOrigins), serverConfig, logger)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			cancel()
			return
		}
	case <-ctx.Done():
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
		}
	}

	logger.Info("server stopped")
}
