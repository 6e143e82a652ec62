// Copyright (C) 2025 StackCanvas (oss@stackcanvas.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command versiond starts the StackCanvas versioning HTTP server.
//
// The server persists one version tree per app in an embedded BadgerDB
// and exposes the versioning API under /v1/versioning.
//
// # Configuration
//
// Configuration is read from an optional YAML file (see --config),
// then overridden by environment variables:
//
//   - VERSIOND_PORT: HTTP server port (default: 12400)
//   - VERSIOND_DATA_DIR: BadgerDB directory (default: ~/.stackcanvas/versions)
//   - VERSIOND_LOG_LEVEL: debug, info, warn, error (default: info)
//   - VERSIOND_LOG_DIR: enable file logging to this directory (optional)
//
// # Usage
//
//	# Build
//	go build -o versiond ./cmd/versiond
//
//	# Run
//	./versiond serve
//
//	# Run with a config file
//	./versiond serve --config /etc/stackcanvas/versiond.yaml
//
//	# Health check
//	curl http://localhost:12400/v1/versioning/health
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/stackcanvas/stackcanvas/pkg/logging"
	"github.com/stackcanvas/stackcanvas/services/versioning"
	"github.com/stackcanvas/stackcanvas/services/versioning/store"
)

// Config is the versiond configuration file schema.
type Config struct {
	// Port is the HTTP listen port.
	Port int `yaml:"port"`

	// DataDir is the BadgerDB directory. Supports ~ expansion.
	DataDir string `yaml:"data_dir"`

	// InMemory runs the store without disk persistence. Data is lost
	// on shutdown; intended for demos and tests.
	InMemory bool `yaml:"in_memory"`

	// LogLevel is debug, info, warn, or error.
	LogLevel string `yaml:"log_level"`

	// LogDir enables file logging when set.
	LogDir string `yaml:"log_dir"`

	// Debug enables Gin debug mode and request logging.
	Debug bool `yaml:"debug"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Port:     12400,
		DataDir:  "~/.stackcanvas/versions",
		LogLevel: "info",
	}
}

var (
	configPath string
	config     Config
)

var rootCmd = &cobra.Command{
	Use:   "versiond",
	Short: "StackCanvas app versioning server",
	Long:  "versiond serves the StackCanvas version tree API on top of an embedded BadgerDB.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.AddCommand(serveCmd)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		config = DefaultConfig()
		if configPath != "" {
			raw, err := os.ReadFile(configPath)
			if err != nil {
				return fmt.Errorf("read config %s: %w", configPath, err)
			}
			if err := yaml.Unmarshal(raw, &config); err != nil {
				return fmt.Errorf("parse config %s: %w", configPath, err)
			}
		}
		applyEnvOverrides(&config)
		return nil
	}
}

// applyEnvOverrides layers VERSIOND_* environment variables over the
// file configuration.
func applyEnvOverrides(cfg *Config) {
	cfg.Port = getEnvInt("VERSIOND_PORT", cfg.Port)
	cfg.DataDir = getEnvString("VERSIOND_DATA_DIR", cfg.DataDir)
	cfg.LogLevel = getEnvString("VERSIOND_LOG_LEVEL", cfg.LogLevel)
	cfg.LogDir = getEnvString("VERSIOND_LOG_DIR", cfg.LogDir)
}

func serve() error {
	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(config.LogLevel),
		LogDir:  config.LogDir,
		Service: "versiond",
		JSON:    true,
	})
	defer logger.Close()

	storeCfg := store.DefaultConfig()
	storeCfg.Path = expandPath(config.DataDir)
	storeCfg.InMemory = config.InMemory
	storeCfg.Logger = logger.Slog()

	db, err := store.Open(storeCfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	svcCfg := versioning.DefaultServiceConfig()
	svcCfg.Logger = logger.Slog()
	svc := versioning.NewService(svcCfg, store.NewStore(db))
	handlers := versioning.NewHandlers(svc)

	if config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if config.Debug {
		router.Use(gin.Logger())
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	versioning.RegisterRoutes(v1, handlers)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("versiond listening",
			"port", config.Port,
			"data_dir", storeCfg.Path,
			"in_memory", config.InMemory,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return home + path[1:]
		}
	}
	return path
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
