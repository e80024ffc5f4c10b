package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/signalrank/signalrank/internal/config"
	logpkg "github.com/signalrank/signalrank/internal/logger"
	"github.com/signalrank/signalrank/internal/metrics"
	"github.com/signalrank/signalrank/internal/repository/records"
	chiTransport "github.com/signalrank/signalrank/internal/transport/chi"
	"github.com/signalrank/signalrank/internal/transport/signalapi"
	"github.com/signalrank/signalrank/internal/usecase/recommend"
	"github.com/signalrank/signalrank/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting signalrank server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("owner", cfg.Engine.Owner),
		zap.Strings("store_addrs", cfg.Store.Addrs),
	)

	// Record store with digest projections for every searchable path
	store, err := records.NewRedis(records.RedisConfig{
		Addrs:     cfg.Store.Addrs,
		Username:  cfg.Store.Username,
		Password:  cfg.Store.Password,
		DB:        cfg.Store.DB,
		KeyPrefix: cfg.Store.KeyPrefix,
		IndexName: cfg.Store.IndexName,
		Paths:     cfg.SearchPaths(),
		Salt:      cfg.Engine.Salt,
		Null:      cfg.Engine.NullLiteral,
	})
	if err != nil {
		logger.Fatal("Failed to create record store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	readiness := time.Duration(cfg.Store.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, readiness); err != nil {
		logger.Fatal("Record store not ready", zap.Error(err))
	}
	if err := store.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure record index", zap.Error(err))
	}
	logger.Info("Connected to record store")

	// Register metrics explicitly (no init())
	metrics.RegisterSignalMetrics()
	metrics.RegisterHTTPMetrics()

	// Signal service client
	client, err := signalapi.New(signalapi.Config{
		APIKey:  cfg.Signal.APIKey,
		BaseURL: cfg.Signal.BaseURL,
		Secure:  cfg.Signal.Secure,
		Salt:    cfg.Engine.Salt,
		Timeout: time.Duration(cfg.Signal.TimeoutSec) * time.Second,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal("Failed to create signal service client", zap.Error(err))
	}

	// Translation-and-ranking engine
	engine, err := recommend.New(recommend.Config{
		Owner:             cfg.Engine.Owner,
		DataFields:        cfg.Engine.DataFields,
		Fields:            cfg.Engine.Fields,
		ProfileFields:     cfg.Engine.ProfileFields,
		NullLiteral:       cfg.Engine.NullLiteral,
		TokenProfileField: cfg.Engine.TokenProfileField,
		DefaultSize:       cfg.Engine.DefaultSize,
		SearchSize:        cfg.Engine.SearchSize,
		HashFields:        cfg.Engine.HashFields,
		Salt:              cfg.Engine.Salt,
	}, client, store)
	if err != nil {
		logger.Fatal("Failed to create engine", zap.Error(err))
	}

	server := chiTransport.NewServer(engine, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	logger.Info("Server stopped")
}
