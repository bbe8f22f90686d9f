package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/notsogambhir/Instacom/internal/config"
	"github.com/notsogambhir/Instacom/internal/db"
	"github.com/notsogambhir/Instacom/internal/httpserver"
	"github.com/notsogambhir/Instacom/internal/presence"
	"github.com/notsogambhir/Instacom/internal/relay"
	"github.com/notsogambhir/Instacom/internal/voice"
	"github.com/notsogambhir/Instacom/internal/ws"
	"github.com/notsogambhir/Instacom/pkg/jwt"
	"github.com/notsogambhir/Instacom/pkg/s3storage"
)

func main() {
	// Setting up logger
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05",
		Level:           log.DebugLevel,
	})

	// Initializing global context instance
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initializing config manager
	cm, err := config.NewConfigManager("internal/config/config.yaml")
	if err != nil {
		logger.Error("Error getting config file", "error", err)
		os.Exit(1)
	}

	c := cm.GetConfig()

	// Validating configuration
	if err := c.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info(
		"Configuration loaded",
		"env", c.GeneralParams.Env,
		"http_addr", c.GeneralParams.HTTPaddress,
		"database", c.MainDBParams.Name,
		"valkey", c.ValkeyParams.Host,
	)

	// Creating database connection pool
	pool, err := db.CreatePostgresPool(ctx, c.MainDBParams.GetDSN())
	if err != nil {
		logger.Error(
			"Failed to create postgres pool",
			"error", err,
			"db", c.MainDBParams.Name,
		)
		os.Exit(1)
	}
	defer pool.Close()

	logger.Info("Database connection established", "db", c.MainDBParams.Name)

	// Creates database store
	store := db.NewPostgresStore(pool)

	// Initializing JWT service
	jwtService := jwt.NewService(c.GeneralParams.SecretKey, 24*time.Hour)

	logger.Info("JWT service initialized")

	// Initialize presence manager
	presenceManager, err := presence.NewManager(
		c.ValkeyParams.Host,
		c.ValkeyParams.Password,
	)
	if err != nil {
		logger.Error("Failed to create presence manager", "error", err)
		os.Exit(1)
	}
	defer presenceManager.Close()

	logger.Info("Presence manager initialized")

	// Initialize S3 client
	s3Client, err := s3storage.NewMinIOClient(
		c.S3Params.Endpoint,
		c.S3Params.AccessKeyID,
		c.S3Params.SecretAccessKey,
		c.S3Params.BucketName,
		c.S3Params.UseSSL,
	)
	if err != nil {
		logger.Error("Failed to create S3 client", "error", err)
		os.Exit(1)
	}

	logger.Info("S3 storage client initialized", "bucket", c.S3Params.BucketName)

	// Relay core: registry, tracker, engine, assembly pipeline
	registry := relay.NewRegistry(presenceManager, logger)
	tracker := relay.NewTracker(logger)
	engine := relay.NewEngine(registry, presenceManager, logger)
	enforcer := voice.NewEnforcer(s3Client, store, logger)
	pipeline := voice.NewPipeline(s3Client, store, enforcer, logger)

	// Creates websocket relay server
	wsServer := ws.New(
		jwtService,
		registry,
		tracker,
		engine,
		pipeline,
		c.RelayParams,
		logger,
	)

	// Creates HTTP server with the websocket endpoint mounted
	httpServer := httpserver.New(
		c.GeneralParams.HTTPaddress,
		store, // UserStore
		store, // MessageStore
		presenceManager,
		s3Client,
		jwtService,
		wsServer,
		logger,
	)

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	go func() {
		serverErrors <- httpServer.Start()
	}()

	logger.Info("Server started successfully")

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or error
	select {
	case err := <-serverErrors:
		logger.Error("Server error", "error", err)
		os.Exit(1)

	case sig := <-shutdown:
		logger.Info("Shutdown signal received", "signal", sig)

		// Give outstanding requests and assemblies 10s to complete
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		logger.Info("Shutting down HTTP server...")
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed", "error", err)
		}

		logger.Info("Shutting down relay server...")
		if err := wsServer.Shutdown(ctx); err != nil {
			logger.Error("Relay server graceful shutdown failed", "error", err)
		}

		logger.Info("All servers stopped gracefully")
	}
}
