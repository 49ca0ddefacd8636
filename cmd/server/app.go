package main

import (
	"chat-relay/auth"
	healthgrpc "chat-relay/infrastructure/grpc"
	"chat-relay/infrastructure/http/server"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"chat-relay/sink"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
)

// app holds every long-lived component of the server.
type app struct {
	log          *slog.Logger
	config       Config
	db           *badger.DB
	index        *bluge.Writer
	metrics      *observability.Metrics
	hub          *runtime.Hub
	orchestrator *runtime.Orchestrator
	http         *server.Server
	health       *healthgrpc.HealthServer
}

func newApp(ctx context.Context, config Config, charReplacement rune, log *slog.Logger) (*app, error) {
	db, err := badger.Open(buildBadgerOpts(ctx, config, log))
	if err != nil {
		return nil, fmt.Errorf("database opening failed: %w", err)
	}
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open bluge writer: %w", err)
	}

	moderator, err := runtime.LoadModerator(log, charReplacement)
	if err != nil {
		_ = writer.Close()
		_ = db.Close()
		return nil, fmt.Errorf("moderation setup failed: %w", err)
	}

	metrics := observability.NewMetrics()
	users := repositories.NewUserRepository(db)
	messages := repositories.NewMessageRepository(db, log, config.LimitMessages)
	index := repositories.NewMessageIndex(writer, log)

	registry := runtime.NewRegistry()
	hub := runtime.NewHub(log, registry, metrics, config.ConnectionBufferSize, config.DeliveryTimeout)
	supervisor := workers.NewSupervisor(log, metrics, config.RestartInterval)
	orchestrator := runtime.NewOrchestrator(log, supervisor, metrics,
		config.BufferSize, config.SinkTimeout, config.HeartbeatInterval)
	orchestrator.Add("hub", hub)
	orchestrator.Add("search", sink.NewSearchSink(index, log))

	tokens := auth.NewTokenIssuer(config.JWTSecret, config.AuthTokenDuration)
	chatService := services.NewChatService(log, users, messages, index, &moderator, orchestrator, config.MaxContentLength)
	authService := services.NewAuthService(log, users, tokens)
	uploadService := services.NewUploadService(log, config.UploadAPIKey, config.UploadAPISecret,
		config.MediaDir, config.PublicBaseURL, config.MaxUploadBytes)

	httpServer := server.New(log, server.Options{
		Addr:                 config.Addr(),
		AllowedOrigins:       config.Origins(),
		MediaDir:             config.MediaDir,
		ConnectionBufferSize: config.ConnectionBufferSize,
		MaxUploadBytes:       config.MaxUploadBytes,
		ShutdownTimeout:      config.ShutdownTimeout,
	}, server.Dependencies{
		Auth:       authService,
		Chat:       chatService,
		Uploads:    uploadService,
		Tokens:     tokens,
		Subscriber: hub,
		Metrics:    metrics,
	})

	if config.DebugPort > 0 {
		log.Info("Debug Badger inspector available", "url", fmt.Sprintf("http://localhost:%d/inspect", config.DebugPort))
		database.StartDebugServer(db, config.DebugPort, "/inspect", inspectMapper)
	}

	return &app{
		log:          log,
		config:       config,
		db:           db,
		index:        writer,
		metrics:      metrics,
		hub:          hub,
		orchestrator: orchestrator,
		http:         httpServer,
		health:       healthgrpc.NewHealthServer(log),
	}, nil
}

// Run starts the send pipeline and both servers, and blocks until ctx is
// cancelled or one of them fails.
func (a *app) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errChan := make(chan error, 3)
	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		a.log.Info("Starting orchestrator...")
		if err := a.orchestrator.Start(ctx); err != nil {
			errChan <- fmt.Errorf("orchestrator error: %w", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := a.http.Run(ctx); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := a.health.Run(ctx, a.config.HealthAddr()); err != nil {
			errChan <- fmt.Errorf("health server error: %w", err)
		}
	}()

	var err error
	select {
	case <-ctx.Done():
		a.log.Info("Shutdown signal received")
	case err = <-errChan:
	}

	a.log.Info("Shutting down gracefully...")
	cancel()
	a.orchestrator.Stop()
	wg.Wait()
	return err
}

// Close releases storage once every component stopped.
func (a *app) Close() {
	a.log.Info("Closing Bluge...")
	_ = a.index.Close()
	a.log.Info("Closing BadgerDB...")
	_ = a.db.Close()
}

func buildBadgerOpts(ctx context.Context, config Config, log *slog.Logger) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if log.Enabled(ctx, slog.LevelDebug) {
		return options.WithLoggingLevel(badger.DEBUG)
	}
	return options.WithLoggingLevel(badger.INFO)
}

func inspectMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	record := repositories.DescribeRecord(key, val)
	row.Type = record.Kind
	row.Detail = record.Detail
	return row
}
