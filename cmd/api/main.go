// Package main is the entry point for the API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/eduresolve/support-platform/internal/auth"
	"github.com/eduresolve/support-platform/internal/config"
	"github.com/eduresolve/support-platform/internal/cooldown"
	"github.com/eduresolve/support-platform/internal/handler"
	"github.com/eduresolve/support-platform/internal/llm"
	natsclient "github.com/eduresolve/support-platform/internal/nats"
	"github.com/eduresolve/support-platform/internal/service"
	"github.com/eduresolve/support-platform/internal/store"
	"github.com/eduresolve/support-platform/pkg/logger"
	"github.com/eduresolve/support-platform/pkg/tracing"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	logger.SetGlobal(log)

	log.Info("starting API server", zap.String("database", cfg.DatabaseDriver), zap.String("auth", cfg.AuthProvider))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize tracing if enabled
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "eduresolve-support", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	// Storage
	st, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer st.Close()

	// Suggestion cooldown
	var limiter cooldown.Limiter = cooldown.NewMemory(cfg.SuggestionCooldown)
	if cfg.RedisAddr != "" {
		rdb, err := cooldown.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		limiter = cooldown.NewRedis(rdb, cfg.SuggestionCooldown)
		log.Info("suggestion cooldown backed by redis", zap.String("addr", cfg.RedisAddr))
	}

	// Token verification
	verifier, err := auth.NewVerifier(ctx, auth.Provider(cfg.AuthProvider), cfg.FirebaseCredentials, cfg.JWTSecret)
	if err != nil {
		return err
	}

	opts := []service.Option{}
	var analyzer *service.Analyzer

	// Initialize LLM client
	if apiKey := cfg.LLMAPIKey(); apiKey != "" {
		client, err := llm.NewClient(ctx, llm.Provider(cfg.LLMProvider), apiKey)
		if err != nil {
			log.Warn("failed to create LLM client, AI features disabled", zap.String("provider", cfg.LLMProvider), zap.Error(err))
		} else {
			if closer, ok := client.(io.Closer); ok {
				defer closer.Close()
			}
			analyzer = service.NewAnalyzer(llm.Instrument(client), cfg.LLMModel, log.Named("analyzer"))
			opts = append(opts, service.WithAnalyzer(analyzer))
		}
	} else {
		log.Warn("no LLM API key configured, AI features disabled", zap.String("provider", cfg.LLMProvider))
	}

	// Lifecycle events
	var (
		natsClient *natsclient.Client
		streams    *natsclient.StreamManager
	)
	if cfg.NATSEnabled {
		natsClient, err = natsclient.Connect(ctx, natsclient.Config{
			Name:     "eduresolve-api",
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer natsClient.Close()

		streams = natsclient.NewStreamManager(natsClient, log)
		if err := streams.EnsureStream(ctx); err != nil {
			return fmt.Errorf("failed to ensure stream: %w", err)
		}
		opts = append(opts, service.WithEvents(streams), service.WithHistory(streams))
	} else {
		opts = append(opts, service.WithInlineAnalysis(true))
	}

	// Initialize services
	conversationSvc := service.NewConversationService(st, limiter, log, opts...)
	userSvc := service.NewUserService(st, verifier, log)
	analyticsSvc := service.NewAnalyticsService(st)

	if streams != nil && analyzer != nil {
		worker := natsclient.NewWorker(natsClient, conversationSvc.HandleEvent, log)
		go func() {
			if err := worker.Run(ctx); err != nil {
				log.Error("analysis worker failed", zap.Error(err))
			}
		}()
	}

	var connectivity handler.Connectivity
	if natsClient != nil {
		connectivity = natsClient
	}

	router := handler.NewRouter(handler.RouterConfig{
		Conversations:     conversationSvc,
		Users:             userSvc,
		Analytics:         analyticsSvc,
		Verifier:          verifier,
		Profiles:          st,
		Health:            handler.NewHealthHandler(st, connectivity),
		Logger:            log,
		AllowedOrigins:    cfg.CORSAllowedOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}
