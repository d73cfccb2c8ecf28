package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"modelchat-backend/internal/catalog"
	"modelchat-backend/internal/config"
	"modelchat-backend/internal/database"
	"modelchat-backend/internal/handlers"
	"modelchat-backend/internal/metrics"
	"modelchat-backend/internal/middleware"
	"modelchat-backend/internal/observability"
	"modelchat-backend/internal/repository"
	"modelchat-backend/internal/router"
	"modelchat-backend/internal/services"
	"modelchat-backend/internal/websocket"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	// ──── Step 2: Logger ────
	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer closeLog()
	slog.SetDefault(logger)
	logger.Info("starting modelchat backend", "env", cfg.Env)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	// ──── Step 3: Tracing ────
	if cfg.Tracing {
		shutdown, err := observability.SetupTracing("modelchat-backend", os.Stdout)
		if err != nil {
			return err
		}
		defer shutdown(context.Background())
		logger.Info("✓ tracing enabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// ──── Step 4: Store (service privilege preferred) ────
	store, err := repository.Open(ctx, repository.StoreConfig{
		Driver:     cfg.StoreDriver,
		AnonURL:    cfg.DatabaseURL,
		ServiceURL: cfg.DatabaseServiceURL,
		SQLitePath: cfg.SQLitePath,
	}, database.PrivilegeService, logger)
	if err != nil {
		return fmt.Errorf("store connection failed: %w", err)
	}
	defer store.Close()
	logger.Info("✓ store connected", "driver", store.Driver, "privilege", store.Privilege)

	// ──── Step 5: Seed Missing Catalog Models ────
	if store.Privilege == database.PrivilegeService {
		list, err := catalog.LoadFile(cfg.CatalogFile)
		if err != nil {
			return err
		}
		if err := catalog.Seed(ctx, store.Models, list, logger); err != nil {
			return err
		}
	}

	// ──── Step 6: Inference Client ────
	var completer services.Completer
	provider := "Gemini"
	switch {
	case !cfg.HasRealInference():
		logger.Warn("inference credentials not found, using simulated responses", "model_tag", cfg.RealModelTag)
	case cfg.InferenceProvider == config.ProviderOpenAI:
		provider = "OpenAI"
		c, err := services.NewOpenAICompleter(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.InferenceConcurrentReqs)
		if err != nil {
			return err
		}
		completer = c
		logger.Info("✓ OpenAI-compatible client initialized", "model_tag", cfg.RealModelTag)
	default:
		c, err := services.NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.RealModelTag, cfg.InferenceConcurrentReqs)
		if err != nil {
			return err
		}
		defer c.Close()
		completer = c
		logger.Info("✓ Gemini client initialized", "model_tag", cfg.RealModelTag)
	}
	generator := services.NewResponseGenerator(cfg.RealModelTag, provider, completer, cfg.InferenceTimeout, m, logger)

	// ──── Step 7: Notifications + WebSocket Hub ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	var notifier services.HistoryNotifier
	var wsHub *websocket.Hub
	if cfg.RedisURL != "" {
		redisClients, err := database.NewRedisClients(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer redisClients.Close()
		wsHub = websocket.NewHub(redisClients.Subscribe, jwtAuth, logger)
		notifier = websocket.NewRedisNotifier(redisClients.Publish, logger)
		logger.Info("✓ Redis connected, history updates relayed via pub/sub")
	} else {
		wsHub = websocket.NewHub(nil, jwtAuth, logger)
		notifier = wsHub
		logger.Info("✓ WebSocket hub started in local mode")
	}
	defer wsHub.Close()

	// ──── Step 8: Service + HTTP Server ────
	messageService := services.NewMessageService(store.Models, store.Messages, generator, notifier, m, logger)
	chatHandler := handlers.NewChatHandler(messageService, middleware.NewRateLimiter(cfg.SendRatePerMinute, 3))

	r := router.New(router.Deps{
		JWTAuth:     jwtAuth,
		Chat:        chatHandler,
		Hub:         wsHub,
		APILimiter:  middleware.NewRateLimiter(600, 60),
		Metrics:     m,
		Gatherer:    reg,
		Logger:      logger,
		FrontendURL: cfg.FrontendURL,
	})

	// WriteTimeout must outlast a send, which includes the inference call.
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.InferenceTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("✓ modelchat backend ready",
			"api", fmt.Sprintf("http://localhost:%s/api/v1", cfg.Port),
			"ws", fmt.Sprintf("ws://localhost:%s/api/v1/ws", cfg.Port))
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case <-sigChan:
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
