package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ericnem/passepartout/internal/adapters/guideapi"
	"github.com/ericnem/passepartout/internal/adapters/http"
	natsadapter "github.com/ericnem/passepartout/internal/adapters/nats"
	"github.com/ericnem/passepartout/internal/adapters/speech"
	"github.com/ericnem/passepartout/internal/adapters/valkey"
	"github.com/ericnem/passepartout/internal/adapters/weather"
	"github.com/ericnem/passepartout/internal/core/ports"
	"github.com/ericnem/passepartout/internal/core/usecases"
	"github.com/ericnem/passepartout/internal/pkg/config"
	"github.com/ericnem/passepartout/internal/pkg/logging"
	"github.com/ericnem/passepartout/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("passepartout-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Cache
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	// NATS event publisher
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
		publisher = nil
	} else {
		defer publisher.Close()
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Outbound clients
	guide := guideapi.New(cfg.Guide.BaseURL, cfg.Guide.Timeout(), slog.Default())
	speaker := speech.New(cfg.Speech.BaseURL, cfg.Speech.Voice, cfg.Speech.Timeout(), slog.Default())
	owm := weather.New(cfg.Weather.BaseURL, cfg.Weather.APIKey, cfg.Weather.Timeout())

	// Session deps. Publisher may be nil; sessions degrade gracefully.
	sessionDeps := usecases.SessionDeps{
		Roam:   guide,
		Speech: speaker,
	}
	if publisher != nil {
		sessionDeps.Events = publisher
	}

	registry := usecases.NewSessionRegistry(usecases.SessionConfig{
		ProximityRadiusMeters: cfg.Proximity.RadiusMeters,
		RoamInterval:          cfg.Roam.Interval(),
	}, sessionDeps)
	defer registry.CloseAll()

	var weatherCache ports.CacheService
	if cache != nil {
		weatherCache = cache
	}

	deps := &http.Dependencies{
		Sessions: registry,
		Chat:     usecases.NewChatService(guide),
		Weather:  usecases.NewWeatherService(owm, weatherCache, cfg.Weather.CacheTTLSeconds),
		NATS:     natsConn,
		Cache:    cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "PassePartout API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
