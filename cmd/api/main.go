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
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/stationmap/internal/adapters/http"
	natsadapter "github.com/samirrijal/stationmap/internal/adapters/nats"
	"github.com/samirrijal/stationmap/internal/adapters/nominatim"
	"github.com/samirrijal/stationmap/internal/adapters/osrm"
	"github.com/samirrijal/stationmap/internal/adapters/postgres"
	"github.com/samirrijal/stationmap/internal/adapters/valkey"
	"github.com/samirrijal/stationmap/internal/core/domain"
	"github.com/samirrijal/stationmap/internal/core/ports"
	"github.com/samirrijal/stationmap/internal/core/session"
	"github.com/samirrijal/stationmap/internal/core/usecases"
	"github.com/samirrijal/stationmap/internal/pkg/config"
	"github.com/samirrijal/stationmap/internal/pkg/logging"
	"github.com/samirrijal/stationmap/internal/pkg/report"
	"github.com/samirrijal/stationmap/internal/pkg/telemetry"
)

const service = "stationmap-api"

func main() {
	cfg, err := config.Load(service)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logging.Setup(cfg.Log.Level, cfg.Log.Format, service)

	if err := report.Setup(cfg.Sentry.DSN, cfg.Sentry.Environment, service); err != nil {
		slog.Warn("sentry init failed", "error", err)
	}
	defer report.Flush()

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

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolStats(ctx, 15*time.Second)

	// Cache (optional)
	var stationCache ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, caching disabled", "error", err)
	} else {
		stationCache = cache
		defer cache.Close()
	}

	// NATS (optional): submissions are fanned out to every instance's sessions
	var events ports.EventPublisher
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, station events disabled", "error", err)
	} else {
		events = publisher
		defer publisher.Close()
	}

	// Upstream map services
	router := osrm.New(cfg.OSRM.BaseURL, cfg.OSRM.Profile, time.Duration(cfg.OSRM.Timeout)*time.Second)
	geocoder := nominatim.New(nominatim.Options{
		BaseURL:   cfg.Geocoder.BaseURL,
		UserAgent: cfg.Geocoder.UserAgent,
		Language:  cfg.Geocoder.Language,
		Timeout:   time.Duration(cfg.Geocoder.Timeout) * time.Second,
		CacheSize: cfg.Geocoder.CacheSize,
	})

	// Use cases
	stationSvc := usecases.NewStationService(postgres.NewStationRepo(db), stationCache, events).
		WithLimit(cfg.Session.StationLimit)
	placeSvc := usecases.NewPlaceService(geocoder)
	tripSvc := usecases.NewTripService(router)

	// Map sessions
	sessions := session.NewManager(sessionConfig(cfg.Session), session.Deps{
		Stations: stationSvc,
		Places:   placeSvc,
		Trips:    tripSvc,
	})
	defer sessions.Shutdown()

	if publisher != nil {
		subscriber, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats subscriber unavailable", "error", err)
		} else {
			defer subscriber.Close()
			if err := subscriber.SubscribeStationCreated(ctx, sessions.HandleStationCreated); err != nil {
				slog.Warn("subscribe station events", "error", err)
			}
		}
	}

	deps := &http.Dependencies{
		Stations:  stationSvc,
		Places:    placeSvc,
		Trips:     tripSvc,
		Sessions:  sessions,
		Auth:      http.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, 24*time.Hour),
		DB:        db,
		Cache:     cache,
		Publisher: publisher,
	}
	if cfg.Auth.JWTSecret == "" {
		slog.Warn("auth.jwt_secret not set, station submission is disabled")
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "StationMap API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, http://localhost:8081",
		AllowMethods:     "GET,POST,OPTIONS",
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

	slog.Info("server stopped", "live_sessions", sessions.Len())
}

// sessionConfig maps the session section of the configuration onto session timings.
func sessionConfig(c config.SessionConfig) session.Config {
	fallback := domain.GeoPoint{Lat: c.FallbackLat, Lon: c.FallbackLon}
	return session.Config{
		StationDebounce:   c.StationDebounce(),
		LocationDebounce:  c.LocationDebounce(),
		FetchTimeout:      time.Duration(c.FetchTimeout) * time.Second,
		FallbackRegion:    session.RegionAround(fallback, c.FallbackRadius),
		LocateRadius:      c.FallbackRadius,
		CenterZoom:        c.CenterZoom,
		CenterAnimationMs: c.CenterAnimationMs,
	}
}
