// Package main is the entry point for the availability sync server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Sauce8888/MVP1/internal/api"
	"github.com/Sauce8888/MVP1/internal/calendar"
	"github.com/Sauce8888/MVP1/internal/config"
	"github.com/Sauce8888/MVP1/internal/ical"
	"github.com/Sauce8888/MVP1/internal/notify"
	"github.com/Sauce8888/MVP1/internal/storage"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	// Parse command-line flags; set flags override the environment
	addr := flag.String("addr", "", "HTTP server address (overrides ADDR)")
	dataDir := flag.String("data", "", "Data directory for the SQLite database (overrides DATA_DIR)")
	staticDir := flag.String("static", "", "Directory for static frontend files (overrides STATIC_DIR)")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	// .env is optional; real deployments set the environment directly
	godotenv.Load()

	cfg := config.Load("mvp1-server")
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *staticDir != "" {
		cfg.StaticDir = *staticDir
	}
	log := cfg.Log

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(cfg.Addr); err != nil {
			log.Fatal("Health check failed", "error", err)
		}
		os.Exit(0)
	}

	log.Info("Starting availability sync server", "version", version)

	// Initialize database
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatal("Failed to create data directory", "dir", cfg.DataDir, "error", err)
	}
	db, err := storage.NewDB(cfg.DatabasePath())
	if err != nil {
		log.Fatal("Failed to open database", "error", err)
	}
	defer db.Close()

	if err := storage.RunMigrations(db, log); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	// Initialize repositories
	propertyRepo := storage.NewPropertyRepository(db)
	bookingRepo := storage.NewBookingRepository(db)
	connectionRepo := storage.NewConnectionRepository(db)
	eventRepo := storage.NewEventRepository(db)
	dateRepo := storage.NewUnavailableDateRepository(db)

	// Initialize the notification hub and its consumers
	hub := notify.NewHub(log)
	go hub.Run()

	var notifier notify.Notifier = notify.NewHubNotifier(hub, log)
	var kafkaNotifier *notify.KafkaNotifier
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier = notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaSyncTopic, log)
		notifier = notify.Multi{notifier, kafkaNotifier}
	}

	// Initialize the reconciliation engine
	fetcher := ical.NewFetcher(cfg.FetchTimeout)
	parser := ical.NewParser(log)
	projector := calendar.NewProjector(db, dateRepo, log)

	syncService := calendar.NewSyncService(
		db, propertyRepo, connectionRepo, eventRepo,
		fetcher, parser, projector, notifier, log,
		calendar.SyncConfig{
			Expand:      ical.ExpandOptions{Horizon: cfg.RecurrenceHorizon},
			MinInterval: cfg.SyncMinInterval,
		},
	)
	registry := calendar.NewRegistry(db, propertyRepo, connectionRepo, eventRepo, dateRepo, syncService, log)
	exporter := calendar.NewExporter(propertyRepo, bookingRepo, eventRepo, dateRepo)
	manual := calendar.NewManualService(db, propertyRepo, eventRepo, dateRepo, projector, log)
	bookingService := calendar.NewBookingService(propertyRepo, bookingRepo, dateRepo, projector, notifier, log)

	// Start the background sync scheduler
	scheduler := calendar.NewScheduler(syncService, cfg.SyncInterval, log)
	if err := scheduler.Start(); err != nil {
		log.Error("Failed to start sync scheduler", "error", err)
	}

	// Initialize HTTP router with services
	router := api.NewRouter(api.Deps{
		DB:          db,
		Properties:  propertyRepo,
		Connections: connectionRepo,
		Events:      eventRepo,
		Dates:       dateRepo,
		Registry:    registry,
		Sync:        syncService,
		Exporter:    exporter,
		Manual:      manual,
		Bookings:    bookingService,
		Scheduler:   scheduler,
		Hub:         hub,
		Log:         log,
		StaticDir:   cfg.StaticDir,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start server in background
	go func() {
		log.Info("Server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal("Server error", "error", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")

	scheduler.Stop()
	if kafkaNotifier != nil {
		if err := kafkaNotifier.Close(); err != nil {
			log.Error("Closing Kafka notifier", "error", err)
		}
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server shutdown error", "error", err)
	}

	log.Info("Server stopped")
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	resp, err := http.Get("http://localhost" + addr + "/api/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health endpoint returned %d", resp.StatusCode)
	}
	return nil
}
