package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()
	stdout := slog.Default()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Database
	db, err := database.Connect(cfg)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// Database log sink (ERROR+ async batch)
	logStore := logging.NewGormLogStore(db)
	dbLogHandler := logging.NewDBHandler(logStore, stdout)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		logging.NewJSONHandler(os.Stdout),
		dbLogHandler,
	)))

	cleanupDone := make(chan struct{})
	logging.StartCleanup(logStore, cfg.LogRetentionDays, cleanupDone)

	// Token verification
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var verifier identity.Verifier
	var firebase *identity.FirebaseVerifier
	if cfg.DevAuth {
		slog.Warn("DEV_AUTH enabled: bearer tokens are decoded without signature checks")
		verifier = identity.NewDevVerifier()
	} else {
		firebase, err = identity.NewFirebaseVerifier(ctx, cfg.FirebaseProjectID, cfg.FirebaseJWKSURL)
		if err != nil {
			slog.Error("failed to initialize token verifier", "error", err)
			os.Exit(1)
		}
		verifier = firebase
	}

	// Services
	userService := services.NewUserService(db)
	incidentService := services.NewIncidentService(db, services.NewNotifier(cfg))

	if emails := strings.Split(cfg.AdminEmails, ","); cfg.AdminEmails != "" {
		promoted, err := userService.PromoteAdmins(ctx, emails)
		if err != nil {
			slog.Error("admin bootstrap failed", "error", err)
		} else {
			slog.Info("admin bootstrap completed", "promoted", promoted)
		}
	}

	// Handlers
	healthHandler := handlers.NewHealthHandler(db)
	userHandler := handlers.NewUserHandler(userService)
	incidentHandler := handlers.NewIncidentHandler(incidentService, userService)
	adminHandler := handlers.NewAdminHandler(incidentService)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    cfg.BodyLimit(),
		ErrorHandler: handlers.ErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecurityHeaders())

	// Routes
	routes.Setup(app, verifier, userService, healthHandler, userHandler, incidentHandler, adminHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "driver", cfg.DBDriver)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	close(cleanupDone)
	if firebase != nil {
		firebase.Close()
	}
	cancel()
	slog.SetDefault(stdout)
	dbLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := database.Close(db); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}
