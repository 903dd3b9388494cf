package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bakano/consultancy-backend/internal/app"
	"github.com/bakano/consultancy-backend/internal/config"
	"github.com/bakano/consultancy-backend/internal/database"
	"github.com/bakano/consultancy-backend/internal/handlers"
	"github.com/bakano/consultancy-backend/internal/middleware"
	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/bakano/consultancy-backend/internal/services"
	"github.com/bakano/consultancy-backend/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting Bakano consultancy backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	if err := validator.RegisterBindings(); err != nil {
		logger.Fatalf("Failed to register validators: %v", err)
	}

	if cfg.Database.AutoMigrate {
		if err := migrateUp(cfg.Database.URL, logger); err != nil {
			logger.Fatalf("Failed to migrate database: %v", err)
		}
	}

	logger.Info("Connecting to database...")
	application, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize application: %v", err)
	}
	defer application.Close()
	logger.Info("Database connection established")

	if !cfg.Auth.Enabled {
		logger.Warn("AUTH_ENABLED=false, back-office routes are unauthenticated")
	}

	var cronService *services.CronService
	if cfg.Scheduler.Enabled {
		cronService, err = application.NewCron(cfg.Scheduler)
		if err != nil {
			logger.Fatalf("Failed to create cron service: %v", err)
		}
		if err := cronService.Start(); err != nil {
			logger.Fatalf("Failed to start cron service: %v", err)
		}
	}

	router := gin.New()
	router.MaxMultipartMemory = 32 << 20
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.CORS))

	router.GET("/health", handlers.HealthCheck(application.DB, version))

	handlers.RegisterRoutes(router, handlers.Handlers{
		Auth:       handlers.NewAdminAuthHandler(application.AdminAuth, logger),
		Payments:   handlers.NewPaymentHandler(application.Reconciliation, application.Payments, logger),
		Meetings:   handlers.NewMeetingHandler(application.Meetings, logger),
		Checklists: handlers.NewChecklistHandler(application.Checklists, logger),
		Businesses: handlers.NewBusinessHandler(application.Businesses, handlers.UploadLimits{
			MaxFiles:       cfg.Upload.MaxFiles,
			MaxFileSize:    cfg.Upload.MaxFileSize,
			ReminderMinAge: cfg.Scheduler.ReminderMinAge,
		}, logger),
		Clients:    handlers.NewClientHandler(application.Clients, logger),
		Search:     handlers.NewSearchHandler(application.Search, logger),
		StoryBrand: handlers.NewStoryBrandHandler(application.StoryBrand, logger),
	}, handlers.Guards{
		Admin:          middleware.AdminGuard(application.JWT, cfg.Auth.Enabled, models.AdminRole),
		DirectTransfer: middleware.DirectTransferGuard(application.JWT, cfg.Auth.Enabled, models.AdminRole),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server listening on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if cronService != nil {
		cronService.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

func migrateUp(databaseURL string, logger *logrus.Logger) error {
	migrator, err := database.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer migrator.Close()

	applied, err := migrator.Up()
	if err != nil {
		return err
	}
	if applied {
		logger.Info("Database migrations applied")
	} else {
		logger.Info("Database schema is up to date")
	}
	return nil
}
