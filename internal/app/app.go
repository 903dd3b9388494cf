// Package app builds the service graph shared by the server and the admin CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bakano/consultancy-backend/internal/catalog"
	"github.com/bakano/consultancy-backend/internal/config"
	"github.com/bakano/consultancy-backend/internal/database"
	"github.com/bakano/consultancy-backend/internal/services"
	"github.com/bakano/consultancy-backend/pkg/cache"
	"github.com/bakano/consultancy-backend/pkg/email"
	"github.com/bakano/consultancy-backend/pkg/jwt"
	"github.com/bakano/consultancy-backend/pkg/pagoplux"
	"github.com/bakano/consultancy-backend/pkg/storage"
	"github.com/bakano/consultancy-backend/pkg/storybrand"
	"github.com/sirupsen/logrus"
)

// App holds the open connections and every service
type App struct {
	DB     *database.PostgresDB
	JWT    *jwt.Service
	Tokens *database.AdminRefreshTokenRepository

	AdminAuth      *services.AdminAuthService
	Reconciliation *services.ReconciliationService
	Payments       *services.PaymentService
	Meetings       *services.MeetingService
	Checklists     *services.ChecklistService
	Businesses     *services.BusinessService
	Clients        *services.ClientService
	Search         *services.SearchService
	StoryBrand     *services.StoryBrandService

	cache  services.Cache
	logger *logrus.Logger
}

// New connects to the database and the optional collaborators and wires the services
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	templates, err := catalog.LoadTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to load checklist templates: %w", err)
	}
	calendars, err := catalog.LoadCalendars()
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar routes: %w", err)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		return nil, err
	}

	mailer, err := newMailer(cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	fileStorage, err := newStorage(ctx, cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	summaryCache := newCache(ctx, cfg, logger)

	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)

	stores := services.NewStores(db.DB)
	tx := services.NewSQLTransactor(db.DB, logger)
	events := database.NewPaymentEventRepository(db.DB, logger)
	tokens := database.NewAdminRefreshTokenRepository(db.DB)
	links := pagoplux.NewClient(pagoplux.Config{
		Endpoint: cfg.PagoPlux.Endpoint,
		Token:    cfg.PagoPlux.Token,
		RUC:      cfg.PagoPlux.RUC,
		Timeout:  cfg.PagoPlux.Timeout,
	}, logger)

	return &App{
		DB:     db,
		JWT:    jwtService,
		Tokens: tokens,

		AdminAuth:      services.NewAdminAuthService(database.NewAdminUserRepository(db.DB), tokens, jwtService, logger),
		Reconciliation: services.NewReconciliationService(stores, tx, events, mailer, summaryCache, logger),
		Payments:       services.NewPaymentService(stores, events, links, summaryCache, logger),
		Meetings:       services.NewMeetingService(stores, tx, calendars, logger),
		Checklists:     services.NewChecklistService(stores, tx, templates, logger),
		Businesses:     services.NewBusinessService(stores, tx, fileStorage, mailer, logger),
		Clients:        services.NewClientService(stores, fileStorage, mailer, logger),
		Search:         services.NewSearchService(database.NewSearchRepository(db.DB), stores.Businesses, logger),
		StoryBrand:     services.NewStoryBrandService(stores, storybrand.NewClient(cfg.StoryBrand.BaseURL, cfg.StoryBrand.Timeout, logger), logger),

		cache:  summaryCache,
		logger: logger,
	}, nil
}

// NewCron builds the scheduler for the reminder and token cleanup jobs
func (a *App) NewCron(cfg config.SchedulerConfig) (*services.CronService, error) {
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", cfg.Timezone, err)
	}
	return services.NewCronService(services.CronSchedule{
		Location:         location,
		ReminderSchedule: cfg.ReminderSchedule,
		ReminderMinAge:   cfg.ReminderMinAge,
	}, a.Businesses, a.Tokens, a.logger), nil
}

// Close releases the cache and the database pool
func (a *App) Close() {
	if closer, ok := a.cache.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close cache")
		}
	}
	if err := a.DB.Close(); err != nil {
		a.logger.WithError(err).Warn("Failed to close database")
	}
}

func newMailer(cfg *config.Config, logger *logrus.Logger) (*email.Mailer, error) {
	var transport email.Transport
	if cfg.Email.ResendAPIKey != "" {
		transport = email.NewResendTransport(cfg.Email.ResendAPIKey)
	} else {
		logger.Warn("RESEND_API_KEY not set, emails will only be logged")
		transport = email.NewLogTransport(logger)
	}

	mailer, err := email.NewMailer(transport, email.Config{
		From:               cfg.Email.From,
		InternalRecipients: cfg.Email.InternalRecipients,
		PolicyURL:          cfg.Email.PolicyURL,
		SupportEmail:       cfg.Email.SupportEmail,
		FrontendHost:       cfg.Frontend.Host,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}
	return mailer, nil
}

func newStorage(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (services.FileStorage, error) {
	s3Storage, err := storage.NewS3Storage(ctx, storage.Config{
		Bucket:          cfg.Storage.Bucket,
		Region:          cfg.Storage.Region,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		EndpointURL:     cfg.Storage.EndpointURL,
		PublicBaseURL:   cfg.Storage.PublicBaseURL,
		RootPrefix:      cfg.Storage.RootPrefix,
	}, logger)
	if errors.Is(err, storage.ErrNotConfigured) {
		logger.Warn("S3_BUCKET not set, intake uploads are disabled")
		return storage.Disabled{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}
	return s3Storage, nil
}

// newCache falls back to a no-op cache so reporting keeps working without Redis
func newCache(ctx context.Context, cfg *config.Config, logger *logrus.Logger) services.Cache {
	if cfg.Redis.Addr == "" {
		return cache.NoopCache{}
	}
	redisCache, err := cache.NewRedisCache(ctx, cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   "consultancy:",
	}, logger)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, caching disabled")
		return cache.NoopCache{}
	}
	logger.WithField("addr", cfg.Redis.Addr).Info("Redis cache connected")
	return redisCache
}
