package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	CORS       CORSConfig
	JWT        JWTConfig
	Auth       AuthConfig
	PagoPlux   PagoPluxConfig
	Email      EmailConfig
	Storage    StorageConfig
	StoryBrand StoryBrandConfig
	Redis      RedisConfig
	Scheduler  SchedulerConfig
	Frontend   FrontendConfig
	Upload     UploadConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	AutoMigrate        bool
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// JWTConfig holds JWT-related configuration for back-office operators
type JWTConfig struct {
	Secret             string
	RefreshSecret      string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// AuthConfig toggles authentication on back-office routes
type AuthConfig struct {
	Enabled bool
}

// PagoPluxConfig holds payment-link gateway configuration
type PagoPluxConfig struct {
	Endpoint string
	Token    string // Basic auth token, sent as "Basic <token>"
	RUC      string // merchant RUC (rucEstablecimiento)
	Timeout  time.Duration
}

// EmailConfig holds transactional email configuration
type EmailConfig struct {
	ResendAPIKey       string
	From               string
	InternalRecipients []string
	PolicyURL          string
	SupportEmail       string
}

// StorageConfig holds S3-compatible object storage configuration
type StorageConfig struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	EndpointURL     string // optional, for S3-compatible providers
	PublicBaseURL   string // optional, overrides the default public object URL
	RootPrefix      string
}

// StoryBrandConfig holds the external account service configuration
type StoryBrandConfig struct {
	BaseURL string
	Timeout time.Duration
}

// RedisConfig holds the optional cache configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SchedulerConfig holds cron configuration
type SchedulerConfig struct {
	Enabled          bool
	Timezone         string
	ReminderSchedule string // six-field cron expression (with seconds)
	ReminderMinAge   time.Duration
}

// FrontendConfig holds the client-facing frontend host used in onboarding links
type FrontendConfig struct {
	Host string
}

// UploadConfig holds consultancy intake upload limits
type UploadConfig struct {
	MaxFileSize int64
	MaxFiles    int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8100"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
			AutoMigrate:        getEnvAsBool("DATABASE_AUTO_MIGRATE", false),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:8100"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", ""),
			RefreshSecret:      getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenExpiry:  time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
			RefreshTokenExpiry: time.Duration(getEnvAsInt("JWT_REFRESH_TOKEN_EXPIRY", 604800)) * time.Second,
		},
		Auth: AuthConfig{
			Enabled: getEnvAsBool("AUTH_ENABLED", true),
		},
		PagoPlux: PagoPluxConfig{
			Endpoint: getEnv("PAGOPLUX_ENDPOINT", "https://api.pagoplux.com/intv1/integrations/createLinkFacturaResource"),
			Token:    getEnv("PAGOPLUX_TOKEN", ""),
			RUC:      getEnv("PAGOPLUX_RUC", ""),
			Timeout:  time.Duration(getEnvAsInt("PAGOPLUX_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Email: EmailConfig{
			ResendAPIKey:       getEnv("RESEND_API_KEY", ""),
			From:               getEnv("EMAIL_FROM", "bakano@bakano.ec"),
			InternalRecipients: getEnvAsSlice("EMAIL_INTERNAL_RECIPIENTS", []string{"dquimi@bakano.ec"}),
			PolicyURL:          getEnv("EMAIL_POLICY_URL", "https://mkt.bakano.ec/politicas"),
			SupportEmail:       getEnv("EMAIL_SUPPORT_ADDRESS", "dquimi@bakano.ec"),
		},
		Storage: StorageConfig{
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", "us-east-1"),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			EndpointURL:     getEnv("S3_ENDPOINT_URL", ""),
			PublicBaseURL:   getEnv("S3_PUBLIC_BASE_URL", ""),
			RootPrefix:      getEnv("S3_ROOT_PREFIX", "consultancy"),
		},
		StoryBrand: StoryBrandConfig{
			BaseURL: getEnv("STORYBRAND_BASE_URL", "http://localhost:8101"),
			Timeout: time.Duration(getEnvAsInt("STORYBRAND_TIMEOUT_SECONDS", 15)) * time.Second,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Scheduler: SchedulerConfig{
			Enabled:          getEnvAsBool("SCHEDULER_ENABLED", true),
			Timezone:         getEnv("SCHEDULER_TIMEZONE", "America/Guayaquil"),
			ReminderSchedule: getEnv("UPLOAD_REMINDER_SCHEDULE", "0 0 11 * * 3"),
			ReminderMinAge:   time.Duration(getEnvAsInt("UPLOAD_REMINDER_MIN_AGE_HOURS", 48)) * time.Hour,
		},
		Frontend: FrontendConfig{
			Host: getEnv("FRONTEND_URL", "localhost:8100"),
		},
		Upload: UploadConfig{
			MaxFileSize: int64(getEnvAsInt("UPLOAD_MAX_FILE_SIZE_MB", 50)) << 20,
			MaxFiles:    getEnvAsInt("UPLOAD_MAX_FILES", 10),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Auth.Enabled {
		if c.JWT.Secret == "" {
			return fmt.Errorf("JWT_SECRET is required when AUTH_ENABLED is true")
		}
		if c.JWT.RefreshSecret == "" {
			return fmt.Errorf("JWT_REFRESH_SECRET is required when AUTH_ENABLED is true")
		}
	}

	if c.Server.Environment == "production" {
		if c.PagoPlux.Token == "" {
			return fmt.Errorf("PAGOPLUX_TOKEN is required in production")
		}
		if c.Email.ResendAPIKey == "" {
			return fmt.Errorf("RESEND_API_KEY is required in production")
		}
		if c.Storage.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required in production")
		}
	}

	if c.Upload.MaxFiles <= 0 {
		return fmt.Errorf("UPLOAD_MAX_FILES must be positive")
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("invalid SCHEDULER_TIMEZONE %q: %w", c.Scheduler.Timezone, err)
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
