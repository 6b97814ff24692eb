// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketGatePhotos() string
	GetMinioBucketExports() string
	IsMinIOEnabled() bool
}

// SchedulerConfig provides settings for the asynq background worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// SMTPConfig provides settings for outgoing review notifications.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetReviewNotifyAddress() string
	IsSMTPEnabled() bool
}

// GatePolicyConfig provides the tunables of the gate workflow engine.
type GatePolicyConfig interface {
	GetExceptionReviewThreshold() int
	GetGeofenceRadiusMeters() float64
	GetUploadMaxAttempts() int
	GetUploadRetryDelay() time.Duration
	GetPhoneDefaultRegion() string
}

// ReviewConfig provides settings for the supervisor review reminders.
type ReviewConfig interface {
	GetReviewSweepInterval() time.Duration
	GetReviewReminderAfter() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                      string
	HTTPAddr                 string
	DatabaseURL              string
	MigrationsDir            string
	JWTAccessSecret          string
	CORSAllowAll             bool
	CORSOrigins              []string
	CORSAllowCreds           bool
	MinIOEndpoint            string
	MinIOAccessKey           string
	MinIOSecretKey           string
	MinIOUseSSL              bool
	MinIOMaxFileSize         int64
	MinioBucketGatePhotos    string
	MinioBucketExports       string
	RedisURL                 string
	RedisTLSInsecure         bool
	AsynqQueueName           string
	AsynqConcurrency         int
	SMTPHost                 string
	SMTPPort                 int
	SMTPUsername             string
	SMTPPassword             string
	EmailFromName            string
	EmailFromAddress         string
	ReviewNotifyAddress      string
	GatePolicyFile           string
	ExceptionReviewThreshold int
	GeofenceRadiusMeters     float64
	UploadMaxAttempts        int
	UploadRetryDelay         time.Duration
	PhoneDefaultRegion       string
	ReviewSweepInterval      time.Duration
	ReviewReminderAfter      time.Duration
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string         { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string        { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string        { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool             { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64       { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketGatePhotos() string { return c.MinioBucketGatePhotos }
func (c *Config) GetMinioBucketExports() string    { return c.MinioBucketExports }
func (c *Config) IsMinIOEnabled() bool             { return c.MinIOEndpoint != "" }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// SMTPConfig implementation
func (c *Config) GetSMTPHost() string            { return c.SMTPHost }
func (c *Config) GetSMTPPort() int               { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string        { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string        { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string       { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string    { return c.EmailFromAddress }
func (c *Config) GetReviewNotifyAddress() string { return c.ReviewNotifyAddress }
func (c *Config) IsSMTPEnabled() bool            { return c.SMTPHost != "" }

// GatePolicyConfig implementation
func (c *Config) GetExceptionReviewThreshold() int   { return c.ExceptionReviewThreshold }
func (c *Config) GetGeofenceRadiusMeters() float64   { return c.GeofenceRadiusMeters }
func (c *Config) GetUploadMaxAttempts() int          { return c.UploadMaxAttempts }
func (c *Config) GetUploadRetryDelay() time.Duration { return c.UploadRetryDelay }
func (c *Config) GetPhoneDefaultRegion() string      { return c.PhoneDefaultRegion }

// ReviewConfig implementation
func (c *Config) GetReviewSweepInterval() time.Duration { return c.ReviewSweepInterval }
func (c *Config) GetReviewReminderAfter() time.Duration { return c.ReviewReminderAfter }

// GetMigrationsDir returns the on-disk migrations directory, if any.
func (c *Config) GetMigrationsDir() string { return c.MigrationsDir }

// Load reads configuration from environment variables, then applies the
// optional gate policy file on top.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                      getEnv("APP_ENV", "development"),
		HTTPAddr:                 getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		MigrationsDir:            getEnv("MIGRATIONS_DIR", ""),
		JWTAccessSecret:          getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:             corsAllowAll,
		CORSOrigins:              corsOrigins,
		CORSAllowCreds:           strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		MinIOEndpoint:            getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:           getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:           getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:              strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:         mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "26214400")),
		MinioBucketGatePhotos:    getEnv("MINIO_BUCKET_GATE_PHOTOS", "gate-photos"),
		MinioBucketExports:       getEnv("MINIO_BUCKET_EXPORTS", "gate-exports"),
		RedisURL:                 getEnv("REDIS_URL", ""),
		RedisTLSInsecure:         strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:           getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:         mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		SMTPHost:                 getEnv("SMTP_HOST", ""),
		SMTPPort:                 mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:             getEnv("SMTP_USERNAME", ""),
		SMTPPassword:             getEnv("SMTP_PASSWORD", ""),
		EmailFromName:            getEnv("EMAIL_FROM_NAME", "Field Gates"),
		EmailFromAddress:         getEnv("EMAIL_FROM_ADDRESS", ""),
		ReviewNotifyAddress:      getEnv("REVIEW_NOTIFY_ADDRESS", ""),
		GatePolicyFile:           getEnv("GATE_POLICY_FILE", ""),
		ExceptionReviewThreshold: mustInt(getEnv("EXCEPTION_REVIEW_THRESHOLD", "2")),
		GeofenceRadiusMeters:     mustFloat(getEnv("GEOFENCE_RADIUS_METERS", "250")),
		UploadMaxAttempts:        mustInt(getEnv("UPLOAD_MAX_ATTEMPTS", "3")),
		UploadRetryDelay:         mustDuration(getEnv("UPLOAD_RETRY_DELAY", "500ms")),
		PhoneDefaultRegion:       getEnv("PHONE_DEFAULT_REGION", "US"),
		ReviewSweepInterval:      mustDuration(getEnv("REVIEW_SWEEP_INTERVAL", "1h")),
		ReviewReminderAfter:      mustDuration(getEnv("REVIEW_REMINDER_AFTER", "24h")),
	}

	if cfg.GatePolicyFile != "" {
		policy, err := LoadPolicyFile(cfg.GatePolicyFile)
		if err != nil {
			return nil, err
		}
		policy.Apply(cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTAccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if c.CORSAllowAll && c.CORSAllowCreds {
		return fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if c.IsSMTPEnabled() && c.EmailFromAddress == "" {
		return fmt.Errorf("EMAIL_FROM_ADDRESS is required when SMTP_HOST is set")
	}
	if c.ExceptionReviewThreshold < 0 {
		return fmt.Errorf("EXCEPTION_REVIEW_THRESHOLD must not be negative")
	}
	if c.UploadMaxAttempts < 1 {
		return fmt.Errorf("UPLOAD_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
