package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	DatabaseURL   string

	AdminJWTSecret     string
	CORSAllowedOrigins []string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Tenant registry
	DefaultTenantID    string
	TenantRegistryJSON string

	// Slot generation
	GenerateWindowDays int

	// Booking mutation rate limiting (per tenant+IP)
	BookingRate  float64
	BookingBurst int

	// Reminder scheduling and dispatch
	ReminderOffsets        []time.Duration
	ReminderPollInterval   time.Duration
	ReminderBatchSize      int
	ReminderMaxAttempts    int
	ReminderRetryBaseDelay time.Duration

	// Email delivery
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	// AWS (SES email fallback)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// SMS delivery
	SMSBaseURL    string
	SMSAPIKey     string
	SMSFromNumber string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		DefaultTenantID:    getEnv("DEFAULT_TENANT_ID", "flowiq-default"),
		TenantRegistryJSON: getEnv("TENANT_REGISTRY_JSON", ""),

		GenerateWindowDays: getEnvAsInt("GENERATE_WINDOW_DAYS", 30),

		BookingRate:  getEnvAsFloat("BOOKING_RATE", 2),
		BookingBurst: getEnvAsInt("BOOKING_BURST", 10),

		ReminderOffsets:        getEnvAsDurationList("REMINDER_OFFSETS", []time.Duration{24 * time.Hour, 2 * time.Hour}),
		ReminderPollInterval:   getEnvAsDuration("REMINDER_POLL_INTERVAL", time.Minute),
		ReminderBatchSize:      getEnvAsInt("REMINDER_BATCH_SIZE", 50),
		ReminderMaxAttempts:    getEnvAsInt("REMINDER_MAX_ATTEMPTS", 5),
		ReminderRetryBaseDelay: getEnvAsDuration("REMINDER_RETRY_BASE_DELAY", 5*time.Minute),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "FlowIQ Scheduling"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		SMSBaseURL:    getEnv("SMS_BASE_URL", ""),
		SMSAPIKey:     getEnv("SMS_API_KEY", ""),
		SMSFromNumber: getEnv("SMS_FROM_NUMBER", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsFloat retrieves an environment variable as a float or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList parses a comma-separated environment variable.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, part := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}

// getEnvAsDurationList parses a comma-separated list of durations.
// Entries that fail to parse invalidate the whole list and the default is used.
func getEnvAsDurationList(key string, defaultValue []time.Duration) []time.Duration {
	var values []time.Duration
	for _, part := range getEnvAsList(key, nil) {
		value, err := time.ParseDuration(part)
		if err != nil {
			return defaultValue
		}
		values = append(values, value)
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
