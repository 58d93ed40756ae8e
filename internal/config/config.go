package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr           = ":8080"
	defaultDatabaseURL        = "appointly.db"
	defaultCancellationHours  = "2"
	defaultReminderHours      = "1"
	defaultReminderLimit      = "20"
	defaultReminderMaxLimit   = "100"
	defaultReminderCron       = "@every 15m"
	defaultFCMEndpoint        = "https://fcm.googleapis.com/fcm/send"
	defaultPaymentCurrency    = "usd"
	defaultKafkaTopic         = "appointments.lifecycle.v1"
	defaultRealtimeSecret     = "change-me-realtime-secret"
	defaultCORSAllowedOrigins = "*"
	defaultOTELEndpoint       = "localhost:4317"
	defaultOTELSamplingRatio  = "1"
	RealtimeChannelPrefix     = "appointments:business_"
	defaultRealtimeTokenTTL   = "12h"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	DatabaseURL string

	Booking  BookingConfig
	Reminder ReminderConfig
	Push     PushConfig
	Payment  PaymentConfig
	Realtime RealtimeConfig
	Kafka    KafkaConfig
	OTEL     OTELConfig

	CORSAllowedOrigins []string
}

type BookingConfig struct {
	// CancellationLimit is how long before scheduled_at a customer may still cancel.
	CancellationLimit time.Duration
}

type ReminderConfig struct {
	Grace        time.Duration
	DefaultLimit int
	MaxLimit     int
	Cron         string
}

type PushConfig struct {
	ServerKey string
	Endpoint  string
}

func (p PushConfig) Enabled() bool { return p.ServerKey != "" }

type PaymentConfig struct {
	StripeSecretKey string
	Currency        string
}

func (p PaymentConfig) Enabled() bool { return p.StripeSecretKey != "" }

type RealtimeConfig struct {
	RedisURL  string
	JWTSecret string
	TokenTTL  time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type OTELConfig struct {
	Enabled     bool
	Endpoint    string
	SampleRatio float64
}

// BusinessChannel is the realtime channel name for a business.
func BusinessChannel(businessID string) string {
	return RealtimeChannelPrefix + businessID
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)
	cfg.LogLevel = strings.TrimSpace(getEnv("LOG_LEVEL", "info"))
	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))

	var err error
	cfg.Booking.CancellationLimit, err = parseHoursEnv("CUSTOMER_CANCELLATION_LIMIT_HOURS", defaultCancellationHours)
	if err != nil {
		return nil, err
	}
	cfg.Reminder.Grace, err = parseHoursEnv("RATING_REMINDER_HOURS", defaultReminderHours)
	if err != nil {
		return nil, err
	}
	cfg.Reminder.DefaultLimit, err = parseIntEnv("REMINDER_DEFAULT_LIMIT", defaultReminderLimit)
	if err != nil {
		return nil, err
	}
	cfg.Reminder.MaxLimit, err = parseIntEnv("REMINDER_MAX_LIMIT", defaultReminderMaxLimit)
	if err != nil {
		return nil, err
	}
	cfg.Reminder.Cron = strings.TrimSpace(getEnv("REMINDER_CRON", defaultReminderCron))

	cfg.Push.ServerKey = strings.TrimSpace(os.Getenv("FCM_SERVER_KEY"))
	cfg.Push.Endpoint = strings.TrimSpace(getEnv("FCM_ENDPOINT", defaultFCMEndpoint))

	cfg.Payment.StripeSecretKey = strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY"))
	cfg.Payment.Currency = strings.ToLower(strings.TrimSpace(getEnv("PAYMENT_CURRENCY", defaultPaymentCurrency)))

	cfg.Realtime.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.Realtime.JWTSecret = strings.TrimSpace(getEnv("REALTIME_JWT_SECRET", defaultRealtimeSecret))
	cfg.Realtime.TokenTTL, err = time.ParseDuration(getEnv("REALTIME_TOKEN_TTL", defaultRealtimeTokenTTL))
	if err != nil {
		return nil, fmt.Errorf("invalid REALTIME_TOKEN_TTL: %w", err)
	}

	cfg.Kafka.Brokers = splitList(os.Getenv("KAFKA_BROKERS"))
	cfg.Kafka.Topic = strings.TrimSpace(getEnv("KAFKA_TOPIC", defaultKafkaTopic))

	cfg.OTEL.Enabled = parseBoolEnv("OTEL_ENABLED", "false")
	cfg.OTEL.Endpoint = strings.TrimSpace(getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", defaultOTELEndpoint))
	cfg.OTEL.SampleRatio, err = strconv.ParseFloat(getEnv("OTEL_SAMPLING_RATIO", defaultOTELSamplingRatio), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid OTEL_SAMPLING_RATIO: %w", err)
	}

	cfg.CORSAllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", defaultCORSAllowedOrigins))

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogSummary reports which optional integrations are active.
func (c *Config) LogSummary(logger *slog.Logger) {
	logger.Info("config loaded",
		"env", c.AppEnv,
		"addr", c.HTTPAddr,
		"cancellation_limit", c.Booking.CancellationLimit.String(),
		"reminder_grace", c.Reminder.Grace.String(),
		"push", c.Push.Enabled(),
		"payments", c.Payment.Enabled(),
		"redis", c.Realtime.RedisURL != "",
		"kafka", len(c.Kafka.Brokers) > 0,
		"otel", c.OTEL.Enabled,
	)
	if !c.Push.Enabled() {
		logger.Warn("FCM_SERVER_KEY is not set, push notifications are disabled")
	}
}

func (c *Config) IsProdLike() bool {
	return isProdLike(c.AppEnv)
}

func validateConfig(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.Booking.CancellationLimit < 0 {
		return fmt.Errorf("CUSTOMER_CANCELLATION_LIMIT_HOURS must be >= 0")
	}
	if cfg.Reminder.Grace < 0 {
		return fmt.Errorf("RATING_REMINDER_HOURS must be >= 0")
	}
	if cfg.Reminder.DefaultLimit <= 0 || cfg.Reminder.MaxLimit <= 0 {
		return fmt.Errorf("reminder limits must be > 0")
	}
	if cfg.Reminder.DefaultLimit > cfg.Reminder.MaxLimit {
		return fmt.Errorf("REMINDER_DEFAULT_LIMIT must not exceed REMINDER_MAX_LIMIT")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLING_RATIO must be within [0,1]")
	}
	if cfg.Realtime.TokenTTL <= 0 {
		return fmt.Errorf("REALTIME_TOKEN_TTL must be > 0")
	}
	if isProdLike(cfg.AppEnv) && isEmptyOrDefault(cfg.Realtime.JWTSecret, defaultRealtimeSecret) {
		return fmt.Errorf("in prod/release REALTIME_JWT_SECRET must be set and not default")
	}
	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

// parseHoursEnv accepts fractional hours, e.g. "1.5".
func parseHoursEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	h, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return time.Duration(h * float64(time.Hour)), nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
