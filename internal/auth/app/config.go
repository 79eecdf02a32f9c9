package app

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spyberpolymath/folio-auth/internal/auth/mail"
	"github.com/spyberpolymath/folio-auth/pkg/jwtx"
)

type Config struct {
	SigningSecret []byte // Required: HMAC secret for session tokens (min 32 bytes)
	Issuer        string // Optional: issuer claim for tokens (default: folio-auth)

	DatabaseFile string // Optional: path to SQLite database file (default: ./auth.db)
	PepperFile   string // Optional: path to pepper file for password hashing (default: ./pepper)

	AccessTokenTTL time.Duration // Optional: session token lifetime (default: 8h)
	OTPTTL         time.Duration // Optional: email code lifetime (default: 5m)
	SiteName       string        // Optional: name used in code emails (default: folio)

	SMTP mail.SMTPConfig // Optional: outbound mail; codes are logged when unset

	BootstrapAdminEmail    string // Optional: seed admin when the user table is empty
	BootstrapAdminPassword string
	BootstrapAdminName     string

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() (Config, error) {
	cfg := Config{
		Issuer:       getEnvOrDefault("AUTH_ISSUER", "folio-auth"),
		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:   getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		AccessTokenTTL: getEnvDurationOrDefault("ACCESS_TOKEN_TTL", jwtx.DefaultSessionTokenTTL),
		OTPTTL:         getEnvDurationOrDefault("OTP_TTL", 5*time.Minute),
		SiteName:       getEnvOrDefault("SITE_NAME", "folio"),

		SMTP: mail.SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnvIntOrDefault("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},

		BootstrapAdminEmail:    os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
		BootstrapAdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		BootstrapAdminName:     getEnvOrDefault("BOOTSTRAP_ADMIN_NAME", "Admin"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	secret := os.Getenv("AUTH_SIGNING_SECRET")
	if secret == "" {
		return Config{}, fmt.Errorf("AUTH_SIGNING_SECRET is required")
	}
	if len(secret) < jwtx.MinSecretLength {
		return Config{}, fmt.Errorf(
			"AUTH_SIGNING_SECRET must be at least %d bytes, got %d",
			jwtx.MinSecretLength, len(secret),
		)
	}
	cfg.SigningSecret = []byte(secret)

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Integer values are read as minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
