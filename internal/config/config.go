package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"

	defaultFirebaseJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
)

type Config struct {
	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Identity provider
	FirebaseProjectID string
	FirebaseJWKSURL   string
	DevAuth           bool

	// Outbound mail
	SMTPHost      string
	SMTPPort      int
	EmailUser     string
	EmailPassword string
	EmailFrom     string
	NotifyTimeout time.Duration

	// Admin
	AdminEmails string

	// Server
	Port        string
	CORSOrigins string
	BodyLimitMB int
	AppEnv      string
	SentryDSN   string

	// Logging
	LogRetentionDays int
}

// Load reads the environment, after merging a local .env file when one exists.
func Load() *Config {
	_ = godotenv.Load()

	driver := strings.ToLower(getEnv("DB_DRIVER", DriverPostgres))
	defaultPort := "5432"
	if driver == DriverMySQL {
		defaultPort = "3306"
	}

	emailUser := getEnv("EMAIL_USER", "")

	return &Config{
		DBDriver:   driver,
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", defaultPort),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "insurance_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		FirebaseProjectID: getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseJWKSURL:   getEnv("FIREBASE_JWKS_URL", defaultFirebaseJWKSURL),
		DevAuth:           parseBool(getEnv("DEV_AUTH", "false")),

		SMTPHost:      getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:      parseInt(getEnv("SMTP_PORT", "587"), 587),
		EmailUser:     emailUser,
		EmailPassword: getEnv("EMAIL_PASSWORD", ""),
		EmailFrom:     getEnv("EMAIL_FROM", emailUser),
		NotifyTimeout: parseDuration(getEnv("NOTIFY_TIMEOUT", "10s"), 10*time.Second),

		AdminEmails: getEnv("ADMIN_EMAILS", ""),

		Port:        getEnv("PORT", "8000"),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		BodyLimitMB: parseInt(getEnv("BODY_LIMIT_MB", "50"), 50),
		AppEnv:      getEnv("APP_ENV", "development"),
		SentryDSN:   getEnv("SENTRY_DSN", ""),

		LogRetentionDays: parseInt(getEnv("LOG_RETENTION_DAYS", "30"), 30),
	}
}

// Validate reports configurations the server must refuse to start with.
func (c *Config) Validate() error {
	if c.DBDriver != DriverPostgres && c.DBDriver != DriverMySQL {
		return errors.New("DB_DRIVER must be postgres or mysql")
	}
	if c.DBPassword == "" {
		return errors.New("DB_PASSWORD environment variable is required")
	}
	if c.DevAuth && c.IsProduction() {
		return errors.New("DEV_AUTH cannot be enabled when APP_ENV=production")
	}
	if !c.DevAuth && c.FirebaseProjectID == "" {
		return errors.New("FIREBASE_PROJECT_ID environment variable is required")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// MailEnabled is false when no SMTP credentials are configured.
func (c *Config) MailEnabled() bool {
	return c.EmailUser != "" && c.EmailPassword != ""
}

func (c *Config) BodyLimit() int {
	return c.BodyLimitMB * 1024 * 1024
}

func (c *Config) DSN() string {
	if c.DBDriver == DriverMySQL {
		return c.DBUser + ":" + c.DBPassword +
			"@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName +
			"?charset=utf8mb4&parseTime=True&loc=UTC"
	}
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
