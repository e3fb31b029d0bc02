package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NATS     NATSConfig
	Auth     AuthConfig
	Booking  BookingConfig
	Fee      FeeConfig
	Email    EmailConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	// URL empty means the in-memory store is used.
	URL         string
	MaxConns    int
	MinConns    int
	MaxLifetime time.Duration
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type NATSConfig struct {
	URL string
}

type AuthConfig struct {
	JWTSecret      string
	AccessTokenTTL time.Duration
}

// BookingConfig holds the scheduling rules for the shared pit.
type BookingConfig struct {
	WindowOpen     string // "HH:MM"
	WindowClose    string // "HH:MM"
	MinDuration    time.Duration
	MaxDuration    time.Duration
	MaxAdvanceDays int
	MaxGuests      int
}

type FeeConfig struct {
	UsageAmountCents int64
	DueIn            time.Duration
	OrgTag           string // prefix for payment codes
}

type EmailConfig struct {
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPass      string
	SMTPFrom      string
	MailerSendKey string
	DevMode       bool // print emails to logs instead of sending
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 5*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			URL:         getEnv("DATABASE_URL", ""),
			MaxConns:    getInt("DB_MAX_CONNS", 10),
			MinConns:    getInt("DB_MIN_CONNS", 1),
			MaxLifetime: getDuration("DB_MAX_LIFETIME", time.Hour),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			URL: getEnv("NATS_URL", ""),
		},
		Auth: AuthConfig{
			JWTSecret:      getEnv("JWT_SECRET", "dev-only-secret-change-in-prod"),
			AccessTokenTTL: getDuration("ACCESS_TOKEN_TTL", 8*time.Hour),
		},
		Booking: BookingConfig{
			WindowOpen:     getEnv("WINDOW_OPEN", "08:00"),
			WindowClose:    getEnv("WINDOW_CLOSE", "18:00"),
			MinDuration:    getDuration("MIN_DURATION", 4*time.Hour),
			MaxDuration:    getDuration("MAX_DURATION", 8*time.Hour),
			MaxAdvanceDays: getInt("MAX_ADVANCE_DAYS", 30),
			MaxGuests:      getInt("MAX_GUESTS", 20),
		},
		Fee: FeeConfig{
			UsageAmountCents: getCents("RESERVATION_FEE", 2500),
			DueIn:            getDuration("FEE_DUE_IN", 24*time.Hour),
			OrgTag:           getEnv("ORG_TAG", "UNION"),
		},
		Email: EmailConfig{
			SMTPHost:      getEnv("SMTP_HOST", "localhost"),
			SMTPPort:      getInt("SMTP_PORT", 1025),
			SMTPUser:      getEnv("SMTP_USER", ""),
			SMTPPass:      getEnv("SMTP_PASS", ""),
			SMTPFrom:      getEnv("SMTP_FROM", "noreply@unionhall.local"),
			MailerSendKey: getEnv("MAILERSEND_API_KEY", ""),
			DevMode:       getBool("EMAIL_DEV_MODE", true),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// getCents parses a decimal amount like "25.00" into integer cents.
func getCents(key string, fallback int64) int64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f < 0 {
		return fallback
	}
	return int64(f*100 + 0.5)
}
