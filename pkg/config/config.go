package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DevJWTSecret is the fallback signing secret. It is public, so Validate
// rejects it whenever staff auth is enforced.
const DevJWTSecret = "dev-only-secret-change-in-prod"

var ErrInsecureJWTSecret = errors.New("JWT_SECRET must be set when KIOSK_AUTH_REQUIRED is true")

type Config struct {
	Server    ServerConfig
	Kiosk     KioskConfig
	Upstream  UpstreamConfig
	Embedding EmbeddingConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Auth      AuthConfig
	Email     EmailConfig
}

type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

type KioskConfig struct {
	ID               string
	SessionTTL       time.Duration
	ViewTTL          time.Duration
	RedirectDelay    time.Duration
	MaxUploadBytes   int64
	BadgeSize        int
	IdempotencyTTL   time.Duration
	UnlockRateLimit  int
	UnlockRateWindow time.Duration
}

type UpstreamConfig struct {
	BookingURL string // falls back to NEXT_PUBLIC_API_URL
	PersonURL  string
	Timeout    time.Duration
}

type EmbeddingConfig struct {
	SpaceURL string
	APIName  string
	Token    string
	Timeout  time.Duration
}

type DatabaseConfig struct {
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
	URL   string
	Queue string
}

type AuthConfig struct {
	Required      bool
	JWTSecret     string
	StaffPINHash  string // argon2id encoded hash
	StaffTokenTTL time.Duration
}

type EmailConfig struct {
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPass       string
	SMTPFrom       string
	SMTPUseTLS     bool
	MailerSendKey  string
	FromName       string
	FrontDeskEmail string
	DevMode        bool // print emails to logs instead of sending
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first; variables already set in the environment win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			ReadTimeout:    getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:   getDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:    getDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			AllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Kiosk: KioskConfig{
			ID:               getEnv("KIOSK_ID", "kiosk-1"),
			SessionTTL:       getDuration("SCAN_SESSION_TTL", 15*time.Minute),
			ViewTTL:          getDuration("BOOKING_VIEW_TTL", 30*time.Minute),
			RedirectDelay:    getDuration("SCAN_REDIRECT_DELAY", 300*time.Millisecond),
			MaxUploadBytes:   int64(getInt("MAX_UPLOAD_BYTES", 10<<20)),
			BadgeSize:        getInt("BADGE_SIZE", 256),
			IdempotencyTTL:   getDuration("IDEMPOTENCY_TTL", 24*time.Hour),
			UnlockRateLimit:  getInt("UNLOCK_RATE_LIMIT", 5),
			UnlockRateWindow: getDuration("UNLOCK_RATE_WINDOW", time.Minute),
		},
		Upstream: UpstreamConfig{
			BookingURL: getEnv("BOOKING_API_URL", getEnv("NEXT_PUBLIC_API_URL", "http://localhost:3000/api/bookings")),
			PersonURL:  getEnv("PERSON_API_URL", "https://67738d5e77a26d4701c5a1d8.mockapi.io"),
			Timeout:    getDuration("UPSTREAM_TIMEOUT", 15*time.Second),
		},
		Embedding: EmbeddingConfig{
			SpaceURL: getEnv("EMBEDDING_SPACE_URL", "https://varad-13-face-recognition-poc.hf.space"),
			APIName:  getEnv("EMBEDDING_API_NAME", "predict_1"),
			Token:    getEnv("HF_TOKEN", ""),
			Timeout:  getDuration("EMBEDDING_TIMEOUT", 45*time.Second),
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
			URL:   getEnv("NATS_URL", ""),
			Queue: getEnv("NATS_QUEUE", "kiosk-notify"),
		},
		Auth: AuthConfig{
			Required:      getBool("KIOSK_AUTH_REQUIRED", true),
			JWTSecret:     getEnv("JWT_SECRET", DevJWTSecret),
			StaffPINHash:  getEnv("KIOSK_PIN_HASH", ""),
			StaffTokenTTL: getDuration("STAFF_TOKEN_TTL", 12*time.Hour),
		},
		Email: EmailConfig{
			SMTPHost:       getEnv("SMTP_HOST", "localhost"),
			SMTPPort:       getInt("SMTP_PORT", 1025),
			SMTPUser:       getEnv("SMTP_USER", ""),
			SMTPPass:       getEnv("SMTP_PASS", ""),
			SMTPFrom:       getEnv("SMTP_FROM", "kiosk@checkin.local"),
			SMTPUseTLS:     getBool("SMTP_USE_TLS", false),
			MailerSendKey:  getEnv("MAILERSEND_API_KEY", ""),
			FromName:       getEnv("MAIL_FROM_NAME", "Check-in Kiosk"),
			FrontDeskEmail: getEnv("FRONT_DESK_EMAIL", ""),
			DevMode:        getBool("EMAIL_DEV_MODE", true),
		},
	}
}

// Validate reports settings the service must not start with.
func (c *Config) Validate() error {
	if c.Auth.Required && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == DevJWTSecret) {
		return ErrInsecureJWTSecret
	}
	return nil
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

// getList splits a comma separated variable, dropping empty items.
func getList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
