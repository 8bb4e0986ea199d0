// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is built once at process start and passed to everything that needs
// it. No package-level state.
type Config struct {
	Port     string
	Database DatabaseConfig
	RedisURL string

	Sweep SweepConfig

	Facebook  FacebookConfig
	Instagram InstagramConfig
	WhatsApp  WhatsAppConfig
	Twilio    TwilioConfig
	SendGrid  SendGridConfig
}

type DatabaseConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
}

// DSN builds a lib/pq connection string. DATABASE_URL wins when set.
func (d DatabaseConfig) DSN() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

type SweepConfig struct {
	Interval time.Duration
}

type FacebookConfig struct {
	PageToken   string
	VerifyToken string
}

type InstagramConfig struct {
	PageToken   string
	VerifyToken string
}

type WhatsAppConfig struct {
	Token         string
	VerifyToken   string
	PhoneNumberID string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

type SendGridConfig struct {
	APIKey     string
	FromSender string
}

// Load reads configuration from the environment, with .env as a convenience
// for local development.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	return &Config{
		Port: getEnv("PORT", "8080"),
		Database: DatabaseConfig{
			User:     getEnv("DB_USER", "marvo"),
			Password: getEnv("DB_PASSWORD", "marvo"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "marvo"),
		},
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),
		Sweep: SweepConfig{
			Interval: getEnvSeconds("SWEEP_INTERVAL_SECONDS", 30),
		},
		Facebook: FacebookConfig{
			PageToken:   os.Getenv("FB_TOKEN"),
			VerifyToken: getEnv("FB_VERIFY_TOKEN", "fallback_secret"),
		},
		Instagram: InstagramConfig{
			PageToken:   os.Getenv("PAGE_ACCESS_TOKEN"),
			VerifyToken: getEnv("INSTAGRAM_VERIFY_TOKEN", "fallback_secret"),
		},
		WhatsApp: WhatsAppConfig{
			Token:         os.Getenv("WHATSAPP_TOKEN"),
			VerifyToken:   getEnv("WHATSAPP_VERIFY_TOKEN", "fallback_secret"),
			PhoneNumberID: os.Getenv("PHONE_NUMBER_ID"),
		},
		Twilio: TwilioConfig{
			AccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
			FromNumber: os.Getenv("TWILIO_PHONE_NUMBER"),
		},
		SendGrid: SendGridConfig{
			APIKey:     os.Getenv("SENDGRID_API_KEY"),
			FromSender: os.Getenv("SENDGRID_VERIFIED_SENDER"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSeconds(key string, fallback int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(fallback) * time.Second
}
