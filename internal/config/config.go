// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all environment-driven settings.
type Config struct {
	Port        string
	Environment string // "production" enables strict cookie settings

	DatabaseDSN string

	JWTSecret string
	JWTExpiry time.Duration

	FrontendURL string

	Google GoogleConfig
	SMTP   SMTPConfig
	MinIO  MinIOConfig

	AnalysisServiceURL string
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	JWKSURL      string
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Sender   string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Configured reports whether SMTP delivery is set up at all.
func (s SMTPConfig) Configured() bool {
	return s.Host != ""
}

// Configured reports whether the optional VCF archive is set up.
func (m MinIOConfig) Configured() bool {
	return m.Endpoint != ""
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load builds a Config from environment variables. godotenv is expected to
// have populated the environment already.
func Load() *Config {
	cfg := &Config{
		Port:        getenv("PORT", "8080"),
		Environment: getenv("APP_ENV", "development"),
		DatabaseDSN: os.Getenv("DATABASE_DSN"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTExpiry:   getduration("JWT_EXPIRY", 24*time.Hour),
		FrontendURL: getenv("FRONTEND_URL", "http://localhost:5173"),
		Google: GoogleConfig{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("GOOGLE_REDIRECT_URI"),
			JWKSURL:      getenv("GOOGLE_JWKS_URL", "https://www.googleapis.com/oauth2/v3/certs"),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("EMAIL_HOST"),
			Port:     getint("EMAIL_PORT", 587),
			User:     os.Getenv("EMAIL_USER"),
			Password: os.Getenv("EMAIL_PASS"),
			Sender:   os.Getenv("SENDER_EMAIL"),
		},
		MinIO: MinIOConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    getenv("MINIO_BUCKET", "pharmaguard-vcf"),
			UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
		},
		AnalysisServiceURL: getenv("ANALYSIS_SERVICE_URL", "http://localhost:8000"),
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
