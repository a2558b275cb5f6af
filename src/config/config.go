package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const fallbackJWTSecret = "fallback-secret-key"

// Config holds every setting the API reads from the environment
type Config struct {
	Port       string
	AppEnv     string
	PublicDir  string
	CORSOrigin string

	Database DatabaseConfig

	JWTSecret    string
	JWTExpiresIn time.Duration

	ImageHost     string
	UploadDir     string
	CloudinaryURL string

	NATSURL string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver       string
	Path         string
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// IsProduction reports whether cookies and secrets must be production grade
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "3000"),
		AppEnv:        getEnv("APP_ENV", "development"),
		PublicDir:     os.Getenv("PUBLIC_DIR"),
		CORSOrigin:    getEnv("CORS_ORIGINS", "http://localhost:5173"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		ImageHost:     strings.ToLower(getEnv("IMAGE_HOST", "local")),
		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
		CloudinaryURL: os.Getenv("CLOUDINARY_URL"),
		NATSURL:       os.Getenv("NATS_URL"),
		Database: DatabaseConfig{
			Driver: strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			Path:   getEnv("DB_PATH", "./odling.db"),
			URL:    os.Getenv("DATABASE_URL"),
		},
	}

	var err error
	if cfg.JWTExpiresIn, err = getEnvAsDuration("JWT_EXPIRES_IN", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Database.MaxOpenConns, err = getEnvAsInt("DB_MAX_OPEN_CONNS", 25); err != nil {
		return nil, err
	}
	if cfg.Database.MaxIdleConns, err = getEnvAsInt("DB_MAX_IDLE_CONNS", 5); err != nil {
		return nil, err
	}
	if cfg.Database.MaxLifetime, err = getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	switch c.ImageHost {
	case "local":
	case "cloudinary":
		if c.CloudinaryURL == "" {
			return fmt.Errorf("CLOUDINARY_URL is required when IMAGE_HOST=cloudinary")
		}
	default:
		return fmt.Errorf("unsupported IMAGE_HOST %q", c.ImageHost)
	}

	if c.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		c.JWTSecret = fallbackJWTSecret
	}
	if c.JWTExpiresIn <= 0 {
		return fmt.Errorf("JWT_EXPIRES_IN must be positive")
	}
	return nil
}

// CORSOrigins returns the configured origins as a list
func (c *Config) CORSOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}
