package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort      string
	AllowedOrigin string
	UploadDir     string

	LogLevel    string
	Environment string

	DatabaseURL string
	DBName      string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBSSLMode   string
}

// DSN returns the Postgres connection string. DATABASE_URL wins when set,
// otherwise the string is assembled from the DB_* parts.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// DSNForLog is the DSN with the password redacted, safe for logging.
func (c *Config) DSNForLog() string {
	if c.DatabaseURL != "" {
		return "DATABASE_URL (set)"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=*** dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBName, c.DBSSLMode)
}

func (c *Config) IsDev() bool {
	return c.Environment == "dev"
}

func LoadConfig() *Config {
	// Load .env if present, otherwise fall back to system environment.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		HTTPPort:      getEnv("HTTP_PORT", "8000"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "http://localhost:5173"),
		UploadDir:     getEnv("UPLOAD_DIR", "./data/uploads"),
		LogLevel:      getEnv("LOG_LEVEL", "INFO"),
		Environment:   getEnv("ENVIRONMENT", "production"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", ""),
		DBName:        getEnv("DB_NAME", "logbook"),
		DBSSLMode:     getEnv("DB_SSLMODE", "disable"),
	}

	if cfg.DatabaseURL == "" && cfg.DBPassword == "" {
		fmt.Println("WARNING: DB_PASSWORD is not set!")
	}

	return cfg
}

func getEnv(key string, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
