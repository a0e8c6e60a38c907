package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Auth
	JWTSecret        string
	JWTExpirationDur time.Duration
	InternalAPIKey   string

	// Ledger
	DefaultCurrency string

	// Forwarded message queue; an empty URL disables the consumer.
	RabbitMQURL       string
	MessageExchange   string
	MessageQueue      string
	MessageRoutingKey string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", ""),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "famledger"),
		DBPassword: getEnv("DB_PASSWORD", "famledger"),
		DBName:     getEnv("DB_NAME", "famledger"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:      getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),
		InternalAPIKey: getEnv("INTERNAL_API_KEY", ""),

		DefaultCurrency: strings.ToUpper(getEnv("DEFAULT_CURRENCY", "INR")),

		RabbitMQURL:       getEnv("RABBITMQ_URL", ""),
		MessageExchange:   getEnv("MESSAGE_EXCHANGE", "famledger.messages"),
		MessageQueue:      getEnv("MESSAGE_QUEUE", "famledger.messages.parse"),
		MessageRoutingKey: getEnv("MESSAGE_ROUTING_KEY", "message.forwarded"),
	}

	expStr := getEnv("JWT_EXPIRES_IN", "24h")
	expDur, err := time.ParseDuration(expStr)
	if err != nil {
		log.Printf("Warning: invalid JWT_EXPIRES_IN value '%s', falling back to 24h\n", expStr)
		expDur = 24 * time.Hour
	}
	config.JWTExpirationDur = expDur

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// DSN returns the PostgreSQL connection string used by GORM.
func (c *Config) DSN() string {
	return "host=" + c.DBHost + " port=" + c.DBPort + " user=" + c.DBUser +
		" password=" + c.DBPassword + " dbname=" + c.DBName + " sslmode=" + c.DBSSLMode
}

// MigrationURL returns the postgres:// URL used by golang-migrate.
func (c *Config) MigrationURL() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort +
		"/" + c.DBName + "?sslmode=" + c.DBSSLMode
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
