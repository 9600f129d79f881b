package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	Database    DatabaseConfig
	Gateway     GatewayConfig
	Evidence    EvidenceConfig
	Kafka       KafkaConfig
	Storefront  StorefrontConfig
	Lifecycle   LifecycleConfig
	LogLevel    string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN builds the lib/pq connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type GatewayConfig struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Currency  string
}

type EvidenceConfig struct {
	Dir      string
	MaxBytes int64
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// StorefrontConfig is read by the buyer-side tools
type StorefrontConfig struct {
	BaseURL  string
	Token    string
	CartPath string
}

type LifecycleConfig struct {
	ReturnWindowDays int
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("RETURN_WINDOW_DAYS", "7")
	viper.SetDefault("EVIDENCE_MAX_BYTES", strconv.Itoa(50<<20))

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	windowDays, err := strconv.Atoi(getEnvOrViper("RETURN_WINDOW_DAYS", "7"))
	if err != nil || windowDays < 0 {
		return nil, fmt.Errorf("RETURN_WINDOW_DAYS must be a non-negative integer")
	}
	maxBytes, err := strconv.ParseInt(getEnvOrViper("EVIDENCE_MAX_BYTES", strconv.Itoa(50<<20)), 10, 64)
	if err != nil || maxBytes <= 0 {
		return nil, fmt.Errorf("EVIDENCE_MAX_BYTES must be a positive integer")
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		Database: DatabaseConfig{
			Host:     getEnvOrViper("DB_HOST", "localhost"),
			Port:     getEnvOrViper("DB_PORT", "5432"),
			User:     getEnvOrViper("DB_USER", "postgres"),
			Password: getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrViper("DB_NAME", "storefront"),
			SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
		},
		Gateway: GatewayConfig{
			BaseURL:   getEnvOrViper("GATEWAY_BASE_URL", "https://api.razorpay.com"),
			KeyID:     getEnvOrViper("GATEWAY_KEY_ID", ""),
			KeySecret: getEnvOrViper("GATEWAY_KEY_SECRET", ""),
			Currency:  getEnvOrViper("GATEWAY_CURRENCY", "INR"),
		},
		Evidence: EvidenceConfig{
			Dir:      getEnvOrViper("EVIDENCE_DIR", "./data/evidence"),
			MaxBytes: maxBytes,
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnvOrViper("KAFKA_BROKERS", "")),
			Topic:   getEnvOrViper("KAFKA_TOPIC", "order-item-lifecycle"),
		},
		Storefront: StorefrontConfig{
			BaseURL:  getEnvOrViper("STOREFRONT_API_URL", "http://127.0.0.1:8080/v1"),
			Token:    getEnvOrViper("STOREFRONT_TOKEN", ""),
			CartPath: getEnvOrViper("CART_DB_PATH", "./data/cart.db"),
		},
		Lifecycle: LifecycleConfig{
			ReturnWindowDays: windowDays,
		},
		LogLevel: getEnvOrViper("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// ValidateServer checks the fields the order service cannot run without
func (c *Config) ValidateServer() error {
	if c.Environment != "production" {
		return nil
	}
	if c.Gateway.KeyID == "" {
		return fmt.Errorf("GATEWAY_KEY_ID is required")
	}
	if c.Gateway.KeySecret == "" {
		return fmt.Errorf("GATEWAY_KEY_SECRET is required")
	}
	return nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
