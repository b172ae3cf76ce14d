package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Env      string
	Port     string
	Database DatabaseConfig
	Gateway  GatewayConfig
	ERP      ERPConfig
	Device   DeviceConfig
}

// DatabaseConfig holds local store configuration
type DatabaseConfig struct {
	Path string
}

// GatewayConfig holds remote table-gateway configuration
type GatewayConfig struct {
	BaseURL         string
	APIKey          string
	NotificationURL string
	ProbeURL        string
	ProbeTimeout    int // seconds
	RequestTimeout  int // seconds
}

// ERPConfig holds the ERP backend connection settings
type ERPConfig struct {
	URL      string
	Database string
	Username string
	Password string
}

// DeviceConfig identifies this installation
type DeviceConfig struct {
	DeviceID   string
	BranchID   string
	UserID     string
	UserName   string
	Warehouse  string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	gatewayURL := os.Getenv("GATEWAY_URL")
	if gatewayURL == "" {
		return nil, fmt.Errorf("GATEWAY_URL is required")
	}

	deviceID := os.Getenv("DEVICE_ID")
	if deviceID == "" {
		return nil, fmt.Errorf("DEVICE_ID is required")
	}

	return &Config{
		Env:  getEnv("APP_ENV", "development"),
		Port: getEnv("PORT", "3000"),
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "fieldsync.db"),
		},
		Gateway: GatewayConfig{
			BaseURL:         gatewayURL,
			APIKey:          os.Getenv("GATEWAY_API_KEY"),
			NotificationURL: os.Getenv("NOTIFICATION_URL"),
			ProbeURL:        getEnv("PROBE_URL", gatewayURL),
			ProbeTimeout:    getIntEnv("PROBE_TIMEOUT", 10),
			RequestTimeout:  getIntEnv("GATEWAY_TIMEOUT", 60),
		},
		ERP: ERPConfig{
			URL:      os.Getenv("ERP_URL"),
			Database: os.Getenv("ERP_DATABASE"),
			Username: os.Getenv("ERP_USERNAME"),
			Password: os.Getenv("ERP_PASSWORD"),
		},
		Device: DeviceConfig{
			DeviceID:  deviceID,
			BranchID:  os.Getenv("BRANCH_ID"),
			UserID:    os.Getenv("USER_ID"),
			UserName:  os.Getenv("USER_NAME"),
			Warehouse: os.Getenv("WAREHOUSE_ID"),
		},
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
