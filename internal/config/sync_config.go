package config

import (
	"encoding/json"
	"os"
)

// SyncConfig holds synchronization configuration
type SyncConfig struct {
	// ============ BASIC SETTINGS ============
	Enabled bool `json:"enabled"`

	// ============ SCHEDULING ============
	AutoSyncEnabled  bool   `json:"auto_sync_enabled"`
	AutoSyncInterval int    `json:"auto_sync_interval"` // seconds
	SyncOnStartup    bool   `json:"sync_on_startup"`
	Schedule         string `json:"schedule"` // cron format, takes precedence over the interval

	// ============ LIMITS ============
	SyncTimeout int `json:"sync_timeout"` // seconds, bounds a whole cycle

	// ============ TABLES ============
	// Tables enumerates the gateway tables this client pushes and pulls,
	// in pull order. Work-item tables pull before ERP snapshot tables so
	// reconciliation always sees mutations first.
	Tables []TableSyncConfig `json:"tables"`

	// ============ CONFLICTS ============
	ConflictResolution string `json:"conflict_resolution"` // server_wins is the only supported strategy

	// ============ NOTIFICATIONS ============
	DrainNotifications bool `json:"drain_notifications"`
}

// TableSyncConfig holds sync configuration for a specific gateway table
type TableSyncConfig struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	// Scoped tables pull only rows for this device's branch.
	BranchScoped bool `json:"branch_scoped"`
}

// LoadSyncConfig loads sync configuration from environment or file
func LoadSyncConfig() *SyncConfig {
	// Try to load from file first
	if configPath := os.Getenv("SYNC_CONFIG_PATH"); configPath != "" {
		if cfg, err := loadSyncConfigFromFile(configPath); err == nil {
			return cfg
		}
	}

	// Otherwise use defaults
	return getDefaultSyncConfig()
}

// loadSyncConfigFromFile loads sync config from JSON file
func loadSyncConfigFromFile(path string) (*SyncConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg SyncConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// getDefaultSyncConfig returns default sync configuration
func getDefaultSyncConfig() *SyncConfig {
	return &SyncConfig{
		Enabled: getBoolEnv("SYNC_ENABLED", true),

		AutoSyncEnabled:  getBoolEnv("SYNC_AUTO_ENABLED", true),
		AutoSyncInterval: getIntEnv("SYNC_AUTO_INTERVAL", 300),
		SyncOnStartup:    getBoolEnv("SYNC_ON_STARTUP", true),
		Schedule:         os.Getenv("SYNC_SCHEDULE"),

		SyncTimeout: getIntEnv("SYNC_TIMEOUT", 300),

		Tables: getDefaultTableConfigs(),

		ConflictResolution: getEnv("SYNC_CONFLICT_RESOLUTION", "server_wins"),

		DrainNotifications: getBoolEnv("SYNC_DRAIN_NOTIFICATIONS", true),
	}
}

// getDefaultTableConfigs covers the pulled work-item tables. Notes and
// signatures are push-only and never appear here.
func getDefaultTableConfigs() []TableSyncConfig {
	return []TableSyncConfig{
		{Name: "transfer_work_items", Enabled: true, BranchScoped: true},
		{Name: "receipt_work_items", Enabled: true, BranchScoped: true},
		{Name: "sales_order_work_items", Enabled: true, BranchScoped: true},
	}
}

// Helper functions for environment variables

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
