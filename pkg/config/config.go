package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration. It is built once at startup
// and never modified afterwards; the collector only reads from it.
type Config struct {
	Mode     string // "direct" or "test"
	LogLevel string

	// Exposition endpoint
	BindAddress string
	Port        int

	// Collection policy
	DepthLimit      int      // datasets deeper than this emit nothing
	ExcludeDatasets []string // exact dataset names suppressed entirely
	CommandTimeout  time.Duration

	// Commands
	ZPoolListCmd  []string
	ZFSListCmd    []string
	ZFSVersionCmd []string
}

// NewConfig creates a new configuration with default values for the given mode
func NewConfig(mode string) *Config {
	cfg := &Config{
		Mode:            mode,
		LogLevel:        "info",
		BindAddress:     getEnvAsString("BIND_ADDRESS", "127.0.0.1"),
		Port:            getEnvAsInt("PORT", 8000),
		DepthLimit:      getEnvAsInt("DEPTH_LIMIT", 2),
		ExcludeDatasets: getEnvAsStringSlice("EXCLUDE_DATASETS", []string{}),
		CommandTimeout:  time.Duration(getEnvAsInt("COMMAND_TIMEOUT_SECONDS", 10)) * time.Second,
	}

	if mode == "test" {
		cfg.ZPoolListCmd = []string{"cat", "test/zpool_list.json"}
		cfg.ZFSListCmd = []string{"cat", "test/zfs_list_datasets.json"}
		cfg.ZFSVersionCmd = []string{"cat", "test/zfs_version.json"}
	} else {
		cfg.ZPoolListCmd = []string{"zpool", "list", "-j", "-p", "-o", "size,allocated,freeing,health"}
		cfg.ZFSListCmd = []string{"zfs", "list", "-j", "-p",
			"-t", "filesystem,volume,snapshot,bookmark",
			"-o", "name,used,usedbydataset,available,atime,creation,volsize,type"}
		cfg.ZFSVersionCmd = []string{"zfs", "version", "-j"}
	}

	return cfg
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// IsExcluded checks if a dataset name is in the exclusion list.
// Matching is by exact name: excluding "tank/data" does not exclude
// "tank/data/logs".
func (c *Config) IsExcluded(datasetName string) bool {
	for _, excluded := range c.ExcludeDatasets {
		if excluded == datasetName {
			return true
		}
	}

	return false
}

// getEnvAsString reads an environment variable,
// or returns the default value if not set
func getEnvAsString(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value
}

// getEnvAsInt reads an environment variable and returns it as an integer,
// or returns the default value if not set or invalid
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsStringSlice reads an environment variable as a comma-separated list,
// or returns the default value if not set
func getEnvAsStringSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
