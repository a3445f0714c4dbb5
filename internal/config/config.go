package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             int
	ModelDirectory   string
	ScratchDirectory string // Empty means the OS temp directory
	LogDirectory     string
	DatabasePath     string
	CatalogPath      string // Optional YAML catalog override
	StaticDirectory  string
	DownloadTimeout  int // Seconds allowed per model download
	InputSize        int // Square network input size
}

// Load reads the configuration from the environment, optionally seeded from a .env file.
func Load() *Config {
	// .env is optional
	_ = godotenv.Load()

	modelDir := getEnv("MODEL_DIR", filepath.Join(".", "models"))

	return &Config{
		Port:             getEnvAsInt("PORT", 8080),
		ModelDirectory:   modelDir,
		ScratchDirectory: getEnv("SCRATCH_DIR", ""),
		LogDirectory:     getEnv("LOG_DIR", filepath.Join(".", "logs")),
		DatabasePath:     getEnv("DB_PATH", filepath.Join(modelDir, "cache.db")),
		CatalogPath:      getEnv("CATALOG_PATH", ""),
		StaticDirectory:  getEnv("STATIC_DIR", filepath.Join(".", "static")),
		DownloadTimeout:  getEnvAsInt("DOWNLOAD_TIMEOUT", 600),
		InputSize:        getEnvAsInt("INPUT_SIZE", 640),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}
