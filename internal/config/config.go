package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by the server. A .env file in the working
// directory is loaded first; real environment variables win over it.
const (
	envPort          = "INVESTSIGHT_PORT"
	envDataDir       = "INVESTSIGHT_DATA_DIR"
	envDBPath        = "INVESTSIGHT_DB_PATH"
	envLogDir        = "INVESTSIGHT_LOG_DIR"
	envCORSOrigins   = "INVESTSIGHT_CORS_ORIGINS"
	envQuoteCacheTTL = "INVESTSIGHT_QUOTE_CACHE_TTL"
	envQuoteCooldown = "INVESTSIGHT_QUOTE_COOLDOWN"
	envHTTPTimeout   = "INVESTSIGHT_HTTP_TIMEOUT"
	envAIAPIKey      = "INVESTSIGHT_AI_API_KEY"
)

const (
	defaultPort    = 8000
	defaultDBName  = "investsight.db"
	defaultLogSub  = "logs"
	defaultDataSub = "investsight"
)

// Config carries everything the server process needs at startup.
type Config struct {
	Port          int
	DataDir       string
	DBPath        string
	LogDir        string
	CORSOrigins   []string
	QuoteCacheTTL time.Duration
	QuoteCooldown time.Duration
	HTTPTimeout   time.Duration
	// AIAPIKey is the default model API key. Optional; requests may
	// carry their own. Never persisted.
	AIAPIKey string
}

// Load assembles configuration from the environment, creating the data
// directory when needed.
func Load() (Config, error) {
	// Missing .env is the normal case; ignore it.
	_ = godotenv.Load()

	dataDir, err := resolveDataDir()
	if err != nil {
		return Config{}, err
	}

	dbPath := strings.TrimSpace(os.Getenv(envDBPath))
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, defaultDBName)
	}
	logDir := strings.TrimSpace(os.Getenv(envLogDir))
	if logDir == "" {
		logDir = filepath.Join(dataDir, defaultLogSub)
	}

	return Config{
		Port:          getEnvAsInt(envPort, defaultPort),
		DataDir:       dataDir,
		DBPath:        dbPath,
		LogDir:        logDir,
		CORSOrigins:   getEnvAsList(envCORSOrigins, []string{"*"}),
		QuoteCacheTTL: getEnvAsDuration(envQuoteCacheTTL, 30*time.Second),
		QuoteCooldown: getEnvAsDuration(envQuoteCooldown, 2*time.Minute),
		HTTPTimeout:   getEnvAsDuration(envHTTPTimeout, 10*time.Second),
		AIAPIKey:      strings.TrimSpace(os.Getenv(envAIAPIKey)),
	}, nil
}

func resolveDataDir() (string, error) {
	dir := strings.TrimSpace(os.Getenv(envDataDir))
	if dir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			home, homeErr := os.UserHomeDir()
			if homeErr != nil {
				return "", homeErr
			}
			configDir = filepath.Join(home, ".config")
		}
		dir = filepath.Join(configDir, defaultDataSub)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil || i <= 0 {
		return fallback
	}
	return i
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getEnvAsList(key string, fallback []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	var result []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}
