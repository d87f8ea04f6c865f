package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port             string `yaml:"port"`
	JWTSecret        string `yaml:"jwt_secret"`
	DatabasePath     string `yaml:"database_path"`
	UploadDir        string `yaml:"upload_dir"`
	MaxMessageLength int    `yaml:"max_message_length"`
	MaxUploadBytes   int64  `yaml:"max_upload_bytes"`
	SearchPageSize   int    `yaml:"search_page_size"`
	LogLevel         string `yaml:"log_level"`
	Environment      string `yaml:"environment"`
}

// Load builds the configuration from defaults, an optional YAML file pointed
// at by CHAT_CONFIG, and environment variable overrides, in that order.
// ${VAR} references inside the YAML file are expanded before parsing.
func Load() (Config, error) {
	cfg := Config{
		Port:             "8081",
		JWTSecret:        "dev-super-secret-change-me",
		DatabasePath:     "data/chat.db",
		UploadDir:        "uploads",
		MaxMessageLength: 1000,
		MaxUploadBytes:   5 << 20,
		SearchPageSize:   10,
		LogLevel:         "info",
		Environment:      "development",
	}

	if path := os.Getenv("CHAT_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.DatabasePath = getEnv("DATABASE_PATH", cfg.DatabasePath)
	cfg.UploadDir = getEnv("UPLOAD_DIR", cfg.UploadDir)
	cfg.MaxMessageLength = getEnvAsInt("MAX_MESSAGE_LENGTH", cfg.MaxMessageLength)
	cfg.MaxUploadBytes = int64(getEnvAsInt("MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes)))
	cfg.SearchPageSize = getEnvAsInt("SEARCH_PAGE_SIZE", cfg.SearchPageSize)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.Environment = getEnv("APP_ENV", cfg.Environment)

	return cfg, nil
}

// Development reports whether diagnostic details may be included in error
// responses.
func (c *Config) Development() bool {
	return c.Environment == "development"
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
