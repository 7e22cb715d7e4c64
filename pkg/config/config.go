// Package config provides configuration management for kakutei.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	Workbook WorkbookConfig
	Freee    FreeeConfig
	HTTPAddr string
	LogLevel string
	Debug    bool
}

// WorkbookConfig locates the yearly workbooks, the history database and an
// optional directory of rule tables overriding the embedded ones.
type WorkbookConfig struct {
	Root     string
	DBPath   string
	RulesDir string
}

// FreeeConfig represents freee API configuration used by the importer.
type FreeeConfig struct {
	AccessToken string
	CompanyID   int64
	APIURL      string
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// .env is optional
		_ = godotenv.Load()
	}

	companyID, err := parseInt64Env("FREEE_COMPANY_ID", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid FREEE_COMPANY_ID: %w", err)
	}

	config := &Config{
		Workbook: WorkbookConfig{
			Root:     getEnvOrDefault("KAKUTEI_ROOT", "./kakutei"),
			DBPath:   os.Getenv("KAKUTEI_DB_PATH"),
			RulesDir: os.Getenv("KAKUTEI_RULES_DIR"),
		},
		Freee: FreeeConfig{
			AccessToken: os.Getenv("FREEE_ACCESS_TOKEN"),
			CompanyID:   companyID,
			APIURL:      getEnvOrDefault("FREEE_API_URL", "https://api.freee.co.jp"),
		},
		HTTPAddr: getEnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel: strings.ToLower(os.Getenv("LOG_LEVEL")),
		Debug:    os.Getenv("DEBUG") == "true",
	}

	return config, nil
}

// Validate checks that every required key is set.
// Keys are dotted paths such as "freee.accessToken".
func (c *Config) Validate(required ...string) error {
	var missing []string

	for _, key := range required {
		var value string
		switch key {
		case "workbook.root":
			value = c.Workbook.Root
		case "workbook.dbPath":
			value = c.Workbook.DBPath
		case "freee.accessToken":
			value = c.Freee.AccessToken
		case "freee.companyId":
			if c.Freee.CompanyID != 0 {
				value = "set"
			}
		case "freee.apiUrl":
			value = c.Freee.APIURL
		case "httpAddr":
			value = c.HTTPAddr
		default:
			return fmt.Errorf("unknown configuration key: %s", key)
		}

		if value == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your .env file or environment variables", missing)
	}

	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseInt64Env parses an int64 from an environment variable.
// Returns defaultValue if the environment variable is not set.
func parseInt64Env(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value for %s: %s", key, value)
	}

	return parsed, nil
}
