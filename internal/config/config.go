package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Category maps one competition division to its spreadsheet
type Category struct {
	Name          string `yaml:"name"`
	SpreadsheetID string `yaml:"spreadsheet_id"`
	RosterSheet   string `yaml:"roster_sheet"`
}

type categoriesFile struct {
	Categories []Category `yaml:"categories"`
}

// Config holds all configuration values for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string
	Environment    string
	DatabaseURL    string
	RedisURL       string

	GoogleCredentialsJSON string
	GoogleCredentialsFile string
	// SheetsXLSXDir serves spreadsheets from local .xlsx files instead of the Sheets API
	SheetsXLSXDir string
	SheetsRPS     float64

	CategoriesFile string
	Categories     []Category
	SeasonYear     int

	SyncInterval     time.Duration
	SyncTimeout      time.Duration
	SyncWorkers      int
	DeliveryInterval time.Duration
	DeliveryWorkers  int

	PushEndpoint            string
	PushAccessToken         string
	PushTimeout             time.Duration
	NotificationMaxAttempts int
	NotificationRetention   time.Duration

	AdminJWTSecret string
}

// Load loads configuration from environment variables and the categories file
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Environment:    getEnv("ENVIRONMENT", "production"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisURL:       getEnv("REDIS_URL", ""),

		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		SheetsXLSXDir:         getEnv("SHEETS_XLSX_DIR", ""),
		SheetsRPS:             getFloatEnv("SHEETS_RPS", 1),

		CategoriesFile: getEnv("CATEGORIES_FILE", "categories.yaml"),
		SeasonYear:     getIntEnv("SEASON_YEAR", 0),

		SyncInterval:     getDurationEnv("SYNC_INTERVAL", 5*time.Minute),
		SyncTimeout:      getDurationEnv("SYNC_TIMEOUT", 2*time.Minute),
		SyncWorkers:      getIntEnv("SYNC_WORKERS", 4),
		DeliveryInterval: getDurationEnv("DELIVERY_INTERVAL", time.Minute),
		DeliveryWorkers:  getIntEnv("DELIVERY_WORKERS", 4),

		PushEndpoint:            getEnv("PUSH_ENDPOINT", ""),
		PushAccessToken:         getEnv("PUSH_ACCESS_TOKEN", ""),
		PushTimeout:             getDurationEnv("PUSH_TIMEOUT", 10*time.Second),
		NotificationMaxAttempts: getIntEnv("NOTIFICATION_MAX_ATTEMPTS", 5),
		NotificationRetention:   getDurationEnv("NOTIFICATION_RETENTION", 30*24*time.Hour),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
	}

	categories, err := LoadCategories(cfg.CategoriesFile)
	if err != nil {
		return nil, err
	}
	cfg.Categories = categories

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadCategories reads the category to spreadsheet mapping
func LoadCategories(path string) ([]Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read categories file %s: %w", path, err)
	}

	var file categoriesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse categories file %s: %w", path, err)
	}
	for i := range file.Categories {
		c := &file.Categories[i]
		c.Name = strings.TrimSpace(c.Name)
		c.SpreadsheetID = strings.TrimSpace(c.SpreadsheetID)
	}
	return file.Categories, nil
}

// Validate reports every missing or invalid value at once
func (c *Config) Validate() error {
	var problems []string

	if c.DatabaseURL == "" {
		problems = append(problems, "DATABASE_URL is required")
	}
	if c.SheetsXLSXDir == "" && c.GoogleCredentialsJSON == "" && c.GoogleCredentialsFile == "" {
		problems = append(problems, "one of GOOGLE_CREDENTIALS_JSON, GOOGLE_CREDENTIALS_FILE or SHEETS_XLSX_DIR is required")
	}
	if c.AdminJWTSecret == "" {
		problems = append(problems, "ADMIN_JWT_SECRET is required")
	}
	if len(c.Categories) == 0 {
		problems = append(problems, "at least one category must be configured")
	}

	seen := make(map[string]bool)
	for i, cat := range c.Categories {
		if cat.Name == "" || cat.SpreadsheetID == "" {
			problems = append(problems, fmt.Sprintf("category #%d needs name and spreadsheet_id", i+1))
			continue
		}
		if seen[cat.Name] {
			problems = append(problems, fmt.Sprintf("category %q is listed twice", cat.Name))
		}
		seen[cat.Name] = true
	}

	if c.SyncInterval <= 0 || c.DeliveryInterval <= 0 {
		problems = append(problems, "SYNC_INTERVAL and DELIVERY_INTERVAL must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// SpreadsheetFor returns the spreadsheet configured for category
func (c *Config) SpreadsheetFor(category string) (string, bool) {
	for _, cat := range c.Categories {
		if cat.Name == category {
			return cat.SpreadsheetID, true
		}
	}
	return "", false
}

// CategoryByName returns the configured category
func (c *Config) CategoryByName(name string) (Category, bool) {
	for _, cat := range c.Categories {
		if cat.Name == name {
			return cat, true
		}
	}
	return Category{}, false
}

// GoogleCredentials returns the service account JSON from the env var or file
func (c *Config) GoogleCredentials() ([]byte, error) {
	if c.GoogleCredentialsJSON != "" {
		return []byte(c.GoogleCredentialsJSON), nil
	}
	data, err := os.ReadFile(c.GoogleCredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read Google credentials: %w", err)
	}
	return data, nil
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloatEnv(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// parseOrigins parses comma-separated origins into a slice
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
