package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"budgetdash/internal/core"
	"budgetdash/internal/sources"
	"budgetdash/internal/store"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// CSV feed
	CSVPath          string
	CSVDelimiter     string
	CategoryColumn   string
	AccountColumn    string
	CostCenterColumn string
	YearColumns      string
	CategorySentinel string
	ParseErrorPolicy string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Memory backend
	DataDirectory string

	// Dashboard
	RankCount      int
	SessionTTL     time.Duration
	SessionMax     int
	ReloadInterval time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cols := sources.DefaultColumns()
	cfg := &Config{
		Port:        getEnv("PORT", "8081"),
		DataBackend: getEnv("DATA_BACKEND", "memory"),

		CSVPath:          getEnv("CSV_PATH", "./data/budget.csv"),
		CSVDelimiter:     getEnv("CSV_DELIMITER", ";"),
		CategoryColumn:   getEnv("CSV_CATEGORY_COLUMN", cols.Category),
		AccountColumn:    getEnv("CSV_ACCOUNT_COLUMN", cols.Account),
		CostCenterColumn: getEnv("CSV_COST_CENTER_COLUMN", cols.CostCenter),
		YearColumns:      getEnv("CSV_YEAR_COLUMNS", "2022=Erfolg 2022,2023=BVA 2023,2024=BVA 2024"),
		CategorySentinel: getEnv("CATEGORY_SENTINEL", store.DefaultSentinel),
		ParseErrorPolicy: getEnv("PARSE_ERROR_POLICY", string(core.RejectDataset)),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/budget.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budgetdash"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "dataset_reload"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Budget"),

		DataDirectory: getEnv("DATA_DIRECTORY", "data"),

		RankCount:      getEnvInt("RANK_COUNT", core.DefaultRankCount),
		SessionTTL:     getEnvDuration("SESSION_TTL", 30*time.Minute),
		SessionMax:     getEnvInt("SESSION_MAX", 1000),
		ReloadInterval: getEnvDuration("RELOAD_INTERVAL", 0),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{"csv", "memory", "sheets", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "csv" && c.CSVPath == "" {
		errors = append(errors, "CSV path cannot be empty when using csv backend")
	}
	if utf8.RuneCountInString(c.CSVDelimiter) != 1 {
		errors = append(errors, fmt.Sprintf("invalid CSV delimiter '%s': must be a single character", c.CSVDelimiter))
	}
	if _, err := c.Columns(); err != nil {
		errors = append(errors, err.Error())
	}
	if strings.TrimSpace(c.CategorySentinel) == "" {
		errors = append(errors, "category sentinel cannot be empty")
	}
	if err := core.ParsePolicy(c.ParseErrorPolicy).Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid parse error policy '%s': must be 'reject' or 'skip'", c.ParseErrorPolicy))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate Google Sheets configuration if backend is sheets
	if c.DataBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets backend")
		}
	}

	// Validate dashboard configuration
	if c.RankCount < 1 || c.RankCount > 100 {
		errors = append(errors, fmt.Sprintf("invalid rank count %d: must be between 1 and 100", c.RankCount))
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.SessionMax < 1 {
		errors = append(errors, fmt.Sprintf("invalid session max %d: must be at least 1", c.SessionMax))
	}
	if c.ReloadInterval != 0 && c.ReloadInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid reload interval %v: must be 0 or at least 1 second", c.ReloadInterval))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Columns builds the feed header mapping.
func (c *Config) Columns() (sources.Columns, error) {
	years, err := sources.ParseYearColumns(c.YearColumns)
	if err != nil {
		return sources.Columns{}, err
	}
	if len(years) == 0 {
		return sources.Columns{}, fmt.Errorf("no year columns configured")
	}
	return sources.Columns{
		Category:   c.CategoryColumn,
		Account:    c.AccountColumn,
		CostCenter: c.CostCenterColumn,
		Years:      years,
	}, nil
}

// LoadOptions builds the record store load options.
func (c *Config) LoadOptions() store.LoadOptions {
	opts := store.LoadOptions{
		Sentinel: c.CategorySentinel,
		Policy:   core.ParsePolicy(c.ParseErrorPolicy),
	}
	if cols, err := c.Columns(); err == nil {
		opts.Years = cols.YearList()
	}
	return opts
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
