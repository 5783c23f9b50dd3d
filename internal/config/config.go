package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Version is the tagcheck release version.
const Version = "0.4.0"

// Config holds all tagcheck configuration.
type Config struct {
	Source          SourceConfig
	Engine          EngineConfig
	Output          OutputConfig
	History         HistoryConfig
	Server          ServerConfig
	LogLevel        string
	LogFormat       string // "text", "json"
	Workers         int
	ShutdownTimeout time.Duration
}

// SourceConfig holds page-source settings.
type SourceConfig struct {
	Provider string // "file"
	Path     string
	// Analytics reporting endpoint for event counts. Empty disables it.
	Endpoint   string
	APIKey     string
	PropertyID string
	// Browser collection of ground truth from window.dataLayer.
	Browser        bool
	BrowserTimeout time.Duration
	Extra          map[string]string
}

// EngineConfig holds validation engine settings.
type EngineConfig struct {
	VocabularyPath string
	Tolerance      float64
	NoisePercent   float64
	LowPercent     float64
	MinOccurrences int
}

// OutputConfig holds output destination settings.
type OutputConfig struct {
	Format     string // "json", "table", "markdown", "html", "xlsx"
	Path       string // empty writes to stdout
	Pretty     bool
	Verbosity  string // "minimal", "standard", "full"
	WebhookURL string
}

// HistoryConfig holds cross-run suggestion tracking settings.
type HistoryConfig struct {
	Driver       string // "", "file", "sqlite3", "postgres"
	DSN          string // file path for "file"
	ConfirmAfter int
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		Source: SourceConfig{
			Provider:       getenv("TAGCHECK_SOURCE", "file"),
			Path:           getenv("TAGCHECK_PAGES", "pages"),
			Endpoint:       os.Getenv("TAGCHECK_ANALYTICS_ENDPOINT"),
			APIKey:         os.Getenv("TAGCHECK_API_KEY"),
			PropertyID:     os.Getenv("TAGCHECK_PROPERTY_ID"),
			Browser:        getenvBool("TAGCHECK_BROWSER", false),
			BrowserTimeout: getenvDuration("TAGCHECK_BROWSER_TIMEOUT", 30*time.Second),
			Extra:          loadSourceExtra(),
		},
		Engine: EngineConfig{
			VocabularyPath: os.Getenv("TAGCHECK_VOCABULARY"),
			Tolerance:      getenvFloat("TAGCHECK_TOLERANCE", 0.01),
			NoisePercent:   getenvFloat("TAGCHECK_NOISE_PERCENT", 0.01),
			LowPercent:     getenvFloat("TAGCHECK_LOW_PERCENT", 0.1),
			MinOccurrences: getenvInt("TAGCHECK_MIN_OCCURRENCES", 2),
		},
		Output: OutputConfig{
			Format:     getenv("TAGCHECK_OUTPUT", "json"),
			Path:       os.Getenv("TAGCHECK_OUTPUT_PATH"),
			Pretty:     getenvBool("TAGCHECK_OUTPUT_PRETTY", false),
			Verbosity:  getenv("TAGCHECK_VERBOSITY", "standard"),
			WebhookURL: os.Getenv("TAGCHECK_WEBHOOK_URL"),
		},
		History: HistoryConfig{
			Driver:       os.Getenv("TAGCHECK_HISTORY_DRIVER"),
			DSN:          getenv("TAGCHECK_HISTORY_DSN", "tagcheck-history.json"),
			ConfirmAfter: getenvInt("TAGCHECK_CONFIRM_AFTER", 3),
		},
		Server: ServerConfig{
			Addr: getenv("TAGCHECK_ADDR", ":8080"),
		},
		LogLevel:        getenv("TAGCHECK_LOG_LEVEL", "info"),
		LogFormat:       getenv("TAGCHECK_LOG_FORMAT", "text"),
		Workers:         getenvInt("TAGCHECK_WORKERS", 4),
		ShutdownTimeout: getenvDuration("TAGCHECK_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

var (
	validVerbosity = map[string]bool{"minimal": true, "standard": true, "full": true}
	validFormat    = map[string]bool{"json": true, "table": true, "markdown": true, "html": true, "xlsx": true}
	validDriver    = map[string]bool{"": true, "file": true, "sqlite3": true, "postgres": true}
)

// Validate checks the configuration and returns every problem found.
func (c Config) Validate() error {
	var errs []error

	if c.Source.Provider == "" {
		errs = append(errs, errors.New("source provider must not be empty"))
	}
	if c.Source.Endpoint != "" && c.Source.APIKey == "" {
		errs = append(errs, errors.New("TAGCHECK_API_KEY is required when TAGCHECK_ANALYTICS_ENDPOINT is set"))
	}
	if c.Source.Browser && c.Source.BrowserTimeout <= 0 {
		errs = append(errs, fmt.Errorf("browser timeout must be positive, got %v", c.Source.BrowserTimeout))
	}
	if c.Engine.Tolerance < 0 || c.Engine.Tolerance >= 1 {
		errs = append(errs, fmt.Errorf("tolerance must be in [0, 1), got %v", c.Engine.Tolerance))
	}
	if c.Engine.NoisePercent <= 0 || c.Engine.LowPercent <= c.Engine.NoisePercent {
		errs = append(errs, fmt.Errorf("significance thresholds must satisfy 0 < noise < low, got %v and %v",
			c.Engine.NoisePercent, c.Engine.LowPercent))
	}
	if c.Engine.MinOccurrences < 1 {
		errs = append(errs, fmt.Errorf("min occurrences must be at least 1, got %d", c.Engine.MinOccurrences))
	}
	if c.Engine.VocabularyPath != "" {
		if _, err := os.Stat(c.Engine.VocabularyPath); err != nil {
			errs = append(errs, fmt.Errorf("vocabulary file: %w", err))
		}
	}
	if !validFormat[c.Output.Format] {
		errs = append(errs, fmt.Errorf("output format must be json, table, markdown, html or xlsx, got %q", c.Output.Format))
	}
	if c.Output.Format == "xlsx" && c.Output.Path == "" {
		errs = append(errs, errors.New("xlsx output requires TAGCHECK_OUTPUT_PATH"))
	}
	if !validVerbosity[c.Output.Verbosity] {
		errs = append(errs, fmt.Errorf("verbosity must be minimal, standard or full, got %q", c.Output.Verbosity))
	}
	if !validDriver[c.History.Driver] {
		errs = append(errs, fmt.Errorf("history driver must be file, sqlite3 or postgres, got %q", c.History.Driver))
	}
	if c.History.Driver != "" && c.History.DSN == "" {
		errs = append(errs, errors.New("history DSN must not be empty"))
	}
	if c.History.ConfirmAfter < 1 {
		errs = append(errs, fmt.Errorf("confirm-after must be at least 1, got %d", c.History.ConfirmAfter))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log format must be text or json, got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadSourceExtra reads provider-specific env vars into an Extra map.
func loadSourceExtra() map[string]string {
	vars := []struct {
		envVar   string
		extraKey string
	}{
		{"TAGCHECK_ANALYTICS_START_DATE", "start_date"},
		{"TAGCHECK_ANALYTICS_END_DATE", "end_date"},
		{"TAGCHECK_BROWSER_WAIT", "wait_selector"},
		{"TAGCHECK_CHROME_PATH", "chrome_path"},
	}

	var m map[string]string
	for _, v := range vars {
		if val := os.Getenv(v.envVar); val != "" {
			if m == nil {
				m = make(map[string]string)
			}
			m[v.extraKey] = val
		}
	}
	return m
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
