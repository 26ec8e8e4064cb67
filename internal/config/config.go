package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Database connection.
	DatabaseURL     string
	CredentialsFile string // optional YAML with RDS_* keys
	SourceTable     string
	QueryTimeout    time.Duration

	// Pipeline inputs and outputs.
	PlanFile      string // optional path to plan YAML
	CheckpointDir string
	ChartDir      string // empty disables charts
	ReportFile    string // empty disables the workbook

	// Logging.
	LogLevel slog.Level

	// Observability.
	OTelEnabled  bool   // enable OpenTelemetry tracing and metrics
	OTelExporter string // "otlp" (default) or "stdout"
	AuditLog     string // path to NDJSON audit log file
}

// Overrides holds CLI flag values that override environment variables.
// Pointer fields distinguish "not set" from zero values.
type Overrides struct {
	DatabaseURL     *string
	CredentialsFile *string
	SourceTable     *string
	QueryTimeout    *time.Duration
	PlanFile        *string
	CheckpointDir   *string
	ChartDir        *string
	ReportFile      *string
	LogLevel        *string
	AuditLog        *string
	OTelExporter    *string
	OTelEnabled     bool
}

// Credentials are the RDS connection parameters. Field names follow the
// keys of the credentials file and the matching environment variables.
type Credentials struct {
	Host     string `yaml:"RDS_HOST"`
	Port     string `yaml:"RDS_PORT"`
	User     string `yaml:"RDS_USER"`
	Password string `yaml:"RDS_PASSWORD"`
	Database string `yaml:"RDS_DATABASE"`
}

// Load builds a Config from environment variables, then applies CLI overrides,
// then resolves the connection string and validates the result.
func Load(overrides Overrides) (*Config, error) {
	cfg := defaults()

	if err := loadEnvVars(cfg); err != nil {
		return nil, err
	}
	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, err
	}
	if err := resolveDatabaseURL(cfg); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaults returns a Config populated with default values.
func defaults() *Config {
	return &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		SourceTable:   "loan_payments",
		QueryTimeout:  5 * time.Minute,
		CheckpointDir: ".",
		ChartDir:      "charts",
		ReportFile:    "loan_payments_report.xlsx",
		OTelExporter:  "otlp",
	}
}

// loadEnvVars reads all supported environment variables into cfg.
func loadEnvVars(cfg *Config) error {
	if v := os.Getenv("QUERY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid QUERY_TIMEOUT value %q: %w", v, err)
		}
		cfg.QueryTimeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}

	cfg.CredentialsFile = os.Getenv("CREDENTIALS_FILE")
	cfg.PlanFile = os.Getenv("PLAN_FILE")
	cfg.AuditLog = os.Getenv("AUDIT_LOG")

	if v := os.Getenv("SOURCE_TABLE"); v != "" {
		cfg.SourceTable = v
	}
	if v := os.Getenv("CHECKPOINT_DIR"); v != "" {
		cfg.CheckpointDir = v
	}
	if v, ok := os.LookupEnv("CHART_DIR"); ok {
		cfg.ChartDir = v
	}
	if v, ok := os.LookupEnv("REPORT_FILE"); ok {
		cfg.ReportFile = v
	}

	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid OTEL_ENABLED value %q: %w", v, err)
		}
		cfg.OTelEnabled = b
	}
	if v := os.Getenv("OTEL_EXPORTER"); v != "" {
		cfg.OTelExporter = v
	}

	return nil
}

// applyOverrides applies CLI flag values on top of the env-loaded config.
func applyOverrides(cfg *Config, o Overrides) error {
	if o.DatabaseURL != nil {
		cfg.DatabaseURL = *o.DatabaseURL
	}
	if o.CredentialsFile != nil {
		cfg.CredentialsFile = *o.CredentialsFile
	}
	if o.SourceTable != nil {
		cfg.SourceTable = *o.SourceTable
	}
	if o.QueryTimeout != nil {
		if *o.QueryTimeout <= 0 {
			return fmt.Errorf("invalid --query-timeout value: must be positive")
		}
		cfg.QueryTimeout = *o.QueryTimeout
	}
	if o.PlanFile != nil {
		cfg.PlanFile = *o.PlanFile
	}
	if o.CheckpointDir != nil {
		cfg.CheckpointDir = *o.CheckpointDir
	}
	if o.ChartDir != nil {
		cfg.ChartDir = *o.ChartDir
	}
	if o.ReportFile != nil {
		cfg.ReportFile = *o.ReportFile
	}
	if o.LogLevel != nil {
		level, err := parseLogLevel(*o.LogLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	if o.AuditLog != nil {
		cfg.AuditLog = *o.AuditLog
	}
	if o.OTelExporter != nil {
		cfg.OTelExporter = *o.OTelExporter
	}
	cfg.OTelEnabled = cfg.OTelEnabled || o.OTelEnabled

	return nil
}

// resolveDatabaseURL builds a DSN from RDS credentials when no URL was given.
// Environment variables fill fields the credentials file leaves empty.
func resolveDatabaseURL(cfg *Config) error {
	if cfg.DatabaseURL != "" {
		return nil
	}

	var creds Credentials
	if cfg.CredentialsFile != "" {
		c, err := LoadCredentials(cfg.CredentialsFile)
		if err != nil {
			return err
		}
		creds = *c
	}
	fillFromEnv(&creds.Host, "RDS_HOST")
	fillFromEnv(&creds.Port, "RDS_PORT")
	fillFromEnv(&creds.User, "RDS_USER")
	fillFromEnv(&creds.Password, "RDS_PASSWORD")
	fillFromEnv(&creds.Database, "RDS_DATABASE")

	if creds.Host == "" {
		return nil
	}
	cfg.DatabaseURL = creds.DSN()
	return nil
}

func fillFromEnv(dst *string, key string) {
	if *dst == "" {
		*dst = os.Getenv(key)
	}
}

// LoadCredentials reads an RDS credentials YAML file.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}
	var c Credentials
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing credentials YAML: %w", err)
	}
	return &c, nil
}

// DSN renders the credentials as a postgres:// URL. Port defaults to 5432.
func (c Credentials) DSN() string {
	port := c.Port
	if port == "" {
		port = "5432"
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, port),
		Path:   "/" + c.Database,
	}
	if c.User != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}
	return u.String()
}

// validate checks cross-field constraints on the final config.
func validate(cfg *Config) error {
	if cfg.SourceTable == "" {
		return fmt.Errorf("SOURCE_TABLE must not be empty")
	}
	if cfg.CheckpointDir == "" {
		return fmt.Errorf("CHECKPOINT_DIR must not be empty")
	}
	if cfg.QueryTimeout <= 0 {
		return fmt.Errorf("QUERY_TIMEOUT must be positive")
	}
	switch cfg.OTelExporter {
	case "otlp", "stdout":
	default:
		return fmt.Errorf("invalid OTEL_EXPORTER value %q: must be \"otlp\" or \"stdout\"", cfg.OTelExporter)
	}
	return nil
}

// RequireDatabase reports a missing connection for commands that extract.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required (set via env var, --database-url, RDS_* variables or --credentials-file)")
	}
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL value %q: must be debug, info, warn, or error", s)
	}
}
