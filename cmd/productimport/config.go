package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ruslano69/productimport/pkg/importer"
	"github.com/ruslano69/productimport/pkg/resolve"
	"github.com/ruslano69/productimport/pkg/resultlog"
	"github.com/ruslano69/productimport/pkg/retry"
	"github.com/ruslano69/productimport/pkg/source"
	"github.com/ruslano69/productimport/pkg/storage"
)

// Config represents the main configuration structure
type Config struct {
	Database  DatabaseConfig   `yaml:"database"`
	Import    ImportConfig     `yaml:"import"`
	Source    source.Config    `yaml:"source,omitempty"`
	Retry     retry.Config     `yaml:"retry,omitempty"`
	Audit     AuditConfig      `yaml:"audit,omitempty"`
	ResultLog resultlog.Config `yaml:"result_log,omitempty"`
	Metrics   MetricsConfig    `yaml:"metrics,omitempty"`
	Logging   LoggingConfig    `yaml:"logging,omitempty"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Type     string `yaml:"type"`               // mysql, postgres, sqlite
	Host     string `yaml:"host,omitempty"`     // For network databases
	Port     int    `yaml:"port,omitempty"`     // Database port
	Database string `yaml:"database"`           // Database name or file path
	User     string `yaml:"user,omitempty"`     // Username
	Password string `yaml:"password,omitempty"` // Password
	Schema   string `yaml:"schema,omitempty"`   // PostgreSQL schema (default: public)
	SSLMode  string `yaml:"sslmode,omitempty"`  // PostgreSQL SSL mode
	DSN      string `yaml:"dsn,omitempty"`      // Overrides the fields above

	// ConnectTimeout in seconds
	ConnectTimeout int `yaml:"connect_timeout,omitempty"`
}

// ImportConfig contains the import behaviour
type ImportConfig struct {
	BatchSize                  int      `yaml:"batch_size"`
	DryRun                     bool     `yaml:"dry_run"`
	AutoCreateCategories       bool     `yaml:"auto_create_categories"`
	AutoCreateOptionAttributes []string `yaml:"auto_create_option_attributes,omitempty"`
	ProductTypeChange          string   `yaml:"product_type_change"` // allowed, forbidden, non-destructive
	CategoryNamePathSeparator  string   `yaml:"category_name_path_separator"`
	RootCategoryID             int64    `yaml:"root_category_id"`

	// extra value checks per attribute code, e.g. weight: ["range:0-1000"]
	ValidationRules map[string][]string `yaml:"validation_rules,omitempty"`
}

// AuditConfig for audit logging settings
type AuditConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Level        string `yaml:"level"` // minimal, standard, full
	File         string `yaml:"file,omitempty"`
	MaxSize      int    `yaml:"max_size_mb,omitempty"` // Max file size in MB
	MaxBackups   int    `yaml:"max_backups,omitempty"`
	Console      bool   `yaml:"console,omitempty"`       // Log to stderr
	FailuresOnly bool   `yaml:"failures_only,omitempty"` // Skip successful products
}

// MetricsConfig for the Prometheus Pushgateway
type MetricsConfig struct {
	Enabled        bool   `yaml:"enabled"`
	PushgatewayURL string `yaml:"pushgateway_url,omitempty"`
	Job            string `yaml:"job,omitempty"`
}

// LoggingConfig for the process log
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // console, json
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	return &Config{
		Import: ImportConfig{
			BatchSize:                 importer.DefaultBatchSize,
			AutoCreateCategories:      true,
			ProductTypeChange:         string(storage.TypeChangeNonDestructive),
			CategoryNamePathSeparator: resolve.DefaultPathSeparator,
			RootCategoryID:            resolve.DefaultRootCategoryID,
		},
		Retry:   retry.DefaultConfig(),
		Audit:   AuditConfig{Level: "standard"},
		Metrics: MetricsConfig{Job: "productimport"},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// LoadConfig loads configuration from YAML file over the defaults
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves configuration to YAML file
func SaveConfig(filename string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CreateSampleConfig creates sample configuration for different database types
func CreateSampleConfig(dbType string) (*Config, error) {
	config := DefaultConfig()
	config.Database.Type = dbType
	config.Database.ConnectTimeout = 10
	config.Retry = retry.EnableRetry(5, time.Second)
	config.Audit = AuditConfig{
		Enabled:      true,
		Level:        "standard",
		File:         "audit.log",
		MaxSize:      100,
		MaxBackups:   5,
		FailuresOnly: true,
	}
	config.ResultLog = resultlog.Config{
		Address: "localhost:6379",
		Name:    "catalog",
		TTL:     86400,
	}
	config.Metrics.PushgatewayURL = "http://localhost:9091"

	switch dbType {
	case "postgres", "postgresql":
		config.Database.Type = "postgres"
		config.Database.Host = "localhost"
		config.Database.Port = 5432
		config.Database.Database = "shop"
		config.Database.User = "postgres"
		config.Database.Password = "password"
		config.Database.Schema = "public"
		config.Database.SSLMode = "disable"

	case "sqlite":
		config.Database.Database = "shop.db"

	case "mysql":
		config.Database.Host = "localhost"
		config.Database.Port = 3306
		config.Database.Database = "shop"
		config.Database.User = "root"
		config.Database.Password = "password"

	default:
		return nil, fmt.Errorf("unsupported database type: %s (mysql, postgres, sqlite)", dbType)
	}

	return config, nil
}

// Validate checks the configuration before anything connects
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "mysql", "postgres", "sqlite":
	case "":
		return fmt.Errorf("database.type is required")
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	if err := (importer.Config{BatchSize: c.Import.BatchSize}).Validate(); err != nil {
		return fmt.Errorf("import.batch_size: %w", err)
	}
	if _, err := storage.ParseTypeChangePolicy(c.Import.ProductTypeChange); err != nil {
		return fmt.Errorf("import.product_type_change: %w", err)
	}
	if _, err := storage.ParseValidationRules(c.Import.ValidationRules); err != nil {
		return fmt.Errorf("import.validation_rules: %w", err)
	}
	if c.Import.CategoryNamePathSeparator == "" {
		return fmt.Errorf("import.category_name_path_separator must not be empty")
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	if c.Metrics.Enabled && c.Metrics.PushgatewayURL == "" {
		return fmt.Errorf("metrics.pushgateway_url is required when metrics are enabled")
	}
	if c.ResultLog.Enabled && c.ResultLog.Address == "" {
		return fmt.Errorf("result_log.address is required when the result log is enabled")
	}
	return nil
}

// StorageConfig maps the import section to the storage configuration
func (c *Config) StorageConfig() (storage.Config, error) {
	policy, err := storage.ParseTypeChangePolicy(c.Import.ProductTypeChange)
	if err != nil {
		return storage.Config{}, fmt.Errorf("import.product_type_change: %w", err)
	}
	rules, err := storage.ParseValidationRules(c.Import.ValidationRules)
	if err != nil {
		return storage.Config{}, fmt.Errorf("import.validation_rules: %w", err)
	}
	return storage.Config{
		DryRun:                     c.Import.DryRun,
		AutoCreateCategories:       c.Import.AutoCreateCategories,
		AutoCreateOptionAttributes: c.Import.AutoCreateOptionAttributes,
		ProductTypeChange:          policy,
		CategoryPathSeparator:      c.Import.CategoryNamePathSeparator,
		RootCategoryID:             c.Import.RootCategoryID,
		ValidationRules:            rules,
	}, nil
}

// BuildDSN constructs database connection string from config
func (c *DatabaseConfig) BuildDSN() string {
	if c.DSN != "" {
		return c.DSN
	}

	switch c.Type {
	case "postgres", "postgresql":
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		schema := c.Schema
		if schema == "" {
			schema = "public"
		}
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&search_path=%s",
			c.User, c.Password, c.Host, c.Port, c.Database, sslMode, schema)

	case "sqlite":
		return c.Database

	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.User, c.Password, c.Host, c.Port, c.Database)

	default:
		return ""
	}
}
