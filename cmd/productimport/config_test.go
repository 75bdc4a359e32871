package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruslano69/productimport/pkg/importer"
	"github.com/ruslano69/productimport/pkg/storage"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		db   DatabaseConfig
		want string
	}{
		{"mysql", DatabaseConfig{Type: "mysql", Host: "db", Port: 3306, Database: "shop", User: "u", Password: "p"},
			"u:p@tcp(db:3306)/shop?parseTime=true"},
		{"postgres defaults", DatabaseConfig{Type: "postgres", Host: "db", Port: 5432, Database: "shop", User: "u", Password: "p"},
			"postgres://u:p@db:5432/shop?sslmode=disable&search_path=public"},
		{"sqlite", DatabaseConfig{Type: "sqlite", Database: "shop.db"}, "shop.db"},
		{"explicit dsn", DatabaseConfig{Type: "mysql", DSN: "root@/x", Host: "ignored"}, "root@/x"},
		{"unknown", DatabaseConfig{Type: "oracle"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.db.BuildDSN())
		})
	}
}

func TestSampleConfigRoundTrip(t *testing.T) {
	for _, dbType := range []string{"mysql", "postgres", "sqlite"} {
		t.Run(dbType, func(t *testing.T) {
			cfg, err := CreateSampleConfig(dbType)
			require.NoError(t, err)
			require.NoError(t, cfg.Validate())

			path := filepath.Join(t.TempDir(), "productimport.yaml")
			require.NoError(t, SaveConfig(path, cfg))

			loaded, err := LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, cfg.Database, loaded.Database)
			assert.Equal(t, cfg.Import, loaded.Import)
			assert.Equal(t, cfg.Audit, loaded.Audit)
			assert.Equal(t, time.Second, loaded.Retry.InitialDelay)
			assert.True(t, loaded.Retry.Enabled)
		})
	}

	_, err := CreateSampleConfig("mssql")
	assert.Error(t, err)
}

func TestLoadConfig_FillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  type: sqlite
  database: shop.db
import:
  dry_run: true
  auto_create_option_attributes: [color, size]
  product_type_change: allowed
  validation_rules:
    weight: ["range:0-1000"]
retry:
  enabled: true
  max_attempts: 3
  initial_delay: 250ms
  max_delay: 2s
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, importer.DefaultBatchSize, cfg.Import.BatchSize)
	assert.Equal(t, "/", cfg.Import.CategoryNamePathSeparator)
	assert.EqualValues(t, 1, cfg.Import.RootCategoryID)
	assert.True(t, cfg.Import.AutoCreateCategories)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.InitialDelay)

	sc, err := cfg.StorageConfig()
	require.NoError(t, err)
	assert.True(t, sc.DryRun)
	assert.Equal(t, storage.TypeChangeAllowed, sc.ProductTypeChange)
	assert.Equal(t, []string{"color", "size"}, sc.AutoCreateOptionAttributes)
	assert.Equal(t, []storage.FieldValidationRule{{Type: storage.ValidateRange, Param: "0-1000"}}, sc.ValidationRules["weight"])
}

func TestStorageConfig_RejectsUnknownPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Import.ProductTypeChange = "sometimes"
	_, err := cfg.StorageConfig()
	assert.ErrorContains(t, err, "import.product_type_change")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Database = DatabaseConfig{Type: "sqlite", Database: ":memory:"}
		return cfg
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"missing type", func(c *Config) { c.Database.Type = "" }},
		{"unknown type", func(c *Config) { c.Database.Type = "mssql" }},
		{"zero batch", func(c *Config) { c.Import.BatchSize = 0 }},
		{"bad policy", func(c *Config) { c.Import.ProductTypeChange = "sometimes" }},
		{"empty separator", func(c *Config) { c.Import.CategoryNamePathSeparator = "" }},
		{"bad validation rule", func(c *Config) { c.Import.ValidationRules = map[string][]string{"weight": {"between:1-2"}} }},
		{"metrics without url", func(c *Config) { c.Metrics.Enabled = true }},
		{"result log without address", func(c *Config) { c.ResultLog.Enabled = true }},
		{"bad retry", func(c *Config) {
			c.Retry.Enabled = true
			c.Retry.MaxDelay = time.Millisecond
			c.Retry.InitialDelay = time.Second
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
