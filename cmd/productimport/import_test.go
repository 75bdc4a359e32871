package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ruslano69/productimport/pkg/adapters/sqlite"
	"github.com/ruslano69/productimport/pkg/resultlog"
	"github.com/ruslano69/productimport/pkg/storage/storagetest"
)

const cliDoc = `<?xml version="1.0" encoding="UTF-8"?>
<import>
  <product type="simple" sku="mug-1" attribute_set="Default">
    <global><name>Mug</name><price>7.50</price><category>Kitchen/Mugs</category></global>
  </product>
  <product type="simple" sku="mug-2" attribute_set="Nope">
    <global><name>Broken mug</name></global>
  </product>
  <product type="simple" sku="mug-3" attribute_set="Default">
    <global><name>Big mug</name><category>Kitchen/Mugs</category></global>
  </product>
</import>`

// catalogFile creates a SQLite catalog file with the fixture schema
func catalogFile(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shop.db")

	a, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	defer a.Close(ctx)
	for _, stmt := range append(append([]string(nil), storagetest.Schema...), storagetest.Seed...) {
		_, err := a.DB().ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	return path
}

// pushRecorder is a fake Pushgateway
type pushRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (p *pushRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.paths = append(p.paths, r.Method+" "+r.URL.Path)
	p.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (p *pushRecorder) list() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.paths...)
}

type cliEnv struct {
	dir      string
	dbPath   string
	config   string
	auditLog string
	redis    *miniredis.Miniredis
	pushes   *pushRecorder
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	env := &cliEnv{
		dir:      dir,
		dbPath:   catalogFile(t),
		redis:    miniredis.RunT(t),
		stdout:   &bytes.Buffer{},
		stderr:   &bytes.Buffer{},
		auditLog: filepath.Join(dir, "audit", "audit.log"),
		pushes:   &pushRecorder{},
	}

	gateway := httptest.NewServer(env.pushes)
	t.Cleanup(gateway.Close)

	cfg := DefaultConfig()
	cfg.Database = DatabaseConfig{Type: "sqlite", Database: env.dbPath}
	cfg.Import.BatchSize = 2
	cfg.Audit = AuditConfig{Enabled: true, Level: "standard", File: env.auditLog}
	cfg.ResultLog = resultlog.Config{Enabled: true, Address: env.redis.Addr(), Name: "test"}
	cfg.Metrics = MetricsConfig{Enabled: true, PushgatewayURL: gateway.URL, Job: "productimport"}
	cfg.Logging = LoggingConfig{Level: "warn", Format: "json"}

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	env.config = filepath.Join(dir, "productimport.yaml")
	require.NoError(t, os.WriteFile(env.config, data, 0o644))
	return env
}

func (e *cliEnv) run(args ...string) error {
	root := newRootCommand(e.stdout, e.stderr)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func (e *cliEnv) input(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(e.dir, "catalog.xml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func (e *cliEnv) state(t *testing.T) resultlog.RunResult {
	t.Helper()
	raw, err := e.redis.Get("productimport:test:state")
	require.NoError(t, err)
	var result resultlog.RunResult
	require.NoError(t, json.Unmarshal([]byte(raw), &result))
	return result
}

func TestImportCommand_ImportsAndPublishes(t *testing.T) {
	env := newCLIEnv(t)
	input := env.input(t, cliDoc)

	require.NoError(t, env.run("import", input, "--config", env.config))

	out := env.stdout.String()
	assert.Contains(t, out, "=== Import Report ===")
	assert.Contains(t, out, "OK:         2")
	assert.Contains(t, out, "Failed:     1")
	assert.Contains(t, out, "Status:     partial")

	result := env.state(t)
	assert.Equal(t, "partial", result.Status)
	assert.Equal(t, 2, result.OK)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, input, result.Source)
	assert.Len(t, result.InputDigest, 16)
	assert.Nil(t, result.Error)

	audit, err := os.ReadFile(env.auditLog)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(audit)), "\n")
	assert.Len(t, lines, 4, "one entry per product and one for the run")
	assert.Contains(t, string(audit), "attribute set not found: Nope")

	pushes := env.pushes.list()
	require.NotEmpty(t, pushes)
	assert.Contains(t, pushes[0], "/metrics/job/productimport")

	ctx := context.Background()
	a, err := sqlite.Open(ctx, env.dbPath)
	require.NoError(t, err)
	defer a.Close(ctx)
	assert.Equal(t, 2, storagetest.Count(t, a, "catalog_product_entity", ""))
	assert.Equal(t, 2, storagetest.Count(t, a, "catalog_category_product", ""))
}

func TestImportCommand_DryRunFlag(t *testing.T) {
	env := newCLIEnv(t)
	input := env.input(t, cliDoc)

	require.NoError(t, env.run("import", input, "--config", env.config, "--dry-run", "--batch-size", "10"))
	assert.Contains(t, env.stdout.String(), "Mode:       dry run")
	assert.True(t, env.state(t).DryRun)

	ctx := context.Background()
	a, err := sqlite.Open(ctx, env.dbPath)
	require.NoError(t, err)
	defer a.Close(ctx)
	assert.Equal(t, 0, storagetest.Count(t, a, "catalog_product_entity", ""))
}

func TestImportCommand_FatalErrorFailsRun(t *testing.T) {
	env := newCLIEnv(t)
	input := env.input(t, `<import><product type="bundle" sku="x" attribute_set="Default"/></import>`)

	err := env.run("import", input, "--config", env.config)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrImportFailed))

	result := env.state(t)
	assert.Equal(t, "failed", result.Status)
	require.NotNil(t, result.Error)
	assert.Contains(t, *result.Error, "unknown product type")
	assert.Contains(t, env.stdout.String(), "Status:     failed")
}

func TestImportCommand_MissingInputIsFatal(t *testing.T) {
	env := newCLIEnv(t)

	err := env.run("import", filepath.Join(env.dir, "missing.xml"), "--config", env.config)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrImportFailed))
	assert.Equal(t, "failed", env.state(t).Status)
}

func TestImportCommand_InvalidConfig(t *testing.T) {
	env := newCLIEnv(t)
	err := env.run("import", "x.xml", "--config", env.config, "--batch-size", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch size must be a positive integer")
}

func TestConfigInitCommand(t *testing.T) {
	env := newCLIEnv(t)
	out := filepath.Join(env.dir, "sample.yaml")

	require.NoError(t, env.run("config", "init", "--type", "postgres", "--output", out))
	assert.Contains(t, env.stdout.String(), "Sample postgres config written to "+out)

	cfg, err := LoadConfig(out)
	require.NoError(t, err)
	assert.Equal(t, 5432, cfg.Database.Port)

	assert.Error(t, env.run("config", "init", "--type", "oracle", "--output", out))
}

func TestVersionCommand(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, env.run("version"))
	assert.Equal(t, "productimport dev\n", env.stdout.String())
}
