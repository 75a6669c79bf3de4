package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "data/payroll.db", cfg.Database.Path)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "fr", cfg.Export.Language)
	assert.Equal(t, 60.75, cfg.Export.Excel.RowHeight)
	assert.Equal(t, 267.0, cfg.Export.PDF.PageCapacity)
	assert.Contains(t, cfg.Export.RappelMention, "{period}")
	assert.Equal(t, BackendLocal, cfg.Output.Backend)
	assert.Equal(t, "json", cfg.Logger.Format)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  read_timeout: 5s
database:
  driver: sqlite3
  path: /tmp/payroll-test.db
export:
  language: en
  pdf:
    row_height: 6
output:
  backend: local
  dir: /tmp/orders
logger:
  format: console
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "/tmp/payroll-test.db", cfg.Database.Path)
	assert.Equal(t, "en", cfg.Export.Language)
	assert.Equal(t, 6.0, cfg.Export.PDF.RowHeight)
	assert.Equal(t, 40.0, cfg.Export.PDF.HeaderHeight)
	assert.Equal(t, "/tmp/orders", cfg.Output.Dir)
	assert.Equal(t, "console", cfg.Logger.Format)

	opts := cfg.Export.PDF.PlanOptions()
	assert.Equal(t, 6.0, opts.RowHeight)
	assert.Equal(t, 267.0, opts.PageCapacity)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://payroll@localhost/payroll")
	t.Setenv("PAYROLL_DATABASE_DRIVER", "postgres")
	t.Setenv("GCS_BUCKET", "orders-bucket")
	t.Setenv("PAYROLL_OUTPUT_BACKEND", "gcs")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://payroll@localhost/payroll", cfg.Database.DSN)
	assert.Equal(t, BackendGCS, cfg.Output.Backend)
	assert.Equal(t, "orders-bucket", cfg.Output.Bucket)

	dbCfg := cfg.Database.ToDatabaseConfig()
	assert.Equal(t, "postgres", dbCfg.Driver)
	assert.Equal(t, cfg.Database.DSN, dbCfg.DSN)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = "postgres" }, "database.dsn"},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"unsupported language", func(c *Config) { c.Export.Language = "ja" }, "export.language"},
		{"zero row height", func(c *Config) { c.Export.Excel.RowHeight = 0 }, "export.excel"},
		{"negative header", func(c *Config) { c.Export.PDF.HeaderHeight = -1 }, "export.pdf"},
		{"missing template dir", func(c *Config) { c.Export.TemplateDir = "" }, "export.template_dir"},
		{"gcs without bucket", func(c *Config) { c.Output.Backend = BackendGCS }, "output.bucket"},
		{"unknown backend", func(c *Config) { c.Output.Backend = "s3" }, "output.backend"},
		{"unknown log format", func(c *Config) { c.Logger.Format = "xml" }, "logger.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PAYROLL_TEST_ENV_FILE=loaded\n"), 0644))
	t.Setenv("PAYROLL_TEST_ENV_FILE", "")
	require.NoError(t, os.Unsetenv("PAYROLL_TEST_ENV_FILE"))

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "loaded", os.Getenv("PAYROLL_TEST_ENV_FILE"))

	assert.NoError(t, LoadEnvFile(filepath.Join(dir, "missing.env")))
	assert.NoError(t, LoadEnvFile(""))
}
