package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config and data directories at a temp dir so the
// developer's own config never leaks into a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(New(""))
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, "sqlite", cfg.Storage)
	assert.Equal(t, filepath.Join(dir, "data", "blogdesk", "blogdesk.db"), cfg.Database)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "blogdesk:", cfg.RedisPrefix)
	assert.Empty(t, cfg.File)
}

func TestLoad_DefaultFileLocation(t *testing.T) {
	dir := isolate(t)
	cfgDir := filepath.Join(dir, "config", "blogdesk")
	require.NoError(t, os.MkdirAll(cfgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte("page_size: 20\n"), 0o644))

	cfg, err := Load(New(""))
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.PageSize)
	assert.Equal(t, filepath.Join(cfgDir, "config.yaml"), cfg.File)
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	content := `
base_url: http://localhost:8080/
timeout: 2s
storage: memory
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(New(path))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, "memory", cfg.Storage)
	assert.Equal(t, path, cfg.File)
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	dir := isolate(t)

	_, err := Load(New(filepath.Join(dir, "nope.yaml")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("page_size: 20\nstorage: memory\n"), 0o644))

	t.Setenv("BLOGDESK_PAGE_SIZE", "5")
	t.Setenv("BLOGDESK_STORAGE", "REDIS")
	t.Setenv("BLOGDESK_REDIS_ADDR", "cache:6380")

	cfg, err := Load(New(path))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.PageSize)
	assert.Equal(t, "redis", cfg.Storage)
	assert.Equal(t, "cache:6380", cfg.RedisAddr)
}

func TestLoad_OverrideBeatsEnv(t *testing.T) {
	isolate(t)
	t.Setenv("BLOGDESK_PAGE_SIZE", "5")

	v := New("")
	v.Set(KeyPageSize, 7)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.PageSize)
}

func TestValidate_Rejects(t *testing.T) {
	valid := Config{
		BaseURL:     DefaultBaseURL,
		PageSize:    10,
		Timeout:     time.Second,
		Storage:     "sqlite",
		Database:    "/tmp/x.db",
		RedisAddr:   DefaultRedisAddr,
		RedisPrefix: DefaultRedisPrefix,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero page size", func(c *Config) { c.PageSize = 0 }, "page_size"},
		{"huge page size", func(c *Config) { c.PageSize = 1000 }, "page_size"},
		{"bad scheme", func(c *Config) { c.BaseURL = "ftp://example.com" }, "base_url"},
		{"empty base url", func(c *Config) { c.BaseURL = "" }, "base_url"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout_ms"},
		{"unknown storage", func(c *Config) { c.Storage = "etcd" }, "storage"},
		{"sqlite without database", func(c *Config) { c.Database = "" }, "database"},
		{"redis bad addr", func(c *Config) { c.Storage = "redis"; c.RedisAddr = "nohost" }, "redis_addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)

			err := c.Validate()
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Error(), tt.field)
		})
	}
}

func TestValidate_MemoryNeedsNoDatabase(t *testing.T) {
	c := Config{
		BaseURL:  "http://127.0.0.1:9999",
		PageSize: 3,
		Timeout:  time.Second,
		Storage:  "memory",
	}
	assert.NoError(t, c.Validate())
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "db.sqlite"), expandHome("~/db.sqlite"))
	assert.Equal(t, "/abs/db", expandHome("/abs/db"))
}
