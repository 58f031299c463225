// Package config resolves blogdesk settings from defaults, a YAML config
// file, BLOGDESK_* environment variables and command-line flags, in
// increasing order of precedence. The result is checked against an
// embedded CUE schema.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/spf13/viper"
)

//go:embed schema.cue
var schemaCUE string

// Keys understood in the config file and as BLOGDESK_<KEY> variables.
const (
	KeyBaseURL     = "base_url"
	KeyPageSize    = "page_size"
	KeyTimeout     = "timeout"
	KeyStorage     = "storage"
	KeyDatabase    = "database"
	KeyRedisAddr   = "redis_addr"
	KeyRedisPrefix = "redis_prefix"
)

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "BLOGDESK"

// Defaults.
const (
	DefaultBaseURL     = "https://jsonplaceholder.typicode.com"
	DefaultPageSize    = 10
	DefaultTimeout     = 15 * time.Second
	DefaultStorage     = "sqlite"
	DefaultRedisAddr   = "localhost:6379"
	DefaultRedisPrefix = "blogdesk:"
)

// Config is the resolved configuration.
type Config struct {
	BaseURL     string
	PageSize    int
	Timeout     time.Duration
	Storage     string
	Database    string
	RedisAddr   string
	RedisPrefix string

	// File is the config file that was read, empty if none.
	File string
}

// ValidationError reports a config that does not satisfy the schema.
type ValidationError struct {
	Details string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + e.Details
}

// New returns a viper instance with defaults and environment binding set
// up. If file is non-empty it is the config file; otherwise config.yaml is
// looked up in Dir().
func New(file string) *viper.Viper {
	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(Dir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyBaseURL, DefaultBaseURL)
	v.SetDefault(KeyPageSize, DefaultPageSize)
	v.SetDefault(KeyTimeout, DefaultTimeout)
	v.SetDefault(KeyStorage, DefaultStorage)
	v.SetDefault(KeyDatabase, filepath.Join(DataDir(), "blogdesk.db"))
	v.SetDefault(KeyRedisAddr, DefaultRedisAddr)
	v.SetDefault(KeyRedisPrefix, DefaultRedisPrefix)

	return v
}

// Load reads the config file (a missing default file is fine, a missing
// explicit file is not), then decodes and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return Decode(v)
}

// Decode builds a Config from v without reading any file.
func Decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		BaseURL:     strings.TrimRight(v.GetString(KeyBaseURL), "/"),
		PageSize:    v.GetInt(KeyPageSize),
		Timeout:     v.GetDuration(KeyTimeout),
		Storage:     strings.ToLower(v.GetString(KeyStorage)),
		Database:    expandHome(v.GetString(KeyDatabase)),
		RedisAddr:   v.GetString(KeyRedisAddr),
		RedisPrefix: v.GetString(KeyRedisPrefix),
		File:        v.ConfigFileUsed(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cfg against the embedded schema.
func (c *Config) Validate() error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	data := ctx.Encode(map[string]any{
		"base_url":     c.BaseURL,
		"page_size":    c.PageSize,
		"timeout_ms":   c.Timeout.Milliseconds(),
		"storage":      c.Storage,
		"database":     c.Database,
		"redis_addr":   c.RedisAddr,
		"redis_prefix": c.RedisPrefix,
	})

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(data)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Details: strings.TrimSpace(cueerrors.Details(err, nil))}
	}
	return nil
}

// Dir is the directory searched for config.yaml.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "blogdesk")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "blogdesk")
	}
	return ".blogdesk"
}

// DataDir holds the local database.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "blogdesk")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "blogdesk")
	}
	return ".blogdesk"
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
