// Package config loads esport settings from the config file, a .env file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/helmuth/esport/internal/index"
	"github.com/helmuth/esport/internal/record"
)

const (
	// ConfigDir is the directory name under XDG_CONFIG_HOME.
	ConfigDir = "esport"
	// ConfigFile is the config file name.
	ConfigFile = "config.yml"
	// EnvPrefix prefixes environment overrides, e.g. ESPORT_EXPORT_BATCH_SIZE.
	EnvPrefix = "ESPORT"
)

// Defaults.
const (
	DefaultHost           = "http://localhost:9200"
	DefaultRequestTimeout = "30s"
	DefaultRateLimit      = 50.0
	DefaultBatchSize      = 100
	DefaultScrollTTL      = "10m"
	DefaultBulkSize       = 500
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the effective configuration.
type Config struct {
	Host           string            `mapstructure:"host" yaml:"host"`
	Username       string            `mapstructure:"username" yaml:"username,omitempty"`
	Password       string            `mapstructure:"password" yaml:"password,omitempty"`
	APIKey         string            `mapstructure:"api_key" yaml:"api_key,omitempty"`
	RequestTimeout string            `mapstructure:"request_timeout" yaml:"request_timeout"`
	RateLimit      float64           `mapstructure:"rate_limit" yaml:"rate_limit"`
	Export         ExportConfig      `mapstructure:"export" yaml:"export"`
	Import         ImportConfig      `mapstructure:"import" yaml:"import"`
	Indices        map[string]string `mapstructure:"indices" yaml:"indices,omitempty"`
}

// ExportConfig holds defaults for index export.
type ExportConfig struct {
	BatchSize int    `mapstructure:"batch_size" yaml:"batch_size"`
	ScrollTTL string `mapstructure:"scroll_ttl" yaml:"scroll_ttl"`
	Header    bool   `mapstructure:"header" yaml:"header"`
}

// ImportConfig holds defaults for index import.
type ImportConfig struct {
	BulkSize int `mapstructure:"bulk_size" yaml:"bulk_size"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host:           DefaultHost,
		RequestTimeout: DefaultRequestTimeout,
		RateLimit:      DefaultRateLimit,
		Export: ExportConfig{
			BatchSize: DefaultBatchSize,
			ScrollTTL: DefaultScrollTTL,
		},
		Import:  ImportConfig{BulkSize: DefaultBulkSize},
		Indices: maps.Clone(record.DefaultIndices),
	}
}

// Path returns the path to the config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/esport/config.yml.
func Path() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, ConfigDir, ConfigFile)
}

// SetDefaults registers every key with its default so environment overrides apply to it.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("host", d.Host)
	v.SetDefault("username", "")
	v.SetDefault("password", "")
	v.SetDefault("api_key", "")
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("rate_limit", d.RateLimit)
	v.SetDefault("export.batch_size", d.Export.BatchSize)
	v.SetDefault("export.scroll_ttl", d.Export.ScrollTTL)
	v.SetDefault("export.header", d.Export.Header)
	v.SetDefault("import.bulk_size", d.Import.BulkSize)
}

// Load reads configuration into v and decodes it. An explicit file must exist; the
// default file is optional. Flags bound to v before Load take precedence.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	explicit := file != ""
	if !explicit {
		file = Path()
	}
	if file != "" {
		v.SetConfigFile(ExpandPath(file))
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			missing := errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
			if explicit || !missing {
				return nil, fmt.Errorf("reading config %s: %w", file, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotEnv loads variables from .env files without overriding the environment.
// Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Validate checks sizes, durations and the host URL.
func (c *Config) Validate() error {
	if _, err := c.Backend(); err != nil {
		return err
	}
	if c.Export.BatchSize <= 0 {
		return fmt.Errorf("%w: export.batch_size must be positive, got %d", ErrInvalid, c.Export.BatchSize)
	}
	if _, err := index.ParseTTL(c.Export.ScrollTTL); err != nil {
		return fmt.Errorf("%w: export.scroll_ttl: %v", ErrInvalid, err)
	}
	if c.Import.BulkSize <= 0 {
		return fmt.Errorf("%w: import.bulk_size must be positive, got %d", ErrInvalid, c.Import.BulkSize)
	}
	if d, err := time.ParseDuration(c.RequestTimeout); err != nil || d <= 0 {
		return fmt.Errorf("%w: request_timeout %q is not a positive duration", ErrInvalid, c.RequestTimeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: rate_limit must not be negative", ErrInvalid)
	}
	for kind, name := range c.Indices {
		if kind == "" || name == "" {
			return fmt.Errorf("%w: indices entries need a kind and an index name", ErrInvalid)
		}
	}
	return nil
}

// Backend names the store a host selects.
type Backend string

const (
	BackendElastic Backend = "elastic"
	BackendSQLite  Backend = "sqlite"
)

// Backend reports which store the host selects.
func (c *Config) Backend() (Backend, error) {
	u, err := url.Parse(c.Host)
	if err != nil {
		return "", fmt.Errorf("%w: host %q: %v", ErrInvalid, c.Host, err)
	}
	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return "", fmt.Errorf("%w: host %q has no address", ErrInvalid, c.Host)
		}
		return BackendElastic, nil
	case "sqlite":
		if c.SQLitePath() == "" {
			return "", fmt.Errorf("%w: host %q has no database path", ErrInvalid, c.Host)
		}
		return BackendSQLite, nil
	default:
		return "", fmt.Errorf("%w: host %q must use http, https or sqlite", ErrInvalid, c.Host)
	}
}

// SQLitePath returns the database path of a sqlite:// host, with ~ expanded.
func (c *Config) SQLitePath() string {
	return ExpandPath(strings.TrimPrefix(c.Host, "sqlite://"))
}

// Timeout returns the parsed request timeout.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil {
		return 0
	}
	return d
}

// Registry returns the record kind to index registry.
func (c *Config) Registry() *record.Registry {
	return record.NewRegistry(c.Indices)
}

// Redacted returns a copy with secrets masked.
func (c *Config) Redacted() *Config {
	r := *c
	if r.Password != "" {
		r.Password = "********"
	}
	if r.APIKey != "" {
		r.APIKey = "********"
	}
	return &r
}

// YAML renders the configuration as a config file.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return data, nil
}

// ErrExists is returned by Init when the config file is already present.
var ErrExists = errors.New("config file already exists")

// Init writes the default configuration to path. Existing files are only replaced when
// force is set.
func Init(path string, force bool) error {
	if path == "" {
		return fmt.Errorf("%w: cannot determine config path", ErrInvalid)
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%w: %s", ErrExists, path)
	}

	data, err := Default().YAML()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
