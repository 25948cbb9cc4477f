// Package config loads the stockdesk configuration from the global
// config.yaml, an optional project overlay, a .env file and STOCKDESK_*
// environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/stockdesk/stockdesk/internal/api"
	"github.com/stockdesk/stockdesk/internal/listing"
	"github.com/stockdesk/stockdesk/internal/logging"
	"github.com/stockdesk/stockdesk/internal/retry"
)

// Default values.
const (
	DefaultBaseURL       = "http://localhost:8080/api"
	DefaultTimeout       = 30 * time.Second
	DefaultOutputFormat  = "table"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = logging.FormatConsole
	DefaultSessionStore  = SessionStoreFile
	DefaultProfile       = "default"
	configFileName       = "config.yaml"
	sessionsDirName      = "sessions"
	outputTypeFile       = logging.OutputFile
	maxConfiguredTimeout = 10 * time.Minute
)

// Session store kinds.
const (
	SessionStoreFile   = "file"
	SessionStoreMemory = "memory"
)

// Environment variables that override the file configuration.
const (
	EnvAPIURL       = "STOCKDESK_API_URL"
	EnvAPITimeout   = "STOCKDESK_API_TIMEOUT"
	EnvMaxAttempts  = "STOCKDESK_MAX_ATTEMPTS"
	EnvOutput       = "STOCKDESK_OUTPUT"
	EnvPageSize     = "STOCKDESK_PAGE_SIZE"
	EnvLogLevel     = "STOCKDESK_LOG_LEVEL"
	EnvLogFormat    = "STOCKDESK_LOG_FORMAT"
	EnvLogFile      = "STOCKDESK_LOG_FILE"
	EnvSessionStore = "STOCKDESK_SESSION_STORE"
	EnvProfile      = "STOCKDESK_PROFILE"
)

// Configuration errors.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrUnknownKey    = errors.New("unknown configuration key")
	ErrInvalidValue  = errors.New("invalid configuration value")
)

// OutputFormats lists the accepted output.default_format values.
var OutputFormats = []string{"table", "json", "yaml"} //nolint:gochecknoglobals // read-only lookup

// Config is the full stockdesk configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
	Session SessionConfig `yaml:"session"`

	configPath string
}

// APIConfig configures the backend client and its retry policy.
type APIConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`

	// RetryClientErrors also retries 4xx responses.
	RetryClientErrors bool `yaml:"retry_client_errors"`
}

// OutputConfig configures command output.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	PageSize      int    `yaml:"page_size"`
}

// LoggingConfig configures the zerolog sink.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// SessionConfig configures where the bearer token is kept.
type SessionConfig struct {
	Store   string `yaml:"store"`
	Dir     string `yaml:"dir,omitempty"`
	Profile string `yaml:"profile,omitempty"`
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	cfg := &Config{
		API: APIConfig{
			BaseURL:     DefaultBaseURL,
			Timeout:     DefaultTimeout,
			MaxAttempts: retry.DefaultMaxAttempts,
			BaseDelay:   retry.DefaultBaseDelay,
			MaxDelay:    retry.DefaultMaxDelay,
		},
		Output: OutputConfig{
			DefaultFormat: DefaultOutputFormat,
			PageSize:      listing.DefaultPageSize,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Session: SessionConfig{
			Store:   DefaultSessionStore,
			Profile: DefaultProfile,
		},
	}
	if dir, err := GetConfigDir(); err == nil {
		cfg.configPath = filepath.Join(dir, configFileName)
	}
	return cfg
}

// New returns the defaults overlaid with the global config file and the
// environment. A missing or unreadable file leaves the defaults in place.
func New() *Config {
	return NewWithProjectDir(context.Background(), "")
}

// Load reads path onto cfg. Keys absent from the file keep their values.
func (c *Config) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err = yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// LoadDotEnv loads a .env file into the process environment. Variables
// already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays the STOCKDESK_* variables. Unparseable numbers are
// reported and leave the field unchanged.
func (c *Config) ApplyEnv() error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}
	str(EnvAPIURL, &c.API.BaseURL)
	str(EnvOutput, &c.Output.DefaultFormat)
	str(EnvLogLevel, &c.Logging.Level)
	str(EnvLogFormat, &c.Logging.Format)
	str(EnvLogFile, &c.Logging.File)
	str(EnvSessionStore, &c.Session.Store)
	str(EnvProfile, &c.Session.Profile)

	if v := os.Getenv(EnvAPITimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvAPITimeout, err))
		} else {
			c.API.Timeout = d
		}
	}
	for name, dst := range map[string]*int{EnvMaxAttempts: &c.API.MaxAttempts, EnvPageSize: &c.Output.PageSize} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		*dst = n
	}
	return errors.Join(errs...)
}

// ConfigPath returns the file Save writes to.
func (c *Config) ConfigPath() string {
	return c.configPath
}

// SetConfigPath changes the file Save writes to.
func (c *Config) SetConfigPath(path string) {
	c.configPath = path
}

// Save writes the configuration as YAML, creating the directory if needed.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.New("config path not set")
	}
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err = os.WriteFile(c.configPath, data, 0o600); err != nil {
		return fmt.Errorf("writing config %s: %w", c.configPath, err)
	}
	return nil
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if u, err := url.ParseRequestURI(c.API.BaseURL); err != nil || u.Host == "" {
		errs = append(errs, fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL))
	}
	if c.API.Timeout <= 0 || c.API.Timeout > maxConfiguredTimeout {
		errs = append(errs, fmt.Errorf("api.timeout must be in (0, %s], got %s", maxConfiguredTimeout, c.API.Timeout))
	}
	if err := c.RetryPolicy().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("api retry settings: %w", err))
	}
	if !slices.Contains(OutputFormats, c.Output.DefaultFormat) {
		errs = append(errs, fmt.Errorf("output.default_format must be one of %s, got %q",
			strings.Join(OutputFormats, ", "), c.Output.DefaultFormat))
	}
	if c.Output.PageSize < listing.MinPageSize || c.Output.PageSize > listing.MaxPageSize {
		errs = append(errs, fmt.Errorf("output.page_size must be between %d and %d, got %d",
			listing.MinPageSize, listing.MaxPageSize, c.Output.PageSize))
	}
	if c.Logging.Level != "" {
		if _, err := parseLevel(c.Logging.Level); err != nil {
			errs = append(errs, fmt.Errorf("logging.level: %w", err))
		}
	}
	if c.Logging.Format != logging.FormatJSON && c.Logging.Format != logging.FormatConsole {
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}
	if c.Session.Store != SessionStoreFile && c.Session.Store != SessionStoreMemory {
		errs = append(errs, fmt.Errorf("session.store must be file or memory, got %q", c.Session.Store))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// RetryPolicy builds the fetch retry policy from the api section.
func (c *Config) RetryPolicy() retry.Policy {
	p := retry.Policy{
		MaxAttempts: c.API.MaxAttempts,
		BaseDelay:   c.API.BaseDelay,
		MaxDelay:    c.API.MaxDelay,
	}
	if c.API.RetryClientErrors {
		return p.WithClassifier(func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		})
	}
	return p.WithClassifier(api.IsRetryable)
}

// SessionDir returns the directory holding stored tokens.
func (c *Config) SessionDir() (string, error) {
	if c.Session.Dir != "" {
		return c.Session.Dir, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, sessionsDirName), nil
}
