// Package config assembles the dashboard configuration: built-in defaults,
// then an optional YAML file, then CELERIX_DASH_* environment variables,
// then command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/celerix-dev/celerix-dash/internal/auth"
	"github.com/celerix-dev/celerix-dash/internal/engine"
	"github.com/celerix-dev/celerix-dash/internal/logging"
	"github.com/celerix-dev/celerix-dash/internal/query"
	"github.com/celerix-dev/celerix-dash/internal/remote"
)

// Config is the complete configuration of the daemon and the CLI.
type Config struct {
	HTTP    HTTPConfig     `yaml:"http"`
	Storage engine.Config  `yaml:"storage"`
	Remote  RemoteConfig   `yaml:"remote"`
	Query   query.Config   `yaml:"query"`
	Auth    AuthConfig     `yaml:"auth"`
	UI      UIConfig       `yaml:"ui"`
	Log     logging.Config `yaml:"log"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
	// Debug runs gin in debug mode.
	Debug bool `yaml:"debug"`
}

// RemoteConfig points at the users API.
type RemoteConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// AuthConfig is the credential pair the mock authenticator accepts.
type AuthConfig struct {
	Email    string        `yaml:"email"`
	Password string        `yaml:"password"`
	Delay    time.Duration `yaml:"delay"`
}

type UIConfig struct {
	// SearchDebounce is how long the users page waits after a keystroke
	// before it filters.
	SearchDebounce time.Duration `yaml:"search_debounce"`
	LogPageSize    int           `yaml:"log_page_size"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{Addr: ":7080"},
		Storage: engine.Config{
			Driver: engine.DriverFile,
			Dir:    "./data",
			Redis:  engine.RedisConfig{Addr: "localhost:6379", Prefix: "celerix-dash:"},
		},
		Remote: RemoteConfig{BaseURL: remote.DefaultBaseURL, Timeout: remote.DefaultTimeout},
		Query:  query.DefaultConfig(),
		Auth: AuthConfig{
			Email:    auth.DemoEmail,
			Password: auth.DemoPassword,
			Delay:    auth.DemoDelay,
		},
		UI:  UIConfig{SearchDebounce: 300 * time.Millisecond, LogPageSize: 10},
		Log: logging.Config{Level: "info", Format: "console"},
	}
}

// LoadFile merges the YAML file at path into c. Unknown keys are rejected.
func (c *Config) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate rejects values the daemon cannot run with.
func (c Config) Validate() error {
	var errs error

	if c.HTTP.Addr == "" {
		errs = multierr.Append(errs, errors.New("http.addr is empty"))
	}
	switch c.Storage.Driver {
	case engine.DriverFile, engine.DriverSQLite, engine.DriverRedis, engine.DriverMemory:
	default:
		errs = multierr.Append(errs, fmt.Errorf("storage.driver %q is not one of file, sqlite, redis, memory", c.Storage.Driver))
	}
	if c.Storage.Driver == engine.DriverFile && c.Storage.Dir == "" {
		errs = multierr.Append(errs, errors.New("storage.dir is empty"))
	}
	if c.Storage.Driver == engine.DriverRedis && c.Storage.Redis.Addr == "" {
		errs = multierr.Append(errs, errors.New("storage.redis.addr is empty"))
	}
	if !strings.HasPrefix(c.Remote.BaseURL, "http://") && !strings.HasPrefix(c.Remote.BaseURL, "https://") {
		errs = multierr.Append(errs, fmt.Errorf("remote.base_url %q is not an http(s) URL", c.Remote.BaseURL))
	}
	if c.Remote.Timeout <= 0 {
		errs = multierr.Append(errs, errors.New("remote.timeout must be positive"))
	}
	if c.Query.Retry < 0 {
		errs = multierr.Append(errs, errors.New("query.retry must not be negative"))
	}
	if c.Query.RetryDelay < 0 {
		errs = multierr.Append(errs, errors.New("query.retry_delay must not be negative"))
	}
	if c.Auth.Email == "" || c.Auth.Password == "" {
		errs = multierr.Append(errs, errors.New("auth.email and auth.password are required"))
	}
	if c.Auth.Delay < 0 {
		errs = multierr.Append(errs, errors.New("auth.delay must not be negative"))
	}
	if c.UI.SearchDebounce < 0 {
		errs = multierr.Append(errs, errors.New("ui.search_debounce must not be negative"))
	}
	if c.UI.LogPageSize <= 0 {
		errs = multierr.Append(errs, errors.New("ui.log_page_size must be positive"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = multierr.Append(errs, err)
	}

	return errs
}
