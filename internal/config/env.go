package config

import (
	"fmt"
	"strconv"
	"time"
)

// EnvPrefix prefixes every environment variable the configuration reads.
const EnvPrefix = "CELERIX_DASH_"

// LookupFunc reads an environment variable; os.LookupEnv in production.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides c with the CELERIX_DASH_* variables that are set.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	e := envReader{lookup: lookup}

	e.str("ADDR", &c.HTTP.Addr)
	e.bool("DEBUG", &c.HTTP.Debug)

	e.str("STORAGE_DRIVER", &c.Storage.Driver)
	e.str("DATA_DIR", &c.Storage.Dir)
	e.str("SQLITE_PATH", &c.Storage.SQLitePath)
	e.str("REDIS_ADDR", &c.Storage.Redis.Addr)
	e.str("REDIS_PASSWORD", &c.Storage.Redis.Password)
	e.int("REDIS_DB", &c.Storage.Redis.DB)
	e.str("REDIS_PREFIX", &c.Storage.Redis.Prefix)
	e.str("PASSPHRASE", &c.Storage.Passphrase)

	e.str("REMOTE_URL", &c.Remote.BaseURL)
	e.duration("REMOTE_TIMEOUT", &c.Remote.Timeout)

	e.int("QUERY_RETRY", &c.Query.Retry)
	e.duration("QUERY_RETRY_DELAY", &c.Query.RetryDelay)

	e.str("AUTH_EMAIL", &c.Auth.Email)
	e.str("AUTH_PASSWORD", &c.Auth.Password)
	e.duration("AUTH_DELAY", &c.Auth.Delay)

	e.duration("SEARCH_DEBOUNCE", &c.UI.SearchDebounce)
	e.int("LOG_PAGE_SIZE", &c.UI.LogPageSize)

	e.str("LOG_LEVEL", &c.Log.Level)
	e.str("LOG_FORMAT", &c.Log.Format)

	return e.err
}

// envReader records the first malformed value and ignores the rest.
type envReader struct {
	lookup LookupFunc
	err    error
}

func (e *envReader) get(name string) (string, bool) {
	if e.err != nil {
		return "", false
	}
	return e.lookup(EnvPrefix + name)
}

func (e *envReader) fail(name, val string, err error) {
	e.err = fmt.Errorf("%s%s=%q: %w", EnvPrefix, name, val, err)
}

func (e *envReader) str(name string, dst *string) {
	if v, ok := e.get(name); ok {
		*dst = v
	}
}

func (e *envReader) bool(name string, dst *bool) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(name, v, err)
		return
	}
	*dst = b
}

func (e *envReader) int(name string, dst *int) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(name, v, err)
		return
	}
	*dst = n
}

func (e *envReader) duration(name string, dst *time.Duration) {
	v, ok := e.get(name)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(name, v, err)
		return
	}
	*dst = d
}
