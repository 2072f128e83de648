package config

import (
	"os"

	"github.com/spf13/pflag"
)

// Flags binds the command-line overrides to a flag set.
type Flags struct {
	fs *pflag.FlagSet

	path       string
	addr       string
	debug      bool
	driver     string
	dataDir    string
	sqlitePath string
	redisAddr  string
	remoteURL  string
	logLevel   string
	logFormat  string
}

// NewFlags registers the configuration flags on fs.
func NewFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVarP(&f.path, "config", "c", "", "path to a YAML config file (env "+EnvPrefix+"CONFIG)")
	fs.StringVar(&f.addr, "addr", "", "HTTP listen address")
	fs.BoolVar(&f.debug, "debug", false, "run the HTTP server in debug mode")
	fs.StringVar(&f.driver, "storage-driver", "", "storage driver: file, sqlite, redis or memory")
	fs.StringVar(&f.dataDir, "data-dir", "", "data directory of the file and sqlite drivers")
	fs.StringVar(&f.sqlitePath, "sqlite-path", "", "sqlite database file")
	fs.StringVar(&f.redisAddr, "redis-addr", "", "redis address")
	fs.StringVar(&f.remoteURL, "remote-url", "", "base URL of the users API")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.StringVar(&f.logFormat, "log-format", "", "log format: console or json")
	return f
}

// Load builds the configuration once the flag set has been parsed.
func (f *Flags) Load(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	cfg := Default()

	path := f.path
	if path == "" {
		path, _ = lookup(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.ApplyEnv(lookup); err != nil {
		return Config{}, err
	}
	f.apply(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (f *Flags) apply(cfg *Config) {
	set := func(name string, dst *string, v string) {
		if f.fs.Changed(name) {
			*dst = v
		}
	}
	set("addr", &cfg.HTTP.Addr, f.addr)
	set("storage-driver", &cfg.Storage.Driver, f.driver)
	set("data-dir", &cfg.Storage.Dir, f.dataDir)
	set("sqlite-path", &cfg.Storage.SQLitePath, f.sqlitePath)
	set("redis-addr", &cfg.Storage.Redis.Addr, f.redisAddr)
	set("remote-url", &cfg.Remote.BaseURL, f.remoteURL)
	set("log-level", &cfg.Log.Level, f.logLevel)
	set("log-format", &cfg.Log.Format, f.logFormat)
	if f.fs.Changed("debug") {
		cfg.HTTP.Debug = f.debug
	}
}
