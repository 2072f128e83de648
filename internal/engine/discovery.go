package engine

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-dash/internal/vault"
)

// Storage drivers understood by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Config selects and configures the persistence driver.
type Config struct {
	// Driver is one of file, sqlite, redis or memory.
	Driver string `yaml:"driver"`
	// Dir is the data directory of the file driver.
	Dir string `yaml:"dir"`
	// SQLitePath is the database file of the sqlite driver. Defaults to Dir/dash.db.
	SQLitePath string `yaml:"sqlite_path"`
	// Redis configures the redis driver.
	Redis RedisConfig `yaml:"redis"`
	// Passphrase, when set, seals every record at rest.
	Passphrase string `yaml:"passphrase"`
}

// Open initializes the backend described by cfg.
// It returns the interface, so callers don't care where records live.
func Open(ctx context.Context, cfg Config, log *zap.Logger) (Backend, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var key []byte
	if cfg.Passphrase != "" {
		var err error
		if key, err = vault.DeriveKey(cfg.Passphrase); err != nil {
			return nil, err
		}
	}

	var (
		backend Backend
		err     error
	)

	switch cfg.Driver {
	case "", DriverFile:
		backend, err = NewFileBackend(cfg.Dir)
	case DriverSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = filepath.Join(cfg.Dir, "dash.db")
		}
		backend, err = NewSQLiteBackend(path, log.Named("sqlite"))
	case DriverRedis:
		backend, err = NewRedisBackend(ctx, cfg.Redis, log.Named("redis"))
	case DriverMemory:
		backend = NewMemBackend(nil)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Driver, err)
	}

	if key == nil {
		log.Info("storage opened", zap.String("driver", driverName(cfg.Driver)))
		return backend, nil
	}

	sealed, err := seal(backend, key)
	if err != nil {
		return nil, err
	}
	log.Info("storage opened", zap.String("driver", driverName(cfg.Driver)), zap.Bool("sealed", true))
	return sealed, nil
}

// seal wraps backend with sealing under key. On failure backend is closed.
func seal(backend Backend, key []byte) (Backend, error) {
	sealed, err := NewSealedBackend(backend, key)
	if err != nil {
		return nil, multierr.Append(err, backend.Close())
	}
	return sealed, nil
}

func driverName(d string) string {
	if d == "" {
		return DriverFile
	}
	return d
}
