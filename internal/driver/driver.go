// Package driver opens connection pools for the supported SQL drivers.
package driver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/yorm/pkg/types"
)

// DatabaseFile is the SQLite file created in the data directory when no DSN
// is configured.
const DatabaseFile = "yorm.db"

func init() {
	// modernc registers as "sqlite", which sqlx does not know.
	sqlx.BindDriver(types.DriverSQLite, sqlx.QUESTION)
}

// DataSourceName returns the DSN handed to sql.Open for cfg.
func DataSourceName(cfg types.Config) (string, error) {
	switch cfg.Driver {
	case types.DriverSQLite:
		if cfg.DSN != "" {
			return cfg.DSN, nil
		}
		dir := cfg.DataDir
		if dir == "" {
			dir = "."
		}
		return filepath.Join(dir, DatabaseFile), nil

	case types.DriverMySQL:
		c, err := mysql.ParseDSN(cfg.DSN)
		if err != nil {
			return "", errors.Wrap(err, "parse mysql dsn")
		}
		c.ParseTime = true
		c.Loc = time.UTC
		return c.FormatDSN(), nil

	case types.DriverPostgres:
		if strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://") {
			dsn, err := pq.ParseURL(cfg.DSN)
			if err != nil {
				return "", errors.Wrap(err, "parse postgres url")
			}
			return dsn, nil
		}
		return cfg.DSN, nil
	}
	return "", errors.Wrapf(types.ErrDriverUnknown, "driver %q", cfg.Driver)
}

// Open validates cfg, connects, and applies the configured pool limits.
func Open(ctx context.Context, cfg types.Config) (*sqlx.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	dsn, err := DataSourceName(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Driver == types.DriverSQLite && cfg.DSN == "" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, errors.Wrap(err, "create data directory")
		}
	}

	db, err := sqlx.ConnectContext(ctx, cfg.Driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "connect %s", cfg.Driver)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, nil
}

// MigrationDialect maps a driver name to the sql-migrate dialect name.
func MigrationDialect(driverName string) (string, error) {
	switch driverName {
	case types.DriverSQLite:
		return "sqlite3", nil
	case types.DriverMySQL:
		return "mysql", nil
	case types.DriverPostgres:
		return "postgres", nil
	}
	return "", errors.Wrapf(types.ErrDriverUnknown, "driver %q", driverName)
}
