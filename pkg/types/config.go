package types

import (
	"errors"
	"time"
)

// Config describes the connection pool opened by yorm.Open and the CLI.
type Config struct {
	Driver          string        `json:"driver" yaml:"driver" mapstructure:"driver"`
	DSN             string        `json:"dsn" yaml:"dsn" mapstructure:"dsn"`
	DataDir         string        `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	LogLevel        string        `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	MigrationsDir   string        `json:"migrations_dir" yaml:"migrations_dir" mapstructure:"migrations_dir"`
}

// Supported driver names. They match the names the drivers register with
// database/sql.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Config validation errors.
var (
	ErrDriverEmpty         = errors.New("driver must not be empty")
	ErrDriverUnknown       = errors.New("unknown driver")
	ErrDSNEmpty            = errors.New("dsn must not be empty")
	ErrPoolSizeInvalid     = errors.New("pool size must not be negative")
	ErrConnLifetimeInvalid = errors.New("connection lifetime must not be negative")
	ErrLogLevelUnknown     = errors.New("unknown log level")
)

// knownDrivers lists the drivers that Validate accepts.
var knownDrivers = map[string]bool{
	DriverSQLite:   true,
	DriverMySQL:    true,
	DriverPostgres: true,
}

var knownLogLevels = map[string]bool{
	"":      true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure. SQLite may leave DSN empty; the database file
// then lives in DataDir.
func (c Config) Validate() error {
	if c.Driver == "" {
		return ErrDriverEmpty
	}
	if !knownDrivers[c.Driver] {
		return ErrDriverUnknown
	}
	if c.DSN == "" && c.Driver != DriverSQLite {
		return ErrDSNEmpty
	}
	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 {
		return ErrPoolSizeInvalid
	}
	if c.ConnMaxLifetime < 0 {
		return ErrConnLifetimeInvalid
	}
	if !knownLogLevels[c.LogLevel] {
		return ErrLogLevelUnknown
	}
	return nil
}
