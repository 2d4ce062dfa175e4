package cli

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/yorm/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFile     = "config.yaml"
	envPrefix      = "YORM"

	cfgKeyDriver          = "driver"
	cfgKeyDSN             = "dsn"
	cfgKeyDataDir         = "data_dir"
	cfgKeyMaxOpenConns    = "max_open_conns"
	cfgKeyMaxIdleConns    = "max_idle_conns"
	cfgKeyConnMaxLifetime = "conn_max_lifetime"
	cfgKeyLogLevel        = "log_level"
	cfgKeyMigrationsDir   = "migrations_dir"
)

// configDefaults seeds every key so Unmarshal sees values from the
// environment as well as the file.
var configDefaults = map[string]any{
	cfgKeyDriver:          types.DriverSQLite,
	cfgKeyDSN:             "",
	cfgKeyDataDir:         "",
	cfgKeyMaxOpenConns:    0,
	cfgKeyMaxIdleConns:    0,
	cfgKeyConnMaxLifetime: "0s",
	cfgKeyLogLevel:        "info",
	cfgKeyMigrationsDir:   "",
}

// envKeys may be overridden by YORM_<KEY> variables. data_dir is resolved
// separately through paths.ResolveDataDir.
var envKeys = []string{cfgKeyDriver, cfgKeyDSN, cfgKeyLogLevel, cfgKeyMigrationsDir}

// loadConfig reads config.yaml from configDir. A missing file leaves the
// defaults in place.
func loadConfig(configDir string) (types.Config, error) {
	v := viper.New()
	for k, val := range configDefaults {
		v.SetDefault(k, val)
	}
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	for _, k := range envKeys {
		if err := v.BindEnv(k); err != nil {
			return types.Config{}, errors.Wrapf(err, "bind %s", k)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.Config{}, errors.Wrap(err, "read config")
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, errors.Wrap(err, "decode config")
	}
	return cfg, nil
}

// fileConfig is the subset of types.Config written by init.
type fileConfig struct {
	Driver        string `yaml:"driver"`
	DSN           string `yaml:"dsn,omitempty"`
	DataDir       string `yaml:"data_dir,omitempty"`
	LogLevel      string `yaml:"log_level,omitempty"`
	MigrationsDir string `yaml:"migrations_dir,omitempty"`
}

// writeConfigIfMissing writes cfg to configDir/config.yaml unless the file
// exists. It reports whether it wrote the file.
func writeConfigIfMissing(configDir string, cfg types.Config) (bool, error) {
	path := filepath.Join(configDir, configFile)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, errors.Wrap(err, "stat config file")
	}

	data, err := yaml.Marshal(fileConfig{
		Driver:        cfg.Driver,
		DSN:           cfg.DSN,
		DataDir:       cfg.DataDir,
		LogLevel:      cfg.LogLevel,
		MigrationsDir: cfg.MigrationsDir,
	})
	if err != nil {
		return false, errors.Wrap(err, "marshal config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, errors.Wrap(err, "write config")
	}
	return true, nil
}
