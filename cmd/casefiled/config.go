// Config loading for casefiled. Values resolve in flag > environment >
// config file > default order; a .env file in the working directory is
// folded into the environment first.
package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configFileName = "casefile"
	configFileType = "yaml"
	envPrefix      = "casefile"

	// Config keys. Each maps to a CASEFILE_* environment variable through
	// the viper env prefix, e.g. listen_addr to CASEFILE_LISTEN_ADDR.
	cfgKeyListenAddr    = "listen_addr"
	cfgKeyStorageDriver = "storage_driver"
	cfgKeySQLitePath    = "sqlite_path"
	cfgKeyPostgresDSN   = "postgres_dsn"
	cfgKeyTokenSecret   = "token_secret"
	cfgKeyTokenTTL      = "token_ttl"
	cfgKeyLogLevel      = "log_level"

	defaultListenAddr    = ":8080"
	defaultStorageDriver = "sqlite"
	defaultSQLitePath    = "casefile.db"
	defaultTokenTTL      = "12h"
	defaultLogLevel      = "info"
)

// loadConfig builds the configuration from defaults, an optional YAML file,
// and CASEFILE_* environment variables. A missing config file is not an
// error; an explicitly passed --config path must exist.
func loadConfig(path string) (*viper.Viper, error) {
	// Development convenience; absence is fine.
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault(cfgKeyListenAddr, defaultListenAddr)
	v.SetDefault(cfgKeyStorageDriver, defaultStorageDriver)
	v.SetDefault(cfgKeySQLitePath, defaultSQLitePath)
	v.SetDefault(cfgKeyTokenTTL, defaultTokenTTL)
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		return v, nil
	}

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}
