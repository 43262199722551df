package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/banknovo/poolbench/bench"
	"github.com/banknovo/poolbench/dialect"
)

const envPrefix = "POOLBENCH"

// Config keys. Flags use the same names with dashes.
const (
	cfgKeyDriver      = "driver"
	cfgKeyHost        = "host"
	cfgKeyPort        = "port"
	cfgKeyUser        = "user"
	cfgKeyPassword    = "password"
	cfgKeyDatabase    = "database"
	cfgKeyTable       = "table"
	cfgKeyCount       = "count"
	cfgKeyPoolSize    = "pool_size"
	cfgKeyScenarios   = "scenarios"
	cfgKeyVerify      = "verify"
	cfgKeyMetricsFile = "metrics_file"
	cfgKeyLogLevel    = "log_level"
	cfgKeyLogFormat   = "log_format"
)

var configKeys = []string{
	cfgKeyDriver, cfgKeyHost, cfgKeyPort, cfgKeyUser, cfgKeyPassword, cfgKeyDatabase,
	cfgKeyTable, cfgKeyCount, cfgKeyPoolSize, cfgKeyScenarios, cfgKeyVerify,
	cfgKeyMetricsFile, cfgKeyLogLevel, cfgKeyLogFormat,
}

var defaultScenarios = []string{scenarioDirect, scenarioPool}

// loadConfig layers, lowest first: bench.DefaultConfig, the config file (if
// any), POOLBENCH_* environment variables, and flags the user set.
func loadConfig(configFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	def := bench.DefaultConfig()
	v.SetDefault(cfgKeyDriver, def.Endpoint.Driver)
	v.SetDefault(cfgKeyHost, def.Endpoint.Host)
	v.SetDefault(cfgKeyPort, def.Endpoint.Port)
	v.SetDefault(cfgKeyUser, def.Endpoint.User)
	v.SetDefault(cfgKeyPassword, def.Endpoint.Password)
	v.SetDefault(cfgKeyDatabase, def.Endpoint.Database)
	v.SetDefault(cfgKeyTable, def.Table)
	v.SetDefault(cfgKeyCount, def.InsertCount)
	v.SetDefault(cfgKeyPoolSize, def.MaxPoolSize)
	v.SetDefault(cfgKeyScenarios, defaultScenarios)
	v.SetDefault(cfgKeyVerify, false)
	v.SetDefault(cfgKeyLogLevel, "info")
	v.SetDefault(cfgKeyLogFormat, "console")

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		for _, key := range configKeys {
			f := flags.Lookup(strings.ReplaceAll(key, "_", "-"))
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", f.Name, err)
			}
		}
	}
	return v, nil
}

// benchConfig reads the benchmark settings out of v.
func benchConfig(v *viper.Viper) bench.Config {
	return bench.Config{
		Endpoint: dialect.Endpoint{
			Driver:   v.GetString(cfgKeyDriver),
			Host:     v.GetString(cfgKeyHost),
			Port:     v.GetInt(cfgKeyPort),
			User:     v.GetString(cfgKeyUser),
			Password: v.GetString(cfgKeyPassword),
			Database: v.GetString(cfgKeyDatabase),
		},
		Table:       v.GetString(cfgKeyTable),
		InsertCount: v.GetInt(cfgKeyCount),
		MaxPoolSize: v.GetInt(cfgKeyPoolSize),
	}
}
