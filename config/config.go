// Package config loads application configuration from a file or
// environment variables.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
//
// The values are read by viper from a config file or environment
// variables; command-line flags in cmd/server override them.
type Config struct {
	ServerAddress   string        `mapstructure:"SERVER_ADDRESS"`
	DatabasePath    string        `mapstructure:"DATABASE_PATH"`
	Environment     string        `mapstructure:"GO_ENV"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

// Load reads configuration from an app.env file under path, falling back
// to environment variables and built-in defaults.
func Load(path string) (Config, error) {
	var c Config

	viper.AddConfigPath(path)
	viper.SetConfigName("app")
	viper.SetConfigType("env")

	viper.SetDefault("SERVER_ADDRESS", ":8080")
	viper.SetDefault("DATABASE_PATH", "ledger.db")
	viper.SetDefault("GO_ENV", "development")
	viper.SetDefault("SHUTDOWN_TIMEOUT", 30*time.Second)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine: env vars and defaults apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, err
		}
	}

	if err := viper.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}
