package config

import (
	"fmt"
	"github.com/spf13/viper"
)

type DBConfig struct {
	ConnectionString string `mapstructure:"connection_string"`
	LogQueries       bool   `mapstructure:"log_queries"`
}

func (config DBConfig) validate() error {
	if config.ConnectionString == "" {
		return fmt.Errorf("missing variable: db connection string")
	}
	return nil
}

func (config DBConfig) bind(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"db.connection_string": "DB_CONNECTION_STRING",
		"db.log_queries":       "DB_LOG_QUERIES",
	})
}
