package config

import (
	"fmt"
	"github.com/spf13/viper"
)

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

func (config MetricsConfig) validate() error {
	if config.Enabled && config.Address == "" {
		return fmt.Errorf("missing variable: address")
	}
	return nil
}

func (config MetricsConfig) bind(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"metrics.enabled": "METRICS_ENABLED",
		"metrics.address": "METRICS_ADDRESS",
	})
}
