package config

import (
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"time"
)

type ServerConfig struct {
	Address           string        `mapstructure:"address" validate:"required"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	RequestsPerSecond uint          `mapstructure:"requests_per_second" validate:"gte=1"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" validate:"gt=0"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	MaxPollTimeout    time.Duration `mapstructure:"max_poll_timeout" validate:"gt=0"`
	ReleaseMode       bool          `mapstructure:"release_mode"`
}

func (config ServerConfig) validate() error {
	return validator.New().Struct(config)
}

func (config ServerConfig) bind(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"server.address":             "SERVER_ADDRESS",
		"server.requests_per_second": "RATE_LIMIT_REQUESTS_PER_SECOND",
		"server.release_mode":        "RELEASE_MODE",
	})
}
