package config

import (
	"errors"
	"fmt"
	_ "github.com/joho/godotenv/autoload"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"os"
)

type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger"`
	DB      DBConfig      `mapstructure:"db"`
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Scoring ScoringConfig `mapstructure:"scoring"`
	Storage StorageConfig `mapstructure:"storage"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Jobs    JobsConfig    `mapstructure:"jobs"`
}

type section interface {
	validate() error
	bind(v *viper.Viper) error
}

var configFile = "./configs/config.yaml"

func Get() *Config {

	config, err := Load()
	if err != nil {
		log.Fatal(err)
	}

	return config
}

func Load() (*Config, error) {
	file := configFile
	if value, _ := os.LookupEnv("MODE"); value == "test" {
		file = "../../configs/config.yaml"
	}
	if value, ok := os.LookupEnv("CONFIG_PATH"); ok && value != "" {
		file = value
	}
	return loadConfig(file)
}

func loadConfig(file string) (*Config, error) {

	v := viper.New()
	v.SetConfigFile(file)
	v.AutomaticEnv()

	err := bindEnvironmentVariables(v)
	if err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", file, err)
	}

	config := Config{}
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	err = config.validate()
	if err != nil {
		return nil, err
	}

	return &config, nil
}

func (config Config) sections() map[string]section {
	return map[string]section{
		"LoggerConfig":  config.Logger,
		"DBConfig":      config.DB,
		"ServerConfig":  config.Server,
		"AuthConfig":    config.Auth,
		"ScoringConfig": config.Scoring,
		"StorageConfig": config.Storage,
		"MetricsConfig": config.Metrics,
		"JobsConfig":    config.Jobs,
	}
}

func bindEnvironmentVariables(v *viper.Viper) error {
	var errs []error

	for name, s := range (Config{}).sections() {
		if err := s.bind(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

func (config Config) validate() error {
	var errs []error

	for name, s := range config.sections() {
		if err := s.validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

func bindAll(v *viper.Viper, keys map[string]string) error {
	var errs []error
	for key, env := range keys {
		if err := v.BindEnv(key, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
