package config

import (
	"fmt"
	"github.com/spf13/viper"
	"time"
)

type AuthConfig struct {
	SecretKey   string        `mapstructure:"secret_key"`
	Issuer      string        `mapstructure:"issuer"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
	BcryptCost  int           `mapstructure:"bcrypt_cost"`
	AdminEmails []string      `mapstructure:"admin_emails"`
}

func (config AuthConfig) validate() error {
	if config.SecretKey == "" {
		return fmt.Errorf("missing variable: secret_key")
	}
	if len(config.SecretKey) < 16 {
		return fmt.Errorf("secret_key must be at least 16 characters")
	}
	if config.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be positive")
	}
	return nil
}

func (config AuthConfig) bind(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"auth.secret_key":   "SECRET_KEY",
		"auth.issuer":       "JWT_ISSUER",
		"auth.admin_emails": "ADMIN_EMAILS",
	})
}
