package config

import (
	"errors"
	"fmt"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"time"
)

type JobsConfig struct {
	CountResyncSchedule string        `mapstructure:"count_resync_schedule"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	PollTimeout         time.Duration `mapstructure:"poll_timeout"`
	ShortlistSize       int           `mapstructure:"shortlist_size"`
}

func (config JobsConfig) validate() error {
	var errs []error

	if _, err := cron.ParseStandard(config.CountResyncSchedule); err != nil {
		errs = append(errs, fmt.Errorf("count_resync_schedule: %w", err))
	}
	if config.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive"))
	}
	if config.PollTimeout < config.PollInterval {
		errs = append(errs, fmt.Errorf("poll_timeout must not be shorter than poll_interval"))
	}
	if config.ShortlistSize <= 0 {
		errs = append(errs, fmt.Errorf("shortlist_size must be positive"))
	}

	return errors.Join(errs...)
}

func (config JobsConfig) bind(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"jobs.count_resync_schedule": "COUNT_RESYNC_SCHEDULE",
		"jobs.poll_interval":         "POLL_INTERVAL",
		"jobs.poll_timeout":          "POLL_TIMEOUT",
	})
}
