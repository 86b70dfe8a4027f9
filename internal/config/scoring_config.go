package config

import (
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"time"
)

// ScoringConfig describes the external scoring service. Job ingestion and
// resume processing are served on different ports, so each has its own list
// of candidate base URLs that are probed in order.
type ScoringConfig struct {
	JobBaseURLs          []string      `mapstructure:"job_base_urls" validate:"required,min=1,dive,url"`
	ResumeBaseURLs       []string      `mapstructure:"resume_base_urls" validate:"required,min=1,dive,url"`
	ProbeTimeout         time.Duration `mapstructure:"probe_timeout" validate:"gt=0"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	MaxRequestsPerSecond float32       `mapstructure:"max_requests_per_second" validate:"gte=0"`
	ResolveCacheTTL      time.Duration `mapstructure:"resolve_cache_ttl"`
}

func (config ScoringConfig) validate() error {
	return validator.New().Struct(config)
}

func (config ScoringConfig) bind(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"scoring.job_base_urls":    "SCORING_JOB_BASE_URLS",
		"scoring.resume_base_urls": "SCORING_RESUME_BASE_URLS",
	})
}
