package config

import (
	"fmt"
	"github.com/spf13/viper"
)

type storageBackend string

const (
	StorageDatabase storageBackend = "database"
	StorageGCS      storageBackend = "gcs"
)

// StorageConfig.Buckets maps logical bucket names (resumes, job-pdfs) to
// GCS bucket names.
type StorageConfig struct {
	Backend         storageBackend    `mapstructure:"backend"`
	Buckets         map[string]string `mapstructure:"buckets"`
	CredentialsFile string            `mapstructure:"credentials_file"`
}

func (config StorageConfig) validate() error {
	switch config.Backend {
	case StorageDatabase:
		return nil
	case StorageGCS:
		for _, name := range []string{"resumes", "job-pdfs"} {
			if config.Buckets[name] == "" {
				return fmt.Errorf("missing variable: buckets.%s", name)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown storage backend %q", config.Backend)
	}
}

func (config StorageConfig) bind(v *viper.Viper) error {
	return bindAll(v, map[string]string{
		"storage.backend":          "STORAGE_BACKEND",
		"storage.credentials_file": "GOOGLE_APPLICATION_CREDENTIALS",
	})
}
