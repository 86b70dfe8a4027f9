package repositories

import (
	"fmt"
	"github.com/glebarez/sqlite"
	"github.com/hrishi-sarma/codeforedtech/internal/entities"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"strings"
)

type DbContext struct {
	DB *gorm.DB
}

// NewDbContext opens postgres for postgres:// and postgresql:// connection
// strings and a SQLite file for anything else.
func NewDbContext(connectionString string, logQueries bool) (*DbContext, error) {
	logMode := logger.Error
	if logQueries {
		logMode = logger.Info
	}

	db, err := gorm.Open(dialector(connectionString), &gorm.Config{
		Logger:         logger.Default.LogMode(logMode),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	return &DbContext{DB: db}, nil
}

func dialector(connectionString string) gorm.Dialector {
	if strings.HasPrefix(connectionString, "postgres://") || strings.HasPrefix(connectionString, "postgresql://") {
		return postgres.Open(connectionString)
	}
	if !strings.Contains(connectionString, "?") {
		connectionString += "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	return sqlite.Open(connectionString)
}

func (c *DbContext) Migrate() error {
	models := []struct {
		name  string
		model any
	}{
		{"UserProfile", entities.UserProfile{}},
		{"Account", entities.Account{}},
		{"Job", entities.Job{}},
		{"JobDocument", entities.JobDocument{}},
		{"Application", entities.Application{}},
		{"Note", entities.Note{}},
		{"Update", entities.Update{}},
		{"Task", entities.Task{}},
		{"Blob", entities.Blob{}},
	}

	for _, m := range models {
		if err := c.DB.AutoMigrate(m.model); err != nil {
			return fmt.Errorf("failed to migrate %s entity: %w", m.name, err)
		}
	}

	if err := c.DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_application_user_job " +
		"ON job_applications (user_id, job_id)").Error; err != nil {
		return fmt.Errorf("failed to create application index: %w", err)
	}

	return nil
}

func (c *DbContext) Close() error {
	db, err := c.DB.DB()
	if err != nil {
		return err
	}

	return db.Close()
}
