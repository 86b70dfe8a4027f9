package repositories

import (
	"context"
	"errors"
	"github.com/hrishi-sarma/codeforedtech/internal/entities"
	"gorm.io/gorm"
)

var ErrDuplicateApplication = errors.New("application for this user and job already exists")

type Applications struct {
	db *gorm.DB
}

func NewApplicationsRepository(db *gorm.DB) *Applications {
	return &Applications{db: db}
}

// Create returns ErrDuplicateApplication when the (user_id, job_id) unique
// constraint rejects the row.
func (repo *Applications) Create(ctx context.Context, application *entities.Application) error {
	err := repo.db.WithContext(ctx).Create(application).Error
	if IsUniqueViolation(err) {
		return ErrDuplicateApplication
	}
	return err
}

// Get returns nil, nil when the user has not applied to the job.
func (repo *Applications) Get(ctx context.Context, userID string, jobID int64) (*entities.Application, error) {
	var application entities.Application
	err := repo.db.WithContext(ctx).
		Where("user_id = ? AND job_id = ?", userID, jobID).
		First(&application).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &application, nil
}

func (repo *Applications) Exists(ctx context.Context, userID string, jobID int64) (bool, error) {
	var count int64
	if err := repo.db.WithContext(ctx).Model(&entities.Application{}).
		Where("user_id = ? AND job_id = ?", userID, jobID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByUser returns the user's applications, most recent first.
func (repo *Applications) ListByUser(ctx context.Context, userID string) ([]entities.Application, error) {
	var applications []entities.Application
	if err := repo.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("applied_at desc, id desc").
		Find(&applications).Error; err != nil {
		return nil, err
	}
	return applications, nil
}

func (repo *Applications) ListByJob(ctx context.Context, jobID int64) ([]entities.Application, error) {
	var applications []entities.Application
	if err := repo.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("applied_at asc, id asc").
		Find(&applications).Error; err != nil {
		return nil, err
	}
	return applications, nil
}

func (repo *Applications) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := repo.db.WithContext(ctx).Model(&entities.Application{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (repo *Applications) DeleteByJob(ctx context.Context, jobID int64) (int64, error) {
	res := repo.db.WithContext(ctx).Delete(&entities.Application{}, "job_id = ?", jobID)
	return res.RowsAffected, res.Error
}
