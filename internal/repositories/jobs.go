package repositories

import (
	"context"
	"errors"
	"github.com/hrishi-sarma/codeforedtech/internal/entities"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"time"
)

type Jobs struct {
	db *gorm.DB
}

func NewJobsRepository(db *gorm.DB) *Jobs {
	return &Jobs{db: db}
}

func (repo *Jobs) Create(ctx context.Context, job *entities.Job) error {
	return repo.db.WithContext(ctx).Create(job).Error
}

// GetByID returns nil, nil when the job does not exist.
func (repo *Jobs) GetByID(ctx context.Context, id int64) (*entities.Job, error) {
	var job entities.Job
	if err := repo.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (repo *Jobs) GetByIDs(ctx context.Context, ids []int64) ([]entities.Job, error) {
	var jobs []entities.Job
	if len(ids) == 0 {
		return jobs, nil
	}
	if err := repo.db.WithContext(ctx).Find(&jobs, "id IN ?", ids).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (repo *Jobs) List(ctx context.Context) ([]entities.Job, error) {
	var jobs []entities.Job
	if err := repo.db.WithContext(ctx).Order("created_at desc, id desc").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (repo *Jobs) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := repo.db.WithContext(ctx).Model(&entities.Job{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ListActiveNotAppliedBy returns active jobs without an application from
// userID. An empty userID returns every active job.
func (repo *Jobs) ListActiveNotAppliedBy(ctx context.Context, userID string) ([]entities.Job, error) {
	query := repo.db.WithContext(ctx).Where("status = ?", entities.JobActive)
	if userID != "" {
		query = query.Where("NOT EXISTS (SELECT 1 FROM job_applications a WHERE a.job_id = jobs.id AND a.user_id = ?)", userID)
	}

	var jobs []entities.Job
	if err := query.Order("created_at desc, id desc").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// SetStatus always writes, so updated_at is refreshed even when the status
// does not change.
func (repo *Jobs) SetStatus(ctx context.Context, id int64, status entities.JobStatus) error {
	res := repo.db.WithContext(ctx).Model(&entities.Job{}).Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (repo *Jobs) SetDetailedDescription(ctx context.Context, id int64, description string) error {
	return repo.db.WithContext(ctx).Model(&entities.Job{}).Where("id = ?", id).
		Updates(map[string]any{
			"detailed_description": description,
			"updated_at":           time.Now().UTC(),
		}).Error
}

func (repo *Jobs) SetExtracted(ctx context.Context, id int64, extracted map[string]any) error {
	return repo.db.WithContext(ctx).Model(&entities.Job{}).Where("id = ?", id).
		Updates(map[string]any{
			"extracted":  datatypes.JSONMap(extracted),
			"updated_at": time.Now().UTC(),
		}).Error
}

// RecountApplications recomputes applications_count from job_applications and
// returns the stored and recomputed values.
func (repo *Jobs) RecountApplications(ctx context.Context, id int64) (before int64, after int64, err error) {
	err = repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job entities.Job
		if err := tx.Select("id", "applications_count").First(&job, "id = ?", id).Error; err != nil {
			return err
		}
		before = job.ApplicationsCount

		if err := tx.Model(&entities.Application{}).Where("job_id = ?", id).Count(&after).Error; err != nil {
			return err
		}

		if before == after {
			return nil
		}
		return tx.Model(&entities.Job{}).Where("id = ?", id).UpdateColumn("applications_count", after).Error
	})
	return before, after, err
}

func (repo *Jobs) CountByStatus(ctx context.Context) (map[entities.JobStatus]int64, error) {
	var rows []struct {
		Status entities.JobStatus
		Total  int64
	}
	if err := repo.db.WithContext(ctx).Model(&entities.Job{}).
		Select("status, COUNT(*) AS total").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := map[entities.JobStatus]int64{
		entities.JobProcessing: 0,
		entities.JobInactive:   0,
		entities.JobActive:     0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func (repo *Jobs) Delete(ctx context.Context, id int64) (int64, error) {
	res := repo.db.WithContext(ctx).Delete(&entities.Job{}, "id = ?", id)
	return res.RowsAffected, res.Error
}
