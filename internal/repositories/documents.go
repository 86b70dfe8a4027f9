package repositories

import (
	"context"
	"errors"
	"github.com/hrishi-sarma/codeforedtech/internal/entities"
	"gorm.io/gorm"
)

type Documents struct {
	db *gorm.DB
}

func NewDocumentsRepository(db *gorm.DB) *Documents {
	return &Documents{db: db}
}

func (repo *Documents) Create(ctx context.Context, document *entities.JobDocument) error {
	return repo.db.WithContext(ctx).Create(document).Error
}

func (repo *Documents) GetByID(ctx context.Context, id int64) (*entities.JobDocument, error) {
	var document entities.JobDocument
	if err := repo.db.WithContext(ctx).First(&document, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &document, nil
}

func (repo *Documents) ListByJob(ctx context.Context, jobID int64) ([]entities.JobDocument, error) {
	var documents []entities.JobDocument
	if err := repo.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at asc, id asc").
		Find(&documents).Error; err != nil {
		return nil, err
	}
	return documents, nil
}

func (repo *Documents) Delete(ctx context.Context, id int64) error {
	return repo.db.WithContext(ctx).Delete(&entities.JobDocument{}, "id = ?", id).Error
}
