package repositories

import (
	"context"
	"github.com/hrishi-sarma/codeforedtech/internal/entities"
	"gorm.io/gorm"
	"time"
)

type Notes struct {
	db *gorm.DB
}

func NewNotesRepository(db *gorm.DB) *Notes {
	return &Notes{db: db}
}

func (repo *Notes) Add(ctx context.Context, note *entities.Note) error {
	return repo.db.WithContext(ctx).Create(note).Error
}

func (repo *Notes) GetByUser(ctx context.Context, userID string) ([]entities.Note, error) {
	var notes []entities.Note
	if err := repo.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at desc, id desc").Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

// Remove deletes the note only if it belongs to userID.
func (repo *Notes) Remove(ctx context.Context, userID string, id int64) (bool, error) {
	res := repo.db.WithContext(ctx).Delete(&entities.Note{}, "id = ? AND user_id = ?", id, userID)
	return res.RowsAffected > 0, res.Error
}

type Updates struct {
	db *gorm.DB
}

func NewUpdatesRepository(db *gorm.DB) *Updates {
	return &Updates{db: db}
}

func (repo *Updates) Add(ctx context.Context, update *entities.Update) error {
	return repo.db.WithContext(ctx).Create(update).Error
}

func (repo *Updates) GetByUser(ctx context.Context, userID string) ([]entities.Update, error) {
	var updates []entities.Update
	if err := repo.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at desc, id desc").Find(&updates).Error; err != nil {
		return nil, err
	}
	return updates, nil
}

func (repo *Updates) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := repo.db.WithContext(ctx).Model(&entities.Update{}).
		Where("user_id = ? AND read = ?", userID, false).Count(&count).Error
	return count, err
}

func (repo *Updates) MarkRead(ctx context.Context, userID string, id int64) (bool, error) {
	res := repo.db.WithContext(ctx).Model(&entities.Update{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	return res.RowsAffected > 0, res.Error
}

type Tasks struct {
	db *gorm.DB
}

func NewTasksRepository(db *gorm.DB) *Tasks {
	return &Tasks{db: db}
}

func (repo *Tasks) Add(ctx context.Context, task *entities.Task) error {
	return repo.db.WithContext(ctx).Create(task).Error
}

func (repo *Tasks) GetByUser(ctx context.Context, userID string) ([]entities.Task, error) {
	var tasks []entities.Task
	if err := repo.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("done asc, created_at desc").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Complete is idempotent; completing an already done task still reports true.
func (repo *Tasks) Complete(ctx context.Context, userID string, id int64) (bool, error) {
	res := repo.db.WithContext(ctx).Model(&entities.Task{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{"done": true, "updated_at": time.Now().UTC()})
	return res.RowsAffected > 0, res.Error
}
