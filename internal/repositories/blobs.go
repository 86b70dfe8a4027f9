package repositories

import (
	"context"
	"errors"
	"github.com/hrishi-sarma/codeforedtech/internal/entities"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"strings"
)

type Blobs struct {
	db *gorm.DB
}

func NewBlobsRepository(db *gorm.DB) *Blobs {
	return &Blobs{db: db}
}

// Save inserts or overwrites the blob stored under bucket and key.
func (repo *Blobs) Save(ctx context.Context, blob *entities.Blob) error {
	return repo.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(blob).Error
}

func (repo *Blobs) Load(ctx context.Context, bucket, key string) (*entities.Blob, error) {
	var blob entities.Blob
	err := repo.db.WithContext(ctx).First(&blob, "bucket = ? AND key = ?", bucket, key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &blob, nil
}

func (repo *Blobs) ListKeys(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	err := repo.db.WithContext(ctx).Model(&entities.Blob{}).
		Where("bucket = ? AND key LIKE ? ESCAPE '\\'", bucket, escapeLike(prefix)+"%").
		Order("key").
		Pluck("key", &keys).Error
	return keys, err
}

func (repo *Blobs) Remove(ctx context.Context, bucket string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return repo.db.WithContext(ctx).Delete(&entities.Blob{}, "bucket = ? AND key IN ?", bucket, keys).Error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
