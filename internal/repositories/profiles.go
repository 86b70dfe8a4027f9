package repositories

import (
	"context"
	"errors"
	"github.com/hrishi-sarma/codeforedtech/internal/entities"
	"gorm.io/gorm"
	"time"
)

type Profiles struct {
	db *gorm.DB
}

func NewProfilesRepository(db *gorm.DB) *Profiles {
	return &Profiles{db: db}
}

func (repo *Profiles) Create(ctx context.Context, profile *entities.UserProfile) error {
	return repo.db.WithContext(ctx).Create(profile).Error
}

// Get returns nil, nil when no profile exists for the id.
func (repo *Profiles) Get(ctx context.Context, userID string) (*entities.UserProfile, error) {
	var profile entities.UserProfile
	if err := repo.db.WithContext(ctx).First(&profile, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// GetRole reads the stored role. A missing profile has no privileges.
func (repo *Profiles) GetRole(ctx context.Context, userID string) (entities.Role, error) {
	var profile entities.UserProfile
	err := repo.db.WithContext(ctx).Select("role").Where("id = ?", userID).Take(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.RoleUser, nil
		}
		return "", err
	}
	return profile.Role, nil
}

// SetResumeURL replaces the stored pointer. A nil url clears it.
func (repo *Profiles) SetResumeURL(ctx context.Context, userID string, url *string) error {
	res := repo.db.WithContext(ctx).Model(&entities.UserProfile{}).Where("id = ?", userID).
		Updates(map[string]any{
			"resume_url": url,
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
