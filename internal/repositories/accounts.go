package repositories

import (
	"context"
	"errors"
	"github.com/hrishi-sarma/codeforedtech/internal/entities"
	"gorm.io/gorm"
)

var ErrEmailTaken = errors.New("email is already registered")

type Accounts struct {
	db *gorm.DB
}

func NewAccountsRepository(db *gorm.DB) *Accounts {
	return &Accounts{db: db}
}

// CreateWithProfile inserts the account and its profile in one transaction.
func (repo *Accounts) CreateWithProfile(ctx context.Context, account *entities.Account, profile *entities.UserProfile) error {
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			if IsUniqueViolation(err) {
				return ErrEmailTaken
			}
			return err
		}
		return tx.Create(profile).Error
	})
}

func (repo *Accounts) GetByEmail(ctx context.Context, email string) (*entities.Account, error) {
	var account entities.Account
	if err := repo.db.WithContext(ctx).First(&account, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (repo *Accounts) GetByID(ctx context.Context, id string) (*entities.Account, error) {
	var account entities.Account
	if err := repo.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}
