package entities

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type UserProfile struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	ResumeURL *string   `json:"resume_url,omitempty"`
	Role      Role      `gorm:"not null;default:user" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}

func (p UserProfile) HasResume() bool {
	return p.ResumeURL != nil && *p.ResumeURL != ""
}

// Account holds sign-in credentials. Its ID is shared with UserProfile.
type Account struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Account) TableName() string {
	return "accounts"
}
