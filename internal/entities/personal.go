package entities

import "time"

type Note struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"not null;index" json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Note) TableName() string {
	return "notes"
}

type Update struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"not null;index" json:"user_id"`
	Message   string    `gorm:"not null" json:"message"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func (Update) TableName() string {
	return "updates"
}

type Task struct {
	ID        int64      `gorm:"primaryKey" json:"id"`
	UserID    string     `gorm:"not null;index" json:"user_id"`
	Title     string     `gorm:"not null" json:"title"`
	Done      bool       `gorm:"not null;default:false" json:"done"`
	DueAt     *time.Time `json:"due_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Task) TableName() string {
	return "tasks"
}

// Blob is the database-backed fallback for object storage.
type Blob struct {
	Bucket      string    `gorm:"primaryKey"`
	Key         string    `gorm:"primaryKey"`
	ContentType string
	Size        int64
	Content     []byte
	CreatedAt   time.Time
}

func (Blob) TableName() string {
	return "blobs"
}
